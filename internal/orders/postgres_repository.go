package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const pqUniqueViolation = "23505"

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateOrder(ctx context.Context, o Order) (Order, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = StatusPending
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO orders (id, buyer_id, cart_id, status, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING created_at`,
		o.ID, o.BuyerID, o.CartID, o.Status).Scan(&o.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return Order{}, ErrCartAlreadyOrdered
		}
		return Order{}, fmt.Errorf("inserting order: %w", err)
	}
	return o, nil
}

func (r *PostgresRepository) GetOrder(ctx context.Context, orderID string) (Order, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT id, buyer_id, cart_id, status, created_at FROM orders WHERE id = $1`, orderID))
}

func (r *PostgresRepository) GetOrderByCart(ctx context.Context, cartID string) (Order, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT id, buyer_id, cart_id, status, created_at FROM orders WHERE cart_id = $1`, cartID))
}

func (r *PostgresRepository) ListOrdersByBuyer(ctx context.Context, buyerID string) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, buyer_id, cart_id, status, created_at
		FROM orders WHERE buyer_id = $1
		ORDER BY created_at DESC`, buyerID)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.BuyerID, &o.CartID, &o.Status, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) ConfirmOrder(ctx context.Context, orderID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback()

	var cartID string
	var status Status
	err = tx.QueryRowContext(ctx,
		`SELECT cart_id, status FROM orders WHERE id = $1 FOR UPDATE`, orderID).
		Scan(&cartID, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("locking order: %w", err)
	}
	if status == StatusConfirmed {
		// Second webhook delivery; the cart is already archived.
		return nil
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = $2 WHERE id = $1`, orderID, StatusConfirmed); err != nil {
		return fmt.Errorf("confirming order: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE carts SET archived = true, updated_at = now() WHERE id = $1`, cartID); err != nil {
		return fmt.Errorf("archiving cart: %w", err)
	}
	return tx.Commit()
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, orderID string, status Status) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = $2 WHERE id = $1`, orderID, status)
	if err != nil {
		return fmt.Errorf("updating order status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *PostgresRepository) scanOne(row *sql.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.BuyerID, &o.CartID, &o.Status, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, fmt.Errorf("scanning order: %w", err)
	}
	return o, nil
}
