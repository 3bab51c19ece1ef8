package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const cartColumns = `id, owner_id, session_id, total_amount, archived, updated_at`

func scanCart(row *sql.Row) (Cart, error) {
	var (
		c       Cart
		owner   sql.NullString
		session sql.NullString
	)
	err := row.Scan(&c.ID, &owner, &session, &c.TotalAmount, &c.Archived, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Cart{}, ErrCartNotFound
		}
		return Cart{}, fmt.Errorf("scanning cart: %w", err)
	}
	c.OwnerID = owner.String
	c.SessionID = session.String
	return c, nil
}

func (r *PostgresRepository) GetCart(ctx context.Context, cartID string) (Cart, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+cartColumns+` FROM carts WHERE id = $1`, cartID)
	return scanCart(row)
}

func (r *PostgresRepository) GetOpenCartByOwner(ctx context.Context, ownerID string) (Cart, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+cartColumns+` FROM carts WHERE owner_id = $1 AND archived = false`, ownerID)
	return scanCart(row)
}

func (r *PostgresRepository) GetOpenCartBySession(ctx context.Context, sessionID string) (Cart, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+cartColumns+` FROM carts WHERE session_id = $1 AND archived = false`, sessionID)
	return scanCart(row)
}

func (r *PostgresRepository) ClaimSessionCart(ctx context.Context, sessionID, ownerID string) error {
	// The guard subquery keeps the one-open-cart-per-owner index intact when
	// the owner already has a cart of their own.
	_, err := r.db.ExecContext(ctx, `
		UPDATE carts SET owner_id = $1, updated_at = now()
		WHERE session_id = $2 AND archived = false AND owner_id IS NULL
		  AND NOT EXISTS (
			SELECT 1 FROM carts WHERE owner_id = $1 AND archived = false
		  )`, ownerID, sessionID)
	if err != nil {
		return fmt.Errorf("claiming session cart: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetLineItem(ctx context.Context, cartID, productID string) (LineItem, error) {
	var li LineItem
	err := r.db.QueryRowContext(ctx, `
		SELECT cart_id, product_id, license_id, ext_product_id, quantity, unit_price, price_factor, artifact_ref
		FROM cart_items WHERE cart_id = $1 AND product_id = $2`, cartID, productID).
		Scan(&li.CartID, &li.ProductID, &li.LicenseID, &li.ExtProductID,
			&li.Quantity, &li.UnitPrice, &li.PriceFactor, &li.ArtifactRef)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return LineItem{}, ErrItemNotFound
		}
		return LineItem{}, fmt.Errorf("getting cart item: %w", err)
	}
	return li, nil
}

func (r *PostgresRepository) GetLineItems(ctx context.Context, cartID string) ([]LineItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT cart_id, product_id, license_id, ext_product_id, quantity, unit_price, price_factor, artifact_ref
		FROM cart_items WHERE cart_id = $1`, cartID)
	if err != nil {
		return nil, fmt.Errorf("listing cart items: %w", err)
	}
	defer rows.Close()

	var items []LineItem
	for rows.Next() {
		var li LineItem
		if err := rows.Scan(&li.CartID, &li.ProductID, &li.LicenseID, &li.ExtProductID,
			&li.Quantity, &li.UnitPrice, &li.PriceFactor, &li.ArtifactRef); err != nil {
			return nil, fmt.Errorf("scanning cart item: %w", err)
		}
		items = append(items, li)
	}
	return items, rows.Err()
}

func (r *PostgresRepository) CreateCartWithItem(ctx context.Context, c Cart, item LineItem) (Cart, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Cart{}, fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	owner := sql.NullString{String: c.OwnerID, Valid: c.OwnerID != ""}
	session := sql.NullString{String: c.SessionID, Valid: c.SessionID != ""}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO carts (id, owner_id, session_id, total_amount, archived, updated_at)
		VALUES ($1, $2, $3, $4, false, now())`,
		c.ID, owner, session, c.TotalAmount)
	if err != nil {
		return Cart{}, fmt.Errorf("inserting cart: %w", err)
	}

	item.CartID = c.ID
	if err := insertItem(ctx, tx, item); err != nil {
		return Cart{}, err
	}

	if err := tx.Commit(); err != nil {
		return Cart{}, fmt.Errorf("committing cart: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) AddItem(ctx context.Context, item LineItem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertItem(ctx, tx, item); err != nil {
		return err
	}
	if err := applyTotalDelta(ctx, tx, item.CartID, item.Contribution()); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *PostgresRepository) ReplaceItemLicense(ctx context.Context, item LineItem, totalDelta int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE cart_items
		SET license_id = $3, unit_price = $4, price_factor = $5, artifact_ref = $6
		WHERE cart_id = $1 AND product_id = $2`,
		item.CartID, item.ProductID, item.LicenseID, item.UnitPrice, item.PriceFactor, item.ArtifactRef)
	if err != nil {
		return fmt.Errorf("replacing item license: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrItemNotFound
	}

	if err := applyTotalDelta(ctx, tx, item.CartID, totalDelta); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *PostgresRepository) RemoveItem(ctx context.Context, cartID, productID string, totalDelta int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`, cartID, productID)
	if err != nil {
		return fmt.Errorf("deleting cart item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrItemNotFound
	}

	if err := applyTotalDelta(ctx, tx, cartID, totalDelta); err != nil {
		return err
	}
	return tx.Commit()
}

func insertItem(ctx context.Context, tx *sql.Tx, item LineItem) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO cart_items (cart_id, product_id, license_id, ext_product_id, quantity, unit_price, price_factor, artifact_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		item.CartID, item.ProductID, item.LicenseID, item.ExtProductID,
		item.Quantity, item.UnitPrice, item.PriceFactor, item.ArtifactRef)
	if err != nil {
		return fmt.Errorf("inserting cart item: %w", err)
	}
	return nil
}

func applyTotalDelta(ctx context.Context, tx *sql.Tx, cartID string, delta int64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE carts SET total_amount = total_amount + $2, updated_at = now() WHERE id = $1`,
		cartID, delta)
	if err != nil {
		return fmt.Errorf("updating cart total: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCartNotFound
	}
	return nil
}
