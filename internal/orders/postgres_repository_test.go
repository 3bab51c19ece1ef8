package orders

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/elonaire/templates-backend/internal/cart"
	"github.com/elonaire/templates-backend/internal/config"
	"github.com/elonaire/templates-backend/internal/db"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := config.Postgres{
		Host:              host,
		Port:              port.Int(),
		User:              "testuser",
		Password:          "testpass",
		DBName:            "testdb",
		MigrationsDirPath: "../../migrations",
	}

	conn, err := db.ConnectPostgres(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, db.RunMigrations(conn, cfg))
	return conn
}

func createTestCart(t *testing.T, conn *sql.DB, sessionID string) cart.Cart {
	t.Helper()
	repo := cart.NewPostgresRepository(conn)
	c, err := repo.CreateCartWithItem(context.Background(), cart.Cart{
		SessionID:   sessionID,
		TotalAmount: 1000,
	}, cart.LineItem{
		ProductID:    uuid.NewString(),
		LicenseID:    uuid.NewString(),
		ExtProductID: "ext-p1",
		Quantity:     1,
		UnitPrice:    1000,
		PriceFactor:  1,
		ArtifactRef:  "artifact-p1",
	})
	require.NoError(t, err)
	return c
}

func TestPostgresCreateOrder_OnePerCart(t *testing.T) {
	conn := setupTestDB(t)
	repo := NewPostgresRepository(conn)
	ctx := context.Background()

	c := createTestCart(t, conn, "sess-1")
	buyer := uuid.NewString()

	order, err := repo.CreateOrder(ctx, Order{BuyerID: buyer, CartID: c.ID})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, order.Status)
	assert.False(t, order.CreatedAt.IsZero())

	_, err = repo.CreateOrder(ctx, Order{BuyerID: buyer, CartID: c.ID})
	assert.ErrorIs(t, err, ErrCartAlreadyOrdered)

	got, err := repo.GetOrderByCart(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
}

func TestPostgresConfirmOrder_ArchivesCartIdempotently(t *testing.T) {
	conn := setupTestDB(t)
	repo := NewPostgresRepository(conn)
	ctx := context.Background()

	c := createTestCart(t, conn, "sess-2")
	order, err := repo.CreateOrder(ctx, Order{BuyerID: uuid.NewString(), CartID: c.ID})
	require.NoError(t, err)

	require.NoError(t, repo.ConfirmOrder(ctx, order.ID))

	got, err := repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, got.Status)

	var archived bool
	require.NoError(t, conn.QueryRow(`SELECT archived FROM carts WHERE id = $1`, c.ID).Scan(&archived))
	assert.True(t, archived)

	// Second confirm observes the archived cart and still succeeds.
	require.NoError(t, repo.ConfirmOrder(ctx, order.ID))

	assert.ErrorIs(t, repo.ConfirmOrder(ctx, uuid.NewString()), ErrOrderNotFound)
}

func TestPostgresUpdateStatus(t *testing.T) {
	conn := setupTestDB(t)
	repo := NewPostgresRepository(conn)
	ctx := context.Background()

	c := createTestCart(t, conn, "sess-3")
	order, err := repo.CreateOrder(ctx, Order{BuyerID: uuid.NewString(), CartID: c.ID})
	require.NoError(t, err)

	require.NoError(t, repo.UpdateStatus(ctx, order.ID, StatusOnHold))
	got, err := repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusOnHold, got.Status)

	assert.ErrorIs(t, repo.UpdateStatus(ctx, uuid.NewString(), StatusFailed), ErrOrderNotFound)
}

func TestPostgresListOrdersByBuyer(t *testing.T) {
	conn := setupTestDB(t)
	repo := NewPostgresRepository(conn)
	ctx := context.Background()

	buyer := uuid.NewString()
	c1 := createTestCart(t, conn, "sess-4")
	c2 := createTestCart(t, conn, "sess-5")

	_, err := repo.CreateOrder(ctx, Order{BuyerID: buyer, CartID: c1.ID})
	require.NoError(t, err)
	_, err = repo.CreateOrder(ctx, Order{BuyerID: buyer, CartID: c2.ID})
	require.NoError(t, err)
	_, err = repo.CreateOrder(ctx, Order{BuyerID: uuid.NewString(), CartID: createTestCart(t, conn, "sess-6").ID})
	require.NoError(t, err)

	list, err := repo.ListOrdersByBuyer(ctx, buyer)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
