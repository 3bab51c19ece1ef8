package cart

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonaire/templates-backend/internal/clients"
	"github.com/elonaire/templates-backend/internal/gateway"
	"github.com/elonaire/templates-backend/internal/identity"
	"github.com/elonaire/templates-backend/pkg/logger"
)

// memRepository is an index-based in-memory Repository for exercising the
// manager without Postgres.
type memRepository struct {
	mu    sync.Mutex
	carts map[string]*Cart
	items map[string]map[string]LineItem // cartID -> productID -> item
}

func newMemRepository() *memRepository {
	return &memRepository{
		carts: make(map[string]*Cart),
		items: make(map[string]map[string]LineItem),
	}
}

func (m *memRepository) GetCart(_ context.Context, cartID string) (Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.carts[cartID]; ok {
		return *c, nil
	}
	return Cart{}, ErrCartNotFound
}

func (m *memRepository) GetOpenCartByOwner(_ context.Context, ownerID string) (Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.carts {
		if !c.Archived && c.OwnerID == ownerID && ownerID != "" {
			return *c, nil
		}
	}
	return Cart{}, ErrCartNotFound
}

func (m *memRepository) GetOpenCartBySession(_ context.Context, sessionID string) (Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.carts {
		if !c.Archived && c.SessionID == sessionID && sessionID != "" {
			return *c, nil
		}
	}
	return Cart{}, ErrCartNotFound
}

func (m *memRepository) ClaimSessionCart(_ context.Context, sessionID, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.carts {
		if !c.Archived && c.OwnerID == ownerID {
			return nil // owner already has an open cart
		}
	}
	for _, c := range m.carts {
		if !c.Archived && c.SessionID == sessionID && c.OwnerID == "" {
			c.OwnerID = ownerID
			c.UpdatedAt = time.Now()
			return nil
		}
	}
	return nil
}

func (m *memRepository) GetLineItem(_ context.Context, cartID, productID string) (LineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if li, ok := m.items[cartID][productID]; ok {
		return li, nil
	}
	return LineItem{}, ErrItemNotFound
}

func (m *memRepository) GetLineItems(_ context.Context, cartID string) ([]LineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []LineItem
	for _, li := range m.items[cartID] {
		out = append(out, li)
	}
	return out, nil
}

func (m *memRepository) CreateCartWithItem(_ context.Context, c Cart, item LineItem) (Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.UpdatedAt = time.Now()
	item.CartID = c.ID
	m.carts[c.ID] = &c
	m.items[c.ID] = map[string]LineItem{item.ProductID: item}
	return c, nil
}

func (m *memRepository) AddItem(_ context.Context, item LineItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[item.CartID]
	if !ok {
		return ErrCartNotFound
	}
	m.items[item.CartID][item.ProductID] = item
	c.TotalAmount += item.Contribution()
	c.UpdatedAt = time.Now()
	return nil
}

func (m *memRepository) ReplaceItemLicense(_ context.Context, item LineItem, totalDelta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[item.CartID]
	if !ok {
		return ErrCartNotFound
	}
	if _, ok := m.items[item.CartID][item.ProductID]; !ok {
		return ErrItemNotFound
	}
	m.items[item.CartID][item.ProductID] = item
	c.TotalAmount += totalDelta
	c.UpdatedAt = time.Now()
	return nil
}

func (m *memRepository) RemoveItem(_ context.Context, cartID, productID string, totalDelta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[cartID]
	if !ok {
		return ErrCartNotFound
	}
	if _, ok := m.items[cartID][productID]; !ok {
		return ErrItemNotFound
	}
	delete(m.items[cartID], productID)
	c.TotalAmount += totalDelta
	c.UpdatedAt = time.Now()
	return nil
}

// openCartCount counts non-archived carts, for the single-active-cart check.
func (m *memRepository) openCartCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.carts {
		if !c.Archived {
			n++
		}
	}
	return n
}

type stubResolver struct{}

func (stubResolver) Resolve(_ context.Context, table, externalKey string) (identity.Resolution, error) {
	return identity.Resolution{LocalID: "local-" + table + "-" + externalKey}, nil
}

type stubAuth struct {
	status clients.AuthStatus
	err    error
}

func (s stubAuth) CheckAuth(_ context.Context, _ gateway.Credentials) (clients.AuthStatus, error) {
	return s.status, s.err
}

type stubCatalog struct {
	prices  map[string]int64
	factors map[string]int64
}

func (s stubCatalog) GetProductPrice(_ context.Context, id string) (int64, error) {
	return s.prices[id], nil
}

func (s stubCatalog) GetLicensePriceFactor(_ context.Context, id string) (int64, error) {
	return s.factors[id], nil
}

func (s stubCatalog) GetProductArtifact(_ context.Context, _ gateway.Credentials, productID, licenseID string) (string, error) {
	return "artifact-" + productID + "-" + licenseID, nil
}

func newTestManager(repo Repository, auth stubAuth) *Manager {
	catalog := stubCatalog{
		prices:  map[string]int64{"p1": 1000, "p2": 2500},
		factors: map[string]int64{"standard": 1, "premium": 2},
	}
	return NewManager(repo, stubResolver{}, auth, catalog, logger.NewWithWriter(io.Discard, "test"))
}

func authedCreds() gateway.Credentials {
	return gateway.Credentials{Authorization: "Bearer token"}
}

// assertTotalInvariant checks total == Σ(quantity × unitPrice × priceFactor).
func assertTotalInvariant(t *testing.T, repo *memRepository, c Cart) {
	t.Helper()
	items, err := repo.GetLineItems(context.Background(), c.ID)
	require.NoError(t, err)
	var sum int64
	for _, li := range items {
		sum += li.Contribution()
	}
	assert.Equal(t, sum, c.TotalAmount)
}

func TestCreateOrUpdateCart_FirstAddCreatesCart(t *testing.T) {
	repo := newMemRepository()
	m := newTestManager(repo, stubAuth{})

	c, sessionID, err := m.CreateOrUpdateCart(context.Background(),
		gateway.Credentials{}, "", "p1", "standard", OpAdd)
	require.NoError(t, err)

	assert.NotEmpty(t, sessionID)
	assert.Equal(t, sessionID, c.SessionID)
	assert.Empty(t, c.OwnerID)
	assert.Equal(t, int64(1000), c.TotalAmount)

	items, err := repo.GetLineItems(context.Background(), c.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(1000), items[0].UnitPrice)
	assert.Equal(t, int64(1), items[0].PriceFactor)
	assert.Equal(t, "artifact-p1-standard", items[0].ArtifactRef)
	assertTotalInvariant(t, repo, c)
}

func TestCreateOrUpdateCart_LicenseSwapRecomputesTotal(t *testing.T) {
	repo := newMemRepository()
	m := newTestManager(repo, stubAuth{})
	ctx := context.Background()

	c, sessionID, err := m.CreateOrUpdateCart(ctx, gateway.Credentials{}, "", "p1", "standard", OpAdd)
	require.NoError(t, err)
	require.Equal(t, int64(1000), c.TotalAmount)

	c, _, err = m.CreateOrUpdateCart(ctx, gateway.Credentials{}, sessionID, "p1", "premium", OpAdd)
	require.NoError(t, err)

	assert.Equal(t, int64(2000), c.TotalAmount)
	items, err := repo.GetLineItems(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "local-license_id-premium", items[0].LicenseID)
	assert.Equal(t, "artifact-p1-premium", items[0].ArtifactRef)
	assertTotalInvariant(t, repo, c)
}

func TestCreateOrUpdateCart_TotalInvariantAcrossSequence(t *testing.T) {
	repo := newMemRepository()
	m := newTestManager(repo, stubAuth{})
	ctx := context.Background()

	var sessionID string
	steps := []struct {
		product string
		license string
		op      Operation
	}{
		{"p1", "standard", OpAdd},
		{"p2", "premium", OpAdd},
		{"p1", "premium", OpAdd},
		{"p2", "standard", OpAdd},
		{"p1", "premium", OpRemove},
	}

	for _, s := range steps {
		c, sid, err := m.CreateOrUpdateCart(ctx, gateway.Credentials{}, sessionID, s.product, s.license, s.op)
		require.NoError(t, err)
		sessionID = sid
		assertTotalInvariant(t, repo, c)
	}

	c, err := m.GetCart(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), c.TotalAmount) // p2 at standard only
	assert.Equal(t, 1, repo.openCartCount())
}

func TestCreateOrUpdateCart_RemoveDeletesItem(t *testing.T) {
	repo := newMemRepository()
	m := newTestManager(repo, stubAuth{})
	ctx := context.Background()

	_, sessionID, err := m.CreateOrUpdateCart(ctx, gateway.Credentials{}, "", "p1", "premium", OpAdd)
	require.NoError(t, err)

	c, _, err := m.CreateOrUpdateCart(ctx, gateway.Credentials{}, sessionID, "p1", "premium", OpRemove)
	require.NoError(t, err)

	assert.Equal(t, int64(0), c.TotalAmount)
	items, err := repo.GetLineItems(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCreateOrUpdateCart_RemoveWithoutCart(t *testing.T) {
	m := newTestManager(newMemRepository(), stubAuth{})

	_, _, err := m.CreateOrUpdateCart(context.Background(),
		gateway.Credentials{}, "", "p1", "standard", OpRemove)
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestCreateOrUpdateCart_InvalidOperation(t *testing.T) {
	m := newTestManager(newMemRepository(), stubAuth{})

	_, _, err := m.CreateOrUpdateCart(context.Background(),
		gateway.Credentials{}, "", "p1", "standard", Operation("drop"))
	assert.ErrorIs(t, err, ErrInvalidOperation)
}

func TestCreateOrUpdateCart_ClaimMergesNotDuplicates(t *testing.T) {
	repo := newMemRepository()
	anon := newTestManager(repo, stubAuth{})
	ctx := context.Background()

	// Anonymous cart with one item.
	_, sessionID, err := anon.CreateOrUpdateCart(ctx, gateway.Credentials{}, "", "p1", "standard", OpAdd)
	require.NoError(t, err)

	// Same session, now signed in.
	authed := newTestManager(repo, stubAuth{status: clients.AuthStatus{Sub: "u1", IsAuth: true}})
	c, _, err := authed.CreateOrUpdateCart(ctx, authedCreds(), sessionID, "p2", "premium", OpAdd)
	require.NoError(t, err)

	assert.Equal(t, "local-user_id-u1", c.OwnerID)
	assert.Equal(t, 1, repo.openCartCount())
	items, err := repo.GetLineItems(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assertTotalInvariant(t, repo, c)
}

func TestCreateOrUpdateCart_AnonymousWhenAuthFails(t *testing.T) {
	repo := newMemRepository()
	m := newTestManager(repo, stubAuth{err: clients.ErrNotAuthenticated})

	c, _, err := m.CreateOrUpdateCart(context.Background(),
		authedCreds(), "", "p1", "standard", OpAdd)
	require.NoError(t, err)
	assert.Empty(t, c.OwnerID)
	assert.NotEmpty(t, c.SessionID)
}

func TestClaimForOwner(t *testing.T) {
	repo := newMemRepository()
	m := newTestManager(repo, stubAuth{})
	ctx := context.Background()

	_, sessionID, err := m.CreateOrUpdateCart(ctx, gateway.Credentials{}, "", "p1", "standard", OpAdd)
	require.NoError(t, err)

	c, err := m.ClaimForOwner(ctx, sessionID, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, "owner-1", c.OwnerID)
	assert.Equal(t, 1, repo.openCartCount())
}
