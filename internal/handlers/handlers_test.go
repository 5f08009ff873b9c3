package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/retroshop/apiserver/internal/services"
	"github.com/retroshop/apiserver/internal/store"
	"github.com/retroshop/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-secret"

// In-memory repositories backing the handler tests.

type memUsers struct {
	mu    sync.Mutex
	users map[string]types.User
}

func (m *memUsers) GetByID(_ context.Context, id string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memUsers) Create(_ context.Context, user types.User) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user.ID = uuid.NewString()
	m.users[user.ID] = user
	return user, nil
}

type memProfiles struct {
	mu       sync.Mutex
	profiles map[string]types.Profile
}

func (m *memProfiles) Get(_ context.Context, id string) (types.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	profile, ok := m.profiles[id]
	if !ok {
		return types.Profile{}, store.ErrNotFound
	}
	return profile, nil
}

func (m *memProfiles) Create(_ context.Context, profile types.Profile) (types.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[profile.ID] = profile
	return profile, nil
}

func (m *memProfiles) CountByRole(_ context.Context, role string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, profile := range m.profiles {
		if profile.Role == role {
			count++
		}
	}
	return count, nil
}

func (m *memProfiles) EnsureTable(_ context.Context) error { return nil }

type memCart struct {
	mu       sync.Mutex
	items    map[string]types.CartItem
	products map[string]types.Product
}

func (m *memCart) ListByUser(_ context.Context, userID string) ([]types.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]types.CartItem, 0)
	for _, item := range m.items {
		if item.UserID != userID {
			continue
		}
		if product, ok := m.products[item.ProductID]; ok {
			p := product
			item.Product = &p
		}
		items = append(items, item)
	}
	return items, nil
}

func (m *memCart) Upsert(_ context.Context, userID, productID string, quantity int) (types.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, item := range m.items {
		if item.UserID == userID && item.ProductID == productID {
			item.Quantity += quantity
			m.items[id] = item
			return item, nil
		}
	}
	item := types.CartItem{ID: uuid.NewString(), UserID: userID, ProductID: productID, Quantity: quantity}
	m.items[item.ID] = item
	return item, nil
}

func (m *memCart) UpdateQuantity(_ context.Context, userID, itemID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok || item.UserID != userID {
		return store.ErrNotFound
	}
	item.Quantity = quantity
	m.items[itemID] = item
	return nil
}

func (m *memCart) Delete(_ context.Context, userID, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok || item.UserID != userID {
		return store.ErrNotFound
	}
	delete(m.items, itemID)
	return nil
}

func (m *memCart) ClearByUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, item := range m.items {
		if item.UserID == userID {
			delete(m.items, id)
		}
	}
	return nil
}

func (m *memCart) SumQuantities(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, item := range m.items {
		if item.UserID == userID {
			total += item.Quantity
		}
	}
	return total, nil
}

type memProducts struct {
	mu       sync.Mutex
	products []types.Product
}

func (m *memProducts) List(_ context.Context, opts store.ListOptions) ([]types.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.Product(nil), m.products...), nil
}

func (m *memProducts) Get(_ context.Context, id string) (types.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, product := range m.products {
		if product.ID == id {
			return product, nil
		}
	}
	return types.Product{}, store.ErrNotFound
}

func (m *memProducts) Create(_ context.Context, product types.Product) (types.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	product.ID = uuid.NewString()
	m.products = append(m.products, product)
	return product, nil
}

func (m *memProducts) Update(_ context.Context, product types.Product) (types.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.products {
		if m.products[i].ID == product.ID {
			m.products[i] = product
			return product, nil
		}
	}
	return types.Product{}, store.ErrNotFound
}

func (m *memProducts) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.products {
		if m.products[i].ID == id {
			m.products = append(m.products[:i], m.products[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memProducts) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.products), nil
}

type memCategories struct{}

func (memCategories) List(context.Context) ([]types.Category, error)       { return nil, nil }
func (memCategories) Get(context.Context, string) (types.Category, error)  { return types.Category{}, store.ErrNotFound }
func (memCategories) Create(_ context.Context, c types.Category) (types.Category, error) { return c, nil }
func (memCategories) Count(context.Context) (int, error)                   { return 0, nil }

type fixture struct {
	router   *chi.Mux
	users    *memUsers
	profiles *memProfiles
	cart     *memCart
}

func newFixture() *fixture {
	users := &memUsers{users: make(map[string]types.User)}
	profiles := &memProfiles{profiles: make(map[string]types.Profile)}
	cartRepo := &memCart{items: make(map[string]types.CartItem), products: make(map[string]types.Product)}

	sessionService := services.NewSessionService(users, profiles, nil)
	cartService := services.NewCartService(cartRepo, nil)
	catalogService := services.NewCatalogService(&memProducts{}, memCategories{}, nil, nil)

	authMiddleware := RequireAuth(testJWTSecret)
	authHandler := NewAuthHandler(sessionService, testJWTSecret)
	adminChain := []func(http.Handler) http.Handler{
		authMiddleware,
		authHandler.WithSession,
		RequireAdmin,
	}

	router := chi.NewRouter()
	router.Route("/auth", func(r chi.Router) {
		AuthRouter(r, sessionService, testJWTSecret)
	})
	router.Route("/products", func(r chi.Router) {
		ProductRouter(r, catalogService, adminChain...)
	})
	router.Route("/cart", func(r chi.Router) {
		CartRouter(r, cartService, authMiddleware)
	})

	return &fixture{router: router, users: users, profiles: profiles, cart: cartRepo}
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var value T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&value))
	return value
}

func TestRegisterLoginAddTwiceShowsMergedLine(t *testing.T) {
	f := newFixture()

	productX := types.Product{ID: uuid.NewString(), Name: "Retro Gaming Console", Price: 99.99}
	f.cart.products[productX.ID] = productX

	rec := f.do(t, http.MethodPost, "/auth/register", "", RegisterRequest{
		Email:    "ana@example.com",
		Name:     "Ana",
		Password: "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/auth/login", "", LoginRequest{
		Email:    "ana@example.com",
		Password: "secret123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	auth := decode[AuthResponse](t, rec)
	require.NotEmpty(t, auth.Token)

	rec = f.do(t, http.MethodPost, "/cart/items", auth.Token, AddItemRequest{ProductID: productX.ID, Quantity: 2})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = f.do(t, http.MethodPost, "/cart/items", auth.Token, AddItemRequest{ProductID: productX.ID, Quantity: 1})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/cart", auth.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cart := decode[CartResponse](t, rec)
	require.Len(t, cart.Items, 1, "two adds of the same product make one line")
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.InDelta(t, 3*productX.Price, cart.Total, 1e-9)
}

func TestLoginWithWrongPassword(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/auth/register", "", RegisterRequest{
		Email:    "ana@example.com",
		Name:     "Ana",
		Password: "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodPost, "/auth/login", "", LoginRequest{
		Email:    "ana@example.com",
		Password: "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCartRequiresAuth(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/cart/items", "", AddItemRequest{ProductID: "x", Quantity: 1})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAddItemDefaultsQuantityToOne(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/auth/register", "", RegisterRequest{
		Email: "ana@example.com", Name: "Ana", Password: "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	auth := decode[AuthResponse](t, rec)

	rec = f.do(t, http.MethodPost, "/cart/items", auth.Token, AddItemRequest{ProductID: "product-x"})
	require.Equal(t, http.StatusCreated, rec.Code)
	item := decode[types.CartItem](t, rec)
	assert.Equal(t, 1, item.Quantity)
}

func TestUpdateItemRejectsQuantityBelowOne(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/auth/register", "", RegisterRequest{
		Email: "ana@example.com", Name: "Ana", Password: "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	auth := decode[AuthResponse](t, rec)

	rec = f.do(t, http.MethodPost, "/cart/items", auth.Token, AddItemRequest{ProductID: "product-x", Quantity: 2})
	require.Equal(t, http.StatusCreated, rec.Code)
	item := decode[types.CartItem](t, rec)

	rec = f.do(t, http.MethodPut, fmt.Sprintf("/cart/items/%s", item.ID), auth.Token, UpdateItemRequest{Quantity: 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCartItemMutationsScopedToOwner(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/auth/register", "", RegisterRequest{
		Email: "ana@example.com", Name: "Ana", Password: "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	ana := decode[AuthResponse](t, rec)

	rec = f.do(t, http.MethodPost, "/auth/register", "", RegisterRequest{
		Email: "bob@example.com", Name: "Bob", Password: "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	bob := decode[AuthResponse](t, rec)

	rec = f.do(t, http.MethodPost, "/cart/items", ana.Token, AddItemRequest{ProductID: "product-x", Quantity: 2})
	require.Equal(t, http.StatusCreated, rec.Code)
	item := decode[types.CartItem](t, rec)

	// Another user's line looks like a missing one.
	rec = f.do(t, http.MethodPut, fmt.Sprintf("/cart/items/%s", item.ID), bob.Token, UpdateItemRequest{Quantity: 99})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = f.do(t, http.MethodDelete, fmt.Sprintf("/cart/items/%s", item.ID), bob.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/cart", ana.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cart := decode[CartResponse](t, rec)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
}

func TestClearCartThenCountIsZero(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/auth/register", "", RegisterRequest{
		Email: "ana@example.com", Name: "Ana", Password: "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	auth := decode[AuthResponse](t, rec)

	rec = f.do(t, http.MethodPost, "/cart/items", auth.Token, AddItemRequest{ProductID: "product-x", Quantity: 4})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodDelete, "/cart", auth.Token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/cart/count", auth.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	count := decode[CountResponse](t, rec)
	assert.Equal(t, 0, count.Count)
}

func TestProductMutationsRequireAdminRole(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/auth/register", "", RegisterRequest{
		Email: "ana@example.com", Name: "Ana", Password: "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	auth := decode[AuthResponse](t, rec)

	// Plain user is rejected at the role gate.
	rec = f.do(t, http.MethodPost, "/products", auth.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Promote to admin; the request now passes the gate and fails on the
	// missing form instead.
	f.profiles.mu.Lock()
	profile := f.profiles.profiles[auth.User.ID]
	profile.Role = types.RoleAdmin
	f.profiles.profiles[auth.User.ID] = profile
	f.profiles.mu.Unlock()

	rec = f.do(t, http.MethodPost, "/products", auth.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMeReportsMissingProfile(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/auth/register", "", RegisterRequest{
		Email: "ana@example.com", Name: "Ana", Password: "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	auth := decode[AuthResponse](t, rec)

	// Simulate the missing-profile inconsistency.
	f.profiles.mu.Lock()
	delete(f.profiles.profiles, auth.User.ID)
	f.profiles.mu.Unlock()

	rec = f.do(t, http.MethodGet, "/auth/me", auth.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, "a missing profile must not fail the session")
	session := decode[types.Session](t, rec)
	assert.Equal(t, types.RoleUser, session.Role)
	assert.True(t, session.ProfileMissing)
}
