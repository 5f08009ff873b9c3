package services

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/retroshop/apiserver/internal/store"
	"github.com/retroshop/apiserver/types"
)

// fakeCartRepo is an in-memory CartItemRepository keyed the same way the
// database is: one row per (user, product).
type fakeCartRepo struct {
	mu       sync.Mutex
	items    map[string]types.CartItem // id -> item
	products map[string]types.Product  // joined onto listings
}

func newFakeCartRepo() *fakeCartRepo {
	return &fakeCartRepo{
		items:    make(map[string]types.CartItem),
		products: make(map[string]types.Product),
	}
}

func (f *fakeCartRepo) ListByUser(_ context.Context, userID string) ([]types.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]types.CartItem, 0)
	for _, item := range f.items {
		if item.UserID != userID {
			continue
		}
		if product, ok := f.products[item.ProductID]; ok {
			p := product
			item.Product = &p
		}
		items = append(items, item)
	}
	return items, nil
}

func (f *fakeCartRepo) Upsert(_ context.Context, userID, productID string, quantity int) (types.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, item := range f.items {
		if item.UserID == userID && item.ProductID == productID {
			item.Quantity += quantity
			f.items[id] = item
			return item, nil
		}
	}
	item := types.CartItem{
		ID:        uuid.NewString(),
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
	}
	f.items[item.ID] = item
	return item, nil
}

func (f *fakeCartRepo) UpdateQuantity(_ context.Context, userID, itemID string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[itemID]
	if !ok || item.UserID != userID {
		return store.ErrNotFound
	}
	item.Quantity = quantity
	f.items[itemID] = item
	return nil
}

func (f *fakeCartRepo) Delete(_ context.Context, userID, itemID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[itemID]
	if !ok || item.UserID != userID {
		return store.ErrNotFound
	}
	delete(f.items, itemID)
	return nil
}

func (f *fakeCartRepo) ClearByUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, item := range f.items {
		if item.UserID == userID {
			delete(f.items, id)
		}
	}
	return nil
}

func (f *fakeCartRepo) SumQuantities(_ context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, item := range f.items {
		if item.UserID == userID {
			total += item.Quantity
		}
	}
	return total, nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]types.User)}
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user.ID = uuid.NewString()
	f.users[user.ID] = user
	return user, nil
}

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]types.Profile
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: make(map[string]types.Profile)}
}

func (f *fakeProfileRepo) Get(_ context.Context, id string) (types.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile, ok := f.profiles[id]
	if !ok {
		return types.Profile{}, store.ErrNotFound
	}
	return profile, nil
}

func (f *fakeProfileRepo) Create(_ context.Context, profile types.Profile) (types.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if profile.Role == "" {
		profile.Role = types.RoleUser
	}
	f.profiles[profile.ID] = profile
	return profile, nil
}

func (f *fakeProfileRepo) CountByRole(_ context.Context, role string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, profile := range f.profiles {
		if profile.Role == role {
			count++
		}
	}
	return count, nil
}

func (f *fakeProfileRepo) EnsureTable(_ context.Context) error {
	return nil
}

type fakeCategoryRepo struct {
	mu         sync.Mutex
	categories []types.Category
}

func newFakeCategoryRepo() *fakeCategoryRepo {
	return &fakeCategoryRepo{}
}

func (f *fakeCategoryRepo) List(_ context.Context) ([]types.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.Category(nil), f.categories...), nil
}

func (f *fakeCategoryRepo) Get(_ context.Context, id string) (types.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, category := range f.categories {
		if category.ID == id {
			return category, nil
		}
	}
	return types.Category{}, store.ErrNotFound
}

func (f *fakeCategoryRepo) Create(_ context.Context, category types.Category) (types.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	category.ID = uuid.NewString()
	f.categories = append(f.categories, category)
	return category, nil
}

func (f *fakeCategoryRepo) Count(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.categories), nil
}

type fakeProductRepo struct {
	mu       sync.Mutex
	products []types.Product
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{}
}

func (f *fakeProductRepo) List(_ context.Context, opts store.ListOptions) ([]types.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	products := make([]types.Product, 0)
	for _, product := range f.products {
		if opts.CategoryID != "" && product.CategoryID != opts.CategoryID {
			continue
		}
		if opts.Featured && !product.Featured {
			continue
		}
		products = append(products, product)
		if opts.Limit > 0 && len(products) == opts.Limit {
			break
		}
	}
	return products, nil
}

func (f *fakeProductRepo) Get(_ context.Context, id string) (types.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, product := range f.products {
		if product.ID == id {
			return product, nil
		}
	}
	return types.Product{}, store.ErrNotFound
}

func (f *fakeProductRepo) Create(_ context.Context, product types.Product) (types.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	product.ID = uuid.NewString()
	f.products = append(f.products, product)
	return product, nil
}

func (f *fakeProductRepo) Update(_ context.Context, product types.Product) (types.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.products {
		if f.products[i].ID == product.ID {
			f.products[i] = product
			return product, nil
		}
	}
	return types.Product{}, store.ErrNotFound
}

func (f *fakeProductRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.products {
		if f.products[i].ID == id {
			f.products = append(f.products[:i], f.products[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeProductRepo) Count(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.products), nil
}
