package services

import (
	"context"
	"errors"

	"github.com/retroshop/apiserver/types"
	"go.uber.org/zap"
)

// ErrInvalidQuantity is returned when a cart operation asks for a quantity
// below one.
var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// CartItemRepository defines persistence operations for cart items.
type CartItemRepository interface {
	ListByUser(ctx context.Context, userID string) ([]types.CartItem, error)
	Upsert(ctx context.Context, userID, productID string, quantity int) (types.CartItem, error)
	UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) error
	Delete(ctx context.Context, userID, itemID string) error
	ClearByUser(ctx context.Context, userID string) error
	SumQuantities(ctx context.Context, userID string) (int, error)
}

// CartService encapsulates cart use-cases.
type CartService struct {
	repo CartItemRepository
	log  *zap.Logger
}

func NewCartService(repo CartItemRepository, log *zap.Logger) *CartService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CartService{repo: repo, log: log}
}

// Items returns the user's cart lines with joined product data.
func (s *CartService) Items(ctx context.Context, userID string) ([]types.CartItem, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Add puts quantity units of a product into the user's cart. Repeat adds for
// the same product merge into the existing line.
func (s *CartService) Add(ctx context.Context, userID, productID string, quantity int) (types.CartItem, error) {
	if quantity < 1 {
		return types.CartItem{}, ErrInvalidQuantity
	}
	item, err := s.repo.Upsert(ctx, userID, productID, quantity)
	if err != nil {
		s.log.Error("cart add failed",
			zap.String("user_id", userID),
			zap.String("product_id", productID),
			zap.Error(err))
		return types.CartItem{}, err
	}
	return item, nil
}

// UpdateQuantity overwrites one of the user's cart lines. Another user's
// line reports ErrNotFound.
func (s *CartService) UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	return s.repo.UpdateQuantity(ctx, userID, itemID, quantity)
}

// Remove deletes one of the user's cart lines.
func (s *CartService) Remove(ctx context.Context, userID, itemID string) error {
	return s.repo.Delete(ctx, userID, itemID)
}

// Clear empties the user's cart.
func (s *CartService) Clear(ctx context.Context, userID string) error {
	return s.repo.ClearByUser(ctx, userID)
}

// Count returns the total quantity across the user's cart, for the badge
// counter the client polls.
func (s *CartService) Count(ctx context.Context, userID string) (int, error) {
	return s.repo.SumQuantities(ctx, userID)
}

// Checkout is a stub: no payment happens, the cart is simply emptied.
func (s *CartService) Checkout(ctx context.Context, userID string) error {
	return s.repo.ClearByUser(ctx, userID)
}

// ComputeTotal sums price times quantity over the given lines. A line whose
// product did not resolve contributes 0, so a broken join undercounts rather
// than erroring.
func ComputeTotal(items []types.CartItem) float64 {
	var total float64
	for _, item := range items {
		if item.Product == nil {
			continue
		}
		total += item.Product.Price * float64(item.Quantity)
	}
	return total
}
