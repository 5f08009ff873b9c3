package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/retroshop/apiserver/internal/services"
	"github.com/retroshop/apiserver/internal/store"
	"github.com/retroshop/apiserver/types"
)

// CartHandler provides HTTP handlers for the authenticated user's cart.
type CartHandler struct {
	cart *services.CartService
}

// NewCartHandler constructs a handler with the provided service.
func NewCartHandler(cart *services.CartService) *CartHandler {
	return &CartHandler{cart: cart}
}

// CartRouter registers cart routes on the given router. Every route requires
// authentication; the cart is always the caller's own.
func CartRouter(r chi.Router, cart *services.CartService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewCartHandler(cart)

	r.Use(authMiddleware)
	r.Get("/", handler.GetCart)
	r.Delete("/", handler.ClearCart)
	r.Get("/count", handler.CountItems)
	r.Post("/items", handler.AddItem)
	r.Put("/items/{itemID}", handler.UpdateItem)
	r.Delete("/items/{itemID}", handler.RemoveItem)
	r.Post("/checkout", handler.Checkout)
}

// CartResponse carries the cart lines and the derived total.
type CartResponse struct {
	Items []types.CartItem `json:"items"`
	Total float64          `json:"total"`
}

// AddItemRequest is the add-to-cart payload. Quantity defaults to 1.
type AddItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// UpdateItemRequest overwrites a cart line's quantity.
type UpdateItemRequest struct {
	Quantity int `json:"quantity"`
}

// CountResponse feeds the badge counter the client polls.
type CountResponse struct {
	Count int `json:"count"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	items, err := h.cart.Items(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load cart")
		return
	}

	writeJSON(w, http.StatusOK, CartResponse{
		Items: items,
		Total: services.ComputeTotal(items),
	})
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.ProductID = strings.TrimSpace(req.ProductID)
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "product_id is required")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	item, err := h.cart.Add(r.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		if errors.Is(err, services.ErrInvalidQuantity) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to add to cart")
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	itemID := chi.URLParam(r, "itemID")

	var req UpdateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if err := h.cart.UpdateQuantity(r.Context(), userID, itemID, req.Quantity); err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidQuantity):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "cart item not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update cart item")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	itemID := chi.URLParam(r, "itemID")

	if err := h.cart.Remove(r.Context(), userID, itemID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "cart item not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to remove cart item")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.cart.Clear(r.Context(), userID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to clear cart")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) CountItems(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	count, err := h.cart.Count(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count cart items")
		return
	}

	writeJSON(w, http.StatusOK, CountResponse{Count: count})
}

// Checkout is a stub: no payment is processed, the cart is emptied.
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.cart.Checkout(r.Context(), userID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check out")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "order placed"})
}
