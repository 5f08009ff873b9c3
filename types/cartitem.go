package types

import "time"

// CartItem associates a user with a product and a quantity, representing
// pending-purchase intent. At most one row exists per (user, product) pair,
// enforced by a unique index.
type CartItem struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	ProductID string    `json:"product_id" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Product is the joined product row, when the listing query resolved it.
	Product *Product `json:"product,omitempty" db:"-"`
}
