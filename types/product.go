package types

import "time"

// Product is a catalog entry. Stock is advisory display data; no reservation
// or decrement happens on cart operations.
type Product struct {
	// ID is the unique identifier of the product.
	ID string `json:"id" db:"id"`

	// Name is the display name of the product.
	Name string `json:"name" db:"name"`

	// Description is the long-form product description.
	Description string `json:"description" db:"description"`

	// Price is the unit price.
	Price float64 `json:"price" db:"price"`

	// Stock is the advisory number of units available.
	Stock int `json:"stock" db:"stock"`

	// CategoryID references the product's category.
	CategoryID string `json:"category_id" db:"category_id"`

	// ImageURL is the public URL of the product image in object storage.
	// The image bytes themselves are never stored in the database.
	ImageURL string `json:"image_url" db:"image_url"`

	// Featured marks products surfaced on the storefront home page.
	Featured bool `json:"featured" db:"featured"`

	// CategoryName is denormalized from the categories table at read time.
	CategoryName string `json:"category_name,omitempty" db:"-"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
