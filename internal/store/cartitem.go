package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/retroshop/apiserver/types"
)

// CartItemRepository handles persistence for cart items.
type CartItemRepository struct {
	db *sql.DB
}

func NewCartItemRepository(db *sql.DB) *CartItemRepository {
	return &CartItemRepository{db: db}
}

// ListByUser returns the user's cart rows with the product joined onto each
// line. A row whose join did not resolve comes back with a nil Product.
func (r *CartItemRepository) ListByUser(ctx context.Context, userID string) ([]types.CartItem, error) {
	const query = `
		SELECT ci.id, ci.user_id, ci.product_id, ci.quantity, ci.created_at, ci.updated_at,
		       p.id, p.name, p.description, p.price, p.stock,
		       COALESCE(p.category_id::text, ''), p.image_url, p.featured,
		       p.created_at, p.updated_at
		FROM cart_items ci
		LEFT JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id = $1
		ORDER BY ci.created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]types.CartItem, 0)
	for rows.Next() {
		var item types.CartItem
		var (
			pID, pName, pDesc, pCategoryID, pImageURL sql.NullString
			pPrice                                    sql.NullFloat64
			pStock                                    sql.NullInt64
			pFeatured                                 sql.NullBool
			pCreatedAt, pUpdatedAt                    sql.NullTime
		)
		if err := rows.Scan(
			&item.ID,
			&item.UserID,
			&item.ProductID,
			&item.Quantity,
			&item.CreatedAt,
			&item.UpdatedAt,
			&pID,
			&pName,
			&pDesc,
			&pPrice,
			&pStock,
			&pCategoryID,
			&pImageURL,
			&pFeatured,
			&pCreatedAt,
			&pUpdatedAt,
		); err != nil {
			return nil, err
		}

		if pID.Valid {
			item.Product = &types.Product{
				ID:          pID.String,
				Name:        pName.String,
				Description: pDesc.String,
				Price:       pPrice.Float64,
				Stock:       int(pStock.Int64),
				CategoryID:  pCategoryID.String,
				ImageURL:    pImageURL.String,
				Featured:    pFeatured.Bool,
				CreatedAt:   pCreatedAt.Time,
				UpdatedAt:   pUpdatedAt.Time,
			}
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

// Upsert inserts a cart row for (user, product) or, if one already exists,
// increments its quantity by the given amount. The conflict clause makes the
// merge atomic, so two concurrent adds cannot produce duplicate rows.
func (r *CartItemRepository) Upsert(ctx context.Context, userID, productID string, quantity int) (types.CartItem, error) {
	now := time.Now()

	const query = `
		INSERT INTO cart_items (id, user_id, product_id, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity,
			updated_at = EXCLUDED.updated_at
		RETURNING id, user_id, product_id, quantity, created_at, updated_at`
	var item types.CartItem
	if err := r.db.QueryRowContext(
		ctx,
		query,
		uuid.NewString(),
		userID,
		productID,
		quantity,
		now,
	).Scan(
		&item.ID,
		&item.UserID,
		&item.ProductID,
		&item.Quantity,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		return types.CartItem{}, err
	}
	return item, nil
}

// UpdateQuantity overwrites the quantity of one of the user's cart rows.
// A row belonging to another user is indistinguishable from a missing one.
func (r *CartItemRepository) UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) error {
	const query = `
		UPDATE cart_items
		SET quantity = $1, updated_at = $2
		WHERE id = $3 AND user_id = $4`
	result, err := r.db.ExecContext(ctx, query, quantity, time.Now(), itemID, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes one of the user's cart rows.
func (r *CartItemRepository) Delete(ctx context.Context, userID, itemID string) error {
	const query = `DELETE FROM cart_items WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, itemID, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearByUser removes every cart row belonging to the user. Clearing an
// already-empty cart is not an error.
func (r *CartItemRepository) ClearByUser(ctx context.Context, userID string) error {
	const query = `DELETE FROM cart_items WHERE user_id = $1`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}

// SumQuantities returns the total quantity across the user's cart rows.
func (r *CartItemRepository) SumQuantities(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COALESCE(SUM(quantity), 0) FROM cart_items WHERE user_id = $1`
	var total int
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
