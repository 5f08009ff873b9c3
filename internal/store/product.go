package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/retroshop/apiserver/types"
)

// ProductRepository handles persistence for products.
type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `
	p.id, p.name, p.description, p.price, p.stock,
	COALESCE(p.category_id::text, ''), p.image_url, p.featured,
	p.created_at, p.updated_at, COALESCE(c.name, '')`

func scanProduct(row interface{ Scan(...any) error }) (types.Product, error) {
	var product types.Product
	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.Stock,
		&product.CategoryID,
		&product.ImageURL,
		&product.Featured,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.CategoryName,
	)
	return product, err
}

// ListOptions filters and bounds product listings.
type ListOptions struct {
	CategoryID string
	Featured   bool
	Limit      int
}

func (r *ProductRepository) List(ctx context.Context, opts ListOptions) ([]types.Product, error) {
	query := `
		SELECT` + productColumns + `
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id`

	var args []any
	switch {
	case opts.CategoryID != "":
		query += ` WHERE p.category_id = $1`
		args = append(args, opts.CategoryID)
	case opts.Featured:
		query += ` WHERE p.featured`
	}

	query += ` ORDER BY p.created_at DESC`
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		if len(args) == 1 {
			query += ` LIMIT $1`
		} else {
			query += ` LIMIT $2`
		}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]types.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (r *ProductRepository) Get(ctx context.Context, id string) (types.Product, error) {
	query := `
		SELECT` + productColumns + `
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1`
	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Product{}, ErrNotFound
		}
		return types.Product{}, err
	}
	return product, nil
}

func (r *ProductRepository) Create(ctx context.Context, product types.Product) (types.Product, error) {
	now := time.Now()
	product.ID = uuid.NewString()
	product.CreatedAt = now
	product.UpdatedAt = now

	const query = `
		INSERT INTO products (id, name, description, price, stock, category_id, image_url, featured, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, '')::uuid, $7, $8, $9, $10)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.Stock,
		product.CategoryID,
		product.ImageURL,
		product.Featured,
		product.CreatedAt,
		product.UpdatedAt,
	); err != nil {
		return types.Product{}, err
	}

	// Return the authoritative stored row, including the joined category name.
	return r.Get(ctx, product.ID)
}

func (r *ProductRepository) Update(ctx context.Context, product types.Product) (types.Product, error) {
	product.UpdatedAt = time.Now()

	const query = `
		UPDATE products
		SET name = $1,
			description = $2,
			price = $3,
			stock = $4,
			category_id = NULLIF($5, '')::uuid,
			image_url = $6,
			featured = $7,
			updated_at = $8
		WHERE id = $9`
	result, err := r.db.ExecContext(
		ctx,
		query,
		product.Name,
		product.Description,
		product.Price,
		product.Stock,
		product.CategoryID,
		product.ImageURL,
		product.Featured,
		product.UpdatedAt,
		product.ID,
	)
	if err != nil {
		return types.Product{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Product{}, err
	}
	if affected == 0 {
		return types.Product{}, ErrNotFound
	}

	return r.Get(ctx, product.ID)
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM products WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
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

func (r *ProductRepository) Count(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(1) FROM products`
	var total int
	if err := r.db.QueryRowContext(ctx, query).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
