package services

import (
	"bytes"
	"context"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/retroshop/apiserver/internal/store"
	"github.com/retroshop/apiserver/types"
	"go.uber.org/zap"
)

const imageKeyPrefix = "products/"

// ProductRepository defines persistence operations for products.
type ProductRepository interface {
	List(ctx context.Context, opts store.ListOptions) ([]types.Product, error)
	Get(ctx context.Context, id string) (types.Product, error)
	Create(ctx context.Context, product types.Product) (types.Product, error)
	Update(ctx context.Context, product types.Product) (types.Product, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// CategoryRepository defines persistence operations for categories.
type CategoryRepository interface {
	List(ctx context.Context) ([]types.Category, error)
	Get(ctx context.Context, id string) (types.Category, error)
	Create(ctx context.Context, category types.Category) (types.Category, error)
	Count(ctx context.Context) (int, error)
}

// ImageStore is the slice of object storage the catalog needs.
type ImageStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// CatalogService encapsulates product and category use-cases.
type CatalogService struct {
	products   ProductRepository
	categories CategoryRepository
	images     ImageStore
	log        *zap.Logger
}

func NewCatalogService(products ProductRepository, categories CategoryRepository, images ImageStore, log *zap.Logger) *CatalogService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogService{
		products:   products,
		categories: categories,
		images:     images,
		log:        log,
	}
}

// Products lists the catalog, newest first.
func (s *CatalogService) Products(ctx context.Context, categoryID string) ([]types.Product, error) {
	return s.products.List(ctx, store.ListOptions{CategoryID: categoryID})
}

// FeaturedProducts lists products flagged for the storefront home page.
func (s *CatalogService) FeaturedProducts(ctx context.Context, limit int) ([]types.Product, error) {
	if limit <= 0 {
		limit = 6
	}
	return s.products.List(ctx, store.ListOptions{Featured: true, Limit: limit})
}

func (s *CatalogService) Product(ctx context.Context, id string) (types.Product, error) {
	return s.products.Get(ctx, id)
}

func (s *CatalogService) Categories(ctx context.Context) ([]types.Category, error) {
	return s.categories.List(ctx)
}

// CreateProduct stores a new product and returns the authoritative written row.
func (s *CatalogService) CreateProduct(ctx context.Context, product types.Product) (types.Product, error) {
	return s.products.Create(ctx, product)
}

// UpdateProduct overwrites a product and returns the authoritative written
// row. A replaced image has its old object reclaimed from storage.
func (s *CatalogService) UpdateProduct(ctx context.Context, product types.Product) (types.Product, error) {
	previous, err := s.products.Get(ctx, product.ID)
	if err != nil {
		return types.Product{}, err
	}

	updated, err := s.products.Update(ctx, product)
	if err != nil {
		return types.Product{}, err
	}

	if previous.ImageURL != updated.ImageURL {
		s.removeImage(ctx, previous.ImageURL)
	}
	return updated, nil
}

// DeleteProduct removes the product row and reclaims its image object.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	product, err := s.products.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	s.removeImage(ctx, product.ImageURL)
	return nil
}

// removeImage deletes the object behind a stored image URL. Failures are
// logged, not returned.
func (s *CatalogService) removeImage(ctx context.Context, url string) {
	key := imageKeyFromURL(url)
	if key == "" {
		return
	}
	if err := s.images.Delete(ctx, key); err != nil {
		s.log.Warn("image delete failed",
			zap.String("key", key),
			zap.Error(err))
	}
}

// imageKeyFromURL recovers the object key from a stored public URL. URLs
// outside the image prefix (seed placeholders, external links) yield "".
func imageKeyFromURL(url string) string {
	idx := strings.Index(url, "/"+imageKeyPrefix)
	if idx < 0 {
		return ""
	}
	return url[idx+1:]
}

// UploadImage stores image bytes under a randomized key and returns the
// public URL to persist on the product row.
func (s *CatalogService) UploadImage(ctx context.Context, filename string, data []byte, contentType string) (string, error) {
	ext := strings.ToLower(path.Ext(filename))
	key := imageKeyPrefix + uuid.NewString() + ext

	if err := s.images.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		s.log.Error("image upload failed",
			zap.String("key", key),
			zap.Error(err))
		return "", err
	}

	return s.images.PublicURL(key), nil
}
