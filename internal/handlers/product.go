package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/retroshop/apiserver/internal/services"
	"github.com/retroshop/apiserver/internal/store"
	"github.com/retroshop/apiserver/types"
)

const (
	maxMultipartMemory = 32 << 20
	maxImageBytes      = 10 << 20

	formFieldName       = "name"
	formFieldDesc       = "description"
	formFieldPrice      = "price"
	formFieldStock      = "stock"
	formFieldCategoryID = "category_id"
	formFieldFeatured   = "featured"
	formFieldImage      = "image"
)

// ImageFile represents an uploaded product image.
type ImageFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ProductHandler provides HTTP handlers for the catalog.
type ProductHandler struct {
	catalog *services.CatalogService
}

// NewProductHandler constructs a handler with the provided service.
func NewProductHandler(catalog *services.CatalogService) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

// ProductRouter registers catalog routes on the given router. The admin
// middleware chain gates the mutating routes.
func ProductRouter(r chi.Router, catalog *services.CatalogService, adminChain ...func(http.Handler) http.Handler) {
	handler := NewProductHandler(catalog)

	r.Get("/", handler.ListProducts)
	r.Get("/featured", handler.ListFeatured)
	r.With(adminChain...).Post("/", handler.CreateProduct)
	r.Route("/{productID}", func(r chi.Router) {
		r.Get("/", handler.GetProduct)
		r.With(adminChain...).Put("/", handler.UpdateProduct)
		r.With(adminChain...).Delete("/", handler.DeleteProduct)
	})
}

// CategoryRouter registers category routes on the given router.
func CategoryRouter(r chi.Router, catalog *services.CatalogService) {
	handler := NewProductHandler(catalog)
	r.Get("/", handler.ListCategories)
}

func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	categoryID := strings.TrimSpace(r.URL.Query().Get("category"))

	products, err := h.catalog.Products(r.Context(), categoryID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	writeJSON(w, http.StatusOK, ProductListResponse{Items: products})
}

func (h *ProductHandler) ListFeatured(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	products, err := h.catalog.FeaturedProducts(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list featured products")
		return
	}

	writeJSON(w, http.StatusOK, ProductListResponse{Items: products})
}

func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "productID")

	product, err := h.catalog.Product(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch product")
		return
	}

	writeJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.Categories(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	req, err := parseProductForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	product := types.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
		Featured:    req.Featured,
	}

	// The image goes to object storage first; the row only ever stores the
	// resulting public URL.
	if req.Image.Data != nil {
		url, err := h.catalog.UploadImage(r.Context(), req.Image.Filename, req.Image.Data, req.Image.ContentType)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to upload image")
			return
		}
		product.ImageURL = url
	}

	created, err := h.catalog.CreateProduct(r.Context(), product)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create product")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "productID")

	current, err := h.catalog.Product(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch product")
		return
	}

	req, err := parseProductForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	product := types.Product{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
		Featured:    req.Featured,
		ImageURL:    current.ImageURL,
	}

	if req.Image.Data != nil {
		url, err := h.catalog.UploadImage(r.Context(), req.Image.Filename, req.Image.Data, req.Image.ContentType)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to upload image")
			return
		}
		product.ImageURL = url
	}

	updated, err := h.catalog.UpdateProduct(r.Context(), product)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update product")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "productID")

	if err := h.catalog.DeleteProduct(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete product")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ProductUpsertRequest represents the parsed multipart form payload.
type ProductUpsertRequest struct {
	Name        string
	Description string
	Price       float64
	Stock       int
	CategoryID  string
	Featured    bool
	Image       ImageFile
}

// ProductListResponse is the list response payload.
type ProductListResponse struct {
	Items []types.Product `json:"items"`
}

func parseProductForm(r *http.Request) (ProductUpsertRequest, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return ProductUpsertRequest{}, errors.New("invalid multipart form")
	}

	name := strings.TrimSpace(r.FormValue(formFieldName))
	if name == "" {
		return ProductUpsertRequest{}, errors.New("name is required")
	}

	description := strings.TrimSpace(r.FormValue(formFieldDesc))

	price, err := parseOptionalFloat(r.FormValue(formFieldPrice))
	if err != nil || price < 0 {
		return ProductUpsertRequest{}, errors.New("invalid price")
	}

	stock, err := parseOptionalInt(r.FormValue(formFieldStock))
	if err != nil || stock < 0 {
		return ProductUpsertRequest{}, errors.New("invalid stock")
	}

	featured := parseBoolField(r.FormValue(formFieldFeatured))
	categoryID := strings.TrimSpace(r.FormValue(formFieldCategoryID))

	image, err := parseImageFile(r.MultipartForm)
	if err != nil {
		return ProductUpsertRequest{}, err
	}

	return ProductUpsertRequest{
		Name:        name,
		Description: description,
		Price:       price,
		Stock:       stock,
		CategoryID:  categoryID,
		Featured:    featured,
		Image:       image,
	}, nil
}

func parseOptionalInt(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}

func parseOptionalFloat(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	return strconv.ParseFloat(value, 64)
}

func parseBoolField(value string) bool {
	value = strings.TrimSpace(strings.ToLower(value))
	return value == "1" || value == "true" || value == "on"
}

// parseImageFile extracts the optional image upload from the form. An absent
// image is not an error; Data stays nil.
func parseImageFile(form *multipart.Form) (ImageFile, error) {
	if form == nil {
		return ImageFile{}, nil
	}

	files := form.File[formFieldImage]
	if len(files) == 0 {
		return ImageFile{}, nil
	}
	if len(files) > 1 {
		return ImageFile{}, errors.New("only one image file is allowed")
	}

	fileHeader := files[0]
	file, err := fileHeader.Open()
	if err != nil {
		return ImageFile{}, errors.New("failed to read image file")
	}

	data, err := readFileLimited(file, maxImageBytes)
	_ = file.Close()
	if err != nil {
		return ImageFile{}, err
	}

	return ImageFile{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("uploaded file too large")
	}
	return data, nil
}
