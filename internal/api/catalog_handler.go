package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"musicshop-service/internal/domain"
	"musicshop-service/internal/store"
)

// --- Category handlers ---

// CategoryInput defines the expected input for creating or updating a category.
type CategoryInput struct {
	Name        string  `json:"name" validate:"required,max=255"`
	Description *string `json:"description" validate:"omitempty"`
	ImageURL    *string `json:"image_url" validate:"omitempty,url,max=2048"`
}

func (h *HTTPHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var input CategoryInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	category := &domain.Category{
		Name:        input.Name,
		Description: input.Description,
		ImageURL:    input.ImageURL,
	}

	created, err := h.categoryStore.CreateCategory(r.Context(), category)
	if err != nil {
		h.logger.Error().Err(err).Msg("CreateCategory store operation failed")
		if errors.Is(err, store.ErrCategoryNameExists) {
			h.respondWithError(w, http.StatusConflict, store.ErrCategoryNameExists.Error())
		} else {
			h.respondWithError(w, http.StatusInternalServerError, "Failed to create category")
		}
		return
	}

	h.respondWithJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := parsePagination(r)

	categories, totalCount, err := h.categoryStore.ListCategories(r.Context(), store.ListCategoriesParams{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("ListCategories store operation failed")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to retrieve categories")
		return
	}

	h.respondWithJSON(w, http.StatusOK, struct {
		Data       []domain.Category `json:"data"`
		Pagination Pagination        `json:"pagination"`
	}{Data: categories, Pagination: newPagination(page, limit, totalCount)})
}

func (h *HTTPHandler) GetCategoryByID(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := parseIDParam(r, "categoryId")
	if !ok {
		h.respondWithError(w, http.StatusBadRequest, "Invalid category ID format")
		return
	}

	category, err := h.categoryStore.GetCategoryByID(r.Context(), categoryID)
	if err != nil {
		if errors.Is(err, store.ErrCategoryNotFound) {
			h.respondWithError(w, http.StatusNotFound, store.ErrCategoryNotFound.Error())
			return
		}
		h.logger.Error().Err(err).Int64("category_id", categoryID).Msg("GetCategoryByID store operation failed")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to retrieve category")
		return
	}

	h.respondWithJSON(w, http.StatusOK, category)
}

func (h *HTTPHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := parseIDParam(r, "categoryId")
	if !ok {
		h.respondWithError(w, http.StatusBadRequest, "Invalid category ID format")
		return
	}

	var input CategoryInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	category := &domain.Category{
		ID:          categoryID,
		Name:        input.Name,
		Description: input.Description,
		ImageURL:    input.ImageURL,
	}

	updated, err := h.categoryStore.UpdateCategory(r.Context(), category)
	if err != nil {
		if errors.Is(err, store.ErrCategoryNotFound) {
			h.respondWithError(w, http.StatusNotFound, store.ErrCategoryNotFound.Error())
			return
		}
		if errors.Is(err, store.ErrCategoryNameExists) {
			h.respondWithError(w, http.StatusConflict, store.ErrCategoryNameExists.Error())
			return
		}
		h.logger.Error().Err(err).Int64("category_id", categoryID).Msg("UpdateCategory store operation failed")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to update category")
		return
	}

	h.respondWithJSON(w, http.StatusOK, updated)
}

func (h *HTTPHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := parseIDParam(r, "categoryId")
	if !ok {
		h.respondWithError(w, http.StatusBadRequest, "Invalid category ID format")
		return
	}

	err := h.categoryStore.DeleteCategory(r.Context(), categoryID)
	if err != nil {
		if errors.Is(err, store.ErrCategoryNotFound) {
			h.respondWithError(w, http.StatusNotFound, store.ErrCategoryNotFound.Error())
			return
		}
		if errors.Is(err, store.ErrCategoryInUse) {
			h.respondWithError(w, http.StatusConflict, store.ErrCategoryInUse.Error())
			return
		}
		h.logger.Error().Err(err).Int64("category_id", categoryID).Msg("DeleteCategory store operation failed")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to delete category")
		return
	}

	h.respondWithJSON(w, http.StatusNoContent, nil)
}

// --- Product handlers ---

// ProductInput defines the expected input for creating or updating a product.
type ProductInput struct {
	Name        string          `json:"name" validate:"required,max=255"`
	Description *string         `json:"description" validate:"omitempty"`
	Price       decimal.Decimal `json:"price" validate:"required"`
	Stock       int32           `json:"stock" validate:"gte=0"`
	Brand       *string         `json:"brand" validate:"omitempty,max=255"`
	Model       *string         `json:"model" validate:"omitempty,max=255"`
	ImageURL    *string         `json:"image_url" validate:"omitempty,url,max=2048"`
	CategoryID  int64           `json:"category_id" validate:"required,gt=0"`
	IsActive    *bool           `json:"is_active"`
}

func (h *HTTPHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var input ProductInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}
	if input.Price.IsNegative() {
		h.respondWithError(w, http.StatusBadRequest, "Validation failed: price must not be negative")
		return
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	product := &domain.Product{
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Stock:       input.Stock,
		Brand:       input.Brand,
		Model:       input.Model,
		ImageURL:    input.ImageURL,
		CategoryID:  input.CategoryID,
		IsActive:    isActive,
	}

	created, err := h.productStore.CreateProduct(r.Context(), product)
	if err != nil {
		if errors.Is(err, store.ErrCategoryNotFound) {
			h.respondWithError(w, http.StatusBadRequest, "Invalid category_id: category does not exist")
			return
		}
		h.logger.Error().Err(err).Msg("CreateProduct store operation failed")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to create product")
		return
	}

	h.respondWithJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	qParams := r.URL.Query()
	page, limit, offset := parsePagination(r)
	params := store.ListProductsParams{Limit: limit, Offset: offset}

	if search := qParams.Get("search"); search != "" {
		params.Search = &search
	}
	if idStr := qParams.Get("category_id"); idStr != "" {
		id, err := parsePositiveInt64(idStr)
		if err != nil {
			h.respondWithError(w, http.StatusBadRequest, "Invalid category_id format")
			return
		}
		params.CategoryID = &id
	}
	if priceStr := qParams.Get("min_price"); priceStr != "" {
		price, err := decimal.NewFromString(priceStr)
		if err != nil || price.IsNegative() {
			h.respondWithError(w, http.StatusBadRequest, "Invalid min_price format")
			return
		}
		params.MinPrice = &price
	}
	if priceStr := qParams.Get("max_price"); priceStr != "" {
		price, err := decimal.NewFromString(priceStr)
		if err != nil || price.IsNegative() {
			h.respondWithError(w, http.StatusBadRequest, "Invalid max_price format")
			return
		}
		params.MaxPrice = &price
	}
	if params.MinPrice != nil && params.MaxPrice != nil && params.MinPrice.GreaterThan(*params.MaxPrice) {
		h.respondWithError(w, http.StatusBadRequest, "min_price cannot exceed max_price")
		return
	}

	products, totalCount, err := h.productStore.ListProducts(r.Context(), params)
	if err != nil {
		h.logger.Error().Err(err).Msg("ListProducts store operation failed")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to retrieve products")
		return
	}

	h.respondWithJSON(w, http.StatusOK, struct {
		Data       []domain.Product `json:"data"`
		Pagination Pagination       `json:"pagination"`
	}{Data: products, Pagination: newPagination(page, limit, totalCount)})
}

func (h *HTTPHandler) GetProductByID(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseIDParam(r, "productId")
	if !ok {
		h.respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	product, err := h.productStore.GetProductByID(r.Context(), productID)
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			h.respondWithError(w, http.StatusNotFound, store.ErrProductNotFound.Error())
			return
		}
		h.logger.Error().Err(err).Int64("product_id", productID).Msg("GetProductByID store operation failed")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to retrieve product")
		return
	}

	// Soft-deleted products stay addressable for admins only.
	if !product.IsActive && !isAdmin(r.Context()) {
		h.respondWithError(w, http.StatusNotFound, store.ErrProductNotFound.Error())
		return
	}

	h.respondWithJSON(w, http.StatusOK, product)
}

func (h *HTTPHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseIDParam(r, "productId")
	if !ok {
		h.respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	var input ProductInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}
	if input.Price.IsNegative() {
		h.respondWithError(w, http.StatusBadRequest, "Validation failed: price must not be negative")
		return
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	product := &domain.Product{
		ID:          productID,
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Stock:       input.Stock,
		Brand:       input.Brand,
		Model:       input.Model,
		ImageURL:    input.ImageURL,
		CategoryID:  input.CategoryID,
		IsActive:    isActive,
	}

	updated, err := h.productStore.UpdateProduct(r.Context(), product)
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			h.respondWithError(w, http.StatusNotFound, store.ErrProductNotFound.Error())
			return
		}
		if errors.Is(err, store.ErrCategoryNotFound) {
			h.respondWithError(w, http.StatusBadRequest, "Invalid category_id: category does not exist")
			return
		}
		h.logger.Error().Err(err).Int64("product_id", productID).Msg("UpdateProduct store operation failed")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to update product")
		return
	}

	h.respondWithJSON(w, http.StatusOK, updated)
}

// DeleteProduct soft-deletes: the product drops out of listings but keeps
// its row for historical order items.
func (h *HTTPHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseIDParam(r, "productId")
	if !ok {
		h.respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	err := h.productStore.DeactivateProduct(r.Context(), productID)
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			h.respondWithError(w, http.StatusNotFound, store.ErrProductNotFound.Error())
			return
		}
		h.logger.Error().Err(err).Int64("product_id", productID).Msg("DeleteProduct store operation failed")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to delete product")
		return
	}

	h.respondWithJSON(w, http.StatusNoContent, nil)
}
