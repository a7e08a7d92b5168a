package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"musicshop-service/internal/auth"
	"musicshop-service/internal/store"
)

// HTTPHandler holds dependencies for the HTTP handlers.
type HTTPHandler struct {
	categoryStore store.CategoryStorer
	productStore  store.ProductStorer
	orderStore    store.OrderStorer
	userStore     store.UserStorer
	tokens        *auth.TokenManager
	validate      *validator.Validate
	logger        zerolog.Logger
}

// NewHTTPHandler creates a new HTTPHandler with dependencies.
func NewHTTPHandler(
	cs store.CategoryStorer,
	ps store.ProductStorer,
	os store.OrderStorer,
	us store.UserStorer,
	tokens *auth.TokenManager,
	logger zerolog.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		categoryStore: cs,
		productStore:  ps,
		orderStore:    os,
		userStore:     us,
		tokens:        tokens,
		validate:      validator.New(),
		logger:        logger,
	}
}

// --- Helpers ---

// ErrorResponse defines the structure for JSON error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (h *HTTPHandler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, ErrorResponse{Error: message})
}

func (h *HTTPHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			h.logger.Error().Err(err).Msg("failed to encode JSON response")
		}
	}
}

// Pagination is the standard list-response envelope.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

func newPagination(page, limit, totalCount int) Pagination {
	totalPages := 0
	if totalCount > 0 {
		totalPages = (totalCount + limit - 1) / limit
	}
	return Pagination{Page: page, Limit: limit, TotalItems: totalCount, TotalPages: totalPages}
}

// parsePagination reads page/limit query parameters with sane bounds.
func parsePagination(r *http.Request) (page, limit, offset int) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	page, err = strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page <= 0 {
		page = 1
	}
	return page, limit, (page - 1) * limit
}

func parsePositiveInt64(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, strconv.ErrRange
	}
	return id, nil
}

func parseIDParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// --- Route registration ---

// RegisterRoutes sets up the HTTP routes for the service.
func (h *HTTPHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.ListCategories)
			r.Get("/{categoryId}", h.GetCategoryByID)
			r.Group(func(r chi.Router) {
				r.Use(h.RequireAuth, h.RequireAdmin)
				r.Post("/", h.CreateCategory)
				r.Put("/{categoryId}", h.UpdateCategory)
				r.Delete("/{categoryId}", h.DeleteCategory)
			})
		})

		r.Route("/products", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(h.OptionalAuth)
				r.Get("/", h.ListProducts)
				r.Get("/{productId}", h.GetProductByID)
			})
			r.Group(func(r chi.Router) {
				r.Use(h.RequireAuth, h.RequireAdmin)
				r.Post("/", h.CreateProduct)
				r.Put("/{productId}", h.UpdateProduct)
				r.Delete("/{productId}", h.DeleteProduct)
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(h.RequireAuth)
			r.Post("/", h.CreateOrder)
			r.Get("/", h.ListMyOrders)
			r.With(h.RequireAdmin).Get("/admin", h.ListAllOrders)
			r.Get("/{orderId}", h.GetOrderByID)
			r.With(h.RequireAdmin).Patch("/{orderId}/status", h.UpdateOrderStatus)
			r.With(h.RequireAdmin).Delete("/{orderId}", h.DeleteOrder)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(h.RequireAuth)
			r.With(h.RequireAdmin).Post("/", h.CreateUser)
			r.With(h.RequireAdmin).Get("/", h.ListUsers)
			r.Get("/{userId}", h.GetUserByID)
			r.Patch("/{userId}", h.UpdateUser)
			r.With(h.RequireAdmin).Delete("/{userId}", h.DeleteUser)
		})
	})
}
