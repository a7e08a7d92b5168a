package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"musicshop-service/internal/domain"
	"musicshop-service/internal/store"
)

// OrderItemInput is one checkout line.
type OrderItemInput struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int32 `json:"quantity" validate:"required,gt=0"`
}

// OrderCreateInput is the checkout payload produced by the client cart.
type OrderCreateInput struct {
	Items []OrderItemInput `json:"items" validate:"required,min=1,dive"`
}

// CreateOrder places an order for the authenticated caller. Placement is
// all-or-nothing: an unknown product or an insufficient-stock line rolls
// back the whole order, including stock decrements applied for earlier
// lines of the same request.
func (h *HTTPHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		h.respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var input OrderCreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	lines := make([]domain.OrderLine, 0, len(input.Items))
	for _, item := range input.Items {
		lines = append(lines, domain.OrderLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	order, err := h.orderStore.CreateOrder(r.Context(), claims.UserID, lines)
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			h.respondWithError(w, http.StatusNotFound, store.ErrProductNotFound.Error())
			return
		}
		if errors.Is(err, store.ErrInsufficientStock) {
			h.respondWithError(w, http.StatusConflict, store.ErrInsufficientStock.Error())
			return
		}
		h.logger.Error().Err(err).Int64("user_id", claims.UserID).Msg("CreateOrder store operation failed")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to create order")
		return
	}

	h.respondWithJSON(w, http.StatusCreated, order)
}

// ListMyOrders returns the caller's orders, newest first.
func (h *HTTPHandler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		h.respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	h.listOrders(w, r, &claims.UserID)
}

// ListAllOrders returns every order; admin only.
func (h *HTTPHandler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	h.listOrders(w, r, nil)
}

func (h *HTTPHandler) listOrders(w http.ResponseWriter, r *http.Request, userID *int64) {
	page, limit, offset := parsePagination(r)

	orders, totalCount, err := h.orderStore.ListOrders(r.Context(), store.ListOrdersParams{
		Limit:  limit,
		Offset: offset,
		UserID: userID,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("ListOrders store operation failed")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to retrieve orders")
		return
	}

	h.respondWithJSON(w, http.StatusOK, struct {
		Data       []domain.Order `json:"data"`
		Pagination Pagination     `json:"pagination"`
	}{Data: orders, Pagination: newPagination(page, limit, totalCount)})
}

// GetOrderByID returns one order. Admins can read any order; other callers
// only their own — a foreign order reads as not found rather than forbidden.
func (h *HTTPHandler) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		h.respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	orderID, ok := parseIDParam(r, "orderId")
	if !ok {
		h.respondWithError(w, http.StatusBadRequest, "Invalid order ID format")
		return
	}

	var scope *int64
	if claims.Role != domain.RoleAdmin {
		scope = &claims.UserID
	}

	order, err := h.orderStore.GetOrderByID(r.Context(), orderID, scope)
	if err != nil {
		if errors.Is(err, store.ErrOrderNotFound) {
			h.respondWithError(w, http.StatusNotFound, store.ErrOrderNotFound.Error())
			return
		}
		h.logger.Error().Err(err).Int64("order_id", orderID).Msg("GetOrderByID store operation failed")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to retrieve order")
		return
	}

	h.respondWithJSON(w, http.StatusOK, order)
}

// OrderStatusInput is the status-transition payload.
type OrderStatusInput struct {
	Status domain.OrderStatus `json:"status" validate:"required"`
}

// UpdateOrderStatus transitions an order along the forward-only status
// machine; an out-of-order transition is a conflict, not a bad request.
func (h *HTTPHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseIDParam(r, "orderId")
	if !ok {
		h.respondWithError(w, http.StatusBadRequest, "Invalid order ID format")
		return
	}

	var input OrderStatusInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if !input.Status.Valid() {
		h.respondWithError(w, http.StatusBadRequest, "Invalid order status value")
		return
	}

	order, err := h.orderStore.UpdateOrderStatus(r.Context(), orderID, input.Status)
	if err != nil {
		if errors.Is(err, store.ErrOrderNotFound) {
			h.respondWithError(w, http.StatusNotFound, store.ErrOrderNotFound.Error())
			return
		}
		if errors.Is(err, store.ErrInvalidStatusTransition) {
			h.respondWithError(w, http.StatusConflict, store.ErrInvalidStatusTransition.Error())
			return
		}
		h.logger.Error().Err(err).Int64("order_id", orderID).Msg("UpdateOrderStatus store operation failed")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to update order status")
		return
	}

	h.respondWithJSON(w, http.StatusOK, order)
}

func (h *HTTPHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseIDParam(r, "orderId")
	if !ok {
		h.respondWithError(w, http.StatusBadRequest, "Invalid order ID format")
		return
	}

	err := h.orderStore.DeleteOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, store.ErrOrderNotFound) {
			h.respondWithError(w, http.StatusNotFound, store.ErrOrderNotFound.Error())
			return
		}
		h.logger.Error().Err(err).Int64("order_id", orderID).Msg("DeleteOrder store operation failed")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to delete order")
		return
	}

	h.respondWithJSON(w, http.StatusNoContent, nil)
}
