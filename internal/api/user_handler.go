package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"musicshop-service/internal/auth"
	"musicshop-service/internal/domain"
	"musicshop-service/internal/store"
)

// UserCreateInput is the admin user-creation payload.
type UserCreateInput struct {
	Email     string      `json:"email" validate:"required,email,max=255"`
	Password  string      `json:"password" validate:"required,min=6,max=72"`
	FirstName *string     `json:"first_name" validate:"omitempty,max=255"`
	LastName  *string     `json:"last_name" validate:"omitempty,max=255"`
	Role      domain.Role `json:"role" validate:"required,oneof=USER ADMIN"`
}

func (h *HTTPHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var input UserCreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		h.logger.Error().Err(err).Msg("CreateUser failed to hash password")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	user := &domain.User{
		Email:        input.Email,
		PasswordHash: hash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         input.Role,
	}

	created, err := h.userStore.CreateUser(r.Context(), user)
	if err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			h.respondWithError(w, http.StatusConflict, store.ErrEmailExists.Error())
			return
		}
		h.logger.Error().Err(err).Msg("CreateUser store operation failed")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	h.respondWithJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userStore.ListUsers(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("ListUsers store operation failed")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to retrieve users")
		return
	}
	h.respondWithJSON(w, http.StatusOK, users)
}

// GetUserByID lets a user read their own account; admins can read anyone's.
func (h *HTTPHandler) GetUserByID(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		h.respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	userID, ok := parseIDParam(r, "userId")
	if !ok {
		h.respondWithError(w, http.StatusBadRequest, "Invalid user ID format")
		return
	}
	if claims.Role != domain.RoleAdmin && claims.UserID != userID {
		h.respondWithError(w, http.StatusForbidden, "cannot access another user's account")
		return
	}

	user, err := h.userStore.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			h.respondWithError(w, http.StatusNotFound, store.ErrUserNotFound.Error())
			return
		}
		h.logger.Error().Err(err).Int64("user_id", userID).Msg("GetUserByID store operation failed")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to retrieve user")
		return
	}

	h.respondWithJSON(w, http.StatusOK, user)
}

// UserUpdateInput is the profile-update payload. Role changes are only
// honored for admin callers.
type UserUpdateInput struct {
	Email     string       `json:"email" validate:"required,email,max=255"`
	FirstName *string      `json:"first_name" validate:"omitempty,max=255"`
	LastName  *string      `json:"last_name" validate:"omitempty,max=255"`
	Role      *domain.Role `json:"role" validate:"omitempty,oneof=USER ADMIN"`
}

func (h *HTTPHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		h.respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	userID, ok := parseIDParam(r, "userId")
	if !ok {
		h.respondWithError(w, http.StatusBadRequest, "Invalid user ID format")
		return
	}
	if claims.Role != domain.RoleAdmin && claims.UserID != userID {
		h.respondWithError(w, http.StatusForbidden, "cannot modify another user's account")
		return
	}

	var input UserUpdateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	existing, err := h.userStore.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			h.respondWithError(w, http.StatusNotFound, store.ErrUserNotFound.Error())
			return
		}
		h.logger.Error().Err(err).Int64("user_id", userID).Msg("UpdateUser store operation failed")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to update user")
		return
	}

	role := existing.Role
	if input.Role != nil && claims.Role == domain.RoleAdmin {
		role = *input.Role
	}

	user := &domain.User{
		ID:        userID,
		Email:     input.Email,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Role:      role,
	}

	updated, err := h.userStore.UpdateUser(r.Context(), user)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			h.respondWithError(w, http.StatusNotFound, store.ErrUserNotFound.Error())
			return
		}
		if errors.Is(err, store.ErrEmailExists) {
			h.respondWithError(w, http.StatusConflict, store.ErrEmailExists.Error())
			return
		}
		h.logger.Error().Err(err).Int64("user_id", userID).Msg("UpdateUser store operation failed")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to update user")
		return
	}

	h.respondWithJSON(w, http.StatusOK, updated)
}

func (h *HTTPHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseIDParam(r, "userId")
	if !ok {
		h.respondWithError(w, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	err := h.userStore.DeleteUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			h.respondWithError(w, http.StatusNotFound, store.ErrUserNotFound.Error())
			return
		}
		h.logger.Error().Err(err).Int64("user_id", userID).Msg("DeleteUser store operation failed")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to delete user")
		return
	}

	h.respondWithJSON(w, http.StatusNoContent, nil)
}
