package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"musicshop-service/internal/auth"
	"musicshop-service/internal/domain"
	"musicshop-service/internal/store"
)

// RegisterInput is the self-service registration payload.
type RegisterInput struct {
	Email     string  `json:"email" validate:"required,email,max=255"`
	Password  string  `json:"password" validate:"required,min=6,max=72"`
	FirstName *string `json:"first_name" validate:"omitempty,max=255"`
	LastName  *string `json:"last_name" validate:"omitempty,max=255"`
}

// LoginInput is the credential payload.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse carries the bearer token and the account it belongs to.
type AuthResponse struct {
	AccessToken string       `json:"access_token"`
	User        *domain.User `json:"user"`
}

// Register creates a USER account and signs the caller in.
func (h *HTTPHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input RegisterInput
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
		h.logger.Error().Err(err).Msg("Register failed to hash password")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to register user")
		return
	}

	user := &domain.User{
		Email:        input.Email,
		PasswordHash: hash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         domain.RoleUser,
	}

	created, err := h.userStore.CreateUser(r.Context(), user)
	if err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			h.respondWithError(w, http.StatusConflict, store.ErrEmailExists.Error())
			return
		}
		h.logger.Error().Err(err).Msg("Register store operation failed")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to register user")
		return
	}

	token, err := h.tokens.Issue(created)
	if err != nil {
		h.logger.Error().Err(err).Msg("Register failed to issue token")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to register user")
		return
	}

	h.respondWithJSON(w, http.StatusCreated, AuthResponse{AccessToken: token, User: created})
}

// Login verifies credentials and issues a bearer token. Unknown email and
// wrong password are indistinguishable to the caller.
func (h *HTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input LoginInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	user, err := h.userStore.GetUserByEmail(r.Context(), input.Email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			h.respondWithError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		h.logger.Error().Err(err).Msg("Login store operation failed")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to sign in")
		return
	}

	if !auth.CheckPassword(input.Password, user.PasswordHash) {
		h.respondWithError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		h.logger.Error().Err(err).Msg("Login failed to issue token")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to sign in")
		return
	}

	h.respondWithJSON(w, http.StatusOK, AuthResponse{AccessToken: token, User: user})
}
