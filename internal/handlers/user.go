package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/QwerTayu/anniversary-calendar/internal/middleware"
	"github.com/QwerTayu/anniversary-calendar/internal/models"
	"github.com/QwerTayu/anniversary-calendar/internal/services"

	"github.com/rs/zerolog/log"
)

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// RegisterRequest represents the request body for registering a user
type RegisterRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// RegisterResponse represents a newly registered user with its token
type RegisterResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// Register handles POST /api/v1/users
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, token, err := h.userService.Register(r.Context(), req.Email, req.DisplayName)
	if err != nil {
		log.Error().Err(err).Str("email", req.Email).Msg("Failed to register user")
		respondDomainError(w, err)
		return
	}

	log.Info().Str("user_id", user.ID).Msg("User registered")
	respondJSON(w, http.StatusCreated, RegisterResponse{User: user, Token: token})
}

// PushTokenRequest represents the request body for updating a push token.
// A null token unregisters the device.
type PushTokenRequest struct {
	Token *string `json:"token"`
}

// UpdatePushToken handles PUT /api/v1/users/push-token
func (h *UserHandler) UpdatePushToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req PushTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.userService.UpdatePushToken(ctx, userID, req.Token); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to update push token")
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
