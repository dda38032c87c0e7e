package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/QwerTayu/anniversary-calendar/internal/middleware"
	"github.com/QwerTayu/anniversary-calendar/internal/services"

	"github.com/rs/zerolog/log"
)

// PairHandler handles pairing-related HTTP requests
type PairHandler struct {
	pairService *services.PairService
}

// NewPairHandler creates a new pair handler
func NewPairHandler(pairService *services.PairService) *PairHandler {
	return &PairHandler{pairService: pairService}
}

// InviteResponse represents a freshly issued invitation
type InviteResponse struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Invite handles POST /api/v1/invite
func (h *PairHandler) Invite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	inv, err := h.pairService.IssueInvite(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to issue invite")
		respondDomainError(w, err)
		return
	}

	log.Info().Str("user_id", userID).Str("code", inv.Code).Msg("Invite issued")
	respondJSON(w, http.StatusOK, InviteResponse{Code: inv.Code, ExpiresAt: inv.ExpiresAt})
}

// AcceptRequest represents the request body for accepting an invitation
type AcceptRequest struct {
	Code string `json:"code"`
}

// Accept handles POST /api/v1/accept
func (h *PairHandler) Accept(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req AcceptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Code == "" {
		respondError(w, "code is required", http.StatusBadRequest)
		return
	}

	if err := h.pairService.Accept(ctx, userID, req.Code); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to accept invite")
		respondDomainError(w, err)
		return
	}

	log.Info().Str("user_id", userID).Msg("Pairing accepted")
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Disconnect handles POST /api/v1/disconnect
func (h *PairHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	if err := h.pairService.Disconnect(ctx, userID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to disconnect")
		respondDomainError(w, err)
		return
	}

	log.Info().Str("user_id", userID).Msg("Pairing disconnected")
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
