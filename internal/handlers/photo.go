package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/QwerTayu/anniversary-calendar/internal/middleware"
	"github.com/QwerTayu/anniversary-calendar/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// PhotoHandler handles photo-related HTTP requests
type PhotoHandler struct {
	photoService *services.PhotoService
}

// NewPhotoHandler creates a new photo handler
func NewPhotoHandler(photoService *services.PhotoService) *PhotoHandler {
	return &PhotoHandler{photoService: photoService}
}

// AttachRequest represents the request body for attaching a photo
type AttachRequest struct {
	ContentType string `json:"content_type"`
}

// Attach handles POST /api/v1/memories/{memory_id}/photos
func (h *PhotoHandler) Attach(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	memoryID := chi.URLParam(r, "memory_id")

	var req AttachRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ContentType == "" {
		req.ContentType = "image/jpeg"
	}

	resp, err := h.photoService.AttachPhoto(ctx, userID, memoryID, req.ContentType)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("memory_id", memoryID).Msg("Failed to attach photo")
		respondDomainError(w, err)
		return
	}

	log.Info().Str("user_id", userID).Str("memory_id", memoryID).Str("photo_id", resp.PhotoID).Msg("Photo attached")
	respondJSON(w, http.StatusOK, resp)
}

// List handles GET /api/v1/memories/{memory_id}/photos
func (h *PhotoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	memoryID := chi.URLParam(r, "memory_id")

	photos, err := h.photoService.ListPhotos(ctx, userID, memoryID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("memory_id", memoryID).Msg("Failed to list photos")
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, photos)
}
