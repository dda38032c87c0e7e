package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/QwerTayu/anniversary-calendar/internal/middleware"
	"github.com/QwerTayu/anniversary-calendar/internal/recurrence"
	"github.com/QwerTayu/anniversary-calendar/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// MemoryHandler handles memory-related HTTP requests
type MemoryHandler struct {
	memoryService *services.MemoryService
	pinService    *services.PinService
}

// NewMemoryHandler creates a new memory handler
func NewMemoryHandler(memoryService *services.MemoryService, pinService *services.PinService) *MemoryHandler {
	return &MemoryHandler{
		memoryService: memoryService,
		pinService:    pinService,
	}
}

// MemoryRequest represents the request body for creating or updating a memory
type MemoryRequest struct {
	Title     string `json:"title"`
	Detail    string `json:"detail"`
	EventDate string `json:"event_date"` // YYYY-MM-DD
	IsShared  bool   `json:"is_shared"`
}

func (req *MemoryRequest) parseDate() (time.Time, bool) {
	t, err := time.ParseInLocation("2006-01-02", req.EventDate, recurrence.Zone)
	return t, err == nil
}

// Create handles POST /api/v1/memories
func (h *MemoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req MemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	eventDate, ok := req.parseDate()
	if !ok {
		respondError(w, "event_date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	m, err := h.memoryService.Create(ctx, userID, req.Title, req.Detail, eventDate, req.IsShared)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to create memory")
		respondDomainError(w, err)
		return
	}

	log.Info().Str("user_id", userID).Str("memory_id", m.ID).Msg("Memory created")
	respondJSON(w, http.StatusCreated, m)
}

// Update handles PUT /api/v1/memories/{memory_id}
func (h *MemoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	memoryID := chi.URLParam(r, "memory_id")

	var req MemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	eventDate, ok := req.parseDate()
	if !ok {
		respondError(w, "event_date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	m, err := h.memoryService.Update(ctx, userID, memoryID, req.Title, req.Detail, eventDate, req.IsShared)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("memory_id", memoryID).Msg("Failed to update memory")
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, m)
}

// Delete handles DELETE /api/v1/memories/{memory_id}
func (h *MemoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	memoryID := chi.URLParam(r, "memory_id")

	if err := h.memoryService.Delete(ctx, userID, memoryID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("memory_id", memoryID).Msg("Failed to delete memory")
		respondDomainError(w, err)
		return
	}

	log.Info().Str("user_id", userID).Str("memory_id", memoryID).Msg("Memory deleted")
	w.WriteHeader(http.StatusNoContent)
}

// List handles GET /api/v1/memories?month=N
func (h *MemoryHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil {
		respondError(w, "month is required", http.StatusBadRequest)
		return
	}

	memories, err := h.memoryService.ListForMonth(ctx, userID, month)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Int("month", month).Msg("Failed to list memories")
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, memories)
}

// Home handles GET /api/v1/memories/home
func (h *MemoryHandler) Home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	view, err := h.memoryService.Home(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to build home view")
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// Calendar handles GET /api/v1/calendar?year=YYYY&month=N
func (h *MemoryHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year < 1 {
		respondError(w, "year is required", http.StatusBadRequest)
		return
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		respondError(w, "month must be between 1 and 12", http.StatusBadRequest)
		return
	}

	grid := recurrence.MonthGrid(year, month, time.Now().In(recurrence.Zone))
	respondJSON(w, http.StatusOK, grid)
}

// PinRequest represents the request body for toggling a pin. Confirm must be
// true to replace an existing pin on another memory.
type PinRequest struct {
	Confirm bool `json:"confirm"`
}

// PinResponse reports the resulting pin state
type PinResponse struct {
	Pinned bool `json:"pinned"`
}

// TogglePin handles POST /api/v1/memories/{memory_id}/pin
func (h *MemoryHandler) TogglePin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	memoryID := chi.URLParam(r, "memory_id")

	var req PinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	pinned, err := h.pinService.TogglePin(ctx, userID, memoryID, req.Confirm)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("memory_id", memoryID).Msg("Failed to toggle pin")
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, PinResponse{Pinned: pinned})
}
