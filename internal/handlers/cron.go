package handlers

import (
	"net/http"
	"strings"

	"github.com/QwerTayu/anniversary-calendar/internal/services"

	"github.com/rs/zerolog/log"
)

// CronHandler handles the scheduled notification dispatch endpoint. It is
// authenticated with a shared secret instead of a user token; only the
// external scheduler calls it.
type CronHandler struct {
	notifier   *services.Notifier
	secret     string
	production bool
}

// NewCronHandler creates a new cron handler
func NewCronHandler(notifier *services.Notifier, secret string, production bool) *CronHandler {
	return &CronHandler{
		notifier:   notifier,
		secret:     secret,
		production: production,
	}
}

// CronResponse reports the dispatch result
type CronResponse struct {
	Success bool `json:"success"`
	Sent    int  `json:"sent"`
}

// Dispatch handles GET /cron
func (h *CronHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token != h.secret {
		// Outside production a missing secret is tolerated for local runs.
		if h.production {
			respondError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		log.Warn().Msg("Cron secret mismatch ignored outside production")
	}

	sent, err := h.notifier.Run(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Notification dispatch failed")
		respondError(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, CronResponse{Success: true, Sent: sent})
}
