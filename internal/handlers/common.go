package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/QwerTayu/anniversary-calendar/internal/pairing"
	"github.com/QwerTayu/anniversary-calendar/internal/repository"
	"github.com/QwerTayu/anniversary-calendar/internal/services"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

// respondDomainError maps known domain errors onto status codes. Unknown
// errors become a generic 500; their detail stays in the server log only.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		respondError(w, "Not found", http.StatusNotFound)
	case errors.Is(err, services.ErrForbidden):
		respondError(w, "Forbidden", http.StatusForbidden)
	case errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrInvalidMonth),
		errors.Is(err, services.ErrEmailRequired):
		respondError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, pairing.ErrInvalidCode):
		respondError(w, "Invalid code", http.StatusBadRequest)
	case errors.Is(err, pairing.ErrCodeExpired):
		respondError(w, "Code expired", http.StatusBadRequest)
	case errors.Is(err, pairing.ErrAlreadyPaired):
		respondError(w, "Already paired", http.StatusConflict)
	case errors.Is(err, pairing.ErrInvalidIssuer):
		respondError(w, "Invalid issuer", http.StatusUnprocessableEntity)
	case errors.Is(err, services.ErrPinConflict):
		respondError(w, "Another memory is already pinned", http.StatusConflict)
	case errors.Is(err, services.ErrFutureDate):
		respondError(w, "Future dates cannot be pinned", http.StatusUnprocessableEntity)
	default:
		respondError(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
