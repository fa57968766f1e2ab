package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ricirt/autoblog/internal/domain"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondMessage(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"message": msg})
}

// mapError translates domain sentinel errors to HTTP status codes.
// All mapping lives here so individual handlers stay concise.
func mapError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondMessage(w, http.StatusNotFound, "Item not found.")
	case errors.Is(err, domain.ErrNotRetryable):
		respondMessage(w, http.StatusBadRequest, "Cannot retry this item.")
	case errors.Is(err, domain.ErrValidation):
		respondMessage(w, http.StatusBadRequest, "No titles provided.")
	default:
		respondMessage(w, http.StatusInternalServerError, "internal server error")
	}
}
