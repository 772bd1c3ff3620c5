package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tenderspro/backend/internal/apperror"
	"github.com/tenderspro/backend/internal/repository"
)

// ErrorResponse represents a JSON error response body.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// respondJSON writes a JSON response with the given status code.
// It sets the Content-Type header to application/json.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondError writes a JSON error response with the given status code and message.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// respondAppError writes a JSON error response from an AppError.
func respondAppError(w http.ResponseWriter, err *apperror.AppError) {
	respondJSON(w, err.StatusCode, ErrorResponse{Error: err.Message, Field: err.Field})
}

// respondServiceError maps service and repository errors onto HTTP
// responses, falling back to 500 for anything unrecognized.
func respondServiceError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		respondAppError(w, appErr)
		return
	}

	switch {
	case errors.Is(err, repository.ErrTenderNotFound),
		errors.Is(err, repository.ErrAlertNotFound),
		errors.Is(err, repository.ErrProfileNotFound),
		errors.Is(err, repository.ErrSubscriptionNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
