// Package handler provides HTTP handlers for the openshelf API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/domain"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// messageResponse is the minimal {message} envelope.
type messageResponse struct {
	Message string `json:"message"`
}

// fieldErrorResponse is a message tagged with the offending field, used for
// validation failures and uniqueness conflicts.
type fieldErrorResponse struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// respondError maps domain and auth errors onto HTTP responses. Anything
// unclassified becomes a generic 500; details stay in the log.
func respondError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	// Field-tagged validation failures
	if ve, ok := domain.AsValidationError(err); ok {
		writeJSON(w, http.StatusBadRequest, fieldErrorResponse{Message: ve.Message, Field: ve.Field})
		return
	}

	// Auth chain errors carry their own code and status
	if errors.Is(err, auth.ErrAuthRequired) ||
		errors.Is(err, auth.ErrOwnershipRequired) ||
		errors.Is(err, auth.ErrInsufficientRole) {
		auth.WriteError(w, auth.NewAuthError(err))
		return
	}

	switch {
	case errors.Is(err, domain.ErrEmailTaken):
		writeJSON(w, http.StatusConflict, fieldErrorResponse{Message: "Email already registered", Field: "email"})
	case errors.Is(err, domain.ErrUsernameTaken):
		writeJSON(w, http.StatusConflict, fieldErrorResponse{Message: "Username already taken", Field: "username"})
	case errors.Is(err, domain.ErrISBNTaken):
		writeJSON(w, http.StatusConflict, fieldErrorResponse{Message: "A book with this ISBN already exists", Field: "isbn"})
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, messageResponse{Message: "Invalid email or password"})
	case errors.Is(err, domain.ErrUserInactive):
		auth.WriteError(w, auth.NewAuthError(auth.ErrAccountInactive))
	case errors.Is(err, domain.ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, messageResponse{Message: "User not found"})
	case errors.Is(err, domain.ErrBookNotFound):
		writeJSON(w, http.StatusNotFound, messageResponse{Message: "Book not found"})
	case errors.Is(err, domain.ErrOwnershipRequired):
		auth.WriteError(w, auth.NewAuthError(auth.ErrOwnershipRequired))
	default:
		logger.Error().Err(err).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, messageResponse{Message: "Internal server error"})
	}
}
