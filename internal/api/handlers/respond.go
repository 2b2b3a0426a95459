package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"github.com/minhvu/schedly-be/internal/apperr"
)

// messageResponse is the uniform error/confirmation body.
type messageResponse struct {
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondMessage(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, messageResponse{Message: msg})
}

// respondError maps a service error to its status code and a safe message.
// Raw error text is only appended outside production.
func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "An unexpected error occurred"

	switch {
	case errors.Is(err, apperr.ErrValidation):
		status, msg = http.StatusBadRequest, "Invalid request"
	case errors.Is(err, apperr.ErrConflict):
		status, msg = http.StatusBadRequest, "Username or email already exists"
	case errors.Is(err, apperr.ErrInvalidCredentials):
		status, msg = http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, apperr.ErrUnauthenticated):
		status, msg = http.StatusUnauthorized, "Authentication required"
	case errors.Is(err, apperr.ErrForbidden):
		status, msg = http.StatusForbidden, "You do not have permission to access this resource"
	case errors.Is(err, apperr.ErrNotFound):
		status, msg = http.StatusNotFound, "Resource not found"
	case errors.Is(err, apperr.ErrStorageUnavailable):
		status, msg = http.StatusInternalServerError, "Storage unavailable, please try again later"
	}

	if os.Getenv("APP_ENV") != "production" {
		msg = msg + ": " + err.Error()
	}

	respondMessage(w, status, msg)
}
