package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"roomchat-backend/services"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

func respondWithError(w http.ResponseWriter, error, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Message: message,
	})
}

func respondWithSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(SuccessResponse{
		Success: true,
		Data:    data,
	})
}

// respondServiceError maps the service error taxonomy onto HTTP status
// codes. Every class is recoverable; the message tells the caller what
// to fix.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		respondWithError(w, "Validation failed", err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrUnauthenticated):
		respondWithError(w, "Unauthorized", err.Error(), http.StatusUnauthorized)
	case errors.Is(err, services.ErrForbidden):
		respondWithError(w, "Forbidden", err.Error(), http.StatusForbidden)
	case errors.Is(err, services.ErrNotFound):
		respondWithError(w, "Not found", err.Error(), http.StatusNotFound)
	default:
		respondWithError(w, "Internal error", "Something went wrong", http.StatusInternalServerError)
	}
}

type ctxKey int

const identityKey ctxKey = 0

func withIdentity(r *http.Request, id *services.Identity) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), identityKey, id))
}

// identityFrom returns the verified identity stashed by the auth
// middleware, or nil for an anonymous request.
func identityFrom(r *http.Request) *services.Identity {
	id, _ := r.Context().Value(identityKey).(*services.Identity)
	return id
}

// bearerToken extracts the credential from the Authorization header,
// with or without the Bearer prefix.
func bearerToken(r *http.Request) string {
	token := r.Header.Get("Authorization")
	return strings.TrimPrefix(token, "Bearer ")
}
