// Package api exposes the JSON HTTP interface: auth endpoints, bill
// lifecycle endpoints, and the operational endpoints for health and
// metrics.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"fairshare/internal/auth"
	"fairshare/internal/service"
	"fairshare/internal/storage"
)

// response is the envelope every endpoint returns.
type response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, response{Success: true, Data: data})
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, response{Success: true, Message: message})
}

// writeError maps a service error onto an HTTP status. Unknown errors
// become a generic 500 so internals never leak to clients.
func writeError(w http.ResponseWriter, err error) {
	var vErr *service.ValidationError

	status := http.StatusInternalServerError
	message := "internal server error"

	switch {
	case errors.As(err, &vErr):
		status, message = http.StatusBadRequest, vErr.Error()
	case errors.Is(err, service.ErrSettledBill):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrParticipantNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrNotCreator):
		status, message = http.StatusForbidden, err.Error()
	case errors.Is(err, storage.ErrNotFound):
		status, message = http.StatusNotFound, "not found"
	case errors.Is(err, auth.ErrInvalidCredentials):
		status, message = http.StatusUnauthorized, err.Error()
	case errors.Is(err, auth.ErrEmailExists):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, auth.ErrWeakPassword):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, auth.ErrMissingToken), errors.Is(err, auth.ErrInvalidToken):
		status, message = http.StatusUnauthorized, err.Error()
	default:
		slog.Error("unhandled error", "error", err)
	}

	writeJSON(w, status, response{Success: false, Error: message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, response{Success: false, Error: "invalid request body"})
		return false
	}
	return true
}
