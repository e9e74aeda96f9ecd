package api

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"

	"fluent-messenger/errors"
)

// Envelope is the uniform response shape of every endpoint.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func respondOK(w http.ResponseWriter, log *slog.Logger, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error("Failed to marshal response payload", "err", err)
		respondError(w, log, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, log, http.StatusOK, Envelope{Success: true, Data: data})
}

func respondError(w http.ResponseWriter, log *slog.Logger, status int, message string) {
	respondJSON(w, log, status, Envelope{Success: false, Error: message})
}

func respondJSON(w http.ResponseWriter, log *slog.Logger, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error("Failed to encode response", "err", err)
	}
}

// respondServiceError maps sentinel errors to the HTTP statuses of the API
// contract: validation and duplicate/credential problems are 400, missing
// aggregates are 404, everything else is a 500.
func respondServiceError(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case stderrors.Is(err, errors.ErrValidation),
		stderrors.Is(err, errors.ErrUserAlreadyExists),
		stderrors.Is(err, errors.ErrInvalidCredentials):
		respondError(w, log, http.StatusBadRequest, err.Error())
	case stderrors.Is(err, errors.ErrChatNotFound),
		stderrors.Is(err, errors.ErrUserNotFound):
		respondError(w, log, http.StatusNotFound, err.Error())
	default:
		log.Error("Unhandled service error", "err", err)
		respondError(w, log, http.StatusInternalServerError, "internal error")
	}
}
