// internal/adapters/in/http/handlers/helpers.go
package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gigagfun/launchium-token-creator/internal/domain/launch"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Step    string `json:"step,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[http] encode response: %v", err)
	}
}

// writeError maps domain errors to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status, body := classify(err)
	if status >= 500 {
		log.Printf("[http] %d %s: %v", status, body.Error, err)
	}
	writeJSON(w, status, body)
}

func classify(err error) (int, errorBody) {
	var (
		ve     *launch.ValidationError
		le     *launch.LedgerError
		tooBig *http.MaxBytesError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, errorBody{Error: "invalid_request", Message: ve.Error(), Field: ve.Field}
	case errors.As(err, &tooBig):
		return http.StatusRequestEntityTooLarge, errorBody{Error: "request_too_large", Message: "request body is too large"}
	case errors.Is(err, launch.ErrSessionNotFound):
		return http.StatusNotFound, errorBody{Error: "session_not_found", Message: err.Error()}
	case errors.Is(err, launch.ErrMintNotFound):
		return http.StatusNotFound, errorBody{Error: "mint_not_found", Message: err.Error()}
	case errors.Is(err, launch.ErrSessionMismatch):
		return http.StatusConflict, errorBody{Error: "session_mismatch", Message: err.Error()}
	case errors.As(err, &le):
		return http.StatusBadGateway, errorBody{Error: "ledger_error", Message: le.Error(), Step: string(le.Step)}
	case errors.Is(err, launch.ErrNotConfigured):
		return http.StatusServiceUnavailable, errorBody{Error: "not_configured", Message: "launch service is not configured"}
	default:
		return http.StatusInternalServerError, errorBody{Error: "internal", Message: "internal server error"}
	}
}
