package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	app_errors "github.com/DeepDarkBoy48/smashenglish-assistant/internal/errors"
)

// Shared DTOs for API requests and responses, plus the helpers that keep
// response formatting consistent across handlers.

// ErrorResponse is the standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ThreadRef points the client at the thread a dispatched action correlated
// to. Results land in this thread even if the panel has moved on.
type ThreadRef struct {
	ThreadID string `json:"thread_id"`
}

// StatusResponse is the generic acknowledgement for state-changing calls
// that return no resource.
type StatusResponse struct {
	Status string `json:"status"`
}

// SendMessageRequest is the body of POST /assistant/message.
type SendMessageRequest struct {
	Content string `json:"content" validate:"required,min=1"`
}

// AnalyzeRequest is the body of POST /assistant/analyze.
type AnalyzeRequest struct {
	Sentence string `json:"sentence" validate:"required,min=1"`
}

// LookupRequest is the body of POST /assistant/lookup. Context is passed
// through verbatim: it is part of the cache fingerprint, so the server never
// trims or normalizes it.
type LookupRequest struct {
	Word      string `json:"word" validate:"required,min=1"`
	Context   string `json:"context"`
	SourceURL string `json:"source_url" validate:"omitempty,url"`
}

// SelectThreadRequest is the body of PUT /session/thread. An empty id clears
// the selection.
type SelectThreadRequest struct {
	ThreadID string `json:"thread_id"`
}

// SetSurfaceRequest is the body of PUT /session/surface.
type SetSurfaceRequest struct {
	Surface  string `json:"surface" validate:"required,oneof=grammar dictionary writing video"`
	Artifact string `json:"artifact"`
}

// respondWithError maps domain errors onto HTTP status codes and writes the
// standard error envelope. The detailed error is logged; the client gets a
// stable message.
func respondWithError(w http.ResponseWriter, err error) {
	var statusCode int
	var message string

	switch {
	case errors.Is(err, app_errors.ErrNotFound):
		statusCode = http.StatusNotFound
		message = "The requested resource was not found."
	case errors.Is(err, app_errors.ErrValidation):
		statusCode = http.StatusBadRequest
		message = err.Error()
	default:
		statusCode = http.StatusInternalServerError
		message = "An unexpected internal server error occurred."
	}

	zap.L().Warn("request failed",
		zap.Int("status_code", statusCode),
		zap.Error(err))

	respondWithJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondWithJSON marshals payload and writes it with the given status.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		zap.L().Error("failed to marshal response", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		zap.L().Error("failed to write response", zap.Error(err))
	}
}
