package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	app_errors "github.com/DeepDarkBoy48/smashenglish-assistant/internal/errors"
	"github.com/DeepDarkBoy48/smashenglish-assistant/internal/interfaces"
	"github.com/DeepDarkBoy48/smashenglish-assistant/internal/surface"
)

// AssistantHandler exposes the session core to the panel frontend.
type AssistantHandler struct {
	service interfaces.AssistantService
}

func NewAssistantHandler(svc interfaces.AssistantService) *AssistantHandler {
	return &AssistantHandler{service: svc}
}

// GetThreads returns every thread, newest first, for the history view.
func (h *AssistantHandler) GetThreads(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.service.Threads())
}

// GetThread returns one thread with its full message history.
func (h *AssistantHandler) GetThread(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")
	th, err := h.service.Thread(threadID)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, th)
}

// GetSession returns the active surface and thread binding.
func (h *AssistantHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.service.Session())
}

// SelectThread binds the panel to a thread; an empty thread_id clears the
// binding (explicit "new chat").
func (h *AssistantHandler) SelectThread(w http.ResponseWriter, r *http.Request) {
	var req SelectThreadRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, err)
		return
	}
	if err := h.service.SelectThread(req.ThreadID); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// SetSurface records which learning surface the user navigated to, and
// optionally the artifact it is showing.
func (h *AssistantHandler) SetSurface(w http.ResponseWriter, r *http.Request) {
	var req SetSurfaceRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		respondWithError(w, err)
		return
	}

	surf := surface.Surface(req.Surface)
	h.service.SetSurface(surf)
	if req.Artifact != "" {
		h.service.SetArtifact(surf, req.Artifact)
	}
	respondWithJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// PostMessage dispatches a free-form learner question.
func (h *AssistantHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		respondWithError(w, err)
		return
	}

	threadID := h.service.SendMessage(r.Context(), req.Content)
	respondWithJSON(w, http.StatusOK, ThreadRef{ThreadID: threadID})
}

// PostAnalyze dispatches a full-sentence analysis.
func (h *AssistantHandler) PostAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		respondWithError(w, err)
		return
	}

	threadID := h.service.AnalyzeSentence(r.Context(), req.Sentence)
	respondWithJSON(w, http.StatusOK, ThreadRef{ThreadID: threadID})
}

// PostLookup dispatches a word quick lookup.
func (h *AssistantHandler) PostLookup(w http.ResponseWriter, r *http.Request) {
	var req LookupRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		respondWithError(w, err)
		return
	}

	threadID := h.service.QuickLookup(r.Context(), req.Word, req.Context, req.SourceURL)
	respondWithJSON(w, http.StatusOK, ThreadRef{ThreadID: threadID})
}

// StreamEvents is the change feed: one SSE "change" event per store or cache
// mutation, so the panel re-reads whatever it renders. The connection stays
// open until the client goes away.
func (h *AssistantHandler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "streaming unsupported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	changes, cancel := h.service.Subscribe()
	defer cancel()

	// Open the stream immediately so the client knows it is connected.
	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-changes:
			if _, err := fmt.Fprint(w, "event: change\ndata: {}\n\n"); err != nil {
				zap.L().Debug("event stream closed by client", zap.Error(err))
				return
			}
			flusher.Flush()
		}
	}
}

// decodeBody parses a JSON request body, surfacing malformed input as a
// validation error.
func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body", app_errors.ErrValidation)
	}
	return nil
}
