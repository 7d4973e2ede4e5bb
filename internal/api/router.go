package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/DeepDarkBoy48/smashenglish-assistant/internal/metrics"
)

// NewRouter wires all routes onto a chi router.
func NewRouter(assistantHandler *AssistantHandler, m *metrics.Metrics) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Liveness probe for container orchestration.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Handle("/metrics", m.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Standard JSON routes get a request timeout so a stuck backend
		// call cannot hold client connections forever.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.Get("/threads", assistantHandler.GetThreads)
			r.Get("/threads/{threadID}", assistantHandler.GetThread)

			r.Get("/session", assistantHandler.GetSession)
			r.Put("/session/thread", assistantHandler.SelectThread)
			r.Put("/session/surface", assistantHandler.SetSurface)

			r.Post("/assistant/message", assistantHandler.PostMessage)
			r.Post("/assistant/analyze", assistantHandler.PostAnalyze)
			r.Post("/assistant/lookup", assistantHandler.PostLookup)
		})

		// The change feed holds its connection open; no timeout here.
		r.Group(func(r chi.Router) {
			r.Get("/events", assistantHandler.StreamEvents)
		})
	})

	return r
}
