// Package server exposes the daemon's HTTP surface: event intake for the
// hosting platform and the service admin API consumed by the CLI.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hookrelay/internal/bridge"
	"hookrelay/internal/events"
	"hookrelay/internal/store"
)

type Server struct {
	bridge   *bridge.Bridge
	services store.ServiceStore
	hub      *events.Hub
}

func New(b *bridge.Bridge, services store.ServiceStore, hub *events.Hub) *Server {
	return &Server{
		bridge:   b,
		services: services,
		hub:      hub,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/events", s.handleFireEvent)
		r.Get("/deliveries/stream", s.handleStreamDeliveries)

		r.Route("/services", func(r chi.Router) {
			r.Post("/", s.handleCreateService)
			r.Get("/", s.handleListServices)
			r.Get("/{id}", s.handleGetService)
			r.Put("/{id}", s.handleUpdateService)
			r.Delete("/{id}", s.handleDeleteService)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
