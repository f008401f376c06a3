// Package server exposes the REST and websocket surface over the registry and
// distribution hub.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/zhound420/sonicticker/internal/hub"
	"github.com/zhound420/sonicticker/internal/pipeline"
)

// Server serves asset listings, latest metrics, and the audio stream.
type Server struct {
	registry *pipeline.Registry
	hub      *hub.Hub
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// New builds a server over the injected registry and hub.
func New(registry *pipeline.Registry, h *hub.Hub, log zerolog.Logger) *Server {
	return &Server{
		registry: registry,
		hub:      h,
		log:      log,
		upgrader: websocket.Upgrader{
			// The frontend is served from a different origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/assets", s.handleAssets)
	mux.HandleFunc("GET /api/metrics/{symbol}", s.handleMetrics)
	mux.HandleFunc("GET /ws/audio", s.handleAudio)
	return withCORS(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "sonicticker backend alive",
	})
}

func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Assets())
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	m, ok := s.registry.LatestMetrics(symbol)
	if !ok {
		http.Error(w, "no metrics for symbol", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
