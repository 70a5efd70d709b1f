// Package api provides HTTP handlers for the chat backend API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pimwelt1/UAVLogViewer/internal/config"
	"github.com/pimwelt1/UAVLogViewer/internal/session"
)

// maxRequestBodySize caps request bodies; parsed telemetry payloads can
// be large, chat messages cannot.
const (
	maxInitializeBodySize = 64 << 20 // 64MB
	maxChatBodySize       = 1 << 20  // 1MB
)

// Handler serves the session lifecycle and chat endpoints.
type Handler struct {
	registry *session.Registry
	limiter  *RateLimiter
}

// NewHandler creates a new Handler.
func NewHandler(registry *session.Registry, cfg config.RateLimitConfig) *Handler {
	return &Handler{
		registry: registry,
		limiter:  NewRateLimiter(cfg.RequestsPerWindow, cfg.WindowDuration),
	}
}

// RegisterRoutes mounts the API routes on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/initialize", h.HandleInitialize)
	r.Post("/api/chat", h.HandleChat)
	r.Get("/ws/chat", h.HandleChatSocket)
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
