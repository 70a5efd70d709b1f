package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// InitializeRequest carries raw parsed telemetry for a new session.
type InitializeRequest struct {
	ParsedMessages map[string]any `json:"parsedMessages"`
}

// InitializeResponse returns the new session id.
type InitializeResponse struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// HandleInitialize handles POST /api/initialize: it builds a session
// from the parsed telemetry and registers it.
func (h *Handler) HandleInitialize(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxInitializeBodySize)

	var req InitializeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.ParsedMessages) == 0 {
		Error(w, http.StatusBadRequest, "No messages provided for initialization")
		return
	}

	sessionID, err := h.registry.Create(r.Context(), req.ParsedMessages)
	if err != nil {
		slog.Error("Failed to create session", "error", err)
		Error(w, http.StatusInternalServerError, "failed to initialize session")
		return
	}

	JSON(w, http.StatusOK, InitializeResponse{
		Message:   "Agent initialized successfully",
		SessionID: sessionID,
	})
}
