package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pimwelt1/UAVLogViewer/internal/agent"
	"github.com/pimwelt1/UAVLogViewer/internal/session"
)

// invalidSessionMessage is the transport-level text for a missing or
// expired session id.
const invalidSessionMessage = "Invalid or expired session ID"

// ChatRequest is one user message addressed to a session.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

// ChatResponse carries the final response for a turn.
type ChatResponse struct {
	Response string `json:"response"`
}

// stepEventPayload is the wire form of an intermediate step event.
type stepEventPayload struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
	Result string `json:"result"`
}

func stepPayload(ev agent.StepEvent) stepEventPayload {
	p := stepEventPayload{Result: ev.Result}
	if ev.Step == nil {
		p.Kind = "none"
		return p
	}
	p.Kind = ev.Step.Kind.String()
	switch ev.Step.Kind {
	case agent.StepQuery:
		p.Detail = ev.Step.Question
	case agent.StepAnalysis:
		p.Detail = ev.Step.TableName
	}
	return p
}

// HandleChat handles POST /api/chat. With "Accept: text/event-stream"
// the turn's intermediate step events are streamed over SSE, terminated
// by a final response event; otherwise a single JSON response is
// returned.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodySize)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		Error(w, http.StatusBadRequest, "message cannot be empty")
		return
	}

	sess, err := h.registry.Get(req.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrInvalidSession) {
			Error(w, http.StatusNotFound, invalidSessionMessage)
			return
		}
		Error(w, http.StatusInternalServerError, "session lookup failed")
		return
	}

	if !h.limiter.Allow(req.SessionID) {
		Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		h.streamChat(w, r, sess, req.Message)
		return
	}

	response := sess.Turn(r.Context(), req.Message, nil)
	JSON(w, http.StatusOK, ChatResponse{Response: response})
}

// streamChat runs the turn while streaming step events over SSE.
func (h *Handler) streamChat(w http.ResponseWriter, r *http.Request, sess *session.Session, message string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		Error(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// The planner is synchronous, so observer writes happen in order on
	// this goroutine.
	observe := func(ev agent.StepEvent) {
		writeSSEEvent(w, flusher, "step", stepPayload(ev))
	}

	response := sess.Turn(r.Context(), message, observe)
	writeSSEEvent(w, flusher, "response", ChatResponse{Response: response})
}

func writeSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to encode SSE payload", "event", event, "error", err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	flusher.Flush()
}
