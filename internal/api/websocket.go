package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/pimwelt1/UAVLogViewer/internal/agent"
	"github.com/pimwelt1/UAVLogViewer/internal/session"
)

// wsTurnTimeout bounds one turn over the socket; a turn runs to
// completion or to its bounded failure outcome, never forever.
const wsTurnTimeout = 5 * time.Minute

// wsInbound is a client chat message.
type wsInbound struct {
	Message string `json:"message"`
}

// wsOutbound is a server event: an intermediate step, the final
// response, or an error.
type wsOutbound struct {
	Type     string `json:"type"`
	Kind     string `json:"kind,omitempty"`
	Detail   string `json:"detail,omitempty"`
	Result   string `json:"result,omitempty"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

// HandleChatSocket handles GET /ws/chat?session=<id>: each received
// message runs one turn, streaming step events and a final response
// event back over the socket.
func (h *Handler) HandleChatSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err)
		return
	}
	defer ws.Close(websocket.StatusNormalClosure, "session ended")

	sess, err := h.registry.Get(sessionID)
	if err != nil {
		if errors.Is(err, session.ErrInvalidSession) {
			_ = wsjson.Write(r.Context(), ws, wsOutbound{Type: "error", Error: invalidSessionMessage})
		}
		ws.Close(websocket.StatusPolicyViolation, "invalid session")
		return
	}

	slog.Info("Chat WebSocket connected", "session_id", sessionID)

	for {
		var in wsInbound
		if err := wsjson.Read(r.Context(), ws, &in); err != nil {
			if websocket.CloseStatus(err) == -1 && r.Context().Err() == nil {
				slog.Debug("WebSocket read error", "session_id", sessionID, "error", err)
			}
			return
		}
		if strings.TrimSpace(in.Message) == "" {
			_ = wsjson.Write(r.Context(), ws, wsOutbound{Type: "error", Error: "message cannot be empty"})
			continue
		}
		if !h.limiter.Allow(sessionID) {
			_ = wsjson.Write(r.Context(), ws, wsOutbound{Type: "error", Error: "rate limit exceeded"})
			continue
		}

		h.runSocketTurn(r.Context(), ws, sess, in.Message)
	}
}

func (h *Handler) runSocketTurn(ctx context.Context, ws *websocket.Conn, sess *session.Session, message string) {
	turnCtx, cancel := context.WithTimeout(ctx, wsTurnTimeout)
	defer cancel()

	observe := func(ev agent.StepEvent) {
		p := stepPayload(ev)
		out := wsOutbound{Type: "step", Kind: p.Kind, Detail: p.Detail, Result: p.Result}
		if err := wsjson.Write(turnCtx, ws, out); err != nil {
			slog.Debug("WebSocket step write failed", "session_id", sess.ID, "error", err)
		}
	}

	response := sess.Turn(turnCtx, message, observe)
	if err := wsjson.Write(turnCtx, ws, wsOutbound{Type: "response", Response: response}); err != nil {
		slog.Debug("WebSocket response write failed", "session_id", sess.ID, "error", err)
	}
}
