package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// ServerMessage is the envelope of every websocket message sent to the
// operator's browser.
type ServerMessage struct {
	Type string `json:"type"` // "session", "event", "ping"
	Data any    `json:"data,omitempty"`
}

const (
	eventBuffer  = 64
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

// StreamEvents upgrades to a websocket and streams the session's domain
// events (step status changes, approval decisions, record writes) until the
// client disconnects.
// GET /api/v1/sessions/{session}/events
func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "event stream is disabled")
		return
	}
	s := sessionFrom(r)

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("events: websocket accept")
		return
	}
	defer conn.CloseNow()

	events, cancel := h.hub.Subscribe(s.ID, eventBuffer)
	defer cancel()

	// The client never sends; CloseRead handles its close frame.
	ctx := conn.CloseRead(r.Context())

	if !h.send(ctx, conn, ServerMessage{Type: "session", Data: toSessionResponse(s)}) {
		return
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if st := websocket.CloseStatus(context.Cause(ctx)); st != -1 {
				h.log.Debug().Int("status", int(st)).Str("session", s.ID).Msg("events: connection closed")
			}
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			if !h.send(ctx, conn, ServerMessage{Type: "event", Data: evt}) {
				return
			}
		case <-ticker.C:
			if !h.send(ctx, conn, ServerMessage{Type: "ping", Data: map[string]int64{"ts": time.Now().Unix()}}) {
				return
			}
		}
	}
}

func (h *Handler) send(ctx context.Context, conn *websocket.Conn, msg ServerMessage) bool {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		h.log.Debug().Err(err).Msg("events: write error")
		return false
	}
	return true
}
