package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/terra-clan/challenge-progress/internal/models"
)

const (
	eventsWriteWait  = 10 * time.Second
	eventsPongWait   = 60 * time.Second
	eventsPingPeriod = (eventsPongWait * 9) / 10
	eventsBuffer     = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// EventMessage is a frame sent on the completion event stream
type EventMessage struct {
	Type        string     `json:"type"`
	ChallengeID string     `json:"challengeId,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Data        string     `json:"data,omitempty"`
}

func completionMessage(ev models.CompletionEvent) EventMessage {
	at := ev.CompletedAt
	return EventMessage{
		Type:        "completion",
		ChallengeID: ev.ChallengeID,
		CompletedAt: &at,
	}
}

func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	events, unsubscribe := s.deps.Bus.Subscribe(eventsBuffer)
	defer unsubscribe()

	slog.Info("event stream connected", "remote_addr", r.RemoteAddr)

	if err := s.sendEventMessage(conn, EventMessage{Type: "connected", Data: "subscribed to completion events"}); err != nil {
		return
	}

	// the read loop only handles control frames and detects disconnects
	done := make(chan struct{})
	conn.SetReadDeadline(time.Now().Add(eventsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(eventsPongWait))
	})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					slog.Debug("websocket read error", "error", err)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(eventsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			slog.Info("event stream disconnected", "remote_addr", r.RemoteAddr)
			return
		case ev, ok := <-events:
			if !ok {
				// bus closed on shutdown
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(eventsWriteWait))
				return
			}
			if err := s.sendEventMessage(conn, completionMessage(ev)); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(eventsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				slog.Debug("failed to ping event stream", "error", err)
				return
			}
		}
	}
}

func (s *Server) sendEventMessage(conn *websocket.Conn, msg EventMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal event message", "error", err)
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(eventsWriteWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Debug("failed to send event message", "error", err)
		return err
	}
	return nil
}
