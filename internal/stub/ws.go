package stub

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
)

// frameEnvelope is an outbound frame over the room socket.
type frameEnvelope struct {
	Type  string   `json:"type"`
	Items []record `json:"items,omitempty"`
	Item  *record  `json:"item,omitempty"`
}

// inboundPayload covers both inbound shapes: heartbeats carry a type,
// chat sends are distinguished by having content.
type inboundPayload struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	Content  string `json:"content"`
	Avatar   string `json:"avatar"`
}

type subscriber struct {
	frames chan frameEnvelope
}

// broadcastLocked fans a frame out to every room subscriber. Slow
// consumers are dropped rather than blocking the sender. Callers must
// hold s.mu.
func (r *room) broadcastLocked(frame frameEnvelope) {
	for sub := range r.subs {
		select {
		case sub.frames <- frame:
		default:
			// Drop if slow consumer.
		}
	}
}

func (s *Server) serveRoomSocket(c *gin.Context) {
	roomName := c.Param("room")

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	sub := &subscriber{frames: make(chan frameEnvelope, 16)}

	s.mu.Lock()
	r := s.ensureRoomLocked(roomName)
	start := len(r.messages) - historyLimit
	if start < 0 {
		start = 0
	}
	history := make([]record, len(r.messages)-start)
	copy(history, r.messages[start:])
	r.subs[sub] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(r.subs, sub)
		s.mu.Unlock()
	}()

	// History goes through the same channel as broadcasts so a single
	// goroutine performs all writes.
	sub.frames <- frameEnvelope{Type: "history", Items: history}

	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case frame := <-sub.frames:
				if err := wsjson.Write(ctx, conn, frame); err != nil {
					return
				}
			}
		}
	}()

	s.readLoop(ctx, conn, roomName)

	conn.Close(websocket.StatusNormalClosure, "closing")
}

func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, roomName string) {
	for {
		var raw json.RawMessage
		if err := wsjson.Read(ctx, conn, &raw); err != nil {
			return
		}

		var payload inboundPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			// Invalid payloads are ignored, the connection stays up.
			s.log.Debug().Err(err).Str("room", roomName).Msg("ignoring invalid payload")
			continue
		}

		if payload.Type == "heartbeat" {
			if payload.Username == "" {
				continue
			}
			s.mu.Lock()
			s.ensureRoomLocked(roomName).presence[payload.Username] = time.Now()
			s.mu.Unlock()
			continue
		}

		content := strings.TrimSpace(payload.Content)
		if payload.Username == "" || content == "" {
			continue
		}

		s.mu.Lock()
		if !s.limiterLocked(roomName, payload.Username).Allow() {
			s.mu.Unlock()
			s.log.Debug().Str("room", roomName).Str("user", payload.Username).Msg("send dropped by rate limit")
			continue
		}
		s.appendLocked(roomName, payload.Username, content, payload.Avatar)
		s.mu.Unlock()
	}
}
