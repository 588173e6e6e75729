// Package ws implements the chat transport over WebSocket.
package ws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/JohnnyCleto/atlaschat/internal/chat"
)

// Dialer opens per-room connections against a chat server. The WebSocket
// scheme follows the server base URL: https becomes wss, http becomes ws.
type Dialer struct {
	base *url.URL
	log  *zerolog.Logger
}

// NewDialer parses baseURL (an http or https URL) into a room dialer.
func NewDialer(baseURL string, logger *zerolog.Logger) (*Dialer, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	switch base.Scheme {
	case "http":
		base.Scheme = "ws"
	case "https":
		base.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported server url scheme %q", base.Scheme)
	}
	return &Dialer{base: base, log: logger}, nil
}

// RoomURL returns the endpoint for a room, with the room identifier
// URL-encoded into the path.
func (d *Dialer) RoomURL(room string) string {
	return strings.TrimRight(d.base.String(), "/") + "/ws/" + url.PathEscape(room)
}

// Dial opens a transport for room.
func (d *Dialer) Dial(ctx context.Context, room string) (chat.Transport, error) {
	endpoint := d.RoomURL(room)

	conn, _, err := websocket.Dial(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}

	d.log.Debug().Str("endpoint", endpoint).Msg("transport open")
	return &Conn{conn: conn}, nil
}

// Conn adapts a WebSocket connection to chat.Transport.
type Conn struct {
	conn *websocket.Conn
}

// ReadFrame returns the next text frame. Orderly closes are reported as
// chat.ErrTransportClosed so the session can distinguish them from
// failures.
func (c *Conn) ReadFrame(ctx context.Context) ([]byte, error) {
	_, data, err := c.conn.Read(ctx)
	if err != nil {
		switch websocket.CloseStatus(err) {
		case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			return nil, chat.ErrTransportClosed
		}
		if errors.Is(err, context.Canceled) {
			return nil, chat.ErrTransportClosed
		}
		return nil, err
	}
	return data, nil
}

// WriteJSON sends v as a single JSON text frame.
func (c *Conn) WriteJSON(ctx context.Context, v any) error {
	return wsjson.Write(ctx, c.conn, v)
}

// Close performs an orderly close. Safe to call more than once.
func (c *Conn) Close() error {
	err := c.conn.Close(websocket.StatusNormalClosure, "leaving room")
	if err != nil && errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
