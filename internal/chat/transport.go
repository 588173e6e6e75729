package chat

import (
	"context"
	"errors"
)

// ErrTransportClosed is returned by Transport.ReadFrame after an orderly
// close. Any other read error marks the session as failed.
var ErrTransportClosed = errors.New("transport closed")

// Transport is one live bidirectional connection to a room endpoint. A
// session owns at most one Transport at a time.
type Transport interface {
	// ReadFrame blocks until the next raw frame arrives or the
	// connection terminates.
	ReadFrame(ctx context.Context) ([]byte, error)
	// WriteJSON sends v as a single JSON frame.
	WriteJSON(ctx context.Context, v any) error
	// Close closes the connection. Safe to call more than once.
	Close() error
}

// Dialer opens a Transport for a room.
type Dialer interface {
	Dial(ctx context.Context, room string) (Transport, error)
}

// View receives rendering side effects from a session. Calls happen on
// the session's frame-handling path and must not call back into the
// session.
type View interface {
	// Append renders one message at the bottom of the view.
	Append(msg Message)
	// Clear empties the view before a room switch or history replay.
	Clear()
	// SetStatus reflects the current session state in the UI.
	SetStatus(status Status)
}
