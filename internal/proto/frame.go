package proto

import "encoding/json"

// Frame type strings delivered by the server over a room socket.
const (
	FrameHistory = "history"
	FrameMessage = "message"
)

// TypeHeartbeat marks the outbound liveness signal.
const TypeHeartbeat = "heartbeat"

// Frame is the envelope for payloads arriving over the transport.
// Exactly one of Items (history) or Item (message) is populated,
// depending on Type.
type Frame struct {
	Type  string            `json:"type"`
	Items []json.RawMessage `json:"items,omitempty"`
	Item  json.RawMessage   `json:"item,omitempty"`
}

// Heartbeat is the periodic liveness signal sent while a session is open.
type Heartbeat struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

// NewHeartbeat builds a liveness signal for the given sender.
func NewHeartbeat(username string) Heartbeat {
	return Heartbeat{Type: TypeHeartbeat, Username: username}
}

// ChatSend is an outbound chat message. It carries no identity and no
// timestamp: the server assigns both canonically. It also carries no type
// field; the server distinguishes it from a heartbeat by shape.
type ChatSend struct {
	Username string `json:"username"`
	Content  string `json:"content"`
	Avatar   string `json:"avatar,omitempty"`
}

// RawRecord is a message record as the server encodes it. The created_at
// field is heterogeneous: a plain ISO string, a {"$date": ...} container
// from older exports, or absent on legacy records. ID is absent on legacy
// records as well.
type RawRecord struct {
	ID        string          `json:"id,omitempty"`
	Room      string          `json:"room,omitempty"`
	Username  string          `json:"username"`
	Content   string          `json:"content"`
	Avatar    string          `json:"avatar,omitempty"`
	CreatedAt json.RawMessage `json:"created_at,omitempty"`
}
