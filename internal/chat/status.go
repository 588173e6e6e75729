package chat

// Status describes the connection state of a session.
type Status int

const (
	// StatusDisconnected means no transport is live.
	StatusDisconnected Status = iota
	// StatusConnecting means a dial is in progress.
	StatusConnecting
	// StatusConnected means the transport is open and frames flow.
	StatusConnected
	// StatusError means the transport failed; a fresh Join is required.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}
