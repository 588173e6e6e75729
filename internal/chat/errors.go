package chat

import "errors"

// Error codes attached to log diagnostics.
const (
	ErrCodeNoProfile      = "no_profile"
	ErrCodeMalformedFrame = "malformed_frame"
	ErrCodeTransport      = "transport_error"
)

var (
	// ErrNoProfile is returned by Join when no profile has been selected.
	// The caller should point the user at profile selection instead of
	// retrying.
	ErrNoProfile = errors.New("no profile selected")
)
