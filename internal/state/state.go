// Package state persists the client's selections across runs: the active
// room and the active profile, each under a fixed key.
package state

import (
	"context"

	"github.com/JohnnyCleto/atlaschat/internal/chat"
)

// Fixed keys for persisted selections, matching what the web client kept
// in browser storage.
const (
	KeyRoom    = "room"
	KeyProfile = "user"
)

// Store is the persistence contract for client state. Absent values are
// returned as zero values, not errors.
type Store interface {
	// ActiveRoom returns the last selected room, or "" when unset.
	ActiveRoom(ctx context.Context) (string, error)
	// SetActiveRoom records room as the active selection.
	SetActiveRoom(ctx context.Context, room string) error
	// Profile returns the active profile, zero when unset.
	Profile(ctx context.Context) (chat.Profile, error)
	// SetProfile records the active profile.
	SetProfile(ctx context.Context, profile chat.Profile) error
	// Close releases the underlying storage.
	Close() error
}
