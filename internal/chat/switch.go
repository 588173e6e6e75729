package chat

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// StateStore persists the user's selections across runs.
type StateStore interface {
	// Profile returns the active profile, or a zero Profile when none
	// has been selected yet.
	Profile(ctx context.Context) (Profile, error)
	// SetActiveRoom records room as the active selection.
	SetActiveRoom(ctx context.Context, room string) error
}

// Switcher sequences leaving the current room and joining the next one.
// It is the only component besides the session itself permitted to
// request a teardown.
type Switcher struct {
	session *Session
	state   StateStore
	log     *zerolog.Logger
}

// NewSwitcher builds a room switch controller around session.
func NewSwitcher(session *Session, state StateStore, logger *zerolog.Logger) *Switcher {
	return &Switcher{session: session, state: state, log: logger}
}

// SwitchTo persists room as the active selection, then tears down the
// current session and joins the new room as one sequenced operation. The
// old transport is fully closed and its view state cleared before the new
// dial begins, so no stale frame can be applied to the new room's view.
func (sw *Switcher) SwitchTo(ctx context.Context, room string) error {
	profile, err := sw.state.Profile(ctx)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	if profile.Name == "" {
		return ErrNoProfile
	}

	if err := sw.state.SetActiveRoom(ctx, room); err != nil {
		// Selection persistence is best effort; the join still proceeds.
		sw.log.Warn().Err(err).Str("room", room).Msg("failed to persist active room")
	}

	return sw.session.Join(ctx, room, profile)
}
