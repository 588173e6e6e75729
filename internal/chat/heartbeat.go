package chat

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/JohnnyCleto/atlaschat/internal/proto"
)

// DefaultHeartbeatInterval matches the period the server's presence
// window is tuned for.
const DefaultHeartbeatInterval = 30 * time.Second

// runHeartbeat emits the liveness signal on a fixed period until ctx is
// cancelled or a write fails. It shares the session context, so every
// teardown path stops the ticker before the transport handle is
// released; a new session never inherits a running timer.
func runHeartbeat(ctx context.Context, tr Transport, username string, interval time.Duration, logger *zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := tr.WriteJSON(ctx, proto.NewHeartbeat(username)); err != nil {
				logger.Debug().Err(err).Msg("heartbeat write failed")
				return
			}
		}
	}
}
