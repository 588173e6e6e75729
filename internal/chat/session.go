package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/JohnnyCleto/atlaschat/internal/proto"
)

// Session owns the realtime connection to one room: the transport handle,
// the heartbeat timer, and the per-room dedup scope. At most one transport
// and one heartbeat are live at any time; both are torn down together on
// every exit path (explicit close, transport error, room switch).
//
// There is no automatic reconnect. A failed transport leaves the session
// in StatusError until the user triggers a fresh Join.
type Session struct {
	dialer   Dialer
	view     View
	log      *zerolog.Logger
	interval time.Duration

	// opMu serializes user-initiated operations (Join, Close) so that a
	// teardown always completes before the next dial begins.
	opMu sync.Mutex

	mu        sync.Mutex
	status    Status
	room      string
	profile   Profile
	rendered  *Rendered
	transport Transport
	cancel    context.CancelFunc
	done      chan struct{}
	// gen identifies the current transport generation. Frames carrying a
	// stale generation arrived from a torn-down transport and are dropped.
	gen uint64
}

// Options configure optional session behavior.
type Options struct {
	// HeartbeatInterval overrides DefaultHeartbeatInterval when positive.
	HeartbeatInterval time.Duration
}

// NewSession builds a session in the disconnected state.
func NewSession(dialer Dialer, view View, logger *zerolog.Logger, opts Options) *Session {
	interval := opts.HeartbeatInterval
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	return &Session{
		dialer:   dialer,
		view:     view,
		log:      logger,
		interval: interval,
		rendered: NewRendered(),
	}
}

// Status returns the current connection state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Room returns the room of the most recent Join.
func (s *Session) Room() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

// Join connects to room as profile. Any live session is torn down first,
// so exactly one session is ever live. Returns ErrNoProfile when no
// profile has been selected; the caller should send the user to profile
// selection rather than retry.
func (s *Session) Join(ctx context.Context, room string, profile Profile) error {
	if strings.TrimSpace(profile.Name) == "" {
		return ErrNoProfile
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.teardown(StatusDisconnected)

	s.mu.Lock()
	s.room = room
	s.profile = profile
	s.rendered.Reset()
	s.setStatusLocked(StatusConnecting)
	s.mu.Unlock()
	s.view.Clear()

	tr, err := s.dialer.Dial(ctx, room)
	if err != nil {
		s.mu.Lock()
		s.setStatusLocked(StatusError)
		s.mu.Unlock()
		return fmt.Errorf("dial room %q: %w", room, err)
	}

	sessCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.transport = tr
	s.cancel = cancel
	s.done = done
	s.setStatusLocked(StatusConnected)
	s.mu.Unlock()

	s.log.Info().Str("room", room).Str("user", profile.Name).Msg("joined room")

	go s.readLoop(sessCtx, tr, gen, done)
	go runHeartbeat(sessCtx, tr, profile.Name, s.interval, s.log)
	return nil
}

// Send delivers text to the current room. Blank text, or a session that
// is not connected, drops the send silently: nothing is queued and
// nothing is retried.
func (s *Session) Send(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	s.mu.Lock()
	if s.status != StatusConnected || s.transport == nil {
		s.mu.Unlock()
		s.log.Debug().Msg("send dropped: not connected")
		return
	}
	tr := s.transport
	profile := s.profile
	s.mu.Unlock()

	payload := proto.ChatSend{Username: profile.Name, Content: text, Avatar: profile.Avatar}
	if err := tr.WriteJSON(ctx, payload); err != nil {
		// Fire and forget; the read loop notices a dead transport.
		s.log.Warn().Err(err).Msg("send failed")
	}
}

// Close tears down the live transport and heartbeat, if any. It blocks
// until the read loop has exited, so no frame from the old transport can
// be applied afterwards.
func (s *Session) Close() {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.teardown(StatusDisconnected)
}

// teardown releases the transport and heartbeat handles together and
// moves the session to next. Callers must hold opMu.
func (s *Session) teardown(next Status) {
	s.mu.Lock()
	tr := s.transport
	cancel := s.cancel
	done := s.done
	s.transport = nil
	s.cancel = nil
	s.done = nil
	s.gen++
	if tr != nil || s.status != next {
		s.setStatusLocked(next)
	}
	s.mu.Unlock()

	if cancel != nil {
		cancel() // stops the heartbeat before the transport goes away
	}
	if tr != nil {
		_ = tr.Close()
	}
	if done != nil {
		<-done
	}
}

func (s *Session) readLoop(ctx context.Context, tr Transport, gen uint64, done chan struct{}) {
	defer close(done)
	for {
		data, err := tr.ReadFrame(ctx)
		if err != nil {
			s.handleTransportClosed(gen, err)
			return
		}
		s.handleFrame(gen, data)
	}
}

// handleFrame applies one inbound frame. Frames are fully processed in
// delivery order under s.mu, so a history replay never interleaves with a
// concurrently arriving message. Malformed frames are logged and
// discarded; they never tear down the session.
func (s *Session) handleFrame(gen uint64, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return // frame from a torn-down transport
	}

	var frame proto.Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		s.log.Warn().Err(err).Str("code", ErrCodeMalformedFrame).Msg("discarding unparseable frame")
		return
	}

	switch frame.Type {
	case proto.FrameHistory:
		// Server order is authoritative; replay without resorting.
		s.rendered.Reset()
		s.view.Clear()
		for _, item := range frame.Items {
			s.renderLocked(item)
		}
	case proto.FrameMessage:
		if len(frame.Item) == 0 {
			s.log.Warn().Str("code", ErrCodeMalformedFrame).Msg("message frame without item")
			return
		}
		s.renderLocked(frame.Item)
	default:
		s.log.Warn().Str("code", ErrCodeMalformedFrame).Str("type", frame.Type).Msg("discarding frame of unknown kind")
	}
}

func (s *Session) renderLocked(item json.RawMessage) {
	var raw proto.RawRecord
	if err := json.Unmarshal(item, &raw); err != nil {
		s.log.Warn().Err(err).Str("code", ErrCodeMalformedFrame).Msg("discarding unparseable record")
		return
	}
	msg := Normalize(raw)
	if !s.rendered.ShouldRender(msg) {
		s.log.Debug().Str("id", msg.ID).Msg("duplicate message dropped")
		return
	}
	s.view.Append(msg)
}

// handleTransportClosed converts a terminated read loop into a status
// transition. Transport failures never propagate as errors past here.
func (s *Session) handleTransportClosed(gen uint64, err error) {
	s.mu.Lock()
	if gen != s.gen {
		// A teardown already released this transport.
		s.mu.Unlock()
		return
	}
	tr := s.transport
	cancel := s.cancel
	s.transport = nil
	s.cancel = nil
	s.done = nil
	s.gen++

	next := StatusError
	if isOrderlyClose(err) {
		next = StatusDisconnected
	}
	room := s.room
	s.setStatusLocked(next)
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if tr != nil {
		_ = tr.Close()
	}

	if next == StatusError {
		s.log.Warn().Err(err).Str("code", ErrCodeTransport).Str("room", room).Msg("transport closed with error")
	} else {
		s.log.Info().Str("room", room).Msg("transport closed")
	}
}

func isOrderlyClose(err error) bool {
	switch {
	case errors.Is(err, ErrTransportClosed):
		return true
	case errors.Is(err, io.EOF):
		return true
	case errors.Is(err, context.Canceled):
		return true
	}
	return false
}

func (s *Session) setStatusLocked(status Status) {
	s.status = status
	if s.view != nil {
		s.view.SetStatus(status)
	}
}
