package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met: %s", msg)
}

// fakeTransport is an in-memory Transport fed by the test.
type fakeTransport struct {
	frames chan []byte
	errs   chan error

	mu     sync.Mutex
	writes []any
	closed bool

	closeOnce sync.Once
	done      chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		frames: make(chan []byte, 16),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}
}

func (f *fakeTransport) push(data []byte) {
	f.frames <- data
}

func (f *fakeTransport) fail(err error) {
	f.errs <- err
}

func (f *fakeTransport) ReadFrame(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ErrTransportClosed
	case <-f.done:
		return nil, ErrTransportClosed
	case err := <-f.errs:
		return nil, err
	case data := <-f.frames:
		return data, nil
	}
}

func (f *fakeTransport) WriteJSON(_ context.Context, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("write on closed transport")
	}
	f.writes = append(f.writes, v)
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.closeOnce.Do(func() { close(f.done) })
	return nil
}

func (f *fakeTransport) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func (f *fakeTransport) snapshotWrites() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]any, len(f.writes))
	copy(out, f.writes)
	return out
}

// fakeDialer hands out queued transports, one per Dial.
type fakeDialer struct {
	mu         sync.Mutex
	transports []*fakeTransport
	rooms      []string
	err        error
}

func (d *fakeDialer) queue(tr *fakeTransport) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.transports = append(d.transports, tr)
}

func (d *fakeDialer) Dial(_ context.Context, room string) (Transport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	if len(d.transports) == 0 {
		return nil, fmt.Errorf("no transport queued for room %q", room)
	}
	tr := d.transports[0]
	d.transports = d.transports[1:]
	d.rooms = append(d.rooms, room)
	return tr, nil
}

func (d *fakeDialer) dialedRooms() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.rooms))
	copy(out, d.rooms)
	return out
}

// fakeView records rendering side effects.
type fakeView struct {
	mu       sync.Mutex
	appends  []Message
	clears   int
	statuses []Status
}

func (v *fakeView) Append(msg Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.appends = append(v.appends, msg)
}

func (v *fakeView) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.clears++
}

func (v *fakeView) SetStatus(status Status) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.statuses = append(v.statuses, status)
}

func (v *fakeView) rendered() []Message {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Message, len(v.appends))
	copy(out, v.appends)
	return out
}

func (v *fakeView) renderedCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.appends)
}

func (v *fakeView) statusHistory() []Status {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Status, len(v.statuses))
	copy(out, v.statuses)
	return out
}
