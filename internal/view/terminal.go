// Package view renders chat activity for the terminal.
package view

import (
	"fmt"
	"io"
	"sync"

	"github.com/JohnnyCleto/atlaschat/internal/chat"
)

// Terminal writes one line per message to out. It implements chat.View;
// styling stays out of the core, which only sees Append/Clear/SetStatus.
type Terminal struct {
	mu  sync.Mutex
	out io.Writer
}

// NewTerminal builds a view writing to out.
func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{out: out}
}

// Append renders one message.
func (t *Terminal) Append(msg chat.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	stamp := msg.CreatedAt
	if ts, err := msg.Time(); err == nil {
		stamp = ts.Local().Format("15:04:05")
	}
	fmt.Fprintf(t.out, "[%s] %s: %s\n", stamp, msg.Username, msg.Content)
}

// Clear marks a view reset. A scrolling terminal cannot unprint, so the
// reset is rendered as a rule.
func (t *Terminal) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, "----------------------------------------")
}

// SetStatus reflects the session state.
func (t *Terminal) SetStatus(status chat.Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, "* status: %s\n", status)
}
