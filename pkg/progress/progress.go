// Package progress provides progress reporting for clone and verify runs.
//
// Enumeration is streamed, so the number of entries is usually not known in
// advance; a total of zero means "unknown" throughout this package.
package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
)

// Callback receives progress updates during long operations.
type Callback func(op string, current, total int, message string)

// Noop is a no-op callback for default behavior.
func Noop(op string, current, total int, message string) {}

// Progress tracks one phase of an operation. It is safe for concurrent use.
type Progress struct {
	Op      string
	Total   int
	current atomic.Int64
	cb      Callback
}

// New creates a new Progress tracker. total may be zero.
func New(op string, total int, cb Callback) *Progress {
	if cb == nil {
		cb = Noop
	}
	return &Progress{Op: op, Total: total, cb: cb}
}

// Increment advances the progress and calls the callback.
func (p *Progress) Increment(message string) {
	n := p.current.Add(1)
	p.cb(p.Op, int(n), p.Total, message)
}

// Done reports the final count.
func (p *Progress) Done(message string) {
	n := int(p.current.Load())
	if p.Total > 0 {
		n = p.Total
		p.current.Store(int64(n))
	}
	p.cb(p.Op, n, p.Total, message)
}

// Current returns the current progress value.
func (p *Progress) Current() int {
	return int(p.current.Load())
}

// Terminal renders progress on a single rewritten line. Updates for several
// ops share the line; the most recent one wins.
type Terminal struct {
	mu       sync.Mutex
	writer   io.Writer
	enabled  atomic.Bool
	lastLen  int
	rendered bool
}

// NewTerminal creates a terminal renderer writing to w.
func NewTerminal(w io.Writer, enabled bool) *Terminal {
	t := &Terminal{writer: w}
	t.enabled.Store(enabled)
	return t
}

// Callback returns a Callback function for this terminal.
func (t *Terminal) Callback() Callback {
	return func(op string, current, total int, message string) {
		if !t.enabled.Load() {
			return
		}
		t.render(op, current, total, message)
	}
}

func (t *Terminal) render(op string, current, total int, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var line string
	if total > 0 {
		if current > total {
			current = total
		}
		const barWidth = 30
		filled := barWidth * current / total
		bar := strings.Repeat("=", filled) + strings.Repeat(" ", barWidth-filled)
		line = fmt.Sprintf("%s [%s] %d/%d (%.0f%%)", op, bar, current, total, float64(current)/float64(total)*100)
	} else {
		line = fmt.Sprintf("%s... %d", op, current)
	}
	if message != "" {
		line += " " + message
	}

	clear := "\r"
	if t.lastLen > len(line) {
		clear = "\r" + strings.Repeat(" ", t.lastLen) + "\r"
	}
	fmt.Fprint(t.writer, clear+line)
	t.lastLen = len(line)
	t.rendered = true
}

// Done clears the progress line and prints a final message, if any.
func (t *Terminal) Done(message string) {
	if !t.enabled.Load() {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.rendered {
		fmt.Fprint(t.writer, "\r"+strings.Repeat(" ", t.lastLen)+"\r")
	}
	if message != "" {
		fmt.Fprintln(t.writer, message)
	}
	t.lastLen = 0
	t.rendered = false
}

// SetEnabled enables or disables rendering.
func (t *Terminal) SetEnabled(enabled bool) {
	t.enabled.Store(enabled)
}

// IsEnabled returns whether rendering is enabled.
func (t *Terminal) IsEnabled() bool {
	return t.enabled.Load()
}

// Fanout returns a callback that forwards every update to each non-nil cb.
func Fanout(cbs ...Callback) Callback {
	var live []Callback
	for _, cb := range cbs {
		if cb != nil {
			live = append(live, cb)
		}
	}
	return func(op string, current, total int, message string) {
		for _, cb := range live {
			cb(op, current, total, message)
		}
	}
}
