package logic

import (
	"sync"
	"time"
)

// Debouncer accepts at most one edge per channel per threshold window.
type Debouncer struct {
	mu        sync.Mutex
	threshold time.Duration
	last      [NumChannels]time.Time
}

// NewDebouncer creates a debouncer with the given minimum interval between
// accepted edges.
func NewDebouncer(threshold time.Duration) *Debouncer {
	return &Debouncer{threshold: threshold}
}

// Accept reports whether an edge on ch at now should be acted on. An accepted
// edge restarts the window; a rejected one leaves it alone.
func (d *Debouncer) Accept(ch Channel, now time.Time) bool {
	if ch < 0 || int(ch) >= NumChannels {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	last := d.last[ch]
	if !last.IsZero() && now.Sub(last) <= d.threshold {
		return false
	}
	d.last[ch] = now
	return true
}
