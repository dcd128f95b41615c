package logic

import "sync/atomic"

// WalkPattern is the walking-person light sequence, one lit segment at a time.
var WalkPattern = [6]uint8{0b1, 0b10, 0b100, 0b1000, 0b10000, 0b100000}

// WalkLight cycles through WalkPattern while the rig is rotating.
// The index is kept across sessions.
type WalkLight struct {
	index atomic.Int32
}

// Tick returns the pattern to render. When active it returns the pattern at
// the current index and advances; otherwise it returns all-off and leaves the
// index where it is.
func (w *WalkLight) Tick(active bool) uint8 {
	if !active {
		return 0
	}
	i := w.index.Load()
	p := WalkPattern[i]
	w.index.Store((i + 1) % int32(len(WalkPattern)))
	return p
}

// Index returns the position that the next active tick will render.
func (w *WalkLight) Index() int { return int(w.index.Load()) }
