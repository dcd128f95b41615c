package gpio

import (
	"errors"
	"sync"
	"time"

	"github.com/sweeney/crossing-rig/internal/logic"
)

// FakeInputs is a test double for the rig inputs. Edges are injected with
// Fire; switch positions with SetMode.
type FakeInputs struct {
	mu        sync.Mutex
	fn        EdgeFunc
	positions [logic.NumModes]bool

	// ReadError, if set, will be returned by ModeSwitch.
	ReadError error

	// Disabled tracks if Disable was called.
	Disabled bool

	// Closed tracks if Close was called.
	Closed bool

	// Dropped counts edges fired while disabled or unwatched.
	Dropped int
}

// NewFakeInputs creates FakeInputs with no switch position active.
func NewFakeInputs() *FakeInputs {
	return &FakeInputs{}
}

// Watch records the edge receiver.
func (f *FakeInputs) Watch(fn EdgeFunc) {
	f.mu.Lock()
	f.fn = fn
	f.mu.Unlock()
}

// Fire delivers an edge on ch at the given time. It reports whether the edge
// reached the receiver.
func (f *FakeInputs) Fire(ch logic.Channel, at time.Time) bool {
	f.mu.Lock()
	fn := f.fn
	if f.Disabled || fn == nil {
		f.Dropped++
		f.mu.Unlock()
		return false
	}
	f.mu.Unlock()

	fn(ch, at)
	return true
}

// SetMode makes position m the only active switch position. A negative m
// clears every position.
func (f *FakeInputs) SetMode(m logic.Mode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positions = [logic.NumModes]bool{}
	if m >= 0 && int(m) < logic.NumModes {
		f.positions[m] = true
	}
}

// SetPositions sets the raw switch positions.
func (f *FakeInputs) SetPositions(pos [logic.NumModes]bool) {
	f.mu.Lock()
	f.positions = pos
	f.mu.Unlock()
}

// ModeSwitch returns the scripted positions.
func (f *FakeInputs) ModeSwitch() ([logic.NumModes]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadError != nil {
		return [logic.NumModes]bool{}, f.ReadError
	}
	return f.positions, nil
}

// Disable stops edge delivery.
func (f *FakeInputs) Disable() error {
	f.mu.Lock()
	f.Disabled = true
	f.mu.Unlock()
	return nil
}

// IsDisabled reports whether Disable was called.
func (f *FakeInputs) IsDisabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Disabled
}

// Close marks the inputs as closed.
func (f *FakeInputs) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// FakePort records every value written to it.
type FakePort struct {
	mu     sync.Mutex
	writes []uint8

	// WriteError, if set, will be returned by Write.
	WriteError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakePort creates an empty FakePort.
func NewFakePort() *FakePort {
	return &FakePort{}
}

// Write records v.
func (p *FakePort) Write(v uint8) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.WriteError != nil {
		return p.WriteError
	}
	p.writes = append(p.writes, v)
	return nil
}

// Last returns the most recent value written.
func (p *FakePort) Last() (uint8, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.writes) == 0 {
		return 0, errors.New("nothing written")
	}
	return p.writes[len(p.writes)-1], nil
}

// Writes returns a copy of every value written so far.
func (p *FakePort) Writes() []uint8 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]uint8(nil), p.writes...)
}

// Reset clears recorded writes.
func (p *FakePort) Reset() {
	p.mu.Lock()
	p.writes = nil
	p.Closed = false
	p.WriteError = nil
	p.mu.Unlock()
}

// Close marks the port as closed.
func (p *FakePort) Close() error {
	p.mu.Lock()
	p.Closed = true
	p.mu.Unlock()
	return nil
}
