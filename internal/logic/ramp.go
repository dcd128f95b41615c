package logic

import "sync/atomic"

// Ramp integrates the current speed toward a target by one unit per tick.
type Ramp struct {
	current atomic.Uint32
	target  atomic.Uint32
}

// NewRamp returns a ramp at rest on s.
func NewRamp(s Speed) *Ramp {
	r := &Ramp{}
	r.current.Store(uint32(s))
	r.target.Store(uint32(s))
	return r
}

// Current returns the speed the motor should run at now.
func (r *Ramp) Current() Speed { return Speed(r.current.Load()) }

// Target returns the speed the ramp is converging on.
func (r *Ramp) Target() Speed { return Speed(r.target.Load()) }

// SetTarget changes the target; current is untouched.
func (r *Ramp) SetTarget(s Speed) { r.target.Store(uint32(s)) }

// Start jumps current to from and sets the target to to.
func (r *Ramp) Start(from, to Speed) {
	r.target.Store(uint32(to))
	r.current.Store(uint32(from))
}

// Tick moves current one unit toward target. It reports whether current
// changed.
func (r *Ramp) Tick() bool {
	cur := r.current.Load()
	tgt := r.target.Load()
	var next uint32
	switch {
	case cur == tgt:
		return false
	case cur < tgt:
		next = cur + 1
	default:
		next = cur - 1
	}
	// Lose the tick rather than overwrite a concurrent Start.
	return r.current.CompareAndSwap(cur, next)
}
