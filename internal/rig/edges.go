package rig

import (
	"log"
	"time"

	"github.com/sweeney/crossing-rig/internal/display"
	"github.com/sweeney/crossing-rig/internal/logic"
)

// HandleEdge processes a rising edge on ch. It reports whether the edge
// caused a transition. Edges on a masked or disabled input are ignored.
func (c *Controller) HandleEdge(ch logic.Channel, at time.Time) bool {
	if c.disabled.Load() || c.isMasked(ch) {
		return false
	}

	if ch == logic.ChannelEmergency {
		return c.emergency(at)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch ch {
	case logic.ChannelOnOff:
		return c.toggle(at)
	case logic.ChannelRotate:
		return c.rotate(at)
	}
	return false
}

// mask stops edge delivery on ch until the returned function is called.
func (c *Controller) mask(ch logic.Channel) (unmask func()) {
	c.masked[ch].Store(true)
	return func() { c.masked[ch].Store(false) }
}

func (c *Controller) isMasked(ch logic.Channel) bool {
	if ch < 0 || int(ch) >= logic.NumChannels {
		return true
	}
	return c.masked[ch].Load()
}

// toggle flips the rig on or off. A rotating rig is not switched off
// immediately: it ramps to a stop and switches off when the ramp gets there.
// Called with c.mu held.
func (c *Controller) toggle(at time.Time) bool {
	unmask := c.mask(logic.ChannelOnOff)
	defer unmask()

	if !c.debounce.Accept(logic.ChannelOnOff, at) {
		return false
	}
	if c.state.Emergency.Load() {
		return false
	}

	if !c.state.On.Load() {
		c.state.On.Store(true)
		c.setIndicator(true)
		c.emit(logic.EventOn, at)
		return true
	}

	c.sched.CancelAll()
	if !c.state.Rotating.Load() {
		c.state.On.Store(false)
		c.setIndicator(false)
		c.show(display.Blank)
		c.emit(logic.EventOff, at)
		return true
	}

	c.ramp.SetTarget(logic.SpeedStop)
	c.state.StopThenOff.Store(true)
	c.emit(logic.EventStopRequested, at)
	return true
}

// rotate starts a session in the mode selected on the switch. Called with
// c.mu held.
func (c *Controller) rotate(at time.Time) bool {
	if !c.debounce.Accept(logic.ChannelRotate, at) {
		return false
	}
	if c.state.Emergency.Load() || !c.state.On.Load() || c.state.Rotating.Load() {
		return false
	}

	positions, err := c.hw.Inputs.ModeSwitch()
	if err != nil {
		log.Printf("mode switch read error: %v", err)
		return false
	}
	mode, ok := logic.SelectMode(positions)
	if !ok {
		return false
	}

	// Speed before the flag: the main loop must never see a rotating rig
	// still resting on the stop speed.
	c.ramp.Start(logic.SessionStartSpeed, logic.SessionTargetSpeed)
	c.sched.Arm(mode, at)
	c.mode.Store(int32(mode))
	c.state.Rotating.Store(true)

	c.show(mode.String())
	c.emit(logic.EventRotationStart, at)
	return true
}

// emergency latches the halt. The main loop does the rest.
func (c *Controller) emergency(at time.Time) bool {
	if !c.debounce.Accept(logic.ChannelEmergency, at) {
		return false
	}
	if c.state.Emergency.Swap(true) {
		return false
	}
	c.emit(logic.EventEmergency, at)
	return true
}
