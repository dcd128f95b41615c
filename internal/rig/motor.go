package rig

import (
	"context"
	"log"
	"time"

	"github.com/sweeney/crossing-rig/internal/display"
	"github.com/sweeney/crossing-rig/internal/logic"
)

// Drive is the main loop. It steps the motor through the commutation
// sequence, dwelling the current ramp speed on each phase, and checks for a
// completed stop and for the emergency latch once per phase. After an
// emergency it never returns until ctx is done.
func (c *Controller) Drive(ctx context.Context) error {
	for {
		if c.state.Emergency.Load() {
			return c.halt(ctx)
		}
		if err := c.cycle(ctx); err != nil {
			c.writeMotor(0)
			return err
		}
	}
}

// cycle runs one pass over the four commutation phases.
func (c *Controller) cycle(ctx context.Context) error {
	for _, phase := range logic.Commutation {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.state.Emergency.Load() {
			return nil
		}

		c.checkpoint(c.now())

		if c.state.Rotating.Load() {
			c.writeMotor(phase)
			if err := c.sleep(ctx, c.ramp.Current().Duration()); err != nil {
				return err
			}
			continue
		}

		c.writeMotor(0)
		if err := c.sleep(ctx, c.cfg.IdlePeriod); err != nil {
			return err
		}
	}
	return nil
}

// checkpoint ends the session once the ramp has reached the stop speed, and
// completes a pending switch-off.
func (c *Controller) checkpoint(now time.Time) {
	if c.ramp.Current() != logic.SpeedStop || !c.state.Rotating.Load() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Emergency.Load() || !c.state.Rotating.Load() || c.ramp.Current() != logic.SpeedStop {
		return
	}

	c.sched.CancelAll()
	c.state.Rotating.Store(false)
	c.emit(logic.EventRotationEnd, now)
	c.mode.Store(-1)

	if c.state.StopThenOff.Load() {
		c.state.StopThenOff.Store(false)
		c.state.On.Store(false)
		c.setIndicator(false)
		c.emit(logic.EventOff, now)
	}
	c.show(display.Blank)
}

// writeMotor drives the phase lines, skipping repeated values. Only the main
// loop calls it.
func (c *Controller) writeMotor(v uint8) {
	if c.motorOut == int(v) || c.hw.Motor == nil {
		return
	}
	if err := c.hw.Motor.Write(v); err != nil {
		log.Printf("motor write error: %v", err)
		return
	}
	c.motorOut = int(v)
}
