package rig

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/sweeney/crossing-rig/internal/logic"
	"golang.org/x/sync/errgroup"
)

// Run wires the inputs to the controller and runs the timer service and the
// main loop until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	c.hw.Inputs.Watch(func(ch logic.Channel, at time.Time) {
		c.HandleEdge(ch, at)
	})

	ramp := time.NewTicker(c.cfg.RampPeriod)
	defer ramp.Stop()
	walk := time.NewTicker(c.cfg.WalkPeriod)
	defer walk.Stop()
	dispatch := time.NewTicker(c.cfg.DispatchPeriod)
	defer dispatch.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.RunTimers(gctx, ramp.C, walk.C, dispatch.C)
	})
	g.Go(func() error {
		return c.Drive(gctx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// RunTimers serves the periodic callbacks until ctx is done or the rig
// halts. The ramp and walk-light ticks are independent of each other.
func (c *Controller) RunTimers(ctx context.Context, ramp, walk, dispatch <-chan time.Time) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.halted:
			log.Printf("timers: stopped by emergency halt")
			return nil
		case <-ramp:
			c.TickRamp()
		case <-walk:
			c.TickWalkLight()
		case <-dispatch:
			c.Dispatch(c.now())
		}
	}
}

// TickRamp moves the current speed one unit toward the target.
func (c *Controller) TickRamp() {
	if c.state.Emergency.Load() {
		return
	}
	c.ramp.Tick()
}

// TickWalkLight renders the next walk-light frame.
func (c *Controller) TickWalkLight() {
	if c.state.Emergency.Load() {
		return
	}
	active := c.state.Rotating.Load() && c.state.On.Load()
	pattern := c.walk.Tick(active)
	c.leds.update(func(reg uint8) uint8 { return logic.WithWalkLight(reg, pattern) })
}

// Dispatch fires every scheduled event due at now.
func (c *Controller) Dispatch(now time.Time) {
	if c.state.Emergency.Load() {
		return
	}
	c.sched.Fire(now, func(e logic.Effect) {
		c.ramp.SetTarget(e.Speed())
		if e.Stop {
			c.emit(logic.EventStopRequested, now)
		}
	})
}
