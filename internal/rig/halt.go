package rig

import (
	"context"
	"log"

	"github.com/sweeney/crossing-rig/internal/display"
	"github.com/sweeney/crossing-rig/internal/logic"
)

// halt is the terminal emergency routine: motor off, timers and schedule
// cancelled, inputs disabled, halt message shown, then the indicator blinks
// until ctx is done. There is no way back.
func (c *Controller) halt(ctx context.Context) error {
	c.writeMotor(0)
	c.haltOnce.Do(func() { close(c.halted) })
	c.sched.CancelAll()

	c.disabled.Store(true)
	if c.hw.Inputs != nil {
		if err := c.hw.Inputs.Disable(); err != nil {
			log.Printf("emergency: disable inputs: %v", err)
		}
	}

	c.leds.update(func(reg uint8) uint8 { return logic.WithWalkLight(reg, 0) })
	c.show(display.Halt)
	log.Printf("emergency: halted")

	for {
		c.leds.update(logic.ToggleIndicator)
		if err := c.sleep(ctx, c.cfg.BlinkPeriod); err != nil {
			return err
		}
	}
}
