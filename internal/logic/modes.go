package logic

import (
	"fmt"
	"time"
)

// Mode is a rotation behaviour selected by the three-way switch.
type Mode int

const (
	ModeToddler Mode = iota
	ModeKids
	ModeAction

	NumModes = 3
)

func (m Mode) String() string {
	switch m {
	case ModeToddler:
		return "Toddler"
	case ModeKids:
		return "Kids"
	case ModeAction:
		return "Action"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// SelectMode returns the mode for the first active switch position.
// ok is false when no position is active.
func SelectMode(positions [NumModes]bool) (m Mode, ok bool) {
	for i, on := range positions {
		if on {
			return Mode(i), true
		}
	}
	return 0, false
}

// Effect is what a scheduled event does when it fires.
type Effect struct {
	Stop   bool  // request a graceful stop
	Target Speed // new ramp target; ignored when Stop is set
}

// SetTarget returns an effect that moves the ramp target to s.
func SetTarget(s Speed) Effect { return Effect{Target: s} }

// RequestStop returns an effect that ramps the motor down to SpeedStop.
func RequestStop() Effect { return Effect{Stop: true} }

// Speed returns the ramp target the effect sets.
func (e Effect) Speed() Speed {
	if e.Stop {
		return SpeedStop
	}
	return e.Target
}

func (e Effect) String() string {
	if e.Stop {
		return "stop"
	}
	return "target " + e.Target.String()
}

// ScheduledEvent fires its effect After the session started.
type ScheduledEvent struct {
	After  time.Duration
	Effect Effect
}

// Schedules holds the ordered event list for each mode.
type Schedules [NumModes][]ScheduledEvent

// Session start speeds: every mode jumps to SessionStartSpeed and ramps
// toward SessionTargetSpeed until its first event fires.
const (
	SessionStartSpeed  = SpeedSuperSlow
	SessionTargetSpeed = SpeedSlow
)

// DefaultSchedules returns the stock timings for the three modes.
func DefaultSchedules() Schedules {
	return Schedules{
		ModeToddler: {
			{After: 3 * time.Minute, Effect: RequestStop()},
		},
		ModeKids: {
			{After: 30 * time.Second, Effect: SetTarget(SpeedMedium)},
			{After: 150 * time.Second, Effect: SetTarget(SpeedSlow)},
			{After: 180 * time.Second, Effect: RequestStop()},
		},
		ModeAction: {
			{After: 10 * time.Second, Effect: SetTarget(SpeedMedium)},
			{After: 30 * time.Second, Effect: SetTarget(SpeedFast)},
			{After: 150 * time.Second, Effect: SetTarget(SpeedMedium)},
			{After: 170 * time.Second, Effect: SetTarget(SpeedSlow)},
			{After: 3 * time.Minute, Effect: RequestStop()},
		},
	}
}

// Validate checks that every schedule is in delay-ascending order and only
// targets named speeds.
func (s Schedules) Validate() error {
	for m, events := range s {
		var prev time.Duration
		for i, e := range events {
			if e.After < 0 {
				return fmt.Errorf("%v event %d: negative delay %v", Mode(m), i, e.After)
			}
			if i > 0 && e.After < prev {
				return fmt.Errorf("%v event %d: delay %v before previous %v", Mode(m), i, e.After, prev)
			}
			if !e.Effect.Stop {
				if _, err := ParseSpeed(e.Effect.Target.String()); err != nil || e.Effect.Target == SpeedStop {
					return fmt.Errorf("%v event %d: invalid target %v", Mode(m), i, e.Effect.Target)
				}
			}
			prev = e.After
		}
	}
	return nil
}
