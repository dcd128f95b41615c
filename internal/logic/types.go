// Package logic contains the pure control logic for the crossing rig.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"fmt"
	"time"
)

// Speed is an inverse rate: the number of milliseconds the motor dwells on
// each commutation phase. Smaller is faster.
type Speed uint8

const (
	SpeedSuperFast Speed = 5
	SpeedFast      Speed = 10
	SpeedMedium    Speed = 20
	SpeedSlow      Speed = 40
	SpeedSuperSlow Speed = 45
	// SpeedStop sits above the slowest named speed. A ramp that reaches it
	// ends the rotation.
	SpeedStop Speed = 50
)

// Duration returns the per-phase dwell time.
func (s Speed) Duration() time.Duration {
	return time.Duration(s) * time.Millisecond
}

func (s Speed) String() string {
	switch s {
	case SpeedSuperFast:
		return "super-fast"
	case SpeedFast:
		return "fast"
	case SpeedMedium:
		return "medium"
	case SpeedSlow:
		return "slow"
	case SpeedSuperSlow:
		return "super-slow"
	case SpeedStop:
		return "stop"
	}
	return fmt.Sprintf("speed(%d)", uint8(s))
}

// ParseSpeed returns the named speed constant.
func ParseSpeed(name string) (Speed, error) {
	for _, s := range []Speed{SpeedSuperFast, SpeedFast, SpeedMedium, SpeedSlow, SpeedSuperSlow, SpeedStop} {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown speed %q", name)
}

// Channel identifies an edge-triggered input.
type Channel int

const (
	ChannelOnOff Channel = iota
	ChannelRotate
	ChannelEmergency

	NumChannels = 3
)

func (c Channel) String() string {
	switch c {
	case ChannelOnOff:
		return "on/off"
	case ChannelRotate:
		return "rotate"
	case ChannelEmergency:
		return "emergency"
	}
	return fmt.Sprintf("channel(%d)", int(c))
}

// Phase is the externally visible state of the rig.
type Phase string

const (
	PhaseOff           Phase = "OFF"
	PhaseOn            Phase = "ON"
	PhaseRotating      Phase = "ROTATING"
	PhaseStoppingToOff Phase = "STOPPING_TO_OFF"
	PhaseEmergency     Phase = "EMERGENCY"
)

// EventType represents a rig transition to be published.
type EventType string

const (
	EventOn            EventType = "ON"
	EventOff           EventType = "OFF"
	EventRotationStart EventType = "ROTATION_START"
	EventStopRequested EventType = "STOP_REQUESTED"
	EventRotationEnd   EventType = "ROTATION_END"
	EventEmergency     EventType = "EMERGENCY"
)

// Event represents a rig transition.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Mode      string // empty unless a session is or was active
	On        bool
	Rotating  bool
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	On            int
	Off           int
	RotationStart int
	StopRequested int
	RotationEnd   int
	Emergency     int
}

// Add increments the counter for t.
func (c *EventCounts) Add(t EventType) {
	switch t {
	case EventOn:
		c.On++
	case EventOff:
		c.Off++
	case EventRotationStart:
		c.RotationStart++
	case EventStopRequested:
		c.StopRequested++
	case EventRotationEnd:
		c.RotationEnd++
	case EventEmergency:
		c.Emergency++
	}
}

// Snapshot is a point-in-time view of the rig. Fields are read one at a time
// and may be transiently inconsistent with each other.
type Snapshot struct {
	On          bool
	Rotating    bool
	Emergency   bool
	StopThenOff bool
	Mode        string
	Current     Speed
	Target      Speed
	WalkIndex   int
}

// Phase derives the named state from the flags.
func (s Snapshot) Phase() Phase {
	switch {
	case s.Emergency:
		return PhaseEmergency
	case s.Rotating && s.StopThenOff:
		return PhaseStoppingToOff
	case s.Rotating:
		return PhaseRotating
	case s.On:
		return PhaseOn
	}
	return PhaseOff
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
