// Package gpio provides the rig's GPIO inputs and output ports with hardware
// abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"time"

	"github.com/sweeney/crossing-rig/internal/logic"
)

// EdgeFunc receives rising edges from the on/off, rotate and emergency inputs.
// It may be called from a goroutine owned by the implementation.
type EdgeFunc func(ch logic.Channel, at time.Time)

// Inputs delivers edges and reads the three-way mode switch.
type Inputs interface {
	// Watch sets the function that receives edges. Edges arriving before
	// Watch is called are dropped.
	Watch(fn EdgeFunc)

	// ModeSwitch returns the three switch positions, active high.
	ModeSwitch() ([logic.NumModes]bool, error)

	// Disable stops edge delivery permanently. The mode switch stays readable.
	Disable() error

	// Close releases GPIO resources.
	Close() error
}

// Port drives a group of output lines from a bit pattern; bit i drives
// line i.
type Port interface {
	Write(v uint8) error
	Close() error
}

// Pin definitions (BCM numbering)
const (
	DefaultPinOnOff     = 17
	DefaultPinRotate    = 27
	DefaultPinEmergency = 22
)

// DefaultPinsMode are the toddler, kids and action switch positions.
var DefaultPinsMode = []int{5, 6, 13}

// DefaultPinsMotor are the four stepper phase lines.
var DefaultPinsMotor = []int{12, 16, 20, 21}

// DefaultPinsLED are the indicator pair followed by the six walk-light
// segments.
var DefaultPinsLED = []int{4, 14, 15, 18, 23, 24, 25, 8}

// InputPins names the input line offsets.
type InputPins struct {
	OnOff     int
	Rotate    int
	Emergency int
	Mode      []int // exactly logic.NumModes entries
}
