//go:build !linux

package gpio

import (
	"errors"

	"github.com/sweeney/crossing-rig/internal/logic"
)

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealInputs is not available on non-Linux platforms.
type RealInputs struct{}

// NewRealInputs returns an error on non-Linux platforms.
func NewRealInputs(chipName string, pins InputPins) (*RealInputs, error) {
	return nil, errUnsupported
}

// Watch is not implemented on non-Linux platforms.
func (r *RealInputs) Watch(fn EdgeFunc) {}

// ModeSwitch is not implemented on non-Linux platforms.
func (r *RealInputs) ModeSwitch() ([logic.NumModes]bool, error) {
	return [logic.NumModes]bool{}, errUnsupported
}

// Disable is not implemented on non-Linux platforms.
func (r *RealInputs) Disable() error { return nil }

// Close is not implemented on non-Linux platforms.
func (r *RealInputs) Close() error { return nil }

// RealPort is not available on non-Linux platforms.
type RealPort struct{}

// NewRealPort returns an error on non-Linux platforms.
func NewRealPort(chipName string, pins []int) (*RealPort, error) {
	return nil, errUnsupported
}

// Write is not implemented on non-Linux platforms.
func (p *RealPort) Write(v uint8) error { return errUnsupported }

// Close is not implemented on non-Linux platforms.
func (p *RealPort) Close() error { return nil }
