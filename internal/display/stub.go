//go:build !linux

package display

import "errors"

// LCDPins names the line offsets of a HD44780 panel wired in 4-bit mode.
type LCDPins struct {
	RS   int
	E    int
	Data [4]int
}

// DefaultLCDPins is the stock wiring (BCM numbering).
var DefaultLCDPins = LCDPins{RS: 7, E: 11, Data: [4]int{9, 10, 19, 26}}

// HD44780 is not available on non-Linux platforms.
type HD44780 struct{}

// NewHD44780 returns an error on non-Linux platforms.
func NewHD44780(chipName string, pins LCDPins) (*HD44780, error) {
	return nil, errors.New("display: not supported on this platform (requires Linux)")
}

// Show is not implemented on non-Linux platforms.
func (d *HD44780) Show(text string) error { return nil }

// Close is not implemented on non-Linux platforms.
func (d *HD44780) Close() error { return nil }
