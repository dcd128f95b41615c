package logic

// Commutation is the clockwise 4-phase full-step drive sequence.
var Commutation = [4]uint8{0x3, 0x6, 0xC, 0x9}

// LED register layout: bits 0-1 are the on/off indicator, bits 2-7 the walk
// light.
const (
	LEDOff        uint8 = 1 << 0
	LEDOn         uint8 = 1 << 1
	indicatorMask       = LEDOff | LEDOn
	walkShift           = 2
)

// WithIndicator returns reg with the on/off indicator showing on.
func WithIndicator(reg uint8, on bool) uint8 {
	reg &^= indicatorMask
	if on {
		return reg | LEDOn
	}
	return reg | LEDOff
}

// ToggleIndicator swaps which of the two indicator LEDs is lit.
func ToggleIndicator(reg uint8) uint8 {
	return WithIndicator(reg, reg&LEDOff != 0)
}

// WithWalkLight returns reg with the walk light set to pattern, leaving the
// indicator bits alone.
func WithWalkLight(reg uint8, pattern uint8) uint8 {
	return reg&indicatorMask | pattern<<walkShift
}

// WalkLightOf extracts the walk light pattern from reg.
func WalkLightOf(reg uint8) uint8 {
	return reg >> walkShift
}
