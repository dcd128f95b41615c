package gpio

import (
	"log"
	"sync/atomic"
)

// SimPort stands in for an output port when running without hardware. It
// keeps only the latest value and optionally logs changes.
type SimPort struct {
	name    string
	verbose bool
	value   atomic.Uint32
}

// NewSimPort creates a SimPort. When verbose is set every change is logged
// under name.
func NewSimPort(name string, verbose bool) *SimPort {
	return &SimPort{name: name, verbose: verbose}
}

// Write stores v.
func (p *SimPort) Write(v uint8) error {
	old := p.value.Swap(uint32(v))
	if p.verbose && old != uint32(v) {
		log.Printf("%s: %08b", p.name, v)
	}
	return nil
}

// Value returns the last value written.
func (p *SimPort) Value() uint8 {
	return uint8(p.value.Load())
}

// Close does nothing.
func (p *SimPort) Close() error { return nil }
