//go:build linux

package gpio

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sweeney/crossing-rig/internal/logic"
	"github.com/warthog618/go-gpiocdev"
	"go.uber.org/multierr"
)

// RealInputs reads the rig inputs from actual hardware using Linux GPIO
// character device. Edges arrive on the library's event goroutine.
type RealInputs struct {
	chip *gpiocdev.Chip
	mode *gpiocdev.Lines

	mu    sync.Mutex
	edges []*gpiocdev.Line // on/off, rotate, emergency; nil once disabled

	offsets  map[int]logic.Channel
	fn       atomic.Pointer[EdgeFunc]
	disabled atomic.Bool
}

// NewRealInputs requests the edge and mode switch lines on the named chip.
func NewRealInputs(chipName string, pins InputPins) (*RealInputs, error) {
	if len(pins.Mode) != logic.NumModes {
		return nil, fmt.Errorf("mode switch needs %d pins, got %d", logic.NumModes, len(pins.Mode))
	}

	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	r := &RealInputs{
		chip: chip,
		offsets: map[int]logic.Channel{
			pins.OnOff:     logic.ChannelOnOff,
			pins.Rotate:    logic.ChannelRotate,
			pins.Emergency: logic.ChannelEmergency,
		},
	}

	// Request lines as input with pull-down: the buttons are active high.
	for _, pin := range []int{pins.OnOff, pins.Rotate, pins.Emergency} {
		line, err := chip.RequestLine(pin,
			gpiocdev.AsInput,
			gpiocdev.WithPullDown,
			gpiocdev.WithRisingEdge,
			gpiocdev.WithEventHandler(r.handleEvent),
		)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("request %v pin %d: %w", r.offsets[pin], pin, err)
		}
		r.edges = append(r.edges, line)
	}

	mode, err := chip.RequestLines(pins.Mode, gpiocdev.AsInput, gpiocdev.WithPullDown)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("request mode pins %v: %w", pins.Mode, err)
	}
	r.mode = mode

	return r, nil
}

func (r *RealInputs) handleEvent(evt gpiocdev.LineEvent) {
	if r.disabled.Load() || evt.Type != gpiocdev.LineEventRisingEdge {
		return
	}
	ch, ok := r.offsets[evt.Offset]
	if !ok {
		return
	}
	if fn := r.fn.Load(); fn != nil {
		(*fn)(ch, time.Now())
	}
}

// Watch sets the edge receiver.
func (r *RealInputs) Watch(fn EdgeFunc) {
	r.fn.Store(&fn)
}

// ModeSwitch returns the three switch positions.
func (r *RealInputs) ModeSwitch() ([logic.NumModes]bool, error) {
	var pos [logic.NumModes]bool
	vals := make([]int, logic.NumModes)
	if err := r.mode.Values(vals); err != nil {
		return pos, fmt.Errorf("read mode pins: %w", err)
	}
	for i, v := range vals {
		pos[i] = v == 1
	}
	return pos, nil
}

// Disable releases the edge lines so the kernel stops reporting edges.
func (r *RealInputs) Disable() error {
	r.disabled.Store(true)

	r.mu.Lock()
	edges := r.edges
	r.edges = nil
	r.mu.Unlock()

	var err error
	for _, line := range edges {
		if line == nil {
			continue
		}
		err = multierr.Append(err, line.Close())
	}
	if err != nil {
		return fmt.Errorf("disable inputs: %w", err)
	}
	return nil
}

// Close releases GPIO resources.
// Lines are left as inputs with pull-down, matching Pi boot defaults.
func (r *RealInputs) Close() error {
	err := r.Disable()
	if r.mode != nil {
		err = multierr.Append(err, r.mode.Close())
	}
	if r.chip != nil {
		err = multierr.Append(err, r.chip.Close())
	}
	if err != nil {
		return fmt.Errorf("close errors: %w", err)
	}
	return nil
}

// RealPort drives a group of output lines.
type RealPort struct {
	chip  *gpiocdev.Chip
	lines *gpiocdev.Lines
	vals  []int
}

// NewRealPort requests pins as outputs, initially low.
func NewRealPort(chipName string, pins []int) (*RealPort, error) {
	if len(pins) == 0 || len(pins) > 8 {
		return nil, fmt.Errorf("port needs 1 to 8 pins, got %d", len(pins))
	}

	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	vals := make([]int, len(pins))
	lines, err := chip.RequestLines(pins, gpiocdev.AsOutput(vals...))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request output pins %v: %w", pins, err)
	}

	return &RealPort{chip: chip, lines: lines, vals: vals}, nil
}

// Write sets line i to bit i of v. Callers serialise writes.
func (p *RealPort) Write(v uint8) error {
	for i := range p.vals {
		p.vals[i] = int(v>>i) & 1
	}
	if err := p.lines.SetValues(p.vals); err != nil {
		return fmt.Errorf("write port: %w", err)
	}
	return nil
}

// Close drives every line low and releases it. Lines are reconfigured to
// input with pull-down to match Raspberry Pi boot defaults.
func (p *RealPort) Close() error {
	var err error
	if p.lines != nil {
		err = multierr.Combine(
			p.Write(0),
			p.lines.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown),
			p.lines.Close(),
		)
	}
	if p.chip != nil {
		err = multierr.Append(err, p.chip.Close())
	}
	if err != nil {
		return fmt.Errorf("close errors: %w", err)
	}
	return nil
}
