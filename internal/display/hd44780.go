//go:build linux

package display

import (
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
	"go.uber.org/multierr"
)

// LCDPins names the line offsets of a HD44780 panel wired in 4-bit mode.
type LCDPins struct {
	RS   int
	E    int
	Data [4]int // D4..D7
}

// DefaultLCDPins is the stock wiring (BCM numbering).
var DefaultLCDPins = LCDPins{RS: 7, E: 11, Data: [4]int{9, 10, 19, 26}}

// HD44780 commands.
const (
	cmdClear       = 0x01
	cmdEntryMode   = 0x06 // increment, no shift
	cmdDisplayOn   = 0x0c // display on, cursor off, blink off
	cmdFunctionSet = 0x28 // 4-bit, 2 lines, 5x8 font
	cmdSetDDRAM    = 0x80
)

// Value slots within the requested line set.
const (
	slotRS = iota
	slotE
	slotD4
)

// HD44780 is a character LCD driven over GPIO character device lines.
type HD44780 struct {
	mu    sync.Mutex
	chip  *gpiocdev.Chip
	lines *gpiocdev.Lines
	vals  []int
	sleep func(time.Duration)
}

// NewHD44780 requests the panel lines and runs the 4-bit initialisation
// sequence.
func NewHD44780(chipName string, pins LCDPins) (*HD44780, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	offsets := []int{pins.RS, pins.E, pins.Data[0], pins.Data[1], pins.Data[2], pins.Data[3]}
	vals := make([]int, len(offsets))
	lines, err := chip.RequestLines(offsets, gpiocdev.AsOutput(vals...))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request lcd pins %v: %w", offsets, err)
	}

	d := &HD44780{chip: chip, lines: lines, vals: vals, sleep: time.Sleep}
	if err := d.init(); err != nil {
		d.Close()
		return nil, fmt.Errorf("init lcd: %w", err)
	}
	return d, nil
}

func (d *HD44780) init() error {
	d.sleep(50 * time.Millisecond)

	// Three 8-bit function sets then the switch to 4-bit.
	for _, wait := range []time.Duration{4100 * time.Microsecond, 100 * time.Microsecond, 100 * time.Microsecond} {
		if err := d.nibble(false, 0x3); err != nil {
			return err
		}
		d.sleep(wait)
	}
	if err := d.nibble(false, 0x2); err != nil {
		return err
	}

	for _, cmd := range []byte{cmdFunctionSet, cmdDisplayOn, cmdEntryMode, cmdClear} {
		if err := d.write(false, cmd); err != nil {
			return err
		}
	}
	d.sleep(2 * time.Millisecond)
	return nil
}

// nibble clocks the low four bits of v into the panel.
func (d *HD44780) nibble(rs bool, v byte) error {
	d.vals[slotRS] = 0
	if rs {
		d.vals[slotRS] = 1
	}
	for i := 0; i < 4; i++ {
		d.vals[slotD4+i] = int(v>>i) & 1
	}

	d.vals[slotE] = 1
	if err := d.lines.SetValues(d.vals); err != nil {
		return fmt.Errorf("lcd strobe high: %w", err)
	}
	d.sleep(time.Microsecond)
	d.vals[slotE] = 0
	if err := d.lines.SetValues(d.vals); err != nil {
		return fmt.Errorf("lcd strobe low: %w", err)
	}
	d.sleep(50 * time.Microsecond)
	return nil
}

func (d *HD44780) write(rs bool, b byte) error {
	if err := d.nibble(rs, b>>4); err != nil {
		return err
	}
	return d.nibble(rs, b&0x0f)
}

// Show overwrites the first line with the centred text.
func (d *HD44780) Show(text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.write(false, cmdSetDDRAM); err != nil {
		return err
	}
	for _, c := range []byte(Center(text)) {
		if err := d.write(true, c); err != nil {
			return err
		}
	}
	return nil
}

// Close blanks the panel and releases the lines.
func (d *HD44780) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var err error
	if d.lines != nil {
		err = multierr.Combine(d.write(false, cmdClear), d.lines.Close())
		d.lines = nil
	}
	if d.chip != nil {
		err = multierr.Append(err, d.chip.Close())
		d.chip = nil
	}
	return err
}
