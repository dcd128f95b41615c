// Package display drives the rig's one-line text display.
package display

import (
	"log"
	"strings"
	"sync"
)

// Width is the number of characters on a display line.
const Width = 16

// Status strings shown on the display.
const (
	Blank = ""
	Halt  = "NOTHALT"
)

// Display shows one line of status text.
type Display interface {
	// Show replaces the line with text, centred and padded to Width.
	Show(text string) error

	// Close releases display resources.
	Close() error
}

// Center pads text to Width with the text centred, rounding the left margin
// up. Longer text is truncated.
func Center(text string) string {
	if len(text) >= Width {
		return text[:Width]
	}
	left := (Width - len(text) + 1) / 2
	return strings.Repeat(" ", left) + text + strings.Repeat(" ", Width-len(text)-left)
}

// Fake records every line shown.
type Fake struct {
	mu    sync.Mutex
	lines []string

	// ShowError, if set, will be returned by Show.
	ShowError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFake creates an empty Fake display.
func NewFake() *Fake {
	return &Fake{}
}

// Show records the centred line.
func (f *Fake) Show(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ShowError != nil {
		return f.ShowError
	}
	f.lines = append(f.lines, Center(text))
	return nil
}

// Current returns the line currently shown, trimmed. It is empty before the
// first Show.
func (f *Fake) Current() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.lines) == 0 {
		return ""
	}
	return strings.TrimSpace(f.lines[len(f.lines)-1])
}

// Lines returns every centred line shown so far.
func (f *Fake) Lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

// Close marks the display as closed.
func (f *Fake) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// Log writes every line to the standard logger. Used when running without
// a panel attached.
type Log struct{}

// Show logs the line.
func (Log) Show(text string) error {
	log.Printf("display: [%s]", Center(text))
	return nil
}

// Close does nothing.
func (Log) Close() error { return nil }
