// Package rig runs the crossing rig: it turns debounced input edges into
// state transitions, drives the stepper from the main loop, runs the ramp,
// walk-light and schedule timers, and latches the emergency halt.
package rig

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sweeney/crossing-rig/internal/display"
	"github.com/sweeney/crossing-rig/internal/gpio"
	"github.com/sweeney/crossing-rig/internal/logic"
)

// eventQueueSize bounds transitions waiting for the telemetry consumer.
const eventQueueSize = 64

// Config holds the rig timing.
type Config struct {
	Debounce       time.Duration // minimum interval between accepted edges per input
	RampPeriod     time.Duration // one speed unit per period
	WalkPeriod     time.Duration // walk-light frame period
	BlinkPeriod    time.Duration // indicator blink period while halted
	DispatchPeriod time.Duration // scheduled event resolution
	IdlePeriod     time.Duration // main loop poll period while not rotating
	Schedules      logic.Schedules
}

// DefaultConfig returns the stock rig timing.
func DefaultConfig() Config {
	return Config{
		Debounce:       20 * time.Millisecond,
		RampPeriod:     100 * time.Millisecond,
		WalkPeriod:     500 * time.Millisecond,
		BlinkPeriod:    200 * time.Millisecond,
		DispatchPeriod: 10 * time.Millisecond,
		IdlePeriod:     time.Duration(logic.SpeedSuperFast) * time.Millisecond,
		Schedules:      logic.DefaultSchedules(),
	}
}

// Hardware bundles the rig's I/O collaborators.
type Hardware struct {
	Inputs  gpio.Inputs
	Motor   gpio.Port
	LEDs    gpio.Port
	Display display.Display
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithSleep replaces the context-aware sleep used by the main loop and the
// halt blink.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Controller) { c.sleep = sleep }
}

// Controller owns the rig state. Edge handlers, timer callbacks and the main
// loop run on different goroutines.
type Controller struct {
	cfg Config
	hw  Hardware

	state    logic.State
	ramp     *logic.Ramp
	debounce *logic.Debouncer
	sched    *logic.Scheduler
	walk     logic.WalkLight
	mode     atomic.Int32 // active logic.Mode, or -1

	// mu serialises edge handlers and the main loop's stop transition.
	mu       sync.Mutex
	masked   [logic.NumChannels]atomic.Bool
	disabled atomic.Bool

	leds     ledRegister
	motorOut int // last motor value written, -1 before the first write; main loop only

	halted   chan struct{}
	haltOnce sync.Once

	events  chan logic.Event
	dropped atomic.Int64

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Controller in the boot state: off, motor stopped, display
// blank, off indicator lit.
func New(cfg Config, hw Hardware, opts ...Option) *Controller {
	c := &Controller{
		cfg:      cfg,
		hw:       hw,
		ramp:     logic.NewRamp(logic.SpeedStop),
		debounce: logic.NewDebouncer(cfg.Debounce),
		sched:    logic.NewScheduler(cfg.Schedules),
		leds:     ledRegister{port: hw.LEDs},
		motorOut: -1,
		halted:   make(chan struct{}),
		events:   make(chan logic.Event, eventQueueSize),
		now:      time.Now,
		sleep:    sleepCtx,
	}
	c.mode.Store(-1)
	for _, opt := range opts {
		opt(c)
	}

	c.setIndicator(false)
	c.show(display.Blank)
	return c
}

// Events returns the transitions emitted by the rig. Events are dropped when
// the consumer falls behind.
func (c *Controller) Events() <-chan logic.Event {
	return c.events
}

// Dropped returns the number of events lost to a full queue.
func (c *Controller) Dropped() int64 {
	return c.dropped.Load()
}

// Snapshot reads the rig state field by field.
func (c *Controller) Snapshot() logic.Snapshot {
	s := c.state.Load()
	s.Mode = c.modeName()
	s.Current = c.ramp.Current()
	s.Target = c.ramp.Target()
	s.WalkIndex = c.walk.Index()
	return s
}

// Halted is closed once the emergency halt has been entered.
func (c *Controller) Halted() <-chan struct{} {
	return c.halted
}

func (c *Controller) modeName() string {
	m := c.mode.Load()
	if m < 0 {
		return ""
	}
	return logic.Mode(m).String()
}

// emit queues a transition without blocking.
func (c *Controller) emit(t logic.EventType, at time.Time) {
	ev := logic.Event{
		Timestamp: at,
		Type:      t,
		Mode:      c.modeName(),
		On:        c.state.On.Load(),
		Rotating:  c.state.Rotating.Load(),
	}
	select {
	case c.events <- ev:
	default:
		c.dropped.Add(1)
	}
}

func (c *Controller) setIndicator(on bool) {
	c.leds.update(func(reg uint8) uint8 { return logic.WithIndicator(reg, on) })
}

func (c *Controller) show(text string) {
	if c.hw.Display == nil {
		return
	}
	if err := c.hw.Display.Show(text); err != nil {
		log.Printf("display error: %v", err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ledRegister is the shadow of the LED port. Every update rewrites the whole
// byte.
type ledRegister struct {
	mu      sync.Mutex
	value   uint8
	written bool
	port    gpio.Port
}

func (r *ledRegister) update(f func(uint8) uint8) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v := f(r.value)
	if r.written && v == r.value {
		return
	}
	r.value = v
	r.written = true
	if r.port == nil {
		return
	}
	if err := r.port.Write(v); err != nil {
		log.Printf("led write error: %v", err)
	}
}

func (r *ledRegister) get() uint8 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.value
}
