package rig

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/crossing-rig/internal/display"
	"github.com/sweeney/crossing-rig/internal/gpio"
	"github.com/sweeney/crossing-rig/internal/logic"
)

// harness wires a Controller to fakes and a manual clock. Not safe for
// concurrent use.
type harness struct {
	c      *Controller
	inputs *gpio.FakeInputs
	motor  *gpio.FakePort
	leds   *gpio.FakePort
	disp   *display.Fake

	now   time.Time
	slept []time.Duration
	// sleepErr, if set, decides the result of each sleep by call index.
	sleepErr func(n int) error
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		inputs: gpio.NewFakeInputs(),
		motor:  gpio.NewFakePort(),
		leds:   gpio.NewFakePort(),
		disp:   display.NewFake(),
		now:    time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	h.c = New(DefaultConfig(), Hardware{
		Inputs:  h.inputs,
		Motor:   h.motor,
		LEDs:    h.leds,
		Display: h.disp,
	},
		WithClock(func() time.Time { return h.now }),
		WithSleep(func(ctx context.Context, d time.Duration) error {
			n := len(h.slept)
			h.slept = append(h.slept, d)
			if h.sleepErr != nil {
				return h.sleepErr(n)
			}
			return ctx.Err()
		}),
	)
	return h
}

// edge fires ch one second after the previous edge, clear of any debounce
// window.
func (h *harness) edge(ch logic.Channel) bool {
	h.now = h.now.Add(time.Second)
	return h.c.HandleEdge(ch, h.now)
}

// advance simulates d of running time in 100ms steps: schedule dispatch,
// ramp tick and a main loop checkpoint per step.
func (h *harness) advance(d time.Duration) {
	const step = 100 * time.Millisecond
	for elapsed := time.Duration(0); elapsed < d; elapsed += step {
		h.now = h.now.Add(step)
		h.c.Dispatch(h.now)
		h.c.TickRamp()
		h.c.checkpoint(h.now)
	}
}

// drain returns the event types queued so far.
func (h *harness) drain() []logic.EventType {
	var types []logic.EventType
	for {
		select {
		case e := <-h.c.Events():
			types = append(types, e.Type)
		default:
			return types
		}
	}
}

func lastLED(t *testing.T, p *gpio.FakePort) uint8 {
	t.Helper()
	v, err := p.Last()
	if err != nil {
		t.Fatalf("led port: %v", err)
	}
	return v
}

func assertEvents(t *testing.T, got []logic.EventType, want ...logic.EventType) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("events: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestBootState(t *testing.T) {
	h := newHarness(t)

	snap := h.c.Snapshot()
	if snap.Phase() != logic.PhaseOff {
		t.Errorf("phase: got %s, want OFF", snap.Phase())
	}
	if snap.Current != logic.SpeedStop || snap.Target != logic.SpeedStop {
		t.Errorf("speed: got %v/%v, want stop/stop", snap.Current, snap.Target)
	}
	if got := lastLED(t, h.leds); got != logic.LEDOff {
		t.Errorf("leds: got %08b, want %08b", got, logic.LEDOff)
	}
	if h.disp.Current() != display.Blank {
		t.Errorf("display: got %q, want blank", h.disp.Current())
	}
}

func TestToggleOnAndOffWhileIdle(t *testing.T) {
	h := newHarness(t)

	if !h.edge(logic.ChannelOnOff) {
		t.Fatal("toggle on should be accepted")
	}
	if !h.c.Snapshot().On {
		t.Error("expected on after first toggle")
	}
	if got := lastLED(t, h.leds); got != logic.LEDOn {
		t.Errorf("leds: got %08b, want %08b", got, logic.LEDOn)
	}

	if !h.edge(logic.ChannelOnOff) {
		t.Fatal("toggle off should be accepted")
	}
	snap := h.c.Snapshot()
	if snap.On || snap.Rotating || snap.StopThenOff {
		t.Errorf("expected immediate off, got %+v", snap)
	}
	if got := lastLED(t, h.leds); got != logic.LEDOff {
		t.Errorf("leds: got %08b, want %08b", got, logic.LEDOff)
	}

	assertEvents(t, h.drain(), logic.EventOn, logic.EventOff)
}

func TestToggleDebounced(t *testing.T) {
	h := newHarness(t)

	h.edge(logic.ChannelOnOff)
	// Bounce 5ms later must not switch the rig back off.
	if h.c.HandleEdge(logic.ChannelOnOff, h.now.Add(5*time.Millisecond)) {
		t.Error("bounce should be rejected")
	}
	if !h.c.Snapshot().On {
		t.Error("rig should still be on")
	}
}

func TestToggleMasked(t *testing.T) {
	h := newHarness(t)

	unmask := h.c.mask(logic.ChannelOnOff)
	if h.edge(logic.ChannelOnOff) {
		t.Error("edge on masked input should be ignored")
	}
	unmask()
	if !h.edge(logic.ChannelOnOff) {
		t.Error("edge after unmask should be accepted")
	}
}

func TestRotateRequiresOn(t *testing.T) {
	h := newHarness(t)
	h.inputs.SetMode(logic.ModeToddler)

	if h.edge(logic.ChannelRotate) {
		t.Error("rotate while off should be ignored")
	}
	if h.c.Snapshot().Rotating {
		t.Error("rig should not rotate while off")
	}
}

func TestRotateWithoutModeIsNoop(t *testing.T) {
	h := newHarness(t)
	h.edge(logic.ChannelOnOff)

	if h.edge(logic.ChannelRotate) {
		t.Error("rotate with no mode selected should be ignored")
	}
	snap := h.c.Snapshot()
	if snap.Rotating {
		t.Error("rig should not rotate without a mode")
	}
	if snap.Current != logic.SpeedStop {
		t.Errorf("current: got %v, want stop", snap.Current)
	}
	if h.c.sched.Pending() != 0 {
		t.Errorf("pending: got %d, want 0", h.c.sched.Pending())
	}
}

func TestRotateModeSwitchError(t *testing.T) {
	h := newHarness(t)
	h.edge(logic.ChannelOnOff)
	h.inputs.SetMode(logic.ModeKids)
	h.inputs.ReadError = errors.New("simulated error")

	if h.edge(logic.ChannelRotate) {
		t.Error("rotate should fail when the switch cannot be read")
	}
}

func TestRotateIgnoredWhileRotating(t *testing.T) {
	h := newHarness(t)
	h.edge(logic.ChannelOnOff)
	h.inputs.SetMode(logic.ModeAction)
	h.edge(logic.ChannelRotate)

	h.inputs.SetMode(logic.ModeToddler)
	if h.edge(logic.ChannelRotate) {
		t.Error("second rotate should be ignored")
	}
	if h.c.Snapshot().Mode != "Action" {
		t.Errorf("mode: got %q, want Action", h.c.Snapshot().Mode)
	}
}

func TestToddlerSession(t *testing.T) {
	h := newHarness(t)
	h.edge(logic.ChannelOnOff)
	h.inputs.SetMode(logic.ModeToddler)

	if !h.edge(logic.ChannelRotate) {
		t.Fatal("rotate should start a session")
	}
	snap := h.c.Snapshot()
	if !snap.Rotating || snap.Mode != "Toddler" {
		t.Fatalf("expected Toddler session, got %+v", snap)
	}
	if snap.Current != logic.SpeedSuperSlow || snap.Target != logic.SpeedSlow {
		t.Errorf("speed: got %v->%v, want super-slow->slow", snap.Current, snap.Target)
	}
	if h.disp.Current() != "Toddler" {
		t.Errorf("display: got %q, want Toddler", h.disp.Current())
	}

	h.advance(179 * time.Second)
	snap = h.c.Snapshot()
	if !snap.Rotating {
		t.Fatal("should still rotate before 3 minutes")
	}
	if snap.Current != logic.SpeedSlow {
		t.Errorf("current: got %v, want slow", snap.Current)
	}

	// Stop requested at 180s, then ten ramp ticks to reach the stop speed.
	h.advance(2 * time.Second)
	snap = h.c.Snapshot()
	if snap.Rotating {
		t.Error("session should have ended")
	}
	if !snap.On {
		t.Error("rig should stay on after a natural stop")
	}
	if snap.Mode != "" {
		t.Errorf("mode: got %q, want empty", snap.Mode)
	}
	if h.disp.Current() != display.Blank {
		t.Errorf("display: got %q, want blank", h.disp.Current())
	}

	assertEvents(t, h.drain(),
		logic.EventOn, logic.EventRotationStart, logic.EventStopRequested, logic.EventRotationEnd)
}

func TestKidsToggleOffWhileRotating(t *testing.T) {
	h := newHarness(t)
	h.edge(logic.ChannelOnOff)
	h.inputs.SetMode(logic.ModeKids)
	h.edge(logic.ChannelRotate)

	h.advance(99 * time.Second)
	if got := h.c.Snapshot().Target; got != logic.SpeedMedium {
		t.Fatalf("target at 100s: got %v, want medium", got)
	}

	// Toggle at t=100s.
	if !h.edge(logic.ChannelOnOff) {
		t.Fatal("toggle should be accepted")
	}
	snap := h.c.Snapshot()
	if !snap.On || !snap.Rotating {
		t.Fatalf("toggle while rotating must not switch off immediately: %+v", snap)
	}
	if !snap.StopThenOff || snap.Target != logic.SpeedStop {
		t.Errorf("expected graceful stop, got %+v", snap)
	}
	if h.c.sched.Pending() != 0 {
		t.Errorf("pending: got %d, want 0", h.c.sched.Pending())
	}

	// Medium (20) to stop (50) takes 30 ticks.
	h.advance(3 * time.Second)
	snap = h.c.Snapshot()
	if snap.Rotating || snap.On || snap.StopThenOff {
		t.Errorf("expected off after ramp reached stop, got %+v", snap)
	}
	if got := lastLED(t, h.leds); got&0b11 != logic.LEDOff {
		t.Errorf("indicator: got %02b, want %02b", got&0b11, logic.LEDOff)
	}

	// The cancelled 150s and 180s events never fire.
	h.advance(200 * time.Second)
	assertEvents(t, h.drain(),
		logic.EventOn, logic.EventRotationStart, logic.EventStopRequested, logic.EventRotationEnd, logic.EventOff)
}

func TestCycleDrivesCommutation(t *testing.T) {
	h := newHarness(t)
	h.edge(logic.ChannelOnOff)
	h.inputs.SetMode(logic.ModeAction)
	h.edge(logic.ChannelRotate)

	if err := h.c.cycle(context.Background()); err != nil {
		t.Fatalf("cycle: %v", err)
	}

	writes := h.motor.Writes()
	want := logic.Commutation[:]
	if len(writes) != len(want) {
		t.Fatalf("motor writes: got %x, want %x", writes, want)
	}
	for i := range want {
		if writes[i] != want[i] {
			t.Errorf("phase %d: got %#x, want %#x", i, writes[i], want[i])
		}
	}
	for i, d := range h.slept {
		if d != logic.SpeedSuperSlow.Duration() {
			t.Errorf("sleep %d: got %v, want %v", i, d, logic.SpeedSuperSlow.Duration())
		}
	}
}

func TestCycleIdleHoldsMotorOff(t *testing.T) {
	h := newHarness(t)

	for i := 0; i < 3; i++ {
		if err := h.c.cycle(context.Background()); err != nil {
			t.Fatalf("cycle: %v", err)
		}
	}
	writes := h.motor.Writes()
	if len(writes) != 1 || writes[0] != 0 {
		t.Errorf("motor writes: got %x, want a single 0", writes)
	}
	if len(h.slept) != 12 {
		t.Errorf("sleeps: got %d, want 12", len(h.slept))
	}
}

func TestCycleEndsSessionAtCheckpoint(t *testing.T) {
	h := newHarness(t)
	h.edge(logic.ChannelOnOff)
	h.inputs.SetMode(logic.ModeToddler)
	h.edge(logic.ChannelRotate)

	h.c.ramp.Start(logic.SpeedStop, logic.SpeedStop)
	if err := h.c.cycle(context.Background()); err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if h.c.Snapshot().Rotating {
		t.Error("session should end at the first checkpoint")
	}
	if last, _ := h.motor.Last(); last != 0 {
		t.Errorf("motor: got %#x, want 0", last)
	}
}

func TestWalkLightFollowsRotation(t *testing.T) {
	h := newHarness(t)

	h.c.TickWalkLight()
	if got := logic.WalkLightOf(lastLED(t, h.leds)); got != 0 {
		t.Errorf("idle walk light: got %06b, want 0", got)
	}

	h.edge(logic.ChannelOnOff)
	h.inputs.SetMode(logic.ModeKids)
	h.edge(logic.ChannelRotate)

	for round := 0; round < 2; round++ {
		for i, want := range logic.WalkPattern {
			h.c.TickWalkLight()
			reg := lastLED(t, h.leds)
			if got := logic.WalkLightOf(reg); got != want {
				t.Errorf("round %d frame %d: got %06b, want %06b", round, i, got, want)
			}
			if reg&0b11 != logic.LEDOn {
				t.Errorf("round %d frame %d: indicator clobbered: %08b", round, i, reg)
			}
		}
	}
}

func TestEmergencyWhileRotating(t *testing.T) {
	h := newHarness(t)
	h.edge(logic.ChannelOnOff)
	h.inputs.SetMode(logic.ModeAction)
	h.edge(logic.ChannelRotate)
	if err := h.c.cycle(context.Background()); err != nil {
		t.Fatalf("cycle: %v", err)
	}

	if !h.edge(logic.ChannelEmergency) {
		t.Fatal("emergency should be accepted")
	}

	// Four blinks, then the process is asked to exit.
	h.slept = nil
	h.sleepErr = func(n int) error {
		if n >= 3 {
			return context.Canceled
		}
		return nil
	}
	ledsBefore := len(h.leds.Writes())

	err := h.c.Drive(context.Background())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Drive: got %v, want context.Canceled", err)
	}

	if last, _ := h.motor.Last(); last != 0 {
		t.Errorf("motor: got %#x, want 0", last)
	}
	select {
	case <-h.c.Halted():
	default:
		t.Error("Halted should be closed")
	}
	if !h.inputs.IsDisabled() {
		t.Error("inputs should be disabled")
	}
	if h.disp.Current() != display.Halt {
		t.Errorf("display: got %q, want %q", h.disp.Current(), display.Halt)
	}
	if h.c.sched.Pending() != 0 {
		t.Errorf("pending: got %d, want 0", h.c.sched.Pending())
	}
	for i, d := range h.slept {
		if d != DefaultConfig().BlinkPeriod {
			t.Errorf("sleep %d: got %v, want blink period", i, d)
		}
	}

	writes := h.leds.Writes()[ledsBefore:]
	blinks := writes[len(writes)-4:]
	for i, w := range blinks {
		if logic.WalkLightOf(w) != 0 {
			t.Errorf("blink %d: walk light should be off, got %08b", i, w)
		}
		if i > 0 && w&0b11 == blinks[i-1]&0b11 {
			t.Errorf("blink %d: indicator did not alternate: %02b", i, w&0b11)
		}
	}

	// Frozen: no edge, tick or dispatch changes anything.
	before := h.c.Snapshot()
	for ch := logic.Channel(0); ch < logic.NumChannels; ch++ {
		if h.edge(ch) {
			t.Errorf("%v edge accepted after emergency", ch)
		}
	}
	h.advance(time.Hour)
	h.c.TickWalkLight()
	if after := h.c.Snapshot(); after != before {
		t.Errorf("state changed after emergency: %+v -> %+v", before, after)
	}
}

func TestEmergencyFromOff(t *testing.T) {
	h := newHarness(t)
	h.edge(logic.ChannelEmergency)

	if h.c.Snapshot().Phase() != logic.PhaseEmergency {
		t.Errorf("phase: got %s, want EMERGENCY", h.c.Snapshot().Phase())
	}
	// Before the main loop notices, the state machine is already frozen.
	if h.edge(logic.ChannelOnOff) {
		t.Error("toggle should be ignored once emergency is latched")
	}
	if h.edge(logic.ChannelEmergency) {
		t.Error("second emergency edge should report no transition")
	}
	assertEvents(t, h.drain(), logic.EventEmergency)
}

func TestRunTimersStopsOnHalt(t *testing.T) {
	h := newHarness(t)
	h.edge(logic.ChannelOnOff)
	h.inputs.SetMode(logic.ModeAction)
	h.edge(logic.ChannelRotate)

	ramp := make(chan time.Time)
	walk := make(chan time.Time)
	dispatch := make(chan time.Time)
	done := make(chan error, 1)
	go func() {
		done <- h.c.RunTimers(context.Background(), ramp, walk, dispatch)
	}()

	ramp <- time.Time{}
	walk <- time.Time{}
	dispatch <- time.Time{}

	h.c.haltOnce.Do(func() { close(h.c.halted) })

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("RunTimers: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("RunTimers did not stop after halt")
	}

	if got := h.c.Snapshot().Current; got != logic.SpeedSuperSlow-1 {
		t.Errorf("current after one ramp tick: got %d, want %d", got, logic.SpeedSuperSlow-1)
	}
}

func TestEventsDroppedWhenQueueFull(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < eventQueueSize+3; i++ {
		h.c.emit(logic.EventOn, h.now)
	}
	if got := h.c.Dropped(); got != 3 {
		t.Errorf("dropped: got %d, want 3", got)
	}
}
