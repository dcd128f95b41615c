package gpio

import (
	"errors"
	"testing"
	"time"

	"github.com/sweeney/crossing-rig/internal/logic"
)

func TestFakeInputsFire(t *testing.T) {
	f := NewFakeInputs()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	// No receiver yet
	if f.Fire(logic.ChannelOnOff, now) {
		t.Error("edge should be dropped before Watch")
	}

	var got []logic.Channel
	f.Watch(func(ch logic.Channel, at time.Time) {
		if !at.Equal(now) {
			t.Errorf("at: got %v, want %v", at, now)
		}
		got = append(got, ch)
	})

	f.Fire(logic.ChannelOnOff, now)
	f.Fire(logic.ChannelRotate, now)
	f.Fire(logic.ChannelEmergency, now)

	want := []logic.Channel{logic.ChannelOnOff, logic.ChannelRotate, logic.ChannelEmergency}
	if len(got) != len(want) {
		t.Fatalf("got %d edges, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("edge %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestFakeInputsDisable(t *testing.T) {
	f := NewFakeInputs()
	calls := 0
	f.Watch(func(logic.Channel, time.Time) { calls++ })

	if err := f.Disable(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Fire(logic.ChannelEmergency, time.Now()) {
		t.Error("edge should be dropped after Disable")
	}
	if calls != 0 {
		t.Errorf("receiver called %d times after Disable", calls)
	}
	if f.Dropped != 1 {
		t.Errorf("Dropped: got %d, want 1", f.Dropped)
	}
}

func TestFakeInputsModeSwitch(t *testing.T) {
	f := NewFakeInputs()

	pos, err := f.ModeSwitch()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos != [logic.NumModes]bool{} {
		t.Errorf("initial positions: got %v, want none", pos)
	}

	f.SetMode(logic.ModeKids)
	pos, _ = f.ModeSwitch()
	if pos != [logic.NumModes]bool{false, true, false} {
		t.Errorf("kids: got %v", pos)
	}

	f.SetMode(-1)
	pos, _ = f.ModeSwitch()
	if pos != [logic.NumModes]bool{} {
		t.Errorf("cleared: got %v", pos)
	}

	f.ReadError = errors.New("simulated error")
	if _, err := f.ModeSwitch(); err == nil {
		t.Error("expected error to be returned")
	}
}

func TestFakeInputsClose(t *testing.T) {
	f := NewFakeInputs()
	if f.Closed {
		t.Error("should not be closed initially")
	}
	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("should be closed after Close()")
	}
}

func TestFakePortRecordsWrites(t *testing.T) {
	p := NewFakePort()

	if _, err := p.Last(); err == nil {
		t.Error("expected error before any write")
	}

	for _, v := range logic.Commutation {
		if err := p.Write(v); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	last, err := p.Last()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if last != 0x9 {
		t.Errorf("last: got %#x, want 0x9", last)
	}
	if got := p.Writes(); len(got) != 4 {
		t.Errorf("writes: got %d, want 4", len(got))
	}

	p.Reset()
	if got := p.Writes(); len(got) != 0 {
		t.Errorf("writes after reset: got %d, want 0", len(got))
	}
}

func TestFakePortError(t *testing.T) {
	p := NewFakePort()
	p.WriteError = errors.New("simulated error")
	if err := p.Write(1); err == nil {
		t.Error("expected error to be returned")
	}
}

func TestSimPortKeepsLatest(t *testing.T) {
	p := NewSimPort("leds", false)
	if p.Value() != 0 {
		t.Errorf("initial value: got %d, want 0", p.Value())
	}
	for _, v := range []uint8{0x3, 0x6, 0xC} {
		if err := p.Write(v); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if p.Value() != 0xC {
		t.Errorf("value: got %#x, want 0xc", p.Value())
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
