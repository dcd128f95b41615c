package logic

import (
	"testing"
	"time"
)

func TestSelectMode(t *testing.T) {
	tests := []struct {
		positions [NumModes]bool
		want      Mode
		ok        bool
	}{
		{[NumModes]bool{true, false, false}, ModeToddler, true},
		{[NumModes]bool{false, true, false}, ModeKids, true},
		{[NumModes]bool{false, false, true}, ModeAction, true},
		// First matching position wins.
		{[NumModes]bool{false, true, true}, ModeKids, true},
		{[NumModes]bool{true, true, true}, ModeToddler, true},
		{[NumModes]bool{}, 0, false},
	}

	for _, tt := range tests {
		got, ok := SelectMode(tt.positions)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("SelectMode(%v): got (%v, %v), want (%v, %v)", tt.positions, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDefaultSchedulesValid(t *testing.T) {
	if err := DefaultSchedules().Validate(); err != nil {
		t.Errorf("default schedules: %v", err)
	}
}

func TestSchedulesValidateRejectsOutOfOrder(t *testing.T) {
	s := DefaultSchedules()
	s[ModeKids] = []ScheduledEvent{
		{After: time.Minute, Effect: SetTarget(SpeedMedium)},
		{After: 30 * time.Second, Effect: RequestStop()},
	}
	if err := s.Validate(); err == nil {
		t.Error("expected error for out-of-order schedule")
	}
}

func TestSchedulesValidateRejectsUnnamedSpeed(t *testing.T) {
	s := DefaultSchedules()
	s[ModeToddler] = []ScheduledEvent{{After: time.Second, Effect: SetTarget(Speed(33))}}
	if err := s.Validate(); err == nil {
		t.Error("expected error for unnamed speed")
	}
}

func TestEffectSpeed(t *testing.T) {
	if got := RequestStop().Speed(); got != SpeedStop {
		t.Errorf("stop effect speed: got %v, want stop", got)
	}
	if got := SetTarget(SpeedFast).Speed(); got != SpeedFast {
		t.Errorf("target effect speed: got %v, want fast", got)
	}
}

func TestParseSpeed(t *testing.T) {
	for _, name := range []string{"super-fast", "fast", "medium", "slow", "super-slow", "stop"} {
		s, err := ParseSpeed(name)
		if err != nil {
			t.Errorf("ParseSpeed(%q): %v", name, err)
			continue
		}
		if s.String() != name {
			t.Errorf("ParseSpeed(%q).String(): got %q", name, s.String())
		}
	}
	if _, err := ParseSpeed("ludicrous"); err == nil {
		t.Error("expected error for unknown speed")
	}
}

func TestSnapshotPhase(t *testing.T) {
	tests := []struct {
		snap Snapshot
		want Phase
	}{
		{Snapshot{}, PhaseOff},
		{Snapshot{On: true}, PhaseOn},
		{Snapshot{On: true, Rotating: true}, PhaseRotating},
		{Snapshot{On: true, Rotating: true, StopThenOff: true}, PhaseStoppingToOff},
		{Snapshot{On: true, Rotating: true, Emergency: true}, PhaseEmergency},
		{Snapshot{Emergency: true}, PhaseEmergency},
	}
	for _, tt := range tests {
		if got := tt.snap.Phase(); got != tt.want {
			t.Errorf("%+v: got %s, want %s", tt.snap, got, tt.want)
		}
	}
}
