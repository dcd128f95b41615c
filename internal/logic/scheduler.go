package logic

import (
	"sort"
	"sync"
	"time"
)

// pendingEvent is an armed event with its absolute fire time.
type pendingEvent struct {
	at     time.Time
	effect Effect
}

// Scheduler arms a mode's events for one rotation session and dispatches
// them as they fall due. At most one session is armed at a time.
type Scheduler struct {
	mu        sync.Mutex
	schedules Schedules
	pending   []pendingEvent // sorted by at, ties in authored order
}

// NewScheduler creates a scheduler for the given per-mode schedules.
func NewScheduler(schedules Schedules) *Scheduler {
	return &Scheduler{schedules: schedules}
}

// Arm schedules each of mode's events at start+delay. Anything still pending
// from a previous session is discarded first.
func (s *Scheduler) Arm(mode Mode, start time.Time) {
	if mode < 0 || int(mode) >= NumModes {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	events := s.schedules[mode]
	s.pending = make([]pendingEvent, 0, len(events))
	for _, e := range events {
		s.pending = append(s.pending, pendingEvent{at: start.Add(e.After), effect: e.Effect})
	}
	sort.SliceStable(s.pending, func(i, j int) bool {
		return s.pending[i].at.Before(s.pending[j].at)
	})
}

// CancelAll discards every pending event. Safe to call with nothing armed.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
}

// Fire calls apply, in order, for every event due at or before now and
// removes it. apply runs under the scheduler lock, so a concurrent CancelAll
// either precedes the whole batch or follows it. It returns the number of
// events fired.
func (s *Scheduler) Fire(now time.Time, apply func(Effect)) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for n < len(s.pending) && !s.pending[n].at.After(now) {
		apply(s.pending[n].effect)
		n++
	}
	s.pending = s.pending[n:]
	return n
}

// Pending returns the number of armed events.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Next returns the fire time of the earliest armed event.
func (s *Scheduler) Next() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return time.Time{}, false
	}
	return s.pending[0].at, true
}
