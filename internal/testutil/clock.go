package testutil

import (
	"sort"
	"sync"
	"time"
)

// ManualScheduler is a virtual-time scheduler for tests.
//
// Calls fire only when Advance moves the clock past their due time, in due
// order (ties in scheduling order). It satisfies engine.Scheduler.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
// Callbacks run without the mutex held.
type ManualScheduler struct {
	mu      sync.Mutex
	now     time.Duration
	nextID  int
	pending []*manualCall
}

type manualCall struct {
	id      int
	due     time.Duration
	fn      func()
	stopped bool
}

// NewManualScheduler creates a scheduler at virtual time 0.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// AfterFunc schedules fn at now+d.
func (s *ManualScheduler) AfterFunc(d time.Duration, fn func()) func() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	c := &manualCall{id: s.nextID, due: s.now + d, fn: fn}
	s.pending = append(s.pending, c)

	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, p := range s.pending {
			if p == c {
				s.pending = append(s.pending[:i], s.pending[i+1:]...)
				c.stopped = true
				return true
			}
		}
		return false
	}
}

// Advance moves virtual time forward by d and fires every call now due.
// Returns the number of calls fired.
func (s *ManualScheduler) Advance(d time.Duration) int {
	s.mu.Lock()
	s.now += d
	var due []*manualCall
	kept := s.pending[:0]
	for _, c := range s.pending {
		if c.due <= s.now {
			due = append(due, c)
		} else {
			kept = append(kept, c)
		}
	}
	s.pending = kept
	s.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool {
		if due[i].due != due[j].due {
			return due[i].due < due[j].due
		}
		return due[i].id < due[j].id
	})
	for _, c := range due {
		c.fn()
	}
	return len(due)
}

// Now returns the virtual time.
func (s *ManualScheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Pending returns the number of calls not yet fired or stopped.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
