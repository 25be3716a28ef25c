// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package debounce provides a keyed, cancellable delayed-task primitive:
// scheduling a task for a key cancels any not-yet-fired task for that key.
package debounce

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Scheduler runs at most one pending task per key.
type Scheduler struct {
	clock clockwork.Clock

	mu      sync.Mutex
	pending map[string]*task
	seq     uint64
	stopped bool

	running sync.WaitGroup
}

type task struct {
	timer clockwork.Timer
	id    uint64
}

// New creates a Scheduler. A nil clock uses the real clock.
func New(clock clockwork.Clock) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		clock:   clock,
		pending: make(map[string]*task),
	}
}

// Schedule arranges for fn to run after delay, replacing any pending task for key.
// It returns false if the scheduler has been stopped.
func (s *Scheduler) Schedule(key string, delay time.Duration, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	if prev, ok := s.pending[key]; ok {
		prev.timer.Stop()
		delete(s.pending, key)
	}

	s.seq++
	id := s.seq
	t := &task{id: id}
	t.timer = s.clock.AfterFunc(delay, func() { s.fire(key, id, fn) })
	s.pending[key] = t
	return true
}

func (s *Scheduler) fire(key string, id uint64, fn func()) {
	s.mu.Lock()
	cur, ok := s.pending[key]
	// A replaced or cancelled task may still fire if Stop lost the race.
	if !ok || cur.id != id || s.stopped {
		s.mu.Unlock()
		return
	}
	delete(s.pending, key)
	s.running.Add(1)
	s.mu.Unlock()

	defer s.running.Done()
	fn()
}

// Cancel drops the pending task for key. It reports whether a task was pending.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.pending[key]
	if !ok {
		return false
	}
	t.timer.Stop()
	delete(s.pending, key)
	return true
}

// Pending reports whether a task is scheduled for key.
func (s *Scheduler) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[key]
	return ok
}

// Stop cancels every pending task, rejects new ones and waits for tasks
// that already started to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for key, t := range s.pending {
		t.timer.Stop()
		delete(s.pending, key)
	}
	s.mu.Unlock()

	s.running.Wait()
}
