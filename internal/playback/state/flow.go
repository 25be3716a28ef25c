// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package state provides observable values for the playback coordinator.
package state

import (
	"context"
	"sync"
)

// Flow holds a current value and notifies subscribers when it changes.
// Subscribers see the latest value; intermediate values may be skipped if
// a subscriber falls behind.
type Flow[T comparable] struct {
	mu     sync.RWMutex
	value  T
	subs   map[int]chan T
	nextID int
	closed bool
	done   chan struct{}
}

// NewFlow creates a Flow holding initial.
func NewFlow[T comparable](initial T) *Flow[T] {
	return &Flow[T]{value: initial, subs: make(map[int]chan T), done: make(chan struct{})}
}

// Get returns the current value.
func (f *Flow[T]) Get() T {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.value
}

// Set stores v and notifies subscribers if it differs from the current
// value. It reports whether the value changed.
func (f *Flow[T]) Set(v T) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || f.value == v {
		return false
	}
	f.value = v
	for _, ch := range f.subs {
		offer(ch, v)
	}
	return true
}

// Subscribe returns a channel that receives the current value immediately
// and every later change. It is closed when ctx is done or the Flow is
// closed.
func (f *Flow[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, 1)

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		close(ch)
		return ch
	}
	id := f.nextID
	f.nextID++
	f.subs[id] = ch
	ch <- f.value
	f.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			f.unsubscribe(id)
		case <-f.done:
		}
	}()
	return ch
}

func (f *Flow[T]) unsubscribe(id int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.subs[id]; ok {
		delete(f.subs, id)
		close(ch)
	}
}

// Close closes all subscriber channels. Later Sets are ignored.
func (f *Flow[T]) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	close(f.done)
	for id, ch := range f.subs {
		delete(f.subs, id)
		close(ch)
	}
}

// offer replaces any unread value in ch with v.
func offer[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}
