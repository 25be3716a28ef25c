// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package history

import (
	"context"
	"sort"
	"sync"
)

// MemoryBackend implements Backend using a slice (thread-safe).
type MemoryBackend struct {
	mu      sync.RWMutex
	entries []Entry
	nextID  int64
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (m *MemoryBackend) Insert(_ context.Context, e Entry) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	e.ID = m.nextID
	m.entries = append(m.entries, e)
	return e.ID, nil
}

func (m *MemoryBackend) LastForMedia(_ context.Context, mediaID string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var last *Entry
	for i := range m.entries {
		e := m.entries[i]
		if e.MediaID != mediaID {
			continue
		}
		if last == nil || newer(e, *last) {
			clone := e
			last = &clone
		}
	}
	return last, nil
}

func (m *MemoryBackend) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		return []Entry{}, nil
	}
	all, _ := m.All(ctx)
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *MemoryBackend) All(_ context.Context) ([]Entry, error) {
	m.mu.RLock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	m.mu.RUnlock()
	sortRecentFirst(out)
	return out, nil
}

func (m *MemoryBackend) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

func (m *MemoryBackend) TrimTo(_ context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) <= keep {
		return 0, nil
	}
	sortRecentFirst(m.entries)
	removed := int64(len(m.entries) - keep)
	m.entries = append([]Entry(nil), m.entries[:keep]...)
	return removed, nil
}

func (m *MemoryBackend) Clear(_ context.Context) error {
	m.mu.Lock()
	m.entries = nil
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Close() error {
	return nil
}

func newer(a, b Entry) bool {
	if a.Timestamp != b.Timestamp {
		return a.Timestamp > b.Timestamp
	}
	return a.ID > b.ID
}

func sortRecentFirst(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool { return newer(entries[i], entries[j]) })
}
