// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package history

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
)

// ErrUnknownBackend is returned by NewBackend for unsupported backend names.
var ErrUnknownBackend = errors.New("unknown history backend")

// Backend is the row-level storage used by Log. Implementations need not be
// safe against check-then-insert races; Log serializes writers.
// Listing methods return entries most recent first (timestamp, then id).
type Backend interface {
	Insert(ctx context.Context, e Entry) (int64, error)
	LastForMedia(ctx context.Context, mediaID string) (*Entry, error)
	Recent(ctx context.Context, limit int) ([]Entry, error)
	All(ctx context.Context) ([]Entry, error)
	Count(ctx context.Context) (int, error)
	// TrimTo deletes the oldest entries so that at most keep remain and
	// returns the number of deleted rows.
	TrimTo(ctx context.Context, keep int) (int64, error)
	Clear(ctx context.Context) error
	Close() error
}

// NewBackend creates a history backend by name. An empty name selects sqlite;
// sqlite with an empty dir falls back to memory.
func NewBackend(kind, dir string) (Backend, error) {
	if kind == "" {
		kind = "sqlite"
	}

	switch kind {
	case "sqlite":
		if dir == "" {
			return NewMemoryBackend(), nil
		}
		return NewSqliteBackend(filepath.Join(dir, "history.sqlite"))
	case "memory":
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("%w: %s (supported: sqlite, memory)", ErrUnknownBackend, kind)
	}
}
