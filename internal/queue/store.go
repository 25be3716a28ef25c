// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package queue

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
)

// ErrUnknownBackend is returned by NewStore for an unsupported backend.
var ErrUnknownBackend = errors.New("unknown queue backend")

// Store holds at most one queue snapshot. Save replaces it wholesale.
type Store interface {
	Save(ctx context.Context, s State) error
	// Load returns nil, nil when nothing is stored or the stored data is
	// malformed.
	Load(ctx context.Context) (*State, error)
	Clear(ctx context.Context) error
	Close() error
}

// Config selects and configures a queue backend.
type Config struct {
	// Backend is one of sqlite (default), badger, redis, file or memory.
	Backend string
	// Dir is the data directory for the on-disk backends. An empty Dir
	// selects the in-memory store for sqlite, badger and file.
	Dir   string
	Redis RedisConfig
}

// NewStore opens the configured queue backend.
func NewStore(cfg Config) (Store, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "sqlite":
		if cfg.Dir == "" {
			return NewMemoryStore(), nil
		}
		return NewSqliteStore(filepath.Join(cfg.Dir, "queue.sqlite"))
	case "badger":
		if cfg.Dir == "" {
			return NewMemoryStore(), nil
		}
		return NewBadgerStore(filepath.Join(cfg.Dir, "queue.badger"))
	case "file":
		if cfg.Dir == "" {
			return NewMemoryStore(), nil
		}
		return NewFileStore(filepath.Join(cfg.Dir, "queue.json")), nil
	case "redis":
		return NewRedisStore(cfg.Redis)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %s (supported: sqlite, badger, redis, file, memory)", ErrUnknownBackend, backend)
	}
}
