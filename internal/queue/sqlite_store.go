// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ManuGH/playstate/internal/persistence/sqlite"
	"github.com/ManuGH/playstate/internal/playback/model"
)

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS queue_state (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	media_ids TEXT NOT NULL,
	current_index INTEGER NOT NULL,
	position_ms INTEGER NOT NULL,
	shuffle_enabled INTEGER NOT NULL,
	repeat_mode TEXT NOT NULL
);
`

// SqliteStore keeps the snapshot in a single-row table.
type SqliteStore struct {
	DB *sql.DB
}

// NewSqliteStore opens (and migrates) the queue database at dbPath.
func NewSqliteStore(dbPath string) (*SqliteStore, error) {
	db, err := sqlite.Open(dbPath, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if err := sqlite.Migrate(db, schemaVersion, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("queue store: migration failed: %w", err)
	}
	return &SqliteStore{DB: db}, nil
}

func (s *SqliteStore) Save(ctx context.Context, st State) error {
	n := st.Normalized()
	ids, err := json.Marshal(n.MediaIDs)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO queue_state (id, media_ids, current_index, position_ms, shuffle_enabled, repeat_mode)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			media_ids = excluded.media_ids,
			current_index = excluded.current_index,
			position_ms = excluded.position_ms,
			shuffle_enabled = excluded.shuffle_enabled,
			repeat_mode = excluded.repeat_mode
	`, string(ids), n.CurrentIndex, n.PositionMs, n.ShuffleEnabled, string(n.RepeatMode))
	return err
}

func (s *SqliteStore) Load(ctx context.Context) (*State, error) {
	var (
		ids     string
		st      State
		shuffle int
		repeat  string
	)
	err := s.DB.QueryRowContext(ctx,
		`SELECT media_ids, current_index, position_ms, shuffle_enabled, repeat_mode FROM queue_state WHERE id = 1`,
	).Scan(&ids, &st.CurrentIndex, &st.PositionMs, &shuffle, &repeat)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(ids), &st.MediaIDs); err != nil {
		return nil, nil
	}
	st.ShuffleEnabled = shuffle != 0
	st.RepeatMode = model.RepeatMode(repeat)
	if !canonicalize(&st) {
		return nil, nil
	}
	return &st, nil
}

func (s *SqliteStore) Clear(ctx context.Context) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM queue_state`)
	return err
}

func (s *SqliteStore) Close() error {
	return s.DB.Close()
}
