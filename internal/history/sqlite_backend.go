// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ManuGH/playstate/internal/persistence/sqlite"
	"github.com/ManuGH/playstate/internal/playback/model"
)

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS playback_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	media_id TEXT NOT NULL,
	timestamp_ms INTEGER NOT NULL,
	play_duration_ms INTEGER NOT NULL,
	completion_reason TEXT NOT NULL,
	total_duration_ms INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_history_media ON playback_history(media_id);
CREATE INDEX IF NOT EXISTS idx_history_timestamp ON playback_history(timestamp_ms);
`

const selectColumns = `id, media_id, timestamp_ms, play_duration_ms, completion_reason, total_duration_ms`

// SqliteBackend stores history rows in an indexed SQLite table.
type SqliteBackend struct {
	DB *sql.DB
}

// NewSqliteBackend opens (and migrates) the history database at dbPath.
func NewSqliteBackend(dbPath string) (*SqliteBackend, error) {
	db, err := sqlite.Open(dbPath, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if err := sqlite.Migrate(db, schemaVersion, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history store: migration failed: %w", err)
	}
	return &SqliteBackend{DB: db}, nil
}

func (s *SqliteBackend) Insert(ctx context.Context, e Entry) (int64, error) {
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO playback_history (media_id, timestamp_ms, play_duration_ms, completion_reason, total_duration_ms)
		VALUES (?, ?, ?, ?, ?)`,
		e.MediaID, e.Timestamp, e.PlayDurationMs, string(e.CompletionReason), e.TotalDurationMs,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SqliteBackend) LastForMedia(ctx context.Context, mediaID string) (*Entry, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM playback_history WHERE media_id = ? ORDER BY timestamp_ms DESC, id DESC LIMIT 1`,
		mediaID,
	)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *SqliteBackend) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		return []Entry{}, nil
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM playback_history ORDER BY timestamp_ms DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (s *SqliteBackend) All(ctx context.Context) ([]Entry, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM playback_history ORDER BY timestamp_ms DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (s *SqliteBackend) Count(ctx context.Context) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM playback_history`).Scan(&n)
	return n, err
}

func (s *SqliteBackend) TrimTo(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM playback_history WHERE id NOT IN (
			SELECT id FROM playback_history ORDER BY timestamp_ms DESC, id DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SqliteBackend) Clear(ctx context.Context) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM playback_history`)
	return err
}

func (s *SqliteBackend) Close() error {
	return s.DB.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (Entry, error) {
	var (
		e      Entry
		reason string
	)
	if err := sc.Scan(&e.ID, &e.MediaID, &e.Timestamp, &e.PlayDurationMs, &reason, &e.TotalDurationMs); err != nil {
		return Entry{}, err
	}
	parsed, err := model.ParseCompletionReason(reason)
	if err != nil {
		// Unknown reasons come from foreign writers; keep the row readable.
		parsed = model.CompletionReason(reason)
	}
	e.CompletionReason = parsed
	return e, nil
}

func collect(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()
	out := make([]Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
