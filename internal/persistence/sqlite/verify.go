// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// Mode selects how thorough an integrity check is.
type Mode string

const (
	ModeQuick Mode = "quick" // PRAGMA quick_check
	ModeFull  Mode = "full"  // PRAGMA integrity_check, also validates indices
)

// ParseMode accepts "quick" or "full".
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeQuick, ModeFull:
		return m, nil
	default:
		return "", fmt.Errorf("unknown verify mode %q (want quick or full)", s)
	}
}

func (m Mode) pragma() string {
	if m == ModeFull {
		return "PRAGMA integrity_check"
	}
	return "PRAGMA quick_check"
}

// Report is the result of checking one database file.
type Report struct {
	Path string
	Mode Mode
	// Missing is set when the file does not exist yet; nothing was checked.
	Missing  bool
	Problems []string
}

// Healthy reports whether the check ran and found nothing.
func (r Report) Healthy() bool {
	return !r.Missing && len(r.Problems) == 0
}

// Verify opens path read-only and runs the integrity pragma for mode.
// Corruption is reported in Report.Problems; err is only set when the check
// could not run.
func Verify(ctx context.Context, path string, mode Mode) (Report, error) {
	rep := Report{Path: path, Mode: mode}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		rep.Missing = true
		return rep, nil
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(2000)", path))
	if err != nil {
		return rep, fmt.Errorf("open %s: %w", path, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, mode.pragma())
	if err != nil {
		return rep, fmt.Errorf("%s check on %s: %w", mode, path, err)
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return rep, fmt.Errorf("scan %s check row: %w", mode, err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return rep, err
	}

	switch {
	case len(lines) == 0:
		rep.Problems = []string{"integrity check returned no rows"}
	case len(lines) == 1 && strings.EqualFold(lines[0], "ok"):
	default:
		rep.Problems = lines
	}
	return rep, nil
}
