// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package history records watch history: it decides which tracking sessions
// qualify as watched, and persists the resulting entries with deduplication
// and retention trimming.
package history

import (
	"time"

	"github.com/ManuGH/playstate/internal/playback/model"
)

// Entry is one persisted history record. It is immutable once created.
type Entry struct {
	// ID is assigned by the backend on insert; zero before that.
	ID               int64                  `json:"id,omitempty"`
	MediaID          string                 `json:"mediaId"`
	Timestamp        int64                  `json:"timestamp"` // epoch ms of session start
	PlayDurationMs   int64                  `json:"playDurationMs"`
	CompletionReason model.CompletionReason `json:"completionReason"`
	TotalDurationMs  int64                  `json:"totalDurationMs"`
}

// Policy holds the thresholds that decide whether a session is recorded.
type Policy struct {
	MinPlayDuration    time.Duration
	MinCompletionRatio float64
}

// DefaultPolicy returns the standard watch thresholds: 15 seconds or 30%.
func DefaultPolicy() Policy {
	return Policy{
		MinPlayDuration:    15 * time.Second,
		MinCompletionRatio: 0.30,
	}
}

// ShouldRecord reports whether a session of playMs out of totalMs ending with
// reason counts as watched. A completed item is always recorded; otherwise the
// minimum play time or, for items of known length, the completion ratio decides.
func (p Policy) ShouldRecord(playMs, totalMs int64, reason model.CompletionReason) bool {
	switch {
	case reason == model.CompletionCompleted:
		return true
	case playMs >= p.MinPlayDuration.Milliseconds():
		return true
	case totalMs > 0 && float64(playMs)/float64(totalMs) >= p.MinCompletionRatio:
		return true
	default:
		return false
	}
}

// Limits bound the persisted log.
type Limits struct {
	// DedupWindow discards a new entry whose timestamp is less than this
	// far after the latest stored entry for the same media id.
	DedupWindow time.Duration
	// MaxEntries is the retention cap; older entries are trimmed past it.
	MaxEntries int
}

// DefaultLimits returns a 30 second dedup window and 1000 retained entries.
func DefaultLimits() Limits {
	return Limits{
		DedupWindow: 30 * time.Second,
		MaxEntries:  1000,
	}
}
