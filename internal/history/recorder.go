// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package history

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	xglog "github.com/ManuGH/playstate/internal/log"
	"github.com/ManuGH/playstate/internal/metrics"
	"github.com/ManuGH/playstate/internal/playback/model"
	"github.com/ManuGH/playstate/internal/telemetry"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Sink accepts finished entries. It must not block; Log satisfies it.
type Sink interface {
	AddEntry(e Entry)
}

// session is the in-memory record of one item's current viewing.
type session struct {
	id        string
	mediaID   string
	startedAt time.Time
	playMs    int64
	totalMs   int64
}

// Recorder tracks the current viewing session and emits an Entry to its
// sink when a session that qualifies as watched is closed.
type Recorder struct {
	sink   Sink
	clock  clockwork.Clock
	logger zerolog.Logger
	policy atomic.Pointer[Policy]

	mu      sync.Mutex
	current *session
	closed  bool
}

// RecorderOption customizes a Recorder.
type RecorderOption func(*Recorder)

// WithClock sets the clock used for session start times.
func WithClock(c clockwork.Clock) RecorderOption {
	return func(r *Recorder) { r.clock = c }
}

// NewRecorder creates a Recorder that hands entries to sink.
func NewRecorder(sink Sink, policy Policy, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		sink:   sink,
		clock:  clockwork.NewRealClock(),
		logger: xglog.WithComponent("history.recorder"),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.SetPolicy(policy)
	return r
}

// SetPolicy swaps the recording thresholds. Safe for concurrent use.
func (r *Recorder) SetPolicy(p Policy) {
	r.policy.Store(&p)
}

// Policy returns the active thresholds.
func (r *Recorder) Policy() Policy {
	return *r.policy.Load()
}

// Start opens a tracking session for mediaID. durationMs <= 0 means unknown.
// A session that is still open is replaced without being recorded.
func (r *Recorder) Start(mediaID string, durationMs int64) {
	if durationMs < 0 {
		durationMs = 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if r.current != nil {
		r.logger.Debug().
			Str(xglog.FieldEvent, "recorder.session_replaced").
			Str(xglog.FieldMediaID, r.current.mediaID).
			Msg("open session replaced without close")
	}
	r.current = &session{
		id:        uuid.NewString(),
		mediaID:   mediaID,
		startedAt: r.clock.Now(),
		totalMs:   durationMs,
	}
	r.logger.Debug().
		Str(xglog.FieldEvent, "recorder.session_started").
		Str(xglog.FieldSessionID, r.current.id).
		Str(xglog.FieldMediaID, mediaID).
		Int64(xglog.FieldDurationMs, durationMs).
		Msg("started tracking")
}

// UpdateStats applies a play-time statistic. Play time never moves
// backwards within a session.
func (r *Recorder) UpdateStats(totalPlayTimeMs int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return
	}
	if totalPlayTimeMs > r.current.playMs {
		r.current.playMs = totalPlayTimeMs
	}
}

// UpdateDuration applies a discovered duration while the duration is unknown.
func (r *Recorder) UpdateDuration(durationMs int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil || r.current.totalMs > 0 || durationMs <= 0 {
		return
	}
	r.current.totalMs = durationMs
}

// End closes the current session with reason. If the session qualifies, the
// entry is handed to the sink and returned with true. The session is
// cleared either way; End without an open session is a no-op.
func (r *Recorder) End(reason model.CompletionReason) (Entry, bool) {
	r.mu.Lock()
	s := r.current
	r.current = nil
	r.mu.Unlock()
	return r.finish(s, reason)
}

func (r *Recorder) finish(s *session, reason model.CompletionReason) (Entry, bool) {
	if s == nil {
		return Entry{}, false
	}

	record := r.Policy().ShouldRecord(s.playMs, s.totalMs, reason)
	metrics.RecordSessionClosed(string(reason), record)
	telemetry.RecordSessionClosed(context.Background(), string(reason), record)
	if !record {
		r.logger.Debug().
			Str(xglog.FieldEvent, "recorder.not_recorded").
			Str(xglog.FieldSessionID, s.id).
			Str(xglog.FieldMediaID, s.mediaID).
			Int64(xglog.FieldPlayMs, s.playMs).
			Int64(xglog.FieldDurationMs, s.totalMs).
			Str(xglog.FieldReason, string(reason)).
			Msg("session below watch threshold")
		return Entry{}, false
	}

	e := Entry{
		MediaID:          s.mediaID,
		Timestamp:        s.startedAt.UnixMilli(),
		PlayDurationMs:   s.playMs,
		CompletionReason: reason,
		TotalDurationMs:  s.totalMs,
	}
	r.logger.Debug().
		Str(xglog.FieldEvent, "recorder.recorded").
		Str(xglog.FieldSessionID, s.id).
		Str(xglog.FieldMediaID, s.mediaID).
		Int64(xglog.FieldPlayMs, s.playMs).
		Str(xglog.FieldReason, string(reason)).
		Msg("recording history entry")
	r.sink.AddEntry(e)
	return e, true
}

// Active returns the media id of the open session, if any.
func (r *Recorder) Active() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return "", false
	}
	return r.current.mediaID, true
}

// Flush closes the open session as skipped, e.g. on teardown while playing.
func (r *Recorder) Flush() (Entry, bool) {
	r.logger.Debug().Str(xglog.FieldEvent, "recorder.flush").Msg("force recording current item")
	return r.End(model.CompletionSkipped)
}

// Close flushes the open session and ignores further sessions.
func (r *Recorder) Close() {
	r.mu.Lock()
	s := r.current
	r.current = nil
	r.closed = true
	r.mu.Unlock()
	r.finish(s, model.CompletionSkipped)
}
