// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package history

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	xglog "github.com/ManuGH/playstate/internal/log"
	"github.com/ManuGH/playstate/internal/metrics"
	"github.com/ManuGH/playstate/internal/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Outcome is the result of one Add call.
type Outcome int

const (
	OutcomeInserted Outcome = iota
	OutcomeDuplicate
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInserted:
		return metrics.OutcomeInserted
	case OutcomeDuplicate:
		return metrics.OutcomeDuplicate
	default:
		return metrics.OutcomeFailed
	}
}

// ErrClosed is returned by Log operations after Close.
var ErrClosed = errors.New("history log closed")

const (
	queueDepth   = 256
	writeTimeout = 10 * time.Second
)

// Log is the history store. Writers are serialized by one mutex so the
// dedup check and the insert are atomic with respect to each other.
type Log struct {
	backend Backend
	logger  zerolog.Logger
	tracer  trace.Tracer
	limits  atomic.Pointer[Limits]

	mu sync.Mutex // serializes Add and ClearAll

	sendMu    sync.RWMutex // orders AddEntry sends against Close
	writes    chan Entry
	closeOnce sync.Once
	closed    atomic.Bool
	done      chan struct{}
	workerWG  sync.WaitGroup

	subMu   sync.Mutex
	subs    map[int]chan []Entry
	nextSub int
}

// NewLog creates a Log over backend and starts its background writer.
func NewLog(backend Backend, limits Limits) *Log {
	l := &Log{
		backend: backend,
		logger:  xglog.WithComponent("history"),
		tracer:  telemetry.Tracer("playstate/history"),
		writes:  make(chan Entry, queueDepth),
		done:    make(chan struct{}),
		subs:    make(map[int]chan []Entry),
	}
	l.SetLimits(limits)

	l.workerWG.Add(1)
	go l.writeLoop()
	return l
}

// SetLimits replaces the dedup window and retention cap for subsequent writes.
func (l *Log) SetLimits(limits Limits) {
	if limits.MaxEntries <= 0 {
		limits.MaxEntries = DefaultLimits().MaxEntries
	}
	if limits.DedupWindow < 0 {
		limits.DedupWindow = 0
	}
	l.limits.Store(&limits)
}

// Limits returns the active limits.
func (l *Log) Limits() Limits {
	return *l.limits.Load()
}

// AddEntry queues e for insertion and returns immediately. Failures are
// logged and counted, never returned.
func (l *Log) AddEntry(e Entry) {
	l.sendMu.RLock()
	defer l.sendMu.RUnlock()
	if l.closed.Load() {
		l.logger.Warn().
			Str(xglog.FieldEvent, "history.add_after_close").
			Str(xglog.FieldMediaID, e.MediaID).
			Msg("history log closed, entry not recorded")
		metrics.RecordHistoryEntry(metrics.OutcomeFailed)
		return
	}
	select {
	case l.writes <- e:
	default:
		l.logger.Error().
			Str(xglog.FieldEvent, "history.queue_full").
			Str(xglog.FieldMediaID, e.MediaID).
			Int("depth", queueDepth).
			Msg("history write queue full, entry not recorded")
		metrics.RecordHistoryEntry(metrics.OutcomeFailed)
	}
}

func (l *Log) writeLoop() {
	defer l.workerWG.Done()
	for {
		select {
		case e := <-l.writes:
			l.writeOne(e)
		case <-l.done:
			// Drain what was queued before Close.
			for {
				select {
				case e := <-l.writes:
					l.writeOne(e)
				default:
					return
				}
			}
		}
	}
}

func (l *Log) writeOne(e Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	// Errors are already logged and counted inside Add.
	_, _ = l.add(ctx, e)
}

// Add runs the dedup-insert-trim protocol synchronously.
func (l *Log) Add(ctx context.Context, e Entry) (Outcome, error) {
	if l.closed.Load() {
		return OutcomeFailed, ErrClosed
	}
	return l.add(ctx, e)
}

func (l *Log) add(ctx context.Context, e Entry) (Outcome, error) {
	ctx, span := l.tracer.Start(ctx, "history.add",
		trace.WithAttributes(telemetry.HistoryAttributes(e.MediaID, string(e.CompletionReason))...))
	defer span.End()

	outcome, trimmed, trimErr, err := l.addLocked(ctx, e)
	span.SetAttributes(attribute.String(telemetry.HistoryOutcomeKey, outcome.String()))
	if trimErr != nil {
		span.RecordError(trimErr)
		l.logger.Warn().
			Err(trimErr).
			Str(xglog.FieldEvent, "history.trim_failed").
			Str(xglog.FieldMediaID, e.MediaID).
			Msg("retention trim failed, retrying on next insert")
		metrics.RecordHistoryTrimFailure()
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "history add failed")
		l.logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "history.add_failed").
			Str(xglog.FieldMediaID, e.MediaID).
			Msg("failed to record history entry")
		metrics.RecordHistoryEntry(metrics.OutcomeFailed)
		return OutcomeFailed, err
	}

	metrics.RecordHistoryEntry(outcome.String())
	metrics.RecordHistoryTrimmed(trimmed)

	ev := l.logger.Debug().
		Str(xglog.FieldEvent, "history.add").
		Str(xglog.FieldMediaID, e.MediaID).
		Str("outcome", outcome.String()).
		Int64(xglog.FieldPlayMs, e.PlayDurationMs).
		Str(xglog.FieldReason, string(e.CompletionReason))
	if trimmed > 0 {
		ev = ev.Int64("trimmed", trimmed)
	}
	ev.Msg("history entry processed")

	if outcome == OutcomeInserted {
		l.publish(ctx)
	}
	return outcome, nil
}

// addLocked reports retention failures in trimErr. Once the insert has
// committed the outcome is OutcomeInserted whatever happens to the trim.
func (l *Log) addLocked(ctx context.Context, e Entry) (_ Outcome, trimmed int64, trimErr, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	limits := l.Limits()

	last, err := l.backend.LastForMedia(ctx, e.MediaID)
	if err != nil {
		return OutcomeFailed, 0, nil, err
	}
	if last != nil && e.Timestamp-last.Timestamp < limits.DedupWindow.Milliseconds() {
		return OutcomeDuplicate, 0, nil, nil
	}

	e.ID = 0
	if _, err := l.backend.Insert(ctx, e); err != nil {
		return OutcomeFailed, 0, nil, err
	}

	count, err := l.backend.Count(ctx)
	if err != nil {
		return OutcomeInserted, 0, err, nil
	}
	if count > limits.MaxEntries {
		trimmed, err = l.backend.TrimTo(ctx, limits.MaxEntries)
		if err != nil {
			return OutcomeInserted, 0, err, nil
		}
	}
	return OutcomeInserted, trimmed, nil, nil
}

// GetRecent returns up to limit entries, most recent first.
func (l *Log) GetRecent(ctx context.Context, limit int) ([]Entry, error) {
	return l.backend.Recent(ctx, limit)
}

// All returns every stored entry, most recent first.
func (l *Log) All(ctx context.Context) ([]Entry, error) {
	return l.backend.All(ctx)
}

// Count returns the number of stored entries.
func (l *Log) Count(ctx context.Context) (int, error) {
	return l.backend.Count(ctx)
}

// ClearAll deletes every entry.
func (l *Log) ClearAll(ctx context.Context) error {
	l.mu.Lock()
	err := l.backend.Clear(ctx)
	l.mu.Unlock()
	if err != nil {
		l.logger.Error().Err(err).Str(xglog.FieldEvent, "history.clear_failed").Msg("failed to clear history")
		return err
	}
	l.logger.Info().Str(xglog.FieldEvent, "history.cleared").Msg("history cleared")
	l.publish(ctx)
	return nil
}

// Subscribe returns a channel that receives the full history, most recent
// first, immediately and after every change. Slow readers only see the
// latest snapshot. The channel is closed when ctx is done or the log closes.
func (l *Log) Subscribe(ctx context.Context) <-chan []Entry {
	ch := make(chan []Entry, 1)

	l.subMu.Lock()
	if l.closed.Load() {
		l.subMu.Unlock()
		close(ch)
		return ch
	}
	id := l.nextSub
	l.nextSub++
	l.subs[id] = ch
	l.subMu.Unlock()

	if snap, err := l.backend.All(ctx); err == nil {
		l.offer(id, snap)
	}

	go func() {
		select {
		case <-ctx.Done():
		case <-l.done:
		}
		l.subMu.Lock()
		if c, ok := l.subs[id]; ok {
			delete(l.subs, id)
			close(c)
		}
		l.subMu.Unlock()
	}()
	return ch
}

func (l *Log) publish(ctx context.Context) {
	l.subMu.Lock()
	n := len(l.subs)
	l.subMu.Unlock()
	if n == 0 {
		return
	}

	snap, err := l.backend.All(ctx)
	if err != nil {
		l.logger.Warn().Err(err).Str(xglog.FieldEvent, "history.publish_failed").Msg("failed to load history snapshot")
		return
	}

	l.subMu.Lock()
	ids := make([]int, 0, len(l.subs))
	for id := range l.subs {
		ids = append(ids, id)
	}
	l.subMu.Unlock()
	for _, id := range ids {
		l.offer(id, snap)
	}
}

// offer delivers snap to subscriber id, replacing an unread snapshot.
func (l *Log) offer(id int, snap []Entry) {
	l.subMu.Lock()
	defer l.subMu.Unlock()
	ch, ok := l.subs[id]
	if !ok {
		return
	}
	select {
	case <-ch:
	default:
	}
	ch <- snap
}

// Close stops accepting entries, drains queued writes (bounded by ctx),
// closes subscriptions and the backend.
func (l *Log) Close(ctx context.Context) error {
	var err error
	l.closeOnce.Do(func() {
		l.sendMu.Lock()
		l.closed.Store(true)
		close(l.done)
		l.sendMu.Unlock()

		drained := make(chan struct{})
		go func() {
			l.workerWG.Wait()
			close(drained)
		}()
		select {
		case <-drained:
		case <-ctx.Done():
			err = ctx.Err()
			l.logger.Warn().Err(err).Str(xglog.FieldEvent, "history.drain_timeout").Msg("history writes still pending at close")
			return
		}

		l.subMu.Lock()
		for id, ch := range l.subs {
			delete(l.subs, id)
			close(ch)
		}
		l.subMu.Unlock()

		err = l.backend.Close()
	})
	return err
}
