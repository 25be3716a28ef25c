// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	xglog "github.com/ManuGH/playstate/internal/log"
	"github.com/ManuGH/playstate/internal/metrics"
	"github.com/ManuGH/playstate/internal/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrPersisterClosed is returned by Persister.Save after Close.
var ErrPersisterClosed = errors.New("queue persister closed")

const saveTimeout = 10 * time.Second

// Persister gives a Store a fire-and-forget write surface. Pending saves
// coalesce to the latest snapshot and are written by one goroutine, so the
// store always ends up with the most recent state that was handed in.
type Persister struct {
	store   Store
	backend string
	logger  zerolog.Logger
	tracer  trace.Tracer

	mu      sync.Mutex
	pending *State
	closed  bool

	wake chan struct{}
	done chan struct{}
}

// NewPersister starts the background writer. backend labels logs and spans.
func NewPersister(store Store, backend string) *Persister {
	p := &Persister{
		store:   store,
		backend: backend,
		logger:  xglog.WithComponent("queue.persister").With().Str(xglog.FieldBackend, backend).Logger(),
		tracer:  telemetry.Tracer("playstate.queue"),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go p.loop()
	return p
}

// SaveAsync schedules s to be written. It never blocks on storage.
func (p *Persister) SaveAsync(s State) {
	n := s.Normalized()
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.logger.Warn().Str(xglog.FieldEvent, "queue.save_dropped").Msg("save after close dropped")
		metrics.RecordQueueSave(false)
		return
	}
	p.pending = &n
	select {
	case p.wake <- struct{}{}:
	default:
	}
	p.mu.Unlock()
}

// Save writes s synchronously, bypassing the pending slot.
func (p *Persister) Save(ctx context.Context, s State) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrPersisterClosed
	}
	return p.write(ctx, s.Normalized())
}

// Load reads the stored snapshot. Storage errors are logged, counted and
// reported as absence.
func (p *Persister) Load(ctx context.Context) *State {
	s, err := p.store.Load(ctx)
	switch {
	case err != nil:
		p.logger.Error().Err(err).Str(xglog.FieldEvent, "queue.load_failed").Msg("failed to load queue state")
		metrics.RecordQueueRestore("failure")
		return nil
	case s.Empty():
		metrics.RecordQueueRestore("empty")
		return nil
	default:
		metrics.RecordQueueRestore("restored")
		return s
	}
}

// Clear removes the stored snapshot and drops any pending save.
func (p *Persister) Clear(ctx context.Context) error {
	p.mu.Lock()
	p.pending = nil
	p.mu.Unlock()
	return p.store.Clear(ctx)
}

func (p *Persister) loop() {
	defer close(p.done)
	for range p.wake {
		p.drain()
	}
	p.drain()
}

func (p *Persister) drain() {
	for {
		p.mu.Lock()
		s := p.pending
		p.pending = nil
		p.mu.Unlock()
		if s == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		_ = p.write(ctx, *s)
		cancel()
	}
}

func (p *Persister) write(ctx context.Context, s State) error {
	ctx, span := p.tracer.Start(ctx, "queue.save",
		trace.WithAttributes(telemetry.QueueAttributes(p.backend, len(s.MediaIDs))...))
	defer span.End()

	if err := p.store.Save(ctx, s); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.Error().Err(err).
			Str(xglog.FieldEvent, "queue.save_failed").
			Int(xglog.FieldItems, len(s.MediaIDs)).
			Msg("failed to save queue state")
		metrics.RecordQueueSave(false)
		return err
	}
	metrics.RecordQueueSave(true)
	p.logger.Debug().
		Str(xglog.FieldEvent, "queue.saved").
		Int(xglog.FieldItems, len(s.MediaIDs)).
		Int(xglog.FieldIndex, s.CurrentIndex).
		Int64(xglog.FieldPositionMs, s.PositionMs).
		Msg("queue state saved")
	return nil
}

// Close stops accepting saves and waits for the pending one to be written,
// bounded by ctx. It does not close the underlying Store.
func (p *Persister) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.wake)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
