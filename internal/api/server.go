// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api serves the playstate HTTP read and control surface.
package api

import (
	"context"
	"net/http"

	"github.com/ManuGH/playstate/internal/api/middleware"
	"github.com/ManuGH/playstate/internal/health"
	"github.com/ManuGH/playstate/internal/history"
	"github.com/ManuGH/playstate/internal/playback/coordinator"
	"github.com/ManuGH/playstate/internal/playback/model"
	"github.com/ManuGH/playstate/internal/queue"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HistoryService is the history surface the API reads and clears.
type HistoryService interface {
	GetRecent(ctx context.Context, limit int) ([]history.Entry, error)
	Count(ctx context.Context) (int, error)
	ClearAll(ctx context.Context) error
	Subscribe(ctx context.Context) <-chan []history.Entry
}

// PlaybackService is the coordinator surface the API drives.
type PlaybackService interface {
	State() coordinator.PlaybackState
	Queue() (coordinator.Snapshot, error)
	Play() error
	Pause() error
	Next() error
	SeekTo(index int, positionMs int64) error
	SetShuffle(enabled bool) error
	SetRepeat(mode model.RepeatMode) error
	AddItems(ids []string) error
	AddNext(mediaID string) error
	MoveItem(from, to int) error
	RemoveItemAt(index int) error
	ClearQueue() error
}

// SavedQueue reads the persisted queue snapshot.
type SavedQueue interface {
	Load(ctx context.Context) *queue.State
}

// Config configures the HTTP surface.
type Config struct {
	// RateLimit is the per-client request budget per minute on /api.
	RateLimit int
	// TracingService enables otelhttp spans when non-empty.
	TracingService string
	// Health serves /healthz and /readyz. Nil registers no checks.
	Health *health.Manager
}

// Server wires handlers to their services.
type Server struct {
	cfg      Config
	history  HistoryService
	playback PlaybackService
	saved    SavedQueue
}

func New(cfg Config, h HistoryService, p PlaybackService, saved SavedQueue) *Server {
	if cfg.Health == nil {
		cfg.Health = health.NewManager("")
	}
	return &Server{cfg: cfg, history: h, playback: p, saved: saved}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if s.cfg.TracingService != "" {
		r.Use(middleware.OTelHTTP(s.cfg.TracingService))
	}
	r.Use(middleware.AccessLog)

	r.Get("/healthz", s.cfg.Health.ServeHealth)
	r.Get("/readyz", s.cfg.Health.ServeReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.PerMinute(s.cfg.RateLimit))

		r.Get("/history", s.handleHistory)
		r.Delete("/history", s.handleClearHistory)
		r.Get("/history/stream", s.handleHistoryStream)

		r.Get("/state", s.handleState)

		r.Get("/queue", s.handleQueue)
		r.Delete("/queue", s.handleClearQueue)
		r.Get("/queue/saved", s.handleSavedQueue)
		r.Post("/queue/items", s.handleAddItems)
		r.Post("/queue/next", s.handleAddNext)
		r.Post("/queue/move", s.handleMove)
		r.Delete("/queue/{index}", s.handleRemove)

		r.Post("/player/play", s.command(s.playback.Play))
		r.Post("/player/pause", s.command(s.playback.Pause))
		r.Post("/player/next", s.command(s.playback.Next))
		r.Post("/player/seek", s.handleSeek)
		r.Post("/player/shuffle", s.handleShuffle)
		r.Post("/player/repeat", s.handleRepeat)
	})
	return r
}
