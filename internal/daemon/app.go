// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package daemon assembles and runs playstated: storage, the virtual
// player, the playback coordinator, the history pipeline and the HTTP API.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ManuGH/playstate/internal/api"
	"github.com/ManuGH/playstate/internal/catalog"
	"github.com/ManuGH/playstate/internal/config"
	"github.com/ManuGH/playstate/internal/health"
	"github.com/ManuGH/playstate/internal/history"
	xglog "github.com/ManuGH/playstate/internal/log"
	"github.com/ManuGH/playstate/internal/playback/coordinator"
	"github.com/ManuGH/playstate/internal/playback/events"
	"github.com/ManuGH/playstate/internal/playback/player"
	"github.com/ManuGH/playstate/internal/player/virtual"
	"github.com/ManuGH/playstate/internal/queue"
	"github.com/ManuGH/playstate/internal/telemetry"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	serviceName     = "playstate"
	shutdownTimeout = 10 * time.Second
)

// Option customizes an App.
type Option func(*App)

// WithClock sets the clock driving the player tick, position poll,
// debounced saves and session timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(a *App) { a.clock = c }
}

// App owns every long-lived component of the daemon.
type App struct {
	holder *config.ConfigHolder
	cfg    config.AppConfig
	clock  clockwork.Clock
	logger zerolog.Logger

	catalog     *catalog.Catalog
	history     *history.Log
	recorder    *history.Recorder
	persister   *queue.Persister
	player      *virtual.Player
	devices     *virtual.Devices
	coordinator *coordinator.Coordinator
	handler     http.Handler

	hooks   hooks
	reloads chan config.AppConfig

	mu      sync.Mutex
	running bool
	addr    net.Addr
	ready   chan struct{}
}

// New builds the daemon from the holder's current configuration, restores
// the saved queue and leaves the player paused. On error every component
// built so far is closed again.
func New(ctx context.Context, holder *config.ConfigHolder, opts ...Option) (_ *App, err error) {
	a := &App{
		holder:  holder,
		cfg:     holder.Get(),
		clock:   clockwork.NewRealClock(),
		logger:  xglog.WithComponent("daemon"),
		reloads: make(chan config.AppConfig, 1),
		ready:   make(chan struct{}),
	}
	a.hooks.logger = a.logger
	for _, opt := range opts {
		opt(a)
	}
	defer func() {
		if err != nil {
			_ = a.hooks.run(context.WithoutCancel(ctx))
		}
	}()

	cfg := a.cfg
	provider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: cfg.Version,
		ExporterType:   cfg.Telemetry.ExporterType,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	a.hooks.register("telemetry", provider.Shutdown)

	if cfg.CatalogPath != "" {
		if a.catalog, err = catalog.Load(cfg.CatalogPath); err != nil {
			return nil, err
		}
	} else {
		a.catalog = catalog.Default()
	}

	backend, err := history.NewBackend(cfg.Storage.HistoryBackend, cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("history backend: %w", err)
	}
	a.history = history.NewLog(backend, historyLimits(cfg))
	a.hooks.register("history.log", a.history.Close)

	store, err := queue.NewStore(queue.Config{
		Backend: cfg.Storage.QueueBackend,
		Dir:     cfg.Storage.DataDir,
		Redis: queue.RedisConfig{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
			Key:      cfg.Storage.Redis.Key,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("queue store: %w", err)
	}
	a.hooks.register("queue.store", func(context.Context) error { return store.Close() })

	a.persister = queue.NewPersister(store, queueBackendName(cfg))
	a.hooks.register("queue.persister", a.persister.Close)

	a.player = virtual.New()
	a.devices = virtual.NewDevices()
	a.coordinator = coordinator.New(a.persister, a.catalog, coordinator.Config{
		SaveDebounce: cfg.Playback.SaveDebounce,
		PositionPoll: cfg.Playback.PositionPoll,
		Clock:        a.clock,
	})
	if err := a.coordinator.Initialize(a.player, a.devices); err != nil {
		return nil, fmt.Errorf("initialize coordinator: %w", err)
	}
	a.hooks.register("coordinator", a.coordinator.Release)
	a.hooks.register("queue.save", func(context.Context) error {
		err := a.coordinator.SaveQueueState()
		if errors.Is(err, coordinator.ErrReleased) {
			return nil
		}
		return err
	})

	a.recorder = history.NewRecorder(a.history, historyPolicy(cfg), history.WithClock(a.clock))
	a.hooks.register("history.recorder", func(context.Context) error {
		a.recorder.Close()
		return nil
	})
	classifier := events.New(a.recorder, a.player, a.catalog)
	if err := a.coordinator.Exec(func(p player.Player) { p.AddListener(classifier) }); err != nil {
		return nil, fmt.Errorf("attach classifier: %w", err)
	}

	restored, err := a.coordinator.RestoreQueue(ctx)
	if err != nil {
		return nil, fmt.Errorf("restore queue: %w", err)
	}

	checks := health.NewManager(cfg.Version)
	checks.RegisterChecker(health.NewWritableDirChecker("data_dir", cfg.Storage.DataDir))
	checks.RegisterChecker(health.CheckFunc("coordinator", func(context.Context) health.CheckResult {
		if l := a.coordinator.Lifecycle(); l != coordinator.Initialized {
			return health.CheckResult{Status: health.StatusUnhealthy, Message: l.String()}
		}
		return health.CheckResult{Status: health.StatusHealthy}
	}))

	a.handler = api.New(api.Config{
		RateLimit:      cfg.API.RateLimit,
		TracingService: tracingService(cfg),
		Health:         checks,
	}, a.history, a.coordinator, a.persister).Handler()

	holder.RegisterListener(a.reloads)

	a.logger.Info().
		Str(xglog.FieldEvent, "daemon.built").
		Str("history_backend", cfg.Storage.HistoryBackend).
		Str("queue_backend", queueBackendName(cfg)).
		Int("catalog_items", a.catalog.Len()).
		Bool("queue_restored", restored).
		Msg("daemon ready")
	return a, nil
}

// Handler returns the HTTP handler served by Run.
func (a *App) Handler() http.Handler { return a.handler }

// Coordinator exposes the playback coordinator.
func (a *App) Coordinator() *coordinator.Coordinator { return a.coordinator }

// History exposes the history log.
func (a *App) History() *history.Log { return a.history }

// Devices exposes the simulated output devices.
func (a *App) Devices() *virtual.Devices { return a.devices }

// Ready is closed once Run is listening.
func (a *App) Ready() <-chan struct{} { return a.ready }

// Addr returns the bound listen address, nil before Ready.
func (a *App) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.addr
}

// Run serves the API, ticks the player and applies config reloads until
// ctx is done or a component fails, then shuts the daemon down.
func (a *App) Run(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return ErrAlreadyRunning
	}
	a.running = true
	a.mu.Unlock()

	ln, err := net.Listen("tcp", a.cfg.API.ListenAddr)
	if err != nil {
		_ = a.Shutdown(context.WithoutCancel(ctx))
		return fmt.Errorf("listen %s: %w", a.cfg.API.ListenAddr, err)
	}
	srv := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	a.mu.Lock()
	a.addr = ln.Addr()
	a.mu.Unlock()
	close(a.ready)

	a.logger.Info().
		Str(xglog.FieldEvent, "daemon.listening").
		Str("addr", ln.Addr().String()).
		Msg("API server listening")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return a.tickLoop(gctx) })
	g.Go(func() error { return a.reloadLoop(gctx) })

	runErr := g.Wait()
	if runErr != nil {
		a.logger.Error().Err(runErr).Str(xglog.FieldEvent, "daemon.failed").Msg("daemon component failed, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return errors.Join(runErr, a.Shutdown(shutdownCtx))
}

// tickLoop advances the virtual player by one tick per tick interval.
func (a *App) tickLoop(ctx context.Context) error {
	tick := a.cfg.Playback.Tick
	ticker := a.clock.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			err := a.coordinator.Exec(func(player.Player) { a.player.Advance(tick) })
			if errors.Is(err, coordinator.ErrReleased) {
				return nil
			}
		}
	}
}

func (a *App) reloadLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case cfg := <-a.reloads:
			a.apply(cfg)
		}
	}
}

// apply pushes the hot-reloadable settings into the running components.
func (a *App) apply(cfg config.AppConfig) {
	a.recorder.SetPolicy(historyPolicy(cfg))
	a.history.SetLimits(historyLimits(cfg))
	a.coordinator.SetSaveDebounce(cfg.Playback.SaveDebounce)
	if level, err := zerolog.ParseLevel(cfg.Log.Level); err == nil && cfg.Log.Level != "" {
		zerolog.SetGlobalLevel(level)
	}
	a.logger.Info().Str(xglog.FieldEvent, "daemon.config_applied").Msg("applied reloaded configuration")
}

// Shutdown tears down in order: recorder flush, queue save, coordinator
// release, persister drain, queue store, history log, telemetry.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info().Str(xglog.FieldEvent, "daemon.shutdown").Msg("shutting down")
	return a.hooks.run(ctx)
}

func historyPolicy(cfg config.AppConfig) history.Policy {
	return history.Policy{
		MinPlayDuration:    cfg.History.MinPlayDuration,
		MinCompletionRatio: cfg.History.MinCompletionRatio,
	}
}

func historyLimits(cfg config.AppConfig) history.Limits {
	return history.Limits{
		DedupWindow: cfg.History.DedupWindow,
		MaxEntries:  cfg.History.MaxEntries,
	}
}

func queueBackendName(cfg config.AppConfig) string {
	if cfg.Storage.QueueBackend == "" {
		return "sqlite"
	}
	return cfg.Storage.QueueBackend
}

func tracingService(cfg config.AppConfig) string {
	if !cfg.Telemetry.Enabled {
		return ""
	}
	return serviceName
}
