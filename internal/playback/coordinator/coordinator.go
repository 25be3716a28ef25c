// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package coordinator owns the player handle. It restores and persists the
// playback queue, exposes observable playback state and serializes every
// player call onto a single goroutine.
package coordinator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ManuGH/playstate/internal/debounce"
	xglog "github.com/ManuGH/playstate/internal/log"
	"github.com/ManuGH/playstate/internal/metrics"
	"github.com/ManuGH/playstate/internal/playback/model"
	"github.com/ManuGH/playstate/internal/playback/player"
	"github.com/ManuGH/playstate/internal/playback/state"
	"github.com/ManuGH/playstate/internal/queue"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

var (
	// ErrNotInitialized is returned by every operation but Initialize before
	// Initialize succeeds.
	ErrNotInitialized = errors.New("coordinator not initialized")
	// ErrReleased is returned by every operation after Release.
	ErrReleased = errors.New("coordinator released")
	// ErrAlreadyInitialized is returned by a second Initialize.
	ErrAlreadyInitialized = errors.New("coordinator already initialized")
)

// Lifecycle is the coordinator state. Values are exported as the
// playstate_coordinator_state gauge.
type Lifecycle int

const (
	Uninitialized Lifecycle = iota
	Initialized
	Released
)

func (l Lifecycle) String() string {
	switch l {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case Released:
		return "released"
	default:
		return "unknown"
	}
}

const (
	saveKey = "save"

	DefaultSaveDebounce = 1000 * time.Millisecond
	DefaultPositionPoll = time.Second
)

// QueueStore is the persistence surface the coordinator writes through.
// queue.Persister satisfies it.
type QueueStore interface {
	SaveAsync(s queue.State)
	Load(ctx context.Context) *queue.State
}

// Resolver looks up playable metadata for a media id.
type Resolver interface {
	Get(id string) (model.MediaItem, bool)
	Resolve(id string) model.MediaItem
}

// Config tunes a Coordinator. Zero values select the defaults.
type Config struct {
	SaveDebounce time.Duration
	PositionPoll time.Duration
	Clock        clockwork.Clock
}

// Coordinator drives one player. All player calls run on the main loop
// goroutine started by Initialize; exported methods post work to it and
// wait for completion.
type Coordinator struct {
	store     QueueStore
	resolver  Resolver
	clock     clockwork.Clock
	poll      time.Duration
	debounceD atomic.Int64
	saves     *debounce.Scheduler
	logger    zerolog.Logger

	// Observable playback state, updated on the main loop.
	IsPlaying        *state.Flow[bool]
	CurrentPosition  *state.Flow[int64]
	BufferedPosition *state.Flow[int64]
	// CurrentMediaItem holds the zero MediaItem when nothing is loaded.
	CurrentMediaItem *state.Flow[model.MediaItem]

	mu        sync.Mutex
	lifecycle Lifecycle

	// Owned by the main loop.
	player         player.Player
	removeListener func()

	unregisterDevices func()
	tasks             chan func()
	quit              chan struct{}
	loopDone          chan struct{}
	pollStop          chan struct{}
	pollDone          chan struct{}
}

// New creates an uninitialized coordinator.
func New(store QueueStore, resolver Resolver, cfg Config) *Coordinator {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.PositionPoll <= 0 {
		cfg.PositionPoll = DefaultPositionPoll
	}
	c := &Coordinator{
		store:            store,
		resolver:         resolver,
		clock:            cfg.Clock,
		poll:             cfg.PositionPoll,
		saves:            debounce.New(cfg.Clock),
		logger:           xglog.WithComponent("playback.coordinator"),
		IsPlaying:        state.NewFlow(false),
		CurrentPosition:  state.NewFlow[int64](0),
		BufferedPosition: state.NewFlow[int64](0),
		CurrentMediaItem: state.NewFlow(model.MediaItem{}),
		tasks:            make(chan func()),
		quit:             make(chan struct{}),
		loopDone:         make(chan struct{}),
		pollStop:         make(chan struct{}),
		pollDone:         make(chan struct{}),
	}
	c.SetSaveDebounce(cfg.SaveDebounce)
	metrics.SetCoordinatorState(int(Uninitialized))
	return c
}

// SetSaveDebounce changes the quiet period before a queue save. d <= 0
// restores the default. It applies to saves scheduled afterwards.
func (c *Coordinator) SetSaveDebounce(d time.Duration) {
	if d <= 0 {
		d = DefaultSaveDebounce
	}
	c.debounceD.Store(int64(d))
}

func (c *Coordinator) saveDebounce() time.Duration {
	return time.Duration(c.debounceD.Load())
}

// Lifecycle returns the current lifecycle state.
func (c *Coordinator) Lifecycle() Lifecycle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lifecycle
}

func (c *Coordinator) setLifecycle(l Lifecycle) {
	old := c.lifecycle
	c.lifecycle = l
	metrics.SetCoordinatorState(int(l))
	c.logger.Info().
		Str(xglog.FieldEvent, "coordinator.lifecycle").
		Str(xglog.FieldOldState, old.String()).
		Str(xglog.FieldNewState, l.String()).
		Msg("coordinator state changed")
}

// Initialize attaches to p, starts the main loop and the position poll and
// registers device-removal handling. devices may be nil.
func (c *Coordinator) Initialize(p player.Player, devices player.DeviceWatcher) error {
	c.mu.Lock()
	switch c.lifecycle {
	case Initialized:
		c.mu.Unlock()
		return ErrAlreadyInitialized
	case Released:
		c.mu.Unlock()
		return ErrReleased
	}
	c.player = p
	go c.loop()
	go c.pollLoop()
	if devices != nil {
		c.unregisterDevices = devices.OnDevicesRemoved(c.onDevicesRemoved)
	}
	c.setLifecycle(Initialized)
	c.mu.Unlock()

	return c.run(func() {
		c.removeListener = p.AddListener(&listener{c: c})
		c.sync()
	})
}

func (c *Coordinator) loop() {
	defer close(c.loopDone)
	for {
		select {
		case fn := <-c.tasks:
			fn()
		case <-c.quit:
			if c.removeListener != nil {
				c.removeListener()
			}
			c.player.Release()
			return
		}
	}
}

// run executes fn on the main loop and waits for it to return.
func (c *Coordinator) run(fn func()) error {
	c.mu.Lock()
	l := c.lifecycle
	c.mu.Unlock()
	switch l {
	case Uninitialized:
		return ErrNotInitialized
	case Released:
		return ErrReleased
	}

	done := make(chan struct{})
	task := func() {
		defer close(done)
		fn()
	}
	select {
	case c.tasks <- task:
	case <-c.quit:
		return ErrReleased
	}
	<-done
	return nil
}

func (c *Coordinator) pollLoop() {
	defer close(c.pollDone)
	ticker := c.clock.NewTicker(c.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.Chan():
			_ = c.run(c.refreshPosition)
		case <-c.pollStop:
			return
		}
	}
}

// refreshPosition updates the position flows while playing.
func (c *Coordinator) refreshPosition() {
	if !c.player.IsPlaying() {
		return
	}
	c.CurrentPosition.Set(c.player.CurrentPosition())
	c.BufferedPosition.Set(c.player.BufferedPosition())
}

// sync copies the full player state into the flows.
func (c *Coordinator) sync() {
	c.IsPlaying.Set(c.player.IsPlaying())
	c.CurrentPosition.Set(c.player.CurrentPosition())
	c.BufferedPosition.Set(c.player.BufferedPosition())
	c.CurrentMediaItem.Set(c.currentItem())
}

func (c *Coordinator) currentItem() model.MediaItem {
	n := c.player.MediaItemCount()
	i := c.player.CurrentMediaItemIndex()
	if n == 0 || i < 0 || i >= n {
		return model.MediaItem{}
	}
	return c.player.MediaItemAt(i)
}

func (c *Coordinator) onDevicesRemoved() {
	_ = c.run(func() {
		if c.player.IsPlaying() {
			c.logger.Info().Str(xglog.FieldEvent, "coordinator.device_removed").Msg("audio device removed, pausing")
			c.player.Pause()
		}
	})
}

// scheduleSave (re)arms the debounced queue save. Main loop only.
func (c *Coordinator) scheduleSave() {
	c.saves.Schedule(saveKey, c.saveDebounce(), func() {
		_ = c.run(c.saveNow)
	})
}

// saveNow snapshots the player queue and hands it to the store. Main loop only.
func (c *Coordinator) saveNow() {
	c.saves.Cancel(saveKey)
	n := c.player.MediaItemCount()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		ids = append(ids, c.player.MediaItemAt(i).ID)
	}
	c.store.SaveAsync(queue.State{
		MediaIDs:       ids,
		CurrentIndex:   max(c.player.CurrentMediaItemIndex(), 0),
		PositionMs:     max(c.player.CurrentPosition(), 0),
		ShuffleEnabled: c.player.ShuffleModeEnabled(),
		RepeatMode:     c.player.RepeatMode(),
	}.Normalized())
}

// RestoreQueue loads the persisted queue and, if it has items, hands them to
// the player and prepares playback. It reports whether a queue was restored.
func (c *Coordinator) RestoreQueue(ctx context.Context) (bool, error) {
	if err := c.run(func() {}); err != nil {
		return false, err
	}
	saved := c.store.Load(ctx)
	if saved.Empty() {
		c.logger.Debug().Str(xglog.FieldEvent, "coordinator.restore_empty").Msg("no saved queue")
		return false, nil
	}

	items := make([]model.MediaItem, len(saved.MediaIDs))
	for i, id := range saved.MediaIDs {
		items[i] = c.resolver.Resolve(id)
	}
	err := c.run(func() {
		c.player.SetMediaItems(items, saved.CurrentIndex, saved.PositionMs)
		c.player.SetShuffleModeEnabled(saved.ShuffleEnabled)
		if saved.RepeatMode.Valid() {
			c.player.SetRepeatMode(saved.RepeatMode)
		}
		c.player.Prepare()
		c.sync()
	})
	if err != nil {
		return false, err
	}
	c.logger.Info().
		Str(xglog.FieldEvent, "coordinator.restored").
		Int(xglog.FieldItems, len(items)).
		Int(xglog.FieldIndex, saved.CurrentIndex).
		Int64(xglog.FieldPositionMs, saved.PositionMs).
		Msg("restored playback queue")
	return true, nil
}

// SaveQueueState writes the current queue through the store immediately,
// superseding any pending debounced save.
func (c *Coordinator) SaveQueueState() error {
	return c.run(c.saveNow)
}

// Exec runs fn with the player on the main loop. fn must not call back into
// the coordinator.
func (c *Coordinator) Exec(fn func(p player.Player)) error {
	return c.run(func() {
		fn(c.player)
	})
}

// Release stops the poll loop and any pending debounced save, stops the main
// loop and releases the player. Waiting for the main loop is bounded by ctx.
func (c *Coordinator) Release(ctx context.Context) error {
	c.mu.Lock()
	prev := c.lifecycle
	if prev == Released {
		c.mu.Unlock()
		return ErrReleased
	}
	c.setLifecycle(Released)
	c.mu.Unlock()

	defer func() {
		c.IsPlaying.Close()
		c.CurrentPosition.Close()
		c.BufferedPosition.Close()
		c.CurrentMediaItem.Close()
	}()

	if prev == Uninitialized {
		c.saves.Stop()
		return nil
	}

	if c.unregisterDevices != nil {
		c.unregisterDevices()
	}
	close(c.pollStop)
	<-c.pollDone
	c.saves.Stop()
	close(c.quit)

	select {
	case <-c.loopDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
