// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/ManuGH/playstate/internal/config"
	"github.com/ManuGH/playstate/internal/playback/coordinator"
	"github.com/ManuGH/playstate/internal/playback/model"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func testConfig(dataDir, backend string) config.AppConfig {
	cfg := config.Defaults()
	cfg.Storage.DataDir = dataDir
	cfg.Storage.HistoryBackend = "sqlite"
	cfg.Storage.QueueBackend = backend
	cfg.API.ListenAddr = "127.0.0.1:0"
	if dataDir == "" {
		cfg.Storage.HistoryBackend = "memory"
	}
	return cfg
}

func newApp(t *testing.T, cfg config.AppConfig, clock clockwork.Clock) *App {
	t.Helper()
	holder := config.NewConfigHolder(cfg, config.NewLoader("", ""))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	app, err := New(ctx, holder, WithClock(clock))
	require.NoError(t, err)
	return app
}

func shutdown(t *testing.T, app *App) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, app.Shutdown(ctx))
}

func TestApp_RunServesAPI(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	app := newApp(t, testConfig("", "memory"), clockwork.NewFakeClock())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	select {
	case <-app.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("daemon not ready")
	}
	base := "http://" + app.Addr().String()
	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}, Timeout: 5 * time.Second}

	resp, err := client.Get(base + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Post(base+"/api/queue/items", "application/json",
		strings.NewReader(`{"mediaIds":["video_1","audio_1"]}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = client.Get(base + "/api/queue")
	require.NoError(t, err)
	var snap coordinator.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	_ = resp.Body.Close()
	require.Len(t, snap.Items, 2)
	assert.Equal(t, "video_1", snap.Items[0].ID)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return")
	}
	client.CloseIdleConnections()

	assert.ErrorIs(t, app.Run(context.Background()), ErrAlreadyRunning)
}

func TestApp_TickRecordsHistory(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	clock := clockwork.NewFakeClock()
	cfg := testConfig("", "memory")
	app := newApp(t, cfg, clock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	<-app.Ready()

	// Position poll and player tick.
	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 2))

	c := app.Coordinator()
	require.NoError(t, c.AddItems([]string{"video_1"}))
	require.NoError(t, c.Play())

	for i := 1; i <= 20; i++ {
		clock.Advance(cfg.Playback.Tick)
		want := int64(i) * cfg.Playback.Tick.Milliseconds()
		require.Eventually(t, func() bool {
			snap, err := c.Queue()
			return err == nil && snap.PositionMs >= want
		}, 2*time.Second, 5*time.Millisecond)
	}

	// Clearing the queue closes the 20s session as skipped.
	require.NoError(t, c.ClearQueue())
	require.Eventually(t, func() bool {
		n, err := app.History().Count(context.Background())
		return err == nil && n == 1
	}, 2*time.Second, 5*time.Millisecond)

	entries, err := app.History().GetRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "video_1", entries[0].MediaID)
	assert.Equal(t, model.CompletionSkipped, entries[0].CompletionReason)
	assert.GreaterOrEqual(t, entries[0].PlayDurationMs, int64(20_000))

	cancel()
	require.NoError(t, <-done)
}

func TestApp_RestoresQueueAfterRestart(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := testConfig(t.TempDir(), "sqlite")

	first := newApp(t, cfg, clockwork.NewFakeClock())
	c := first.Coordinator()
	require.NoError(t, c.AddItems([]string{"video_1", "video_2"}))
	require.NoError(t, c.SeekTo(1, 5_000))
	shutdown(t, first)

	second := newApp(t, cfg, clockwork.NewFakeClock())
	defer shutdown(t, second)

	snap, err := second.Coordinator().Queue()
	require.NoError(t, err)
	require.Len(t, snap.Items, 2)
	assert.Equal(t, "video_2", snap.Items[1].ID)
	assert.Equal(t, 1, snap.CurrentIndex)
	assert.Equal(t, int64(5_000), snap.PositionMs)
	assert.False(t, snap.IsPlaying)
}

func TestApp_ApplyReloadedConfig(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := testConfig("", "memory")
	app := newApp(t, cfg, clockwork.NewFakeClock())
	defer shutdown(t, app)

	next := cfg
	next.History.MinPlayDuration = 5 * time.Second
	next.History.MaxEntries = 10
	app.apply(next)

	assert.Equal(t, 5*time.Second, app.recorder.Policy().MinPlayDuration)
	assert.Equal(t, 10, app.history.Limits().MaxEntries)
}

func TestNew_UnknownBackendCleansUp(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := testConfig(t.TempDir(), "carrier-pigeon")
	holder := config.NewConfigHolder(cfg, config.NewLoader("", ""))
	_, err := New(context.Background(), holder)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue store")
}
