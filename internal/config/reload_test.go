// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestConfigHolder_Reload(t *testing.T) {
	path := writeConfig(t, "history:\n  maxEntries: 10\n")
	loader := NewLoader(path, "")
	initial, err := loader.Load()
	require.NoError(t, err)

	h := NewConfigHolder(initial, loader)
	ch := make(chan AppConfig, 1)
	h.RegisterListener(ch)

	require.NoError(t, os.WriteFile(path, []byte("history:\n  maxEntries: 20\n"), 0o600))
	require.NoError(t, h.Reload(context.Background()))
	assert.Equal(t, 20, h.Get().History.MaxEntries)
	assert.Equal(t, 20, (<-ch).History.MaxEntries)

	// An invalid file keeps the previous configuration.
	require.NoError(t, os.WriteFile(path, []byte("history:\n  maxEntries: -1\n"), 0o600))
	assert.Error(t, h.Reload(context.Background()))
	assert.Equal(t, 20, h.Get().History.MaxEntries)
	select {
	case <-ch:
		t.Fatal("listener notified for failed reload")
	default:
	}
}

func TestConfigHolder_FullListenerDoesNotBlock(t *testing.T) {
	path := writeConfig(t, "")
	loader := NewLoader(path, "")
	h := NewConfigHolder(Defaults(), loader)
	ch := make(chan AppConfig) // unbuffered, never read
	h.RegisterListener(ch)
	require.NoError(t, h.Reload(context.Background()))
}

func TestConfigHolder_WatcherReloadsOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	path := writeConfig(t, "playback:\n  saveDebounce: 1s\n")
	loader := NewLoader(path, "")
	initial, err := loader.Load()
	require.NoError(t, err)

	h := NewConfigHolder(initial, loader)
	ch := make(chan AppConfig, 4)
	h.RegisterListener(ch)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, h.StartWatcher(ctx))

	require.NoError(t, os.WriteFile(path, []byte("playback:\n  saveDebounce: 2s\n"), 0o600))

	select {
	case cfg := <-ch:
		assert.Equal(t, 2*time.Second, cfg.Playback.SaveDebounce)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after file change")
	}

	cancel()
	h.Stop()
}

func TestConfigHolder_WatcherDisabledWithoutFile(t *testing.T) {
	h := NewConfigHolder(Defaults(), NewLoader("", ""))
	require.NoError(t, h.StartWatcher(context.Background()))
	h.Stop()
}
