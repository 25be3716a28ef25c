// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "playstate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := NewLoader("", "v-test").Load()
	require.NoError(t, err)

	assert.Equal(t, "v-test", cfg.Version)
	assert.Equal(t, "sqlite", cfg.Storage.HistoryBackend)
	assert.Equal(t, "sqlite", cfg.Storage.QueueBackend)
	assert.True(t, filepath.IsAbs(cfg.Storage.DataDir))
	assert.Equal(t, 15*time.Second, cfg.History.MinPlayDuration)
	assert.Equal(t, 0.30, cfg.History.MinCompletionRatio)
	assert.Equal(t, 30*time.Second, cfg.History.DedupWindow)
	assert.Equal(t, 1000, cfg.History.MaxEntries)
	assert.Equal(t, time.Second, cfg.Playback.SaveDebounce)
	assert.Equal(t, time.Second, cfg.Playback.PositionPoll)
	assert.Equal(t, defaultListenAddr, cfg.API.ListenAddr)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
catalogPath: /etc/playstate/catalog.yaml
log:
  level: debug
  format: console
storage:
  dataDir: /var/lib/playstate
  queueBackend: redis
  redis:
    addr: localhost:6379
    db: 2
history:
  minPlayDuration: 20s
  minCompletionRatio: 0.5
  maxEntries: 50
playback:
  saveDebounce: 250ms
api:
  rateLimit: 0
`)
	cfg, err := NewLoader(path, "").Load()
	require.NoError(t, err)

	assert.Equal(t, "/etc/playstate/catalog.yaml", cfg.CatalogPath)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "/var/lib/playstate", cfg.Storage.DataDir)
	assert.Equal(t, "redis", cfg.Storage.QueueBackend)
	assert.Equal(t, 2, cfg.Storage.Redis.DB)
	assert.Equal(t, "playstate:queue", cfg.Storage.Redis.Key)
	assert.Equal(t, 20*time.Second, cfg.History.MinPlayDuration)
	assert.Equal(t, 0.5, cfg.History.MinCompletionRatio)
	assert.Equal(t, 30*time.Second, cfg.History.DedupWindow, "unset keys keep defaults")
	assert.Equal(t, 50, cfg.History.MaxEntries)
	assert.Equal(t, 250*time.Millisecond, cfg.Playback.SaveDebounce)
	assert.Equal(t, 0, cfg.API.RateLimit, "explicit zero disables rate limiting")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
history:
  minPlayDuration: 20s
storage:
  historyBackend: sqlite
`)
	t.Setenv(EnvMinPlayDuration, "5s")
	t.Setenv(EnvHistoryBackend, "memory")
	t.Setenv(EnvMaxEntries, "not-a-number")
	t.Setenv(EnvTracingEnabled, "yes")
	t.Setenv(EnvTracingExporter, "http")

	cfg, err := NewLoader(path, "").Load()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.History.MinPlayDuration)
	assert.Equal(t, "memory", cfg.Storage.HistoryBackend)
	assert.Equal(t, 1000, cfg.History.MaxEntries, "invalid env values fall back")
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "http", cfg.Telemetry.ExporterType)
}

func TestLoad_StrictFile(t *testing.T) {
	tests := map[string]string{
		"unknown key":      "history:\n  minPlay: 5s\n",
		"bad duration":     "history:\n  dedupWindow: soon\n",
		"multiple docs":    "log:\n  level: info\n---\nlog:\n  level: debug\n",
		"wrong value type": "history:\n  maxEntries: many\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewLoader(writeConfig(t, body), "").Load()
			assert.Error(t, err)
		})
	}

	_, err := NewLoader(filepath.Join(t.TempDir(), "conf.json"), "").Load()
	assert.ErrorContains(t, err, "only YAML")
}

func TestLoad_EmptyFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader(writeConfig(t, ""), "").Load()
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.History.MaxEntries)
}

func TestLoad_ValidationFailure(t *testing.T) {
	t.Setenv(EnvQueueBackend, "redis")
	_, err := NewLoader("", "").Load()
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "storage.redis.addr", verr.Field)
}

func TestAppConfig_StringMasksPassword(t *testing.T) {
	cfg := Defaults()
	cfg.Storage.Redis.Password = "hunter2"
	assert.NotContains(t, cfg.String(), "hunter2")
}
