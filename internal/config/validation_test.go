// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Defaults(t *testing.T) {
	require.NoError(t, Validate(Defaults()))
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		field  string
		mutate func(*AppConfig)
	}{
		{"log.level", func(c *AppConfig) { c.Log.Level = "loud" }},
		{"log.format", func(c *AppConfig) { c.Log.Format = "xml" }},
		{"storage.historyBackend", func(c *AppConfig) { c.Storage.HistoryBackend = "badger" }},
		{"storage.queueBackend", func(c *AppConfig) { c.Storage.QueueBackend = "etcd" }},
		{"storage.redis.db", func(c *AppConfig) { c.Storage.Redis.DB = -1 }},
		{"history.minPlayDuration", func(c *AppConfig) { c.History.MinPlayDuration = -1 }},
		{"history.minCompletionRatio", func(c *AppConfig) { c.History.MinCompletionRatio = 1.5 }},
		{"history.dedupWindow", func(c *AppConfig) { c.History.DedupWindow = -1 }},
		{"history.maxEntries", func(c *AppConfig) { c.History.MaxEntries = 0 }},
		{"playback.saveDebounce", func(c *AppConfig) { c.Playback.SaveDebounce = 0 }},
		{"playback.positionPoll", func(c *AppConfig) { c.Playback.PositionPoll = 0 }},
		{"playback.tick", func(c *AppConfig) { c.Playback.Tick = -1 }},
		{"api.listenAddr", func(c *AppConfig) { c.API.ListenAddr = "" }},
		{"api.rateLimit", func(c *AppConfig) { c.API.RateLimit = -5 }},
		{"telemetry.exporterType", func(c *AppConfig) { c.Telemetry.Enabled = true; c.Telemetry.ExporterType = "zipkin" }},
		{"telemetry.endpoint", func(c *AppConfig) { c.Telemetry.Enabled = true; c.Telemetry.Endpoint = "" }},
		{"telemetry.samplingRate", func(c *AppConfig) { c.Telemetry.SamplingRate = 2 }},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := Validate(cfg)
			require.Error(t, err)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.History.MaxEntries = 0
	cfg.Playback.Tick = 0
	err := Validate(cfg)
	require.Error(t, err)
	assert.ErrorContains(t, err, "history.maxEntries")
	assert.ErrorContains(t, err, "playback.tick")
}
