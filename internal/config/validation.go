// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"
)

// ValidationError describes one invalid setting.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got %v)", e.Field, e.Message, e.Value)
}

var (
	historyBackends = []string{"sqlite", "memory"}
	queueBackends   = []string{"sqlite", "badger", "redis", "file", "memory"}
	logFormats      = []string{"json", "console"}
	exporterTypes   = []string{"grpc", "http"}
)

// Validate checks a resolved configuration. All problems are reported
// together.
func Validate(cfg AppConfig) error {
	var errs []error
	add := func(field string, value any, msg string) {
		errs = append(errs, &ValidationError{Field: field, Value: value, Message: msg})
	}

	if _, err := zerolog.ParseLevel(cfg.Log.Level); err != nil || cfg.Log.Level == "" {
		add("log.level", cfg.Log.Level, "unknown log level")
	}
	if !slices.Contains(logFormats, cfg.Log.Format) {
		add("log.format", cfg.Log.Format, "must be json or console")
	}

	if !slices.Contains(historyBackends, cfg.Storage.HistoryBackend) {
		add("storage.historyBackend", cfg.Storage.HistoryBackend, "must be one of sqlite, memory")
	}
	if !slices.Contains(queueBackends, cfg.Storage.QueueBackend) {
		add("storage.queueBackend", cfg.Storage.QueueBackend, "must be one of sqlite, badger, redis, file, memory")
	}
	if cfg.Storage.QueueBackend == "redis" && cfg.Storage.Redis.Addr == "" {
		add("storage.redis.addr", cfg.Storage.Redis.Addr, "required for the redis queue backend")
	}
	if cfg.Storage.Redis.DB < 0 {
		add("storage.redis.db", cfg.Storage.Redis.DB, "must be >= 0")
	}

	if cfg.History.MinPlayDuration < 0 {
		add("history.minPlayDuration", cfg.History.MinPlayDuration, "must be >= 0")
	}
	if cfg.History.MinCompletionRatio < 0 || cfg.History.MinCompletionRatio > 1 {
		add("history.minCompletionRatio", cfg.History.MinCompletionRatio, "must be within [0, 1]")
	}
	if cfg.History.DedupWindow < 0 {
		add("history.dedupWindow", cfg.History.DedupWindow, "must be >= 0")
	}
	if cfg.History.MaxEntries <= 0 {
		add("history.maxEntries", cfg.History.MaxEntries, "must be > 0")
	}

	if cfg.Playback.SaveDebounce <= 0 {
		add("playback.saveDebounce", cfg.Playback.SaveDebounce, "must be > 0")
	}
	if cfg.Playback.PositionPoll <= 0 {
		add("playback.positionPoll", cfg.Playback.PositionPoll, "must be > 0")
	}
	if cfg.Playback.Tick <= 0 {
		add("playback.tick", cfg.Playback.Tick, "must be > 0")
	}

	if cfg.API.ListenAddr == "" {
		add("api.listenAddr", cfg.API.ListenAddr, "must not be empty")
	}
	if cfg.API.RateLimit < 0 {
		add("api.rateLimit", cfg.API.RateLimit, "must be >= 0")
	}

	if cfg.Telemetry.Enabled {
		if !slices.Contains(exporterTypes, cfg.Telemetry.ExporterType) {
			add("telemetry.exporterType", cfg.Telemetry.ExporterType, "must be grpc or http")
		}
		if cfg.Telemetry.Endpoint == "" {
			add("telemetry.endpoint", cfg.Telemetry.Endpoint, "required when tracing is enabled")
		}
	}
	if cfg.Telemetry.SamplingRate < 0 || cfg.Telemetry.SamplingRate > 1 {
		add("telemetry.samplingRate", cfg.Telemetry.SamplingRate, "must be within [0, 1]")
	}

	return errors.Join(errs...)
}
