// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// AppConfig is the resolved daemon configuration.
type AppConfig struct {
	Version     string
	CatalogPath string

	Log       LogConfig
	Storage   StorageConfig
	History   HistoryConfig
	Playback  PlaybackConfig
	API       APIConfig
	Telemetry TelemetryConfig
}

type LogConfig struct {
	Level  string
	Format string
}

type StorageConfig struct {
	DataDir        string
	HistoryBackend string
	QueueBackend   string
	Redis          RedisConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

type HistoryConfig struct {
	MinPlayDuration    time.Duration
	MinCompletionRatio float64
	DedupWindow        time.Duration
	MaxEntries         int
}

type PlaybackConfig struct {
	SaveDebounce time.Duration
	PositionPoll time.Duration
	// Tick is the step the daemon advances the simulated player by.
	Tick time.Duration
}

type APIConfig struct {
	ListenAddr string
	// RateLimit is the per-client request budget per minute. 0 disables it.
	RateLimit int
}

type TelemetryConfig struct {
	Enabled      bool
	ExporterType string
	Endpoint     string
	SamplingRate float64
}

// FileConfig mirrors the YAML file layout. Pointer fields distinguish an
// explicit zero from an absent key.
type FileConfig struct {
	CatalogPath string `yaml:"catalogPath,omitempty"`

	Log struct {
		Level  string `yaml:"level,omitempty"`
		Format string `yaml:"format,omitempty"`
	} `yaml:"log,omitempty"`

	Storage struct {
		DataDir        string `yaml:"dataDir,omitempty"`
		HistoryBackend string `yaml:"historyBackend,omitempty"`
		QueueBackend   string `yaml:"queueBackend,omitempty"`
		Redis          struct {
			Addr     string `yaml:"addr,omitempty"`
			Password string `yaml:"password,omitempty"`
			DB       *int   `yaml:"db,omitempty"`
			Key      string `yaml:"key,omitempty"`
		} `yaml:"redis,omitempty"`
	} `yaml:"storage,omitempty"`

	History struct {
		MinPlayDuration    string   `yaml:"minPlayDuration,omitempty"`
		MinCompletionRatio *float64 `yaml:"minCompletionRatio,omitempty"`
		DedupWindow        string   `yaml:"dedupWindow,omitempty"`
		MaxEntries         *int     `yaml:"maxEntries,omitempty"`
	} `yaml:"history,omitempty"`

	Playback struct {
		SaveDebounce string `yaml:"saveDebounce,omitempty"`
		PositionPoll string `yaml:"positionPoll,omitempty"`
		Tick         string `yaml:"tick,omitempty"`
	} `yaml:"playback,omitempty"`

	API struct {
		ListenAddr string `yaml:"listenAddr,omitempty"`
		RateLimit  *int   `yaml:"rateLimit,omitempty"`
	} `yaml:"api,omitempty"`

	Telemetry struct {
		Enabled      *bool    `yaml:"enabled,omitempty"`
		ExporterType string   `yaml:"exporterType,omitempty"`
		Endpoint     string   `yaml:"endpoint,omitempty"`
		SamplingRate *float64 `yaml:"samplingRate,omitempty"`
	} `yaml:"telemetry,omitempty"`
}
