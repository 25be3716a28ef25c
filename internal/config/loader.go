// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables. Every key overrides the matching file setting.
const (
	EnvCatalogPath      = "PLAYSTATE_CATALOG"
	EnvLogLevel         = "PLAYSTATE_LOG_LEVEL"
	EnvLogFormat        = "PLAYSTATE_LOG_FORMAT"
	EnvDataDir          = "PLAYSTATE_DATA_DIR"
	EnvHistoryBackend   = "PLAYSTATE_HISTORY_BACKEND"
	EnvQueueBackend     = "PLAYSTATE_QUEUE_BACKEND"
	EnvRedisAddr        = "PLAYSTATE_REDIS_ADDR"
	EnvRedisPassword    = "PLAYSTATE_REDIS_PASSWORD"
	EnvRedisDB          = "PLAYSTATE_REDIS_DB"
	EnvRedisKey         = "PLAYSTATE_REDIS_KEY"
	EnvMinPlayDuration  = "PLAYSTATE_HISTORY_MIN_PLAY"
	EnvMinRatio         = "PLAYSTATE_HISTORY_MIN_RATIO"
	EnvDedupWindow      = "PLAYSTATE_HISTORY_DEDUP_WINDOW"
	EnvMaxEntries       = "PLAYSTATE_HISTORY_MAX_ENTRIES"
	EnvSaveDebounce     = "PLAYSTATE_SAVE_DEBOUNCE"
	EnvPositionPoll     = "PLAYSTATE_POSITION_POLL"
	EnvTick             = "PLAYSTATE_TICK"
	EnvListenAddr       = "PLAYSTATE_LISTEN_ADDR"
	EnvRateLimit        = "PLAYSTATE_RATE_LIMIT"
	EnvTracingEnabled   = "PLAYSTATE_TRACING_ENABLED"
	EnvTracingExporter  = "PLAYSTATE_TRACING_EXPORTER"
	EnvTracingEndpoint  = "PLAYSTATE_TRACING_ENDPOINT"
	EnvTracingSampling  = "PLAYSTATE_TRACING_SAMPLING_RATE"
	defaultDataDir      = "data"
	defaultListenAddr   = ":8088"
	defaultRateLimit    = 120
	defaultOTLPEndpoint = "localhost:4317"
)

// Defaults returns the configuration used when neither file nor
// environment set a value.
func Defaults() AppConfig {
	return AppConfig{
		Log: LogConfig{Level: "info", Format: "json"},
		Storage: StorageConfig{
			DataDir:        defaultDataDir,
			HistoryBackend: "sqlite",
			QueueBackend:   "sqlite",
			Redis:          RedisConfig{Key: "playstate:queue"},
		},
		History: HistoryConfig{
			MinPlayDuration:    15 * time.Second,
			MinCompletionRatio: 0.30,
			DedupWindow:        30 * time.Second,
			MaxEntries:         1000,
		},
		Playback: PlaybackConfig{
			SaveDebounce: time.Second,
			PositionPoll: time.Second,
			Tick:         time.Second,
		},
		API: APIConfig{ListenAddr: defaultListenAddr, RateLimit: defaultRateLimit},
		Telemetry: TelemetryConfig{
			ExporterType: "grpc",
			Endpoint:     defaultOTLPEndpoint,
			SamplingRate: 1.0,
		},
	}
}

// Loader handles configuration loading with precedence ENV > file > defaults.
type Loader struct {
	configPath string
	version    string
}

// NewLoader creates a loader. An empty configPath skips the file stage.
func NewLoader(configPath, version string) *Loader {
	return &Loader{configPath: configPath, version: version}
}

// Path returns the config file path, empty for ENV-only configuration.
func (l *Loader) Path() string { return l.configPath }

// Load resolves and validates the configuration.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	mergeEnvConfig(&cfg)

	if cfg.Storage.DataDir != "" {
		if abs, err := filepath.Abs(cfg.Storage.DataDir); err == nil {
			cfg.Storage.DataDir = abs
		}
	}
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile parses a YAML file strictly. Unknown fields are an error.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return &fileCfg, nil
}

func mergeFileConfig(dst *AppConfig, src *FileConfig) error {
	setString(&dst.CatalogPath, src.CatalogPath)
	setString(&dst.Log.Level, src.Log.Level)
	setString(&dst.Log.Format, src.Log.Format)

	setString(&dst.Storage.DataDir, src.Storage.DataDir)
	setString(&dst.Storage.HistoryBackend, src.Storage.HistoryBackend)
	setString(&dst.Storage.QueueBackend, src.Storage.QueueBackend)
	setString(&dst.Storage.Redis.Addr, src.Storage.Redis.Addr)
	setString(&dst.Storage.Redis.Password, src.Storage.Redis.Password)
	setString(&dst.Storage.Redis.Key, src.Storage.Redis.Key)
	if src.Storage.Redis.DB != nil {
		dst.Storage.Redis.DB = *src.Storage.Redis.DB
	}

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"history.minPlayDuration", src.History.MinPlayDuration, &dst.History.MinPlayDuration},
		{"history.dedupWindow", src.History.DedupWindow, &dst.History.DedupWindow},
		{"playback.saveDebounce", src.Playback.SaveDebounce, &dst.Playback.SaveDebounce},
		{"playback.positionPoll", src.Playback.PositionPoll, &dst.Playback.PositionPoll},
		{"playback.tick", src.Playback.Tick, &dst.Playback.Tick},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: invalid duration %q: %w", d.name, d.raw, err)
		}
		*d.dst = v
	}
	if src.History.MinCompletionRatio != nil {
		dst.History.MinCompletionRatio = *src.History.MinCompletionRatio
	}
	if src.History.MaxEntries != nil {
		dst.History.MaxEntries = *src.History.MaxEntries
	}

	setString(&dst.API.ListenAddr, src.API.ListenAddr)
	if src.API.RateLimit != nil {
		dst.API.RateLimit = *src.API.RateLimit
	}

	if src.Telemetry.Enabled != nil {
		dst.Telemetry.Enabled = *src.Telemetry.Enabled
	}
	setString(&dst.Telemetry.ExporterType, src.Telemetry.ExporterType)
	setString(&dst.Telemetry.Endpoint, src.Telemetry.Endpoint)
	if src.Telemetry.SamplingRate != nil {
		dst.Telemetry.SamplingRate = *src.Telemetry.SamplingRate
	}
	return nil
}

func mergeEnvConfig(cfg *AppConfig) {
	cfg.CatalogPath = ParseString(EnvCatalogPath, cfg.CatalogPath)
	cfg.Log.Level = ParseString(EnvLogLevel, cfg.Log.Level)
	cfg.Log.Format = ParseString(EnvLogFormat, cfg.Log.Format)

	cfg.Storage.DataDir = ParseString(EnvDataDir, cfg.Storage.DataDir)
	cfg.Storage.HistoryBackend = ParseString(EnvHistoryBackend, cfg.Storage.HistoryBackend)
	cfg.Storage.QueueBackend = ParseString(EnvQueueBackend, cfg.Storage.QueueBackend)
	cfg.Storage.Redis.Addr = ParseString(EnvRedisAddr, cfg.Storage.Redis.Addr)
	cfg.Storage.Redis.Password = ParseString(EnvRedisPassword, cfg.Storage.Redis.Password)
	cfg.Storage.Redis.DB = ParseInt(EnvRedisDB, cfg.Storage.Redis.DB)
	cfg.Storage.Redis.Key = ParseString(EnvRedisKey, cfg.Storage.Redis.Key)

	cfg.History.MinPlayDuration = ParseDuration(EnvMinPlayDuration, cfg.History.MinPlayDuration)
	cfg.History.MinCompletionRatio = ParseFloat(EnvMinRatio, cfg.History.MinCompletionRatio)
	cfg.History.DedupWindow = ParseDuration(EnvDedupWindow, cfg.History.DedupWindow)
	cfg.History.MaxEntries = ParseInt(EnvMaxEntries, cfg.History.MaxEntries)

	cfg.Playback.SaveDebounce = ParseDuration(EnvSaveDebounce, cfg.Playback.SaveDebounce)
	cfg.Playback.PositionPoll = ParseDuration(EnvPositionPoll, cfg.Playback.PositionPoll)
	cfg.Playback.Tick = ParseDuration(EnvTick, cfg.Playback.Tick)

	cfg.API.ListenAddr = ParseString(EnvListenAddr, cfg.API.ListenAddr)
	cfg.API.RateLimit = ParseInt(EnvRateLimit, cfg.API.RateLimit)

	cfg.Telemetry.Enabled = ParseBool(EnvTracingEnabled, cfg.Telemetry.Enabled)
	cfg.Telemetry.ExporterType = ParseString(EnvTracingExporter, cfg.Telemetry.ExporterType)
	cfg.Telemetry.Endpoint = ParseString(EnvTracingEndpoint, cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = ParseFloat(EnvTracingSampling, cfg.Telemetry.SamplingRate)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// String renders the config for logs with secrets masked.
func (c AppConfig) String() string {
	redis := c.Storage.Redis
	if redis.Password != "" {
		redis.Password = "***"
	}
	return fmt.Sprintf("catalog=%q log=%s/%s dataDir=%q history=%s queue=%s redis=%s/%d listen=%s rateLimit=%d tracing=%t",
		c.CatalogPath, c.Log.Level, c.Log.Format, c.Storage.DataDir,
		c.Storage.HistoryBackend, c.Storage.QueueBackend, redis.Addr, redis.DB,
		c.API.ListenAddr, c.API.RateLimit, c.Telemetry.Enabled)
}
