// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ManuGH/playstate/internal/config"
	"github.com/ManuGH/playstate/internal/daemon"
	xglog "github.com/ManuGH/playstate/internal/log"
	"github.com/ManuGH/playstate/internal/persistence/sqlite"
	"github.com/ManuGH/playstate/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	verify := flag.String("verify", "", "check sqlite stores in the data dir (quick|full) and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		os.Exit(0)
	}

	// Safe defaults until config is loaded.
	xglog.Configure(xglog.Config{
		Level:   "info",
		Service: "playstate",
		Version: version.Version,
	})
	logger := xglog.WithComponent("main")

	loader := config.NewLoader(*configPath, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(xglog.FieldEvent, "config.load_failed").
			Str(xglog.FieldPath, *configPath).
			Msg("failed to load configuration")
	}

	xglog.Reconfigure(xglog.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: "playstate",
		Version: cfg.Version,
	})
	logger = xglog.WithComponent("main")
	logger.Info().
		Str(xglog.FieldEvent, "config.loaded").
		Str("config", cfg.String()).
		Msg("configuration loaded")

	if *verify != "" {
		os.Exit(runVerify(cfg, *verify))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	holder := config.NewConfigHolder(cfg, loader)
	if err := holder.StartWatcher(ctx); err != nil {
		logger.Warn().Err(err).Str(xglog.FieldEvent, "config.watcher_failed").Msg("config hot reload disabled")
	}
	defer holder.Stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				if err := holder.Reload(ctx); err != nil {
					logger.Error().Err(err).Str(xglog.FieldEvent, "config.sighup_reload_failed").Msg("SIGHUP reload failed")
				}
			}
		}
	}()

	app, err := daemon.New(ctx, holder)
	if err != nil {
		logger.Fatal().Err(err).Str(xglog.FieldEvent, "daemon.build_failed").Msg("failed to start daemon")
	}
	if err := app.Run(ctx); err != nil {
		logger.Error().Err(err).Str(xglog.FieldEvent, "daemon.exit_error").Msg("daemon stopped with error")
		os.Exit(1)
	}
	logger.Info().Str(xglog.FieldEvent, "daemon.stopped").Msg("daemon stopped")
}

// runVerify checks every sqlite store in the data dir and returns the exit
// code: 0 healthy, 1 corrupt or unreadable, 2 bad mode.
func runVerify(cfg config.AppConfig, modeFlag string) int {
	logger := xglog.WithComponent("verify")
	mode, err := sqlite.ParseMode(modeFlag)
	if err != nil {
		logger.Error().Err(err).Str(xglog.FieldEvent, "verify.bad_mode").Msg("invalid -verify value")
		return 2
	}

	var paths []string
	if cfg.Storage.HistoryBackend == "" || cfg.Storage.HistoryBackend == "sqlite" {
		paths = append(paths, filepath.Join(cfg.Storage.DataDir, "history.sqlite"))
	}
	if cfg.Storage.QueueBackend == "" || cfg.Storage.QueueBackend == "sqlite" {
		paths = append(paths, filepath.Join(cfg.Storage.DataDir, "queue.sqlite"))
	}

	code := 0
	for _, path := range paths {
		rep, err := sqlite.Verify(context.Background(), path, mode)
		ev := logger.Info()
		switch {
		case err != nil:
			ev = logger.Error().Err(err)
			code = 1
		case rep.Missing:
		case !rep.Healthy():
			ev = logger.Error().Strs("problems", rep.Problems)
			code = 1
		}
		ev.Str(xglog.FieldEvent, "verify.result").
			Str(xglog.FieldPath, rep.Path).
			Str("mode", string(rep.Mode)).
			Bool("missing", rep.Missing).
			Bool("healthy", err == nil && rep.Healthy()).
			Msg("sqlite store checked")
	}
	return code
}
