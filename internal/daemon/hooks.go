// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	xglog "github.com/ManuGH/playstate/internal/log"
	"github.com/rs/zerolog"
)

// ShutdownHook performs cleanup during graceful shutdown.
type ShutdownHook func(ctx context.Context) error

type namedHook struct {
	name string
	hook ShutdownHook
}

// hooks runs registered cleanup functions in reverse registration order
// (LIFO), so a component is always torn down before what it depends on.
type hooks struct {
	mu     sync.Mutex
	list   []namedHook
	ran    bool
	logger zerolog.Logger
}

func (h *hooks) register(name string, hook ShutdownHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.list = append(h.list, namedHook{name: name, hook: hook})
	h.logger.Debug().Str("hook", name).Msg("registered shutdown hook")
}

// run executes every hook once. Later calls are no-ops.
func (h *hooks) run(ctx context.Context) error {
	h.mu.Lock()
	if h.ran {
		h.mu.Unlock()
		return nil
	}
	h.ran = true
	list := h.list
	h.mu.Unlock()

	var errs []error
	for i := len(list) - 1; i >= 0; i-- {
		hook := list[i]
		start := time.Now()
		if err := hook.hook(ctx); err != nil {
			h.logger.Error().
				Err(err).
				Str(xglog.FieldEvent, "daemon.hook_failed").
				Str("hook", hook.name).
				Dur("duration", time.Since(start)).
				Msg("shutdown hook failed")
			errs = append(errs, fmt.Errorf("hook %s: %w", hook.name, err))
			continue
		}
		h.logger.Debug().
			Str("hook", hook.name).
			Dur("duration", time.Since(start)).
			Msg("shutdown hook completed")
	}
	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	return nil
}
