// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package events turns raw player callbacks into history session
// boundaries.
package events

import (
	"github.com/ManuGH/playstate/internal/history"
	xglog "github.com/ManuGH/playstate/internal/log"
	"github.com/ManuGH/playstate/internal/playback/model"
	"github.com/ManuGH/playstate/internal/playback/player"
	"github.com/rs/zerolog"
)

// Tracker is the session surface of the history recorder.
type Tracker interface {
	Start(mediaID string, durationMs int64)
	UpdateStats(totalPlayTimeMs int64)
	UpdateDuration(durationMs int64)
	End(reason model.CompletionReason) (history.Entry, bool)
}

// DurationSource reports the duration of the player's current item,
// <= 0 when unknown.
type DurationSource interface {
	Duration() int64
}

// CatalogLookup reports a fallback duration for a media id, 0 when unknown.
type CatalogLookup interface {
	DurationMs(id string) int64
}

// Classifier implements player.Listener. It must receive callbacks on the
// goroutine that owns the player, since it queries the player's duration
// while handling a transition.
type Classifier struct {
	player.NopListener

	tracker Tracker
	player  DurationSource
	catalog CatalogLookup
	logger  zerolog.Logger
}

// New creates a classifier. src and catalog may be nil.
func New(tracker Tracker, src DurationSource, catalog CatalogLookup) *Classifier {
	return &Classifier{
		tracker: tracker,
		player:  src,
		catalog: catalog,
		logger:  xglog.WithComponent("playback.events"),
	}
}

// Close maps a transition reason to the completion reason of the item being
// left. Seek transitions do not close the item.
func Close(reason model.TransitionReason) (model.CompletionReason, bool) {
	switch reason {
	case model.TransitionSeek:
		return "", false
	case model.TransitionAuto:
		return model.CompletionCompleted, true
	default:
		return model.CompletionSkipped, true
	}
}

func (c *Classifier) OnTransition(item *model.MediaItem, reason model.TransitionReason) {
	completion, ok := Close(reason)
	if !ok {
		return
	}
	c.tracker.End(completion)
	if item == nil {
		return
	}

	duration := c.durationFor(item)
	c.logger.Debug().
		Str(xglog.FieldEvent, "events.transition").
		Str(xglog.FieldMediaID, item.ID).
		Str(xglog.FieldReason, reason.String()).
		Int64(xglog.FieldDurationMs, duration).
		Msg("media transition")
	c.tracker.Start(item.ID, duration)
}

func (c *Classifier) OnError(err error) {
	c.logger.Warn().Err(err).Str(xglog.FieldEvent, "events.player_error").Msg("player error")
	c.tracker.End(model.CompletionError)
}

func (c *Classifier) OnStats(s player.Stats) {
	c.tracker.UpdateStats(s.TotalPlayTimeMs)
	if s.DurationMs > 0 {
		c.tracker.UpdateDuration(s.DurationMs)
	}
}

func (c *Classifier) durationFor(item *model.MediaItem) int64 {
	if c.player != nil {
		if d := c.player.Duration(); d > 0 {
			return d
		}
	}
	if item.DurationMs > 0 {
		return item.DurationMs
	}
	if c.catalog != nil {
		return c.catalog.DurationMs(item.ID)
	}
	return 0
}

var (
	_ player.Listener = (*Classifier)(nil)
	_ Tracker         = (*history.Recorder)(nil)
)
