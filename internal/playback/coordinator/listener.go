// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package coordinator

import (
	xglog "github.com/ManuGH/playstate/internal/log"
	"github.com/ManuGH/playstate/internal/playback/model"
	"github.com/ManuGH/playstate/internal/playback/player"
)

// listener receives player callbacks on the main loop.
type listener struct {
	player.NopListener
	c *Coordinator
}

func (l *listener) OnTransition(item *model.MediaItem, reason model.TransitionReason) {
	if item != nil {
		l.c.CurrentMediaItem.Set(*item)
	} else {
		l.c.CurrentMediaItem.Set(model.MediaItem{})
	}
	l.c.CurrentPosition.Set(l.c.player.CurrentPosition())
	l.c.BufferedPosition.Set(l.c.player.BufferedPosition())
	l.c.scheduleSave()
}

func (l *listener) OnPlaybackStateChanged(s model.PlaybackState) {
	if s == model.StateReady {
		l.c.scheduleSave()
	}
}

func (l *listener) OnIsPlayingChanged(playing bool) {
	l.c.IsPlaying.Set(playing)
	l.c.CurrentPosition.Set(l.c.player.CurrentPosition())
}

func (l *listener) OnShuffleModeChanged(bool) { l.c.scheduleSave() }

func (l *listener) OnRepeatModeChanged(model.RepeatMode) { l.c.scheduleSave() }

func (l *listener) OnError(err error) {
	l.c.logger.Warn().Err(err).Str(xglog.FieldEvent, "coordinator.player_error").Msg("player reported an error")
}
