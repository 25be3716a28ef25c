// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package player defines the capability surface the playstate core needs from
// a playback engine. Concrete engines are wrapped by adapters that satisfy
// Player and deliver callbacks through Listener.
package player

import "github.com/ManuGH/playstate/internal/playback/model"

// Stats is a periodic playback-statistics snapshot for the current item.
type Stats struct {
	// TotalPlayTimeMs is the time actually spent playing the current item.
	// It is non-decreasing within one item.
	TotalPlayTimeMs int64
	// PositionMs is the playback position the snapshot was taken at.
	PositionMs int64
	// DurationMs is the item duration if known, <= 0 otherwise.
	DurationMs int64
}

// Listener receives player callbacks. Callbacks are delivered on the
// goroutine that drives the player and must not block.
type Listener interface {
	OnTransition(item *model.MediaItem, reason model.TransitionReason)
	OnError(err error)
	OnStats(stats Stats)
	OnPlaybackStateChanged(state model.PlaybackState)
	OnIsPlayingChanged(playing bool)
	OnShuffleModeChanged(enabled bool)
	OnRepeatModeChanged(mode model.RepeatMode)
}

// Player is the command and query surface of a playback engine. It is not
// safe for concurrent use; callers confine it to one goroutine.
type Player interface {
	AddListener(l Listener) (remove func())

	SetMediaItems(items []model.MediaItem, startIndex int, startPositionMs int64)
	AddMediaItem(index int, item model.MediaItem)
	MoveMediaItem(from, to int)
	RemoveMediaItem(index int)
	ClearMediaItems()
	MediaItemCount() int
	MediaItemAt(index int) model.MediaItem
	CurrentMediaItemIndex() int

	Prepare()
	Play()
	Pause()
	Next()
	SeekTo(index int, positionMs int64)

	IsPlaying() bool
	CurrentPosition() int64
	BufferedPosition() int64
	// Duration returns the current item's duration, <= 0 when unknown.
	Duration() int64

	ShuffleModeEnabled() bool
	SetShuffleModeEnabled(enabled bool)
	RepeatMode() model.RepeatMode
	SetRepeatMode(mode model.RepeatMode)

	Release()
}

// DeviceWatcher notifies when an audio output device disappears, e.g. when
// headphones are unplugged.
type DeviceWatcher interface {
	OnDevicesRemoved(fn func()) (unregister func())
}

// NopListener implements Listener with no-op methods. Embed it to implement
// only the callbacks a component cares about.
type NopListener struct{}

func (NopListener) OnTransition(*model.MediaItem, model.TransitionReason) {}
func (NopListener) OnError(error)                                         {}
func (NopListener) OnStats(Stats)                                         {}
func (NopListener) OnPlaybackStateChanged(model.PlaybackState)            {}
func (NopListener) OnIsPlayingChanged(bool)                               {}
func (NopListener) OnShuffleModeChanged(bool)                             {}
func (NopListener) OnRepeatModeChanged(model.RepeatMode)                  {}

var _ Listener = NopListener{}
