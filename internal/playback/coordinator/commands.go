// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package coordinator

import (
	xglog "github.com/ManuGH/playstate/internal/log"
	"github.com/ManuGH/playstate/internal/playback/model"
)

// Snapshot is a point-in-time view of the live player queue.
type Snapshot struct {
	Items          []model.MediaItem `json:"items"`
	CurrentIndex   int               `json:"currentIndex"`
	PositionMs     int64             `json:"positionMs"`
	IsPlaying      bool              `json:"isPlaying"`
	ShuffleEnabled bool              `json:"shuffleEnabled"`
	RepeatMode     model.RepeatMode  `json:"repeatMode"`
}

// Queue returns the live queue.
func (c *Coordinator) Queue() (Snapshot, error) {
	var s Snapshot
	err := c.run(func() {
		n := c.player.MediaItemCount()
		s.Items = make([]model.MediaItem, 0, n)
		for i := 0; i < n; i++ {
			s.Items = append(s.Items, c.player.MediaItemAt(i))
		}
		s.CurrentIndex = c.player.CurrentMediaItemIndex()
		s.PositionMs = c.player.CurrentPosition()
		s.IsPlaying = c.player.IsPlaying()
		s.ShuffleEnabled = c.player.ShuffleModeEnabled()
		s.RepeatMode = c.player.RepeatMode()
	})
	return s, err
}

// AddNext inserts mediaID after the current item. Unknown ids are ignored.
func (c *Coordinator) AddNext(mediaID string) error {
	item, ok := c.resolver.Get(mediaID)
	if !ok {
		c.logger.Debug().Str(xglog.FieldEvent, "coordinator.unknown_media").Str(xglog.FieldMediaID, mediaID).Msg("add next ignored")
		return c.run(func() {})
	}
	return c.run(func() {
		idx := 0
		if n := c.player.MediaItemCount(); n > 0 {
			idx = min(c.player.CurrentMediaItemIndex()+1, n)
		}
		c.player.AddMediaItem(idx, item)
		c.scheduleSave()
	})
}

// AddItems resolves ids, appends the known ones and saves the queue
// immediately.
func (c *Coordinator) AddItems(ids []string) error {
	items := make([]model.MediaItem, 0, len(ids))
	for _, id := range ids {
		if it, ok := c.resolver.Get(id); ok {
			items = append(items, it)
		}
	}
	return c.run(func() {
		for _, it := range items {
			c.player.AddMediaItem(c.player.MediaItemCount(), it)
		}
		c.saveNow()
	})
}

// MoveItem moves the item at from to index to. Out-of-range indices are
// ignored.
func (c *Coordinator) MoveItem(from, to int) error {
	return c.run(func() {
		n := c.player.MediaItemCount()
		if from < 0 || from >= n || to < 0 || to >= n {
			return
		}
		c.player.MoveMediaItem(from, to)
		c.scheduleSave()
	})
}

// RemoveItemAt removes the item at index. Out-of-range indices are ignored.
func (c *Coordinator) RemoveItemAt(index int) error {
	return c.run(func() {
		if index < 0 || index >= c.player.MediaItemCount() {
			return
		}
		c.player.RemoveMediaItem(index)
		c.scheduleSave()
	})
}

// ClearQueue removes every item.
func (c *Coordinator) ClearQueue() error {
	return c.run(func() {
		c.player.ClearMediaItems()
		c.scheduleSave()
	})
}

// Play starts playback, preparing an idle player first.
func (c *Coordinator) Play() error {
	return c.run(func() {
		c.player.Prepare()
		c.player.Play()
	})
}

func (c *Coordinator) Pause() error {
	return c.run(func() {
		c.player.Pause()
	})
}

func (c *Coordinator) Next() error {
	return c.run(func() {
		c.player.Next()
	})
}

// SeekTo jumps to positionMs within the item at index. Invalid indices and
// negative positions are ignored.
func (c *Coordinator) SeekTo(index int, positionMs int64) error {
	return c.run(func() {
		if index < 0 || index >= c.player.MediaItemCount() || positionMs < 0 {
			return
		}
		c.player.SeekTo(index, positionMs)
		c.CurrentPosition.Set(c.player.CurrentPosition())
	})
}

func (c *Coordinator) SetShuffle(enabled bool) error {
	return c.run(func() {
		c.player.SetShuffleModeEnabled(enabled)
	})
}

// SetRepeat applies mode. Unknown modes are ignored.
func (c *Coordinator) SetRepeat(mode model.RepeatMode) error {
	return c.run(func() {
		if mode.Valid() {
			c.player.SetRepeatMode(mode)
		}
	})
}

// PlaybackState is the latest published observable state.
type PlaybackState struct {
	IsPlaying          bool             `json:"isPlaying"`
	PositionMs         int64            `json:"positionMs"`
	BufferedPositionMs int64            `json:"bufferedPositionMs"`
	CurrentItem        *model.MediaItem `json:"currentItem,omitempty"`
}

// State reads the observable flows. It does not touch the player and is
// valid in every lifecycle state.
func (c *Coordinator) State() PlaybackState {
	s := PlaybackState{
		IsPlaying:          c.IsPlaying.Get(),
		PositionMs:         c.CurrentPosition.Get(),
		BufferedPositionMs: c.BufferedPosition.Get(),
	}
	if it := c.CurrentMediaItem.Get(); it.ID != "" {
		s.CurrentItem = &it
	}
	return s
}
