// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package queue persists the single logical playback-queue snapshot.
package queue

import (
	"encoding/json"

	"github.com/ManuGH/playstate/internal/playback/model"
)

// State is the persisted queue snapshot. Duplicate ids are allowed.
type State struct {
	MediaIDs       []string         `json:"mediaIds"`
	CurrentIndex   int              `json:"currentIndex"`
	PositionMs     int64            `json:"positionMs"`
	ShuffleEnabled bool             `json:"shuffleEnabled"`
	RepeatMode     model.RepeatMode `json:"repeatMode"`
}

// Normalized returns a copy with negative index and position clamped to 0,
// a nil id list replaced by an empty one and the repeat mode in canonical
// form, with empty meaning off.
func (s State) Normalized() State {
	out := s
	out.MediaIDs = append(make([]string, 0, len(s.MediaIDs)), s.MediaIDs...)
	if out.CurrentIndex < 0 {
		out.CurrentIndex = 0
	}
	if out.PositionMs < 0 {
		out.PositionMs = 0
	}
	if out.RepeatMode == "" {
		out.RepeatMode = model.RepeatOff
	} else if mode, err := model.ParseRepeatMode(string(out.RepeatMode)); err == nil {
		out.RepeatMode = mode
	}
	return out
}

// Empty reports whether the snapshot has no items.
func (s *State) Empty() bool {
	return s == nil || len(s.MediaIDs) == 0
}

func encode(s State) ([]byte, error) {
	return json.Marshal(s.Normalized())
}

// decode parses a persisted snapshot. Malformed data decodes to nil.
func decode(data []byte) *State {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	if !canonicalize(&s) {
		return nil
	}
	return &s
}

// canonicalize rewrites the repeat mode to its canonical spelling and
// reports whether the snapshot is restorable.
func canonicalize(s *State) bool {
	mode, err := model.ParseRepeatMode(string(s.RepeatMode))
	if err != nil || s.CurrentIndex < 0 || s.PositionMs < 0 {
		return false
	}
	s.RepeatMode = mode
	return true
}
