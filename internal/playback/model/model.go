// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package model defines the playback vocabulary shared by the player adapter,
// the history pipeline and the queue store.
package model

import (
	"fmt"
	"strings"
)

// MediaItem is a playable entry. Items rebuilt from a persisted queue only
// carry an ID until they are resolved against the catalog.
type MediaItem struct {
	ID         string `json:"id" yaml:"id"`
	URI        string `json:"uri,omitempty" yaml:"uri"`
	MimeType   string `json:"mimeType,omitempty" yaml:"mimeType"`
	Title      string `json:"title,omitempty" yaml:"title"`
	Artist     string `json:"artist,omitempty" yaml:"artist"`
	ArtworkURI string `json:"artworkUri,omitempty" yaml:"artworkUri"`
	DurationMs int64  `json:"durationMs,omitempty" yaml:"durationMs"`
}

// TransitionReason explains why the player moved to a new item.
type TransitionReason int

const (
	// TransitionAuto means the previous item played to its end.
	TransitionAuto TransitionReason = iota
	// TransitionSeek means the user seeked into another item.
	TransitionSeek
	// TransitionManual means an explicit skip (next/previous/jump).
	TransitionManual
	// TransitionPlaylistChanged means the queue was mutated under the player.
	TransitionPlaylistChanged
	// TransitionRepeat means the current item restarted due to repeat mode.
	TransitionRepeat
)

func (r TransitionReason) String() string {
	switch r {
	case TransitionAuto:
		return "auto"
	case TransitionSeek:
		return "seek"
	case TransitionManual:
		return "manual"
	case TransitionPlaylistChanged:
		return "playlist_changed"
	case TransitionRepeat:
		return "repeat"
	default:
		return "unknown"
	}
}

// CompletionReason classifies how a tracked item ended.
type CompletionReason string

const (
	CompletionCompleted CompletionReason = "completed"
	CompletionSkipped   CompletionReason = "skipped"
	CompletionError     CompletionReason = "error"
)

// ParseCompletionReason parses the persisted form of a completion reason.
func ParseCompletionReason(s string) (CompletionReason, error) {
	switch r := CompletionReason(strings.ToLower(strings.TrimSpace(s))); r {
	case CompletionCompleted, CompletionSkipped, CompletionError:
		return r, nil
	default:
		return "", fmt.Errorf("unknown completion reason %q", s)
	}
}

// RepeatMode mirrors the player's repeat setting.
type RepeatMode string

const (
	RepeatOff RepeatMode = "off"
	RepeatOne RepeatMode = "one"
	RepeatAll RepeatMode = "all"
)

// ParseRepeatMode parses the persisted form of a repeat mode.
func ParseRepeatMode(s string) (RepeatMode, error) {
	switch m := RepeatMode(strings.ToLower(strings.TrimSpace(s))); m {
	case RepeatOff, RepeatOne, RepeatAll:
		return m, nil
	default:
		return "", fmt.Errorf("unknown repeat mode %q", s)
	}
}

// Valid reports whether m is one of the known repeat modes.
func (m RepeatMode) Valid() bool {
	_, err := ParseRepeatMode(string(m))
	return err == nil
}

// PlaybackState is the coarse player lifecycle state.
type PlaybackState int

const (
	StateIdle PlaybackState = iota
	StateBuffering
	StateReady
	StateEnded
)

func (s PlaybackState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBuffering:
		return "buffering"
	case StateReady:
		return "ready"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}
