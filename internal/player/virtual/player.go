// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package virtual implements a deterministic in-process player. Time only
// moves when Advance is called, which makes it suitable for the daemon's
// simulated playback and for tests.
package virtual

import (
	"errors"
	"time"

	"github.com/ManuGH/playstate/internal/playback/model"
	"github.com/ManuGH/playstate/internal/playback/player"
)

// bufferAhead is how far past the position the simulated buffer reaches.
const bufferAhead = 30 * time.Second

// ErrPlayback is the error reported by Fail when no error is given.
var ErrPlayback = errors.New("virtual player: playback failed")

type listenerEntry struct {
	id int
	l  player.Listener
}

// Player is a simulated player.Player. Like real engines it is not safe for
// concurrent use.
type Player struct {
	listeners []listenerEntry
	nextID    int

	items    []model.MediaItem
	index    int
	position time.Duration
	played   time.Duration

	state         model.PlaybackState
	playWhenReady bool
	playing       bool
	shuffle       bool
	repeat        model.RepeatMode
	released      bool
}

// New returns an idle player with an empty queue.
func New() *Player {
	return &Player{repeat: model.RepeatOff, state: model.StateIdle}
}

func (p *Player) AddListener(l player.Listener) func() {
	id := p.nextID
	p.nextID++
	p.listeners = append(p.listeners, listenerEntry{id: id, l: l})
	return func() {
		for i, e := range p.listeners {
			if e.id == id {
				p.listeners = append(p.listeners[:i:i], p.listeners[i+1:]...)
				return
			}
		}
	}
}

func (p *Player) each(fn func(player.Listener)) {
	for _, e := range append([]listenerEntry(nil), p.listeners...) {
		fn(e.l)
	}
}

func (p *Player) current() *model.MediaItem {
	if p.index < 0 || p.index >= len(p.items) {
		return nil
	}
	it := p.items[p.index]
	return &it
}

func (p *Player) transition(reason model.TransitionReason) {
	p.position, p.played = 0, 0
	item := p.current()
	p.each(func(l player.Listener) { l.OnTransition(item, reason) })
}

func (p *Player) setState(s model.PlaybackState) {
	if p.state == s {
		return
	}
	p.state = s
	p.each(func(l player.Listener) { l.OnPlaybackStateChanged(s) })
	p.updatePlaying()
}

func (p *Player) updatePlaying() {
	playing := p.playWhenReady && p.state == model.StateReady && len(p.items) > 0
	if playing == p.playing {
		return
	}
	p.playing = playing
	p.each(func(l player.Listener) { l.OnIsPlayingChanged(playing) })
}

func (p *Player) SetMediaItems(items []model.MediaItem, startIndex int, startPositionMs int64) {
	if p.released {
		return
	}
	p.items = append([]model.MediaItem(nil), items...)
	p.index = clamp(startIndex, 0, len(p.items)-1)
	if len(p.items) == 0 {
		p.index = 0
	}
	p.transition(model.TransitionPlaylistChanged)
	if startPositionMs > 0 {
		p.position = time.Duration(startPositionMs) * time.Millisecond
	}
	p.setState(model.StateIdle)
}

func (p *Player) AddMediaItem(index int, item model.MediaItem) {
	if p.released {
		return
	}
	index = clamp(index, 0, len(p.items))
	wasEmpty := len(p.items) == 0
	p.items = append(p.items, model.MediaItem{})
	copy(p.items[index+1:], p.items[index:])
	p.items[index] = item
	if wasEmpty {
		p.index = 0
		p.transition(model.TransitionPlaylistChanged)
		return
	}
	if index <= p.index {
		p.index++
	}
}

func (p *Player) MoveMediaItem(from, to int) {
	n := len(p.items)
	if p.released || from < 0 || from >= n || to < 0 || to >= n || from == to {
		return
	}
	it := p.items[from]
	p.items = append(p.items[:from], p.items[from+1:]...)
	p.items = append(p.items[:to], append([]model.MediaItem{it}, p.items[to:]...)...)

	switch {
	case p.index == from:
		p.index = to
	case from < p.index && to >= p.index:
		p.index--
	case from > p.index && to <= p.index:
		p.index++
	}
}

func (p *Player) RemoveMediaItem(index int) {
	if p.released || index < 0 || index >= len(p.items) {
		return
	}
	p.items = append(p.items[:index], p.items[index+1:]...)
	switch {
	case index < p.index:
		p.index--
	case index == p.index:
		if p.index >= len(p.items) {
			p.index = max(len(p.items)-1, 0)
		}
		p.transition(model.TransitionPlaylistChanged)
		if len(p.items) == 0 {
			p.setState(model.StateEnded)
		}
	}
}

func (p *Player) ClearMediaItems() {
	if p.released || len(p.items) == 0 {
		return
	}
	p.items = nil
	p.index = 0
	p.transition(model.TransitionPlaylistChanged)
	p.setState(model.StateEnded)
}

func (p *Player) MediaItemCount() int { return len(p.items) }

func (p *Player) MediaItemAt(index int) model.MediaItem {
	if index < 0 || index >= len(p.items) {
		return model.MediaItem{}
	}
	return p.items[index]
}

func (p *Player) CurrentMediaItemIndex() int { return p.index }

// Prepare moves an idle, non-empty queue through buffering to ready.
func (p *Player) Prepare() {
	if p.released || len(p.items) == 0 || p.state != model.StateIdle {
		return
	}
	p.setState(model.StateBuffering)
	p.setState(model.StateReady)
}

func (p *Player) Play() {
	if p.released {
		return
	}
	p.playWhenReady = true
	if p.state == model.StateEnded && len(p.items) > 0 {
		// The last item played to its end; restarting from the top closes it
		// as completed and opens the first item.
		p.index = 0
		p.transition(model.TransitionAuto)
		p.setState(model.StateReady)
		return
	}
	p.updatePlaying()
}

func (p *Player) Pause() {
	if p.released {
		return
	}
	p.playWhenReady = false
	p.updatePlaying()
}

// Next skips to the following item, wrapping under repeat-all.
func (p *Player) Next() {
	if p.released || len(p.items) == 0 {
		return
	}
	next := p.index + 1
	if next >= len(p.items) {
		if p.repeat != model.RepeatAll {
			return
		}
		next = 0
	}
	p.index = next
	p.transition(model.TransitionManual)
}

func (p *Player) SeekTo(index int, positionMs int64) {
	if p.released || index < 0 || index >= len(p.items) {
		return
	}
	if positionMs < 0 {
		positionMs = 0
	}
	if index != p.index {
		p.index = index
		p.transition(model.TransitionSeek)
	}
	p.position = time.Duration(positionMs) * time.Millisecond
	if p.state == model.StateEnded {
		p.setState(model.StateReady)
	}
}

func (p *Player) IsPlaying() bool { return p.playing }

func (p *Player) CurrentPosition() int64 { return p.position.Milliseconds() }

func (p *Player) BufferedPosition() int64 {
	if len(p.items) == 0 {
		return 0
	}
	buffered := (p.position + bufferAhead).Milliseconds()
	if d := p.Duration(); d > 0 && buffered > d {
		return d
	}
	return buffered
}

func (p *Player) Duration() int64 {
	if it := p.current(); it != nil && it.DurationMs > 0 {
		return it.DurationMs
	}
	return 0
}

func (p *Player) ShuffleModeEnabled() bool { return p.shuffle }

func (p *Player) SetShuffleModeEnabled(enabled bool) {
	if p.released || p.shuffle == enabled {
		return
	}
	p.shuffle = enabled
	p.each(func(l player.Listener) { l.OnShuffleModeChanged(enabled) })
}

func (p *Player) RepeatMode() model.RepeatMode { return p.repeat }

func (p *Player) SetRepeatMode(mode model.RepeatMode) {
	mode, err := model.ParseRepeatMode(string(mode))
	if p.released || err != nil || p.repeat == mode {
		return
	}
	p.repeat = mode
	p.each(func(l player.Listener) { l.OnRepeatModeChanged(mode) })
}

// Advance moves simulated time forward by d. While playing it accrues
// position and play time, reports stats and handles item ends.
func (p *Player) Advance(d time.Duration) {
	if p.released || !p.playing || d <= 0 {
		return
	}
	p.position += d
	p.played += d

	p.each(func(l player.Listener) {
		l.OnStats(player.Stats{
			TotalPlayTimeMs: p.played.Milliseconds(),
			PositionMs:      p.position.Milliseconds(),
			DurationMs:      p.Duration(),
		})
	})

	dur := p.Duration()
	if dur <= 0 || p.position.Milliseconds() < dur {
		return
	}
	switch {
	case p.repeat == model.RepeatOne:
		p.transition(model.TransitionRepeat)
	case p.index+1 < len(p.items):
		p.index++
		p.transition(model.TransitionAuto)
	case p.repeat == model.RepeatAll:
		p.index = 0
		p.transition(model.TransitionAuto)
	default:
		p.position = time.Duration(dur) * time.Millisecond
		p.playWhenReady = false
		p.setState(model.StateEnded)
	}
}

// Fail simulates a playback error on the current item.
func (p *Player) Fail(err error) {
	if p.released {
		return
	}
	if err == nil {
		err = ErrPlayback
	}
	p.each(func(l player.Listener) { l.OnError(err) })
	p.setState(model.StateIdle)
}

// Release drops all listeners and ignores further commands.
func (p *Player) Release() {
	p.released = true
	p.playing = false
	p.listeners = nil
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return min(max(v, lo), hi)
}

var _ player.Player = (*Player)(nil)
