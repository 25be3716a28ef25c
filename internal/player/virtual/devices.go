// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package virtual

import (
	"sync"

	"github.com/ManuGH/playstate/internal/playback/player"
)

// Devices is a player.DeviceWatcher whose removals are triggered by hand.
type Devices struct {
	mu     sync.Mutex
	fns    map[int]func()
	nextID int
}

func NewDevices() *Devices {
	return &Devices{fns: make(map[int]func())}
}

func (d *Devices) OnDevicesRemoved(fn func()) func() {
	d.mu.Lock()
	id := d.nextID
	d.nextID++
	d.fns[id] = fn
	d.mu.Unlock()
	return func() {
		d.mu.Lock()
		delete(d.fns, id)
		d.mu.Unlock()
	}
}

// Remove reports an output device removal to every registered callback.
func (d *Devices) Remove() {
	d.mu.Lock()
	fns := make([]func(), 0, len(d.fns))
	for _, fn := range d.fns {
		fns = append(fns, fn)
	}
	d.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

var _ player.DeviceWatcher = (*Devices)(nil)
