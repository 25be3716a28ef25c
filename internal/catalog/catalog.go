// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package catalog resolves media ids to playable metadata.
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ManuGH/playstate/internal/playback/model"
	"gopkg.in/yaml.v3"
)

// Catalog is an immutable, ordered set of media items keyed by id.
type Catalog struct {
	items []model.MediaItem
	byID  map[string]int
}

// New builds a catalog. Item ids must be non-empty and unique.
func New(items []model.MediaItem) (*Catalog, error) {
	c := &Catalog{
		items: make([]model.MediaItem, 0, len(items)),
		byID:  make(map[string]int, len(items)),
	}
	for i, it := range items {
		id := strings.TrimSpace(it.ID)
		if id == "" {
			return nil, fmt.Errorf("catalog: item %d has empty id", i)
		}
		if _, dup := c.byID[id]; dup {
			return nil, fmt.Errorf("catalog: duplicate id %q", id)
		}
		if it.DurationMs < 0 {
			return nil, fmt.Errorf("catalog: item %q has negative duration", id)
		}
		it.ID = id
		c.byID[id] = len(c.items)
		c.items = append(c.items, it)
	}
	return c, nil
}

type fileFormat struct {
	Items []model.MediaItem `yaml:"items"`
}

// Load reads a YAML catalog file of the form `items: [{id: ..., uri: ...}]`.
// Unknown keys are rejected.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	var f fileFormat
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("catalog: parse %s: %w", path, err)
	}
	if len(f.Items) == 0 {
		return nil, errors.New("catalog: no items")
	}
	return New(f.Items)
}

// Default returns the built-in sample catalog.
func Default() *Catalog {
	c, err := New([]model.MediaItem{
		{
			ID:         "video_1",
			URI:        "https://commondatastorage.googleapis.com/gtv-videos-bucket/sample/BigBuckBunny.mp4",
			MimeType:   "video/mp4",
			Title:      "Big Buck Bunny",
			Artist:     "Blender Foundation",
			ArtworkURI: "https://upload.wikimedia.org/wikipedia/commons/thumb/c/c5/Big_buck_bunny_poster_big.jpg/220px-Big_buck_bunny_poster_big.jpg",
			DurationMs: 596_000,
		},
		{
			ID:         "video_2",
			URI:        "https://commondatastorage.googleapis.com/gtv-videos-bucket/sample/ElephantsDream.mp4",
			MimeType:   "video/mp4",
			Title:      "Elephant's Dream",
			Artist:     "Blender Foundation",
			DurationMs: 653_000,
		},
		{
			ID:       "audio_1",
			URI:      "https://storage.googleapis.com/exoplayer-test-media-0/play.mp3",
			MimeType: "audio/mpeg",
			Title:    "Sample Audio",
			Artist:   "Test Artist",
		},
	})
	if err != nil {
		panic(err) // static data
	}
	return c
}

// Get returns the item for id.
func (c *Catalog) Get(id string) (model.MediaItem, bool) {
	if c == nil {
		return model.MediaItem{}, false
	}
	i, ok := c.byID[id]
	if !ok {
		return model.MediaItem{}, false
	}
	return c.items[i], true
}

// Resolve returns the catalog item for id, or a minimal item carrying only
// the id when it is unknown.
func (c *Catalog) Resolve(id string) model.MediaItem {
	if it, ok := c.Get(id); ok {
		return it
	}
	return model.MediaItem{ID: id}
}

// DurationMs returns the catalog duration for id, 0 when unknown.
func (c *Catalog) DurationMs(id string) int64 {
	it, _ := c.Get(id)
	return it.DurationMs
}

// All returns the items in catalog order.
func (c *Catalog) All() []model.MediaItem {
	if c == nil {
		return nil
	}
	return append([]model.MediaItem(nil), c.items...)
}

// Len returns the number of items.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.items)
}
