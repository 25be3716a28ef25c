// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ManuGH/playstate/internal/playback/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, 3, c.Len())

	it, ok := c.Get("video_1")
	require.True(t, ok)
	assert.Equal(t, "Big Buck Bunny", it.Title)
	assert.Equal(t, int64(596_000), c.DurationMs("video_1"))
	assert.Zero(t, c.DurationMs("audio_1"))
	assert.Zero(t, c.DurationMs("missing"))
}

func TestResolve_UnknownIDIsMinimal(t *testing.T) {
	c := Default()
	assert.Equal(t, model.MediaItem{ID: "nope"}, c.Resolve("nope"))
	assert.Equal(t, "video_2", c.Resolve("video_2").ID)
	assert.NotEmpty(t, c.Resolve("video_2").URI)
}

func TestNew_Validation(t *testing.T) {
	_, err := New([]model.MediaItem{{ID: ""}})
	assert.Error(t, err)

	_, err = New([]model.MediaItem{{ID: "a"}, {ID: "a"}})
	assert.Error(t, err)

	_, err = New([]model.MediaItem{{ID: "a", DurationMs: -1}})
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
items:
  - id: clip_1
    uri: file:///media/clip1.mp4
    title: Clip One
    durationMs: 42000
  - id: clip_2
    uri: file:///media/clip2.mp3
`), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, int64(42000), c.DurationMs("clip_1"))
	assert.Equal(t, []string{"clip_1", "clip_2"}, []string{c.All()[0].ID, c.All()[1].ID})
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("items:\n  - id: a\n    bogus: 1\n"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestNilCatalog(t *testing.T) {
	var c *Catalog
	_, ok := c.Get("x")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
	assert.Nil(t, c.All())
	assert.Equal(t, "x", c.Resolve("x").ID)
}
