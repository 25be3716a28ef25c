// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCompletionReason(t *testing.T) {
	tests := []struct {
		in      string
		want    CompletionReason
		wantErr bool
	}{
		{in: "completed", want: CompletionCompleted},
		{in: "SKIPPED", want: CompletionSkipped},
		{in: " error ", want: CompletionError},
		{in: "paused", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCompletionReason(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRepeatMode_Valid(t *testing.T) {
	assert.True(t, RepeatOff.Valid())
	assert.True(t, RepeatOne.Valid())
	assert.True(t, RepeatAll.Valid())
	assert.False(t, RepeatMode("shuffle").Valid())

	m, err := ParseRepeatMode("ALL")
	require.NoError(t, err)
	assert.Equal(t, RepeatAll, m)
}

func TestStringers(t *testing.T) {
	assert.Equal(t, "seek", TransitionSeek.String())
	assert.Equal(t, "playlist_changed", TransitionPlaylistChanged.String())
	assert.Equal(t, "unknown", TransitionReason(99).String())
	assert.Equal(t, "ready", StateReady.String())
	assert.Equal(t, "unknown", PlaybackState(42).String())
}
