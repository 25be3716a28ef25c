// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/playstate/internal/health"
	"github.com/ManuGH/playstate/internal/history"
	"github.com/ManuGH/playstate/internal/playback/coordinator"
	"github.com/ManuGH/playstate/internal/playback/model"
	"github.com/ManuGH/playstate/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHistory struct {
	mu      sync.Mutex
	entries []history.Entry
	cleared bool
	limit   int
	err     error
	updates chan []history.Entry
}

func (f *fakeHistory) GetRecent(_ context.Context, limit int) ([]history.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.entries, nil
}

func (f *fakeHistory) Count(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries), nil
}

func (f *fakeHistory) ClearAll(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = true
	f.entries = nil
	return nil
}

func (f *fakeHistory) Subscribe(ctx context.Context) <-chan []history.Entry {
	out := make(chan []history.Entry)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-f.updates:
				if !ok {
					return
				}
				select {
				case out <- snap:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

type fakePlayback struct {
	mu    sync.Mutex
	calls []string
	err   error
	state coordinator.PlaybackState
	snap  coordinator.Snapshot
}

func (f *fakePlayback) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakePlayback) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakePlayback) State() coordinator.PlaybackState { return f.state }
func (f *fakePlayback) Queue() (coordinator.Snapshot, error) {
	return f.snap, f.record("queue")
}
func (f *fakePlayback) Play() error  { return f.record("play") }
func (f *fakePlayback) Pause() error { return f.record("pause") }
func (f *fakePlayback) Next() error  { return f.record("next") }
func (f *fakePlayback) SeekTo(index int, positionMs int64) error {
	return f.record("seek:" + itoa(index) + ":" + itoa(int(positionMs)))
}
func (f *fakePlayback) SetShuffle(enabled bool) error {
	if enabled {
		return f.record("shuffle:on")
	}
	return f.record("shuffle:off")
}
func (f *fakePlayback) SetRepeat(mode model.RepeatMode) error { return f.record("repeat:" + string(mode)) }
func (f *fakePlayback) AddItems(ids []string) error {
	return f.record("add:" + strings.Join(ids, ","))
}
func (f *fakePlayback) AddNext(id string) error { return f.record("next:" + id) }
func (f *fakePlayback) MoveItem(from, to int) error {
	return f.record("move:" + itoa(from) + ":" + itoa(to))
}
func (f *fakePlayback) RemoveItemAt(index int) error { return f.record("remove:" + itoa(index)) }
func (f *fakePlayback) ClearQueue() error           { return f.record("clear") }

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

type fakeSaved struct{ state *queue.State }

func (f fakeSaved) Load(context.Context) *queue.State { return f.state }

type harness struct {
	history  *fakeHistory
	playback *fakePlayback
	saved    fakeSaved
	handler  http.Handler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		history:  &fakeHistory{updates: make(chan []history.Entry, 4)},
		playback: &fakePlayback{},
	}
	h.build()
	return h
}

func (h *harness) build() {
	h.handler = New(Config{}, h.history, h.playback, h.saved).Handler()
}

func (h *harness) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
}

func TestReadyz(t *testing.T) {
	h := newHarness(t)
	hm := health.NewManager("test")
	hm.RegisterChecker(health.CheckFunc("player", func(context.Context) health.CheckResult {
		return health.CheckResult{Status: health.StatusUnhealthy, Error: "released"}
	}))
	h.handler = New(Config{Health: hm}, h.history, h.playback, h.saved).Handler()

	rec := h.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"player"`)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestGetHistory(t *testing.T) {
	h := newHarness(t)
	h.history.entries = []history.Entry{
		{ID: 2, MediaID: "video_2", Timestamp: 2000, PlayDurationMs: 20_000, CompletionReason: model.CompletionSkipped},
		{ID: 1, MediaID: "video_1", Timestamp: 1000, PlayDurationMs: 596_000, CompletionReason: model.CompletionCompleted, TotalDurationMs: 596_000},
	}

	rec := h.do(t, http.MethodGet, "/api/history?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, h.history.limit)

	var resp historyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Entries, 2)
	assert.Equal(t, "video_2", resp.Entries[0].MediaID)
	assert.Equal(t, model.CompletionCompleted, resp.Entries[1].CompletionReason)
}

func TestGetHistory_DefaultAndCappedLimit(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultHistoryLimit, h.history.limit)
	assert.JSONEq(t, `{"entries":[],"total":0}`, rec.Body.String())

	h.do(t, http.MethodGet, "/api/history?limit=999999", "")
	assert.Equal(t, maxHistoryLimit, h.history.limit)
}

func TestGetHistory_InvalidLimit(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/api/history?limit=lots", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_limit")
}

func TestGetHistory_BackendError(t *testing.T) {
	h := newHarness(t)
	h.history.err = errors.New("disk on fire")
	rec := h.do(t, http.MethodGet, "/api/history", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "disk on fire")
}

func TestDeleteHistory(t *testing.T) {
	h := newHarness(t)
	h.history.entries = []history.Entry{{ID: 1, MediaID: "video_1"}}
	rec := h.do(t, http.MethodDelete, "/api/history", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, h.history.cleared)
}

func TestHistoryStream(t *testing.T) {
	h := newHarness(t)
	srv := httptest.NewServer(h.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/history/stream", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	h.history.updates <- []history.Entry{{ID: 1, MediaID: "video_1", CompletionReason: model.CompletionSkipped}}

	sc := bufio.NewScanner(resp.Body)
	var lines []string
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			break
		}
		lines = append(lines, line)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, "event: history", lines[0])
	assert.Contains(t, lines[1], `"mediaId":"video_1"`)
}

func TestGetState(t *testing.T) {
	h := newHarness(t)
	h.playback.state = coordinator.PlaybackState{
		IsPlaying:          true,
		PositionMs:         1500,
		BufferedPositionMs: 31_500,
		CurrentItem:        &model.MediaItem{ID: "video_1", Title: "Big Buck Bunny"},
	}
	rec := h.do(t, http.MethodGet, "/api/state", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got coordinator.PlaybackState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, h.playback.state.PositionMs, got.PositionMs)
	require.NotNil(t, got.CurrentItem)
	assert.Equal(t, "video_1", got.CurrentItem.ID)
}

func TestGetQueue(t *testing.T) {
	h := newHarness(t)
	h.playback.snap = coordinator.Snapshot{
		Items:        []model.MediaItem{{ID: "video_1"}, {ID: "audio_1"}},
		CurrentIndex: 1,
		RepeatMode:   model.RepeatAll,
	}
	rec := h.do(t, http.MethodGet, "/api/queue", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got coordinator.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 1, got.CurrentIndex)
	assert.Len(t, got.Items, 2)
	assert.Equal(t, model.RepeatAll, got.RepeatMode)
}

func TestGetSavedQueue(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/api/queue/saved", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	h.saved = fakeSaved{state: &queue.State{MediaIDs: []string{"video_2"}, PositionMs: 42, RepeatMode: model.RepeatOne}}
	h.build()
	rec = h.do(t, http.MethodGet, "/api/queue/saved", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"mediaIds":["video_2"]`)
	assert.Contains(t, rec.Body.String(), `"positionMs":42`)
}

func TestCommands(t *testing.T) {
	tests := []struct {
		method, path, body string
		want               string
	}{
		{http.MethodPost, "/api/player/play", "", "play"},
		{http.MethodPost, "/api/player/pause", "", "pause"},
		{http.MethodPost, "/api/player/next", "", "next"},
		{http.MethodPost, "/api/player/seek", `{"index":1,"positionMs":3000}`, "seek:1:3000"},
		{http.MethodPost, "/api/player/shuffle", `{"enabled":true}`, "shuffle:on"},
		{http.MethodPost, "/api/player/repeat", `{"mode":"ALL"}`, "repeat:all"},
		{http.MethodPost, "/api/queue/items", `{"mediaIds":["video_1","audio_1"]}`, "add:video_1,audio_1"},
		{http.MethodPost, "/api/queue/next", `{"mediaId":"video_2"}`, "next:video_2"},
		{http.MethodPost, "/api/queue/move", `{"from":0,"to":2}`, "move:0:2"},
		{http.MethodDelete, "/api/queue/3", "", "remove:3"},
		{http.MethodDelete, "/api/queue", "", "clear"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			h := newHarness(t)
			rec := h.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
			assert.Equal(t, []string{tt.want}, h.playback.recorded())
		})
	}
}

func TestCommands_BadRequests(t *testing.T) {
	tests := []struct {
		name, method, path, body, code string
	}{
		{"malformed json", http.MethodPost, "/api/player/seek", `{"index":`, "invalid_body"},
		{"unknown field", http.MethodPost, "/api/queue/next", `{"media":"x"}`, "invalid_body"},
		{"bad repeat", http.MethodPost, "/api/player/repeat", `{"mode":"sometimes"}`, "invalid_mode"},
		{"bad index", http.MethodDelete, "/api/queue/first", "", "invalid_index"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			rec := h.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.code)
			assert.Empty(t, h.playback.recorded())
		})
	}
}

func TestCommands_CoordinatorUnavailable(t *testing.T) {
	for _, err := range []error{coordinator.ErrReleased, coordinator.ErrNotInitialized} {
		h := newHarness(t)
		h.playback.err = err
		rec := h.do(t, http.MethodPost, "/api/player/play", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "player_unavailable")
	}
}

func TestRequestIDEchoed(t *testing.T) {
	h := newHarness(t)
	req := httptest.NewRequest(http.MethodGet, "/api/history?limit=x", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
	assert.Contains(t, rec.Body.String(), `"requestId":"req-123"`)
}

func TestRateLimit(t *testing.T) {
	h := newHarness(t)
	h.handler = New(Config{RateLimit: 2}, h.history, h.playback, h.saved).Handler()

	for i := 0; i < 2; i++ {
		rec := h.do(t, http.MethodGet, "/api/state", "")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := h.do(t, http.MethodGet, "/api/state", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Health is outside the limited group.
	assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/healthz", "").Code)
}
