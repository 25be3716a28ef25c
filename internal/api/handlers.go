// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ManuGH/playstate/internal/history"
	"github.com/ManuGH/playstate/internal/playback/model"
	"github.com/go-chi/chi/v5"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
)

type historyResponse struct {
	Entries []history.Entry `json:"entries"`
	Total   int             `json:"total"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	entries, err := s.history.GetRecent(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	total, err := s.history.Count(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Entries: entries, Total: total})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.history.ClearAll(r.Context()); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleHistoryStream emits the full history, most recent first, as a
// server-sent event on connect and after every change.
func (s *Server) handleHistoryStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "streaming_unsupported", "")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for snap := range s.history.Subscribe(r.Context()) {
		if snap == nil {
			snap = []history.Entry{}
		}
		data, err := json.Marshal(snap)
		if err != nil {
			return
		}
		if _, err := fmt.Fprintf(w, "event: history\ndata: %s\n\n", data); err != nil {
			return
		}
		flusher.Flush()
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.playback.State())
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	snap, err := s.playback.Queue()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSavedQueue(w http.ResponseWriter, r *http.Request) {
	saved := s.saved.Load(r.Context())
	if saved == nil {
		writeError(w, r, http.StatusNotFound, "no_saved_queue", "")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleClearQueue(w http.ResponseWriter, r *http.Request) {
	s.command(s.playback.ClearQueue)(w, r)
}

// command adapts a body-less playback call to a handler answering 204.
func (s *Server) command(fn func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(); err != nil {
			writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type addItemsRequest struct {
	MediaIDs []string `json:"mediaIds"`
}

func (s *Server) handleAddItems(w http.ResponseWriter, r *http.Request) {
	var req addItemsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.command(func() error { return s.playback.AddItems(req.MediaIDs) })(w, r)
}

type addNextRequest struct {
	MediaID string `json:"mediaId"`
}

func (s *Server) handleAddNext(w http.ResponseWriter, r *http.Request) {
	var req addNextRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.command(func() error { return s.playback.AddNext(req.MediaID) })(w, r)
}

type moveRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.command(func() error { return s.playback.MoveItem(req.From, req.To) })(w, r)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_index", "index must be an integer")
		return
	}
	s.command(func() error { return s.playback.RemoveItemAt(index) })(w, r)
}

type seekRequest struct {
	Index      int   `json:"index"`
	PositionMs int64 `json:"positionMs"`
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	var req seekRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.command(func() error { return s.playback.SeekTo(req.Index, req.PositionMs) })(w, r)
}

type shuffleRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleShuffle(w http.ResponseWriter, r *http.Request) {
	var req shuffleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.command(func() error { return s.playback.SetShuffle(req.Enabled) })(w, r)
}

type repeatRequest struct {
	Mode string `json:"mode"`
}

func (s *Server) handleRepeat(w http.ResponseWriter, r *http.Request) {
	var req repeatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	mode, err := model.ParseRepeatMode(req.Mode)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_mode", err.Error())
		return
	}
	s.command(func() error { return s.playback.SetRepeat(mode) })(w, r)
}
