// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics exposes the Prometheus instrumentation of the playstate core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// History outcomes for RecordHistoryEntry.
const (
	OutcomeInserted  = "inserted"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
)

var (
	historyEntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playstate_history_entries_total",
		Help: "History entries handed to the store by outcome",
	}, []string{"outcome"}) // outcome=inserted|duplicate|failed

	historyTrimmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playstate_history_trimmed_total",
		Help: "History entries deleted by retention trimming",
	})

	historyTrimFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playstate_history_trim_failures_total",
		Help: "Retention trims that failed after a committed insert",
	})

	historySessionsClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playstate_history_sessions_closed_total",
		Help: "Tracking sessions closed by completion reason and whether they were recorded",
	}, []string{"reason", "recorded"})

	queueSavesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playstate_queue_saves_total",
		Help: "Queue state snapshot writes by outcome",
	}, []string{"outcome"}) // outcome=success|failure

	queueRestoresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playstate_queue_restores_total",
		Help: "Queue restore attempts by outcome",
	}, []string{"outcome"}) // outcome=restored|empty|failure

	coordinatorState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "playstate_coordinator_state",
		Help: "Playback coordinator lifecycle state (0=uninitialized, 1=initialized, 2=released)",
	})

	configReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playstate_config_reloads_total",
		Help: "Configuration reloads by outcome",
	}, []string{"outcome"}) // outcome=success|failure
)

// RecordHistoryEntry counts one AddEntry outcome.
func RecordHistoryEntry(outcome string) {
	historyEntriesTotal.WithLabelValues(outcome).Inc()
}

// RecordHistoryTrimmed counts entries removed by retention.
func RecordHistoryTrimmed(n int64) {
	if n > 0 {
		historyTrimmedTotal.Add(float64(n))
	}
}

// RecordHistoryTrimFailure counts one failed retention trim.
func RecordHistoryTrimFailure() {
	historyTrimFailuresTotal.Inc()
}

// RecordSessionClosed counts one closed tracking session.
func RecordSessionClosed(reason string, recorded bool) {
	label := "false"
	if recorded {
		label = "true"
	}
	historySessionsClosed.WithLabelValues(reason, label).Inc()
}

// RecordQueueSave counts one queue snapshot write.
func RecordQueueSave(success bool) {
	if success {
		queueSavesTotal.WithLabelValues("success").Inc()
		return
	}
	queueSavesTotal.WithLabelValues("failure").Inc()
}

// RecordQueueRestore counts one restore attempt (restored|empty|failure).
func RecordQueueRestore(outcome string) {
	queueRestoresTotal.WithLabelValues(outcome).Inc()
}

// SetCoordinatorState publishes the coordinator lifecycle state.
func SetCoordinatorState(state int) {
	coordinatorState.Set(float64(state))
}

// RecordConfigReload counts one configuration reload.
func RecordConfigReload(success bool) {
	if success {
		configReloadsTotal.WithLabelValues("success").Inc()
		return
	}
	configReloadsTotal.WithLabelValues("failure").Inc()
}
