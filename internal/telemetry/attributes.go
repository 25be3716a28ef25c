// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import "go.opentelemetry.io/otel/attribute"

// Common attribute keys for consistent tracing across the application.
const (
	MediaIDKey          = "playstate.media_id"
	CompletionReasonKey = "playstate.completion_reason"
	HistoryOutcomeKey   = "playstate.history.outcome"
	QueueBackendKey     = "playstate.queue.backend"
	QueueItemsKey       = "playstate.queue.items"
)

// HistoryAttributes creates span attributes for a history write.
func HistoryAttributes(mediaID, reason string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2)
	if mediaID != "" {
		attrs = append(attrs, attribute.String(MediaIDKey, mediaID))
	}
	if reason != "" {
		attrs = append(attrs, attribute.String(CompletionReasonKey, reason))
	}
	return attrs
}

// QueueAttributes creates span attributes for a queue snapshot write.
func QueueAttributes(backend string, items int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(QueueBackendKey, backend),
		attribute.Int(QueueItemsKey, items),
	}
}
