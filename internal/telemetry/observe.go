// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName            = "playstate.history"
	sessionsClosedMetric = "playstate.history.sessions_closed"
)

// RecordSessionClosed counts a closed tracking session on the global OTel
// meter provider. The provider is looked up per call so a provider
// installed after startup is honored.
func RecordSessionClosed(ctx context.Context, reason string, recorded bool) {
	meter := otel.GetMeterProvider().Meter(meterName)
	counter, err := meter.Int64Counter(sessionsClosedMetric,
		metric.WithDescription("Tracking sessions closed by completion reason"))
	if err != nil {
		return
	}
	counter.Add(ctx, 1, metric.WithAttributes(
		attribute.String(CompletionReasonKey, reason),
		attribute.Bool("playstate.history.recorded", recorded),
	))
}
