// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider_Disabled(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.NoError(t, p.Shutdown(context.Background()))

	_, span := Tracer("test").Start(context.Background(), "noop")
	span.End()
}

func TestNewProvider_UnsupportedExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: true, ExporterType: "zipkin"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported exporter type "zipkin"`)
}

func TestHistoryAttributes(t *testing.T) {
	assert.Len(t, HistoryAttributes("video_1", "skipped"), 2)
	assert.Len(t, HistoryAttributes("", "skipped"), 1)
	assert.Empty(t, HistoryAttributes("", ""))
}

func TestQueueAttributes(t *testing.T) {
	attrs := QueueAttributes("sqlite", 3)
	require.Len(t, attrs, 2)
	assert.Equal(t, "sqlite", attrs[0].Value.AsString())
	assert.Equal(t, int64(3), attrs[1].Value.AsInt64())
}

func TestProviderShutdown_NilSafe(t *testing.T) {
	var p *Provider
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestSampler(t *testing.T) {
	assert.Equal(t, "AlwaysOnSampler", sampler(1).Description())
	assert.Equal(t, "AlwaysOffSampler", sampler(0).Description())
	assert.Equal(t, "AlwaysOffSampler", sampler(-1).Description())
	desc := sampler(0.25).Description()
	assert.Contains(t, desc, "ParentBased")
	assert.Contains(t, desc, "TraceIDRatioBased{0.25}")
}

func TestNewProvider_HTTPExporter(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{
		Enabled:      true,
		ServiceName:  "playstate",
		ExporterType: ExporterHTTP,
		Endpoint:     "127.0.0.1:4318",
		SamplingRate: 0,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = NewProvider(context.Background(), Config{})
	})

	_, span := Tracer("test").Start(context.Background(), "unsampled")
	assert.False(t, span.SpanContext().IsSampled())
	span.End()
	assert.NoError(t, p.Shutdown(context.Background()))
}
