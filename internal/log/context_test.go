// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, SessionIDFromContext(ctx))
	assert.Empty(t, ScenarioFromContext(ctx))

	ctx = ContextWithSessionID(ctx, "sess-42")
	ctx = ContextWithScenario(ctx, "mid-roll vod")
	assert.Equal(t, "sess-42", SessionIDFromContext(ctx))
	assert.Equal(t, "mid-roll vod", ScenarioFromContext(ctx))
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestWithContext(t *testing.T) {
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})

	tests := []struct {
		name string
		ctx  context.Context
		want map[string]string
		miss []string
	}{
		{
			name: "empty context adds nothing",
			ctx:  context.Background(),
			miss: []string{FieldSessionID, FieldScenario, FieldTraceID},
		},
		{
			name: "session only",
			ctx:  ContextWithSessionID(context.Background(), "sess-1"),
			want: map[string]string{FieldSessionID: "sess-1"},
			miss: []string{FieldScenario, FieldTraceID},
		},
		{
			name: "scenario and span",
			ctx:  trace.ContextWithSpanContext(ContextWithScenario(context.Background(), "pre-roll"), spanCtx),
			want: map[string]string{
				FieldScenario: "pre-roll",
				FieldTraceID:  traceID.String(),
				FieldSpanID:   spanID.String(),
			},
			miss: []string{FieldSessionID},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := WithContext(tt.ctx, zerolog.New(&buf))
			l.Info().Msg("decision")

			entry := decodeLine(t, &buf)
			for k, v := range tt.want {
				assert.Equal(t, v, entry[k], k)
			}
			for _, k := range tt.miss {
				assert.NotContains(t, entry, k)
			}
		})
	}
}

func TestFromContext(t *testing.T) {
	t.Cleanup(func() { Configure(Config{Output: io.Discard}) })

	var buf bytes.Buffer
	Configure(Config{Level: "info", Output: &buf})

	ctx := ContextWithSessionID(context.Background(), "sess-9")
	logger := FromContext(ctx, "scenario")
	logger.Info().Msg("replaying")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "scenario", entry[FieldComponent])
	assert.Equal(t, "sess-9", entry[FieldSessionID])
	assert.Equal(t, "adpolicy", entry["service"])
}
