// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package log provides structured logging utilities.
package log

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

type ctxKey int

const (
	sessionIDKey ctxKey = iota
	scenarioKey
)

// ContextWithSessionID stores the playback session ID in ctx.
func ContextWithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// ContextWithScenario stores the name of the scenario being replayed in ctx.
func ContextWithScenario(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, scenarioKey, name)
}

// SessionIDFromContext returns the session ID stored in ctx, if any.
func SessionIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, sessionIDKey)
}

// ScenarioFromContext returns the scenario name stored in ctx, if any.
func ScenarioFromContext(ctx context.Context) string {
	return stringFromContext(ctx, scenarioKey)
}

func stringFromContext(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

// WithContext adds the session, scenario and trace identifiers found in ctx
// to logger.
func WithContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	if ctx == nil {
		return logger
	}
	b := logger.With()
	added := false
	if sid := SessionIDFromContext(ctx); sid != "" {
		b = b.Str(FieldSessionID, sid)
		added = true
	}
	if name := ScenarioFromContext(ctx); name != "" {
		b = b.Str(FieldScenario, name)
		added = true
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		b = b.Str(FieldTraceID, sc.TraceID().String()).Str(FieldSpanID, sc.SpanID().String())
		added = true
	}
	if !added {
		return logger
	}
	return b.Logger()
}

// FromContext returns a component logger enriched from ctx.
func FromContext(ctx context.Context, component string) zerolog.Logger {
	return WithContext(ctx, WithComponent(component))
}
