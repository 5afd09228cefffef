// SPDX-License-Identifier: MIT

// Package telemetry provides OpenTelemetry tracing utilities for the policy engine.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the module.
const (
	// Policy attributes
	PolicyOperationKey = "policy.operation"
	PolicyModeKey      = "policy.mode"
	PolicyPlayheadKey  = "policy.playhead"
	PolicyResultKey    = "policy.result"
	PolicyExpectedKey  = "policy.expected"
	PolicyMatchKey     = "policy.match"

	// Timeline attributes
	TimelineBreaksKey = "timeline.breaks"
	TimelineBreakKey  = "timeline.break"

	// Scenario attributes
	ScenarioNameKey  = "scenario.name"
	ScenarioStepKey  = "scenario.step"
	ScenarioStepsKey = "scenario.steps"

	// Error attributes
	ErrorKey        = "error"
	ErrorTypeKey    = "error.type"
	ErrorMessageKey = "error.message"
)

// PolicyAttributes creates span attributes for one policy query.
func PolicyAttributes(operation, mode string, playhead float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(PolicyOperationKey, operation),
		attribute.String(PolicyModeKey, mode),
		attribute.Float64(PolicyPlayheadKey, playhead),
	}
}

// TimelineAttributes creates timeline-related span attributes. breakKey is
// omitted when the playhead is outside any break.
func TimelineAttributes(breaks int, breakKey string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2)
	attrs = append(attrs, attribute.Int(TimelineBreaksKey, breaks))
	if breakKey != "" {
		attrs = append(attrs, attribute.String(TimelineBreakKey, breakKey))
	}
	return attrs
}

// ScenarioAttributes creates scenario-run span attributes.
func ScenarioAttributes(name string, steps int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(ScenarioNameKey, name),
		attribute.Int(ScenarioStepsKey, steps),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(err error, errorType string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
	if err != nil {
		attrs = append(attrs, attribute.String(ErrorMessageKey, err.Error()))
	}
	return attrs
}
