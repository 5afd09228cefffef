// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID = "session_id"
	FieldScenario  = "scenario"
	FieldTraceID   = "trace_id"
	FieldSpanID    = "span_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Policy fields
	FieldOperation = "operation"
	FieldMode      = "mode"
	FieldSource    = "source"
	FieldFaultKind = "fault_kind"
	FieldPlayhead  = "playhead"
	FieldPrevious  = "previous"
	FieldCurrent   = "current"
	FieldBreakKey  = "break"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Path fields
	FieldPath = "path"
)
