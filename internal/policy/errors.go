// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package policy

import (
	"errors"
	"fmt"
)

var (
	// ErrRuleFault classifies any failure of a custom rule set. It never
	// leaves the engine's query methods; it is reported through logs,
	// metrics and the fault observer.
	ErrRuleFault = errors.New("custom rule fault")

	// ErrInvalidMode is returned by ParseMode for unknown mode names.
	ErrInvalidMode = errors.New("invalid playback mode")

	// ErrInvalidDecision marks a custom result outside the decision domain.
	ErrInvalidDecision = errors.New("invalid decision value")
)

// FaultKind is how a custom rule failed.
type FaultKind string

const (
	FaultError   FaultKind = "error"
	FaultPanic   FaultKind = "panic"
	FaultInvalid FaultKind = "invalid"
)

// RuleFault describes one recovered custom rule failure.
type RuleFault struct {
	Op    Operation
	Kind  FaultKind
	Cause error
}

func (f *RuleFault) Error() string {
	return fmt.Sprintf("%s: %s (%s): %v", ErrRuleFault, f.Op, f.Kind, f.Cause)
}

func (f *RuleFault) Unwrap() error { return f.Cause }

// Is makes errors.Is(fault, ErrRuleFault) hold for every fault.
func (f *RuleFault) Is(target error) bool { return target == ErrRuleFault }
