// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package resilience contains the circuit breaker used to quarantine custom
// policy rules that keep faulting.
package resilience

import (
	"sync"
	"time"

	"github.com/ManuGH/adpolicy/internal/metrics"
)

// State represents the circuit breaker state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

const (
	defaultThreshold    = 3
	defaultResetTimeout = 30 * time.Second
)

// Transition is reported to a StateListener after the breaker changes state.
type Transition struct {
	Name   string
	From   State
	To     State
	Reason string
}

// StateListener is called outside the breaker lock.
type StateListener func(Transition)

type clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Stats is a point-in-time view of a breaker.
type Stats struct {
	State               State
	ConsecutiveFailures int
	Trips               int
	OpenedAt            time.Time
}

// CircuitBreaker opens after threshold consecutive failures. While open the
// protected rules are skipped; once resetTimeout has elapsed a single probe is
// admitted and its outcome closes or reopens the breaker.
type CircuitBreaker struct {
	name         string
	threshold    int
	resetTimeout time.Duration
	clock        clock
	listener     StateListener

	mu       sync.Mutex
	state    State
	failures int
	trips    int
	openedAt time.Time
	probing  bool
}

// Option configures a CircuitBreaker.
type Option func(*CircuitBreaker)

// WithClock replaces the wall clock, for tests.
func WithClock(c clock) Option {
	return func(cb *CircuitBreaker) { cb.clock = c }
}

// WithStateListener registers fn for state transitions.
func WithStateListener(fn StateListener) Option {
	return func(cb *CircuitBreaker) { cb.listener = fn }
}

// NewCircuitBreaker returns a closed breaker. Non-positive threshold or
// resetTimeout select the defaults (3 failures, 30s).
func NewCircuitBreaker(name string, threshold int, resetTimeout time.Duration, opts ...Option) *CircuitBreaker {
	if threshold <= 0 {
		threshold = defaultThreshold
	}
	if resetTimeout <= 0 {
		resetTimeout = defaultResetTimeout
	}
	cb := &CircuitBreaker{
		name:         name,
		threshold:    threshold,
		resetTimeout: resetTimeout,
		clock:        realClock{},
		state:        StateClosed,
	}
	for _, opt := range opts {
		opt(cb)
	}
	metrics.SetCircuitBreakerState(cb.name, string(cb.state))
	return cb
}

// Name returns the component name used for metrics.
func (cb *CircuitBreaker) Name() string { return cb.name }

// Allow reports whether the rules may be consulted now. In half-open only
// the first caller is admitted until its outcome is recorded.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	var t *Transition
	allowed := false
	switch cb.state {
	case StateClosed:
		allowed = true
	case StateOpen:
		if cb.clock.Now().Sub(cb.openedAt) >= cb.resetTimeout {
			t = cb.transitionLocked(StateHalfOpen, "reset_timeout")
			cb.probing = true
			allowed = true
		}
	case StateHalfOpen:
		if !cb.probing {
			cb.probing = true
			allowed = true
		}
	}
	cb.mu.Unlock()
	cb.emit(t)
	return allowed
}

// RecordFailure counts one fault. A failed probe reopens immediately.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	var t *Transition
	cb.failures++
	switch cb.state {
	case StateHalfOpen:
		cb.probing = false
		t = cb.tripLocked("half_open_failure")
	case StateClosed:
		if cb.failures >= cb.threshold {
			t = cb.tripLocked("threshold_exceeded")
		}
	}
	cb.mu.Unlock()
	cb.emit(t)
}

// RecordSuccess clears the failure streak. Only a successful half-open probe
// closes the breaker; a late success while open keeps the quarantine.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	var t *Transition
	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.failures = 0
		cb.probing = false
		t = cb.transitionLocked(StateClosed, "probe_succeeded")
	}
	cb.mu.Unlock()
	cb.emit(t)
}

// Reset closes the breaker, e.g. after the rules were replaced.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	cb.failures = 0
	cb.probing = false
	t := cb.transitionLocked(StateClosed, "reset")
	cb.mu.Unlock()
	cb.emit(t)
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Stats returns a snapshot of the breaker counters.
func (cb *CircuitBreaker) Stats() Stats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return Stats{
		State:               cb.state,
		ConsecutiveFailures: cb.failures,
		Trips:               cb.trips,
		OpenedAt:            cb.openedAt,
	}
}

// Caller must hold mu.
func (cb *CircuitBreaker) tripLocked(reason string) *Transition {
	cb.trips++
	metrics.RecordCircuitBreakerTrip(cb.name, reason)
	return cb.transitionLocked(StateOpen, reason)
}

// Caller must hold mu.
func (cb *CircuitBreaker) transitionLocked(to State, reason string) *Transition {
	if cb.state == to {
		return nil
	}
	from := cb.state
	cb.state = to
	if to == StateOpen {
		cb.openedAt = cb.clock.Now()
	}
	metrics.SetCircuitBreakerState(cb.name, string(to))
	return &Transition{Name: cb.name, From: from, To: to, Reason: reason}
}

func (cb *CircuitBreaker) emit(t *Transition) {
	if t != nil && cb.listener != nil {
		cb.listener(*t)
	}
}
