// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package policy

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	xglog "github.com/ManuGH/adpolicy/internal/log"
	"github.com/ManuGH/adpolicy/internal/metrics"
	"github.com/ManuGH/adpolicy/internal/resilience"
	"github.com/ManuGH/adpolicy/internal/timeline"
)

// Source tells where a decision came from.
type Source string

const (
	SourceDefault      Source = "default"
	SourceCustom       Source = "custom"
	SourceFallback     Source = "fallback"
	SourceShortCircuit Source = "short_circuit"
	SourceBookkeeping  Source = "bookkeeping"
	SourceQuarantined  Source = "quarantined"
)

// FaultObserver is told about every recovered custom rule fault.
type FaultObserver func(*RuleFault)

// Engine answers policy queries for one playback session. It is safe for
// concurrent use.
type Engine struct {
	// modeMu orders mode writes together with their forwarding to the
	// rules, so the rules always end up told the mode the engine holds.
	modeMu sync.Mutex

	mu       sync.RWMutex
	mode     Mode
	rules    Handler
	skipOnce bool
	book     bookkeeping

	breaker  *resilience.CircuitBreaker
	observer FaultObserver
	faults   atomic.Uint64

	sessionID string
	logger    zerolog.Logger
	faultLog  rate.Sometimes
}

// Option configures an Engine.
type Option func(*Engine)

// WithMode sets the initial playback mode. The default is VOD.
func WithMode(mode Mode) Option {
	return func(e *Engine) {
		if mode.Valid() {
			e.mode = mode
		}
	}
}

// WithRules installs a custom rule set. A nil handler means defaults only.
func WithRules(h Handler) Option {
	return func(e *Engine) { e.rules = h }
}

// WithLogger overrides the engine logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithSessionID sets the session ID attached to logs and state snapshots.
func WithSessionID(id string) Option {
	return func(e *Engine) {
		if id != "" {
			e.sessionID = id
		}
	}
}

// WithSkipOncePerBreak makes a completed skip consume the skip allowance of
// the break it was taken from.
func WithSkipOncePerBreak(enabled bool) Option {
	return func(e *Engine) { e.skipOnce = enabled }
}

// WithFaultBreaker stops consulting the custom rules while cb is open.
func WithFaultBreaker(cb *resilience.CircuitBreaker) Option {
	return func(e *Engine) { e.breaker = cb }
}

// WithFaultObserver registers a callback for recovered rule faults.
func WithFaultObserver(fn FaultObserver) Option {
	return func(e *Engine) { e.observer = fn }
}

// New creates an engine for one playback session.
func New(opts ...Option) *Engine {
	e := &Engine{
		mode:      ModeVOD,
		sessionID: uuid.NewString(),
		faultLog:  rate.Sometimes{First: 5, Interval: 30 * time.Second},
	}
	e.logger = xglog.WithComponent("policy")
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With().Str(xglog.FieldSessionID, e.sessionID).Logger()

	if e.rules != nil {
		mode := e.mode
		e.notify(OpSetPlaybackMode, e.rules, func(h Handler) { h.SetPlaybackMode(mode) })
	}
	return e
}

// SessionID returns the ID attached to this engine's logs.
func (e *Engine) SessionID() string { return e.sessionID }

// Mode returns the current playback mode.
func (e *Engine) Mode() Mode {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.mode
}

// CanStop reports whether playback can stop.
func (e *Engine) CanStop(playhead float64, tl timeline.Timeline) bool {
	mode, rules := e.snapshot()
	return evaluate(e, OpCanStop, mode, rules,
		func(h Handler) (bool, error) { return h.CanStop(playhead, tl) },
		nil,
		defaultCanStop,
	)
}

// CanPause reports whether playback can pause.
func (e *Engine) CanPause(playhead float64, tl timeline.Timeline) bool {
	mode, rules := e.snapshot()
	return evaluate(e, OpCanPause, mode, rules,
		func(h Handler) (bool, error) { return h.CanPause(playhead, tl) },
		nil,
		func() bool { return defaultCanPause(mode) },
	)
}

// CanSkip returns the delay in seconds before the advert at playhead can be
// skipped, SkipNow, or SkipNever.
func (e *Engine) CanSkip(playhead float64, tl timeline.Timeline, duration float64) float64 {
	mode, rules, exhausted := e.skipSnapshot(playhead, tl)
	if exhausted {
		e.record(OpCanSkip, mode, SourceBookkeeping)
		return SkipNever
	}
	return evaluate(e, OpCanSkip, mode, rules,
		func(h Handler) (float64, error) { return h.CanSkip(playhead, tl, duration) },
		validSkip,
		func() float64 { return defaultCanSkip(mode, playhead, tl) },
	)
}

// WillSeekTo returns the position a seek from playhead to position resolves to.
func (e *Engine) WillSeekTo(position float64, tl timeline.Timeline, playhead float64) float64 {
	mode, rules := e.snapshot()
	return evaluate(e, OpWillSeekTo, mode, rules,
		func(h Handler) (float64, error) { return h.WillSeekTo(position, tl, playhead) },
		validPosition,
		func() float64 { return defaultWillSeekTo(mode, position, playhead) },
	)
}

// CanChangeVolume reports whether the volume can be muted or unmuted.
func (e *Engine) CanChangeVolume(mute bool, playhead float64, tl timeline.Timeline) bool {
	mode, rules := e.snapshot()
	return evaluate(e, OpCanChangeVolume, mode, rules,
		func(h Handler) (bool, error) { return h.CanChangeVolume(mute, playhead, tl) },
		nil,
		alwaysTrue,
	)
}

// CanResize reports whether the player can enter or leave full screen.
func (e *Engine) CanResize(fullscreen bool, playhead float64, tl timeline.Timeline) bool {
	mode, rules := e.snapshot()
	return evaluate(e, OpCanResize, mode, rules,
		func(h Handler) (bool, error) { return h.CanResize(fullscreen, playhead, tl) },
		nil,
		alwaysTrue,
	)
}

// CanResizeCreative reports whether the creative at playhead can expand or
// collapse. Non-linear creatives are always allowed and the custom rules are
// not consulted for them.
func (e *Engine) CanResizeCreative(expand bool, playhead float64, tl timeline.Timeline) bool {
	mode, rules := e.snapshot()
	if ad, ok := tl.AdAt(playhead); ok && ad.NonLinear {
		e.record(OpCanResizeCreative, mode, SourceShortCircuit)
		return true
	}
	return evaluate(e, OpCanResizeCreative, mode, rules,
		func(h Handler) (bool, error) { return h.CanResizeCreative(expand, playhead, tl) },
		nil,
		alwaysTrue,
	)
}

// CanClickThrough reports whether the user can follow url.
func (e *Engine) CanClickThrough(url string, playhead float64, tl timeline.Timeline) bool {
	mode, rules := e.snapshot()
	return evaluate(e, OpCanClickThrough, mode, rules,
		func(h Handler) (bool, error) { return h.CanClickThrough(url, playhead, tl) },
		nil,
		alwaysTrue,
	)
}

// SetPlaybackMode replaces the playback mode. Subsequent queries use the new
// mode immediately. Unknown modes are logged and ignored. Custom rules are
// told about each change in the order the changes were made and must not
// change the mode or rules from inside their SetPlaybackMode.
func (e *Engine) SetPlaybackMode(mode Mode) {
	if !mode.Valid() {
		e.logger.Warn().
			Str(xglog.FieldEvent, "policy.mode_rejected").
			Str(xglog.FieldMode, string(mode)).
			Msg("ignoring unknown playback mode")
		return
	}

	e.modeMu.Lock()
	defer e.modeMu.Unlock()

	e.mu.Lock()
	old := e.mode
	e.mode = mode
	rules := e.rules
	e.mu.Unlock()

	metrics.RecordModeChange(string(mode))
	e.logger.Info().
		Str(xglog.FieldEvent, "policy.mode_changed").
		Str(xglog.FieldOldState, string(old)).
		Str(xglog.FieldNewState, string(mode)).
		Msg("playback mode changed")

	if rules != nil {
		e.notify(OpSetPlaybackMode, rules, func(h Handler) { h.SetPlaybackMode(mode) })
	}
}

// SetRules replaces the custom rule set; nil removes it. The new rules are
// told the current mode and the fault breaker, if any, is reset.
func (e *Engine) SetRules(h Handler) {
	e.modeMu.Lock()
	defer e.modeMu.Unlock()

	e.mu.Lock()
	e.rules = h
	mode := e.mode
	e.mu.Unlock()

	if e.breaker != nil {
		e.breaker.Reset()
	}
	if h != nil {
		e.notify(OpSetPlaybackMode, h, func(h Handler) { h.SetPlaybackMode(mode) })
	}
	e.logger.Info().
		Str(xglog.FieldEvent, "policy.rules_replaced").
		Bool("custom", h != nil).
		Msg("custom rules replaced")
}

// SetSkipOncePerBreak toggles once-per-break skip allowance at runtime.
func (e *Engine) SetSkipOncePerBreak(enabled bool) {
	e.mu.Lock()
	e.skipOnce = enabled
	e.mu.Unlock()
}

// DidSkip records a completed skip from previous to current.
func (e *Engine) DidSkip(previous, current float64, tl timeline.Timeline) {
	e.mu.Lock()
	marked := e.book.recordSkip(previous, current, tl)
	rules := e.rules
	e.mu.Unlock()

	metrics.RecordNotification(string(OpDidSkip))
	e.logger.Debug().
		Str(xglog.FieldEvent, "policy.skip_recorded").
		Float64(xglog.FieldPrevious, previous).
		Float64(xglog.FieldCurrent, current).
		Strs(xglog.FieldBreakKey, marked).
		Msg("skip completed")

	if rules != nil {
		e.notify(OpDidSkip, rules, func(h Handler) { h.DidSkip(previous, current, tl) })
	}
}

// DidSeek records a completed seek from previous to current.
func (e *Engine) DidSeek(previous, current float64, tl timeline.Timeline) {
	e.mu.Lock()
	restored, passed := e.book.recordSeek(previous, current, tl)
	rules := e.rules
	e.mu.Unlock()

	metrics.RecordNotification(string(OpDidSeek))
	e.logger.Debug().
		Str(xglog.FieldEvent, "policy.seek_recorded").
		Float64(xglog.FieldPrevious, previous).
		Float64(xglog.FieldCurrent, current).
		Strs("restored", restored).
		Strs("passed_over", passed).
		Msg("seek completed")

	if rules != nil {
		e.notify(OpDidSeek, rules, func(h Handler) { h.DidSeek(previous, current, tl) })
	}
}

// Reset clears skip and seek bookkeeping. The mode is kept.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.book = bookkeeping{}
	e.mu.Unlock()
}

func (e *Engine) snapshot() (Mode, Handler) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.mode, e.rules
}

func (e *Engine) skipSnapshot(playhead float64, tl timeline.Timeline) (Mode, Handler, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	exhausted := e.skipOnce && e.book.exhausted(playhead, tl)
	return e.mode, e.rules, exhausted
}

// evaluate asks the custom rules when present and falls back to the default
// for op and mode on any fault.
func evaluate[T any](e *Engine, op Operation, mode Mode, rules Handler, call func(Handler) (T, error), valid func(T) bool, fallback func() T) T {
	if rules == nil {
		e.record(op, mode, SourceDefault)
		return fallback()
	}
	if e.breaker != nil && !e.breaker.Allow() {
		e.record(op, mode, SourceQuarantined)
		return fallback()
	}

	v, fault := invoke(op, rules, call, valid)
	if fault != nil {
		e.fault(fault, mode)
		e.record(op, mode, SourceFallback)
		return fallback()
	}

	if e.breaker != nil {
		e.breaker.RecordSuccess()
	}
	e.record(op, mode, SourceCustom)
	return v
}

// invoke is the only place custom query code runs.
func invoke[T any](op Operation, rules Handler, call func(Handler) (T, error), valid func(T) bool) (result T, fault *RuleFault) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			result = zero
			fault = &RuleFault{Op: op, Kind: FaultPanic, Cause: panicCause(r)}
		}
	}()

	v, err := call(rules)
	if err != nil {
		return v, &RuleFault{Op: op, Kind: FaultError, Cause: err}
	}
	if valid != nil && !valid(v) {
		return v, &RuleFault{Op: op, Kind: FaultInvalid, Cause: fmt.Errorf("%w: %v", ErrInvalidDecision, v)}
	}
	return v, nil
}

// notify forwards a notification to the custom rules, absorbing panics.
func (e *Engine) notify(op Operation, rules Handler, fn func(Handler)) {
	defer func() {
		if r := recover(); r != nil {
			e.fault(&RuleFault{Op: op, Kind: FaultPanic, Cause: panicCause(r)}, e.Mode())
		}
	}()
	fn(rules)
}

func (e *Engine) fault(f *RuleFault, mode Mode) {
	e.faults.Add(1)
	metrics.RecordRuleFault(string(f.Op), string(f.Kind))
	if e.breaker != nil {
		e.breaker.RecordFailure()
	}
	e.faultLog.Do(func() {
		e.logger.Warn().
			Err(f.Cause).
			Str(xglog.FieldEvent, "policy.rule_fault").
			Str(xglog.FieldOperation, string(f.Op)).
			Str(xglog.FieldFaultKind, string(f.Kind)).
			Str(xglog.FieldMode, string(mode)).
			Msg("custom rule failed, using default")
	})
	if e.observer != nil {
		e.observer(f)
	}
}

func (e *Engine) record(op Operation, mode Mode, source Source) {
	metrics.RecordPolicyDecision(string(op), string(mode), string(source))
}

func panicCause(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}

func alwaysTrue() bool { return true }
