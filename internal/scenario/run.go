// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package scenario

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	xglog "github.com/ManuGH/adpolicy/internal/log"
	"github.com/ManuGH/adpolicy/internal/policy"
	"github.com/ManuGH/adpolicy/internal/telemetry"
	"github.com/ManuGH/adpolicy/internal/timeline"
)

const tracerName = "github.com/ManuGH/adpolicy/internal/scenario"

// StepResult is the outcome of one step.
type StepResult struct {
	Index    int     `json:"index"`
	Action   Action  `json:"action"`
	At       float64 `json:"at"`
	Break    string  `json:"break,omitempty"`
	Got      Value   `json:"got"`
	Expected *Value  `json:"expected,omitempty"`
	Match    bool    `json:"match"`
}

// Report summarises a run.
type Report struct {
	Name       string       `json:"name"`
	SessionID  string       `json:"session_id"`
	Steps      []StepResult `json:"steps"`
	Mismatches int          `json:"mismatches"`
	State      policy.State `json:"state"`
}

// OK reports whether every expectation held.
func (r Report) OK() bool { return r.Mismatches == 0 }

// Failed returns the steps whose expectation did not hold.
func (r Report) Failed() []StepResult {
	var out []StepResult
	for _, st := range r.Steps {
		if !st.Match {
			out = append(out, st)
		}
	}
	return out
}

// Run replays sc against e. It stops between steps when ctx is cancelled and
// returns the partial report with the context error.
func Run(ctx context.Context, e *policy.Engine, sc Scenario) (Report, error) {
	tl := sc.Timeline()
	ctx = xglog.ContextWithScenario(xglog.ContextWithSessionID(ctx, e.SessionID()), sc.Name)

	ctx, span := telemetry.Tracer(tracerName).Start(ctx, "scenario.run",
		trace.WithAttributes(telemetry.ScenarioAttributes(sc.Name, len(sc.Steps))...),
		trace.WithAttributes(telemetry.TimelineAttributes(tl.Len(), "")...),
	)
	defer span.End()
	logger := xglog.FromContext(ctx, "scenario")

	report := Report{
		Name:      sc.Name,
		SessionID: e.SessionID(),
		Steps:     make([]StepResult, 0, len(sc.Steps)),
	}

	if sc.Mode != "" {
		mode, err := policy.ParseMode(sc.Mode)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "invalid scenario mode")
			return report, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
		}
		e.SetPlaybackMode(mode)
	}

	for i, st := range sc.Steps {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			span.SetAttributes(telemetry.ErrorAttributes(err, "cancelled")...)
			span.SetStatus(codes.Error, "cancelled")
			report.State = e.State()
			return report, fmt.Errorf("scenario %q cancelled at step %d: %w", sc.Name, i, err)
		}

		res, err := runStep(ctx, e, tl, sc.Duration, i, st)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(telemetry.ErrorAttributes(err, "invalid_step")...)
			span.SetStatus(codes.Error, "step failed")
			report.State = e.State()
			return report, err
		}
		if !res.Match {
			report.Mismatches++
			logger.Warn().
				Str(xglog.FieldEvent, "scenario.mismatch").
				Int("step", i).
				Str(xglog.FieldOperation, string(st.Action)).
				Float64(xglog.FieldPlayhead, st.At).
				Str("got", res.Got.String()).
				Str("expected", res.Expected.String()).
				Msg("decision did not match expectation")
		}
		report.Steps = append(report.Steps, res)
	}

	report.State = e.State()
	if !report.OK() {
		span.SetStatus(codes.Error, fmt.Sprintf("%d mismatches", report.Mismatches))
	}
	logger.Info().
		Str(xglog.FieldEvent, "scenario.completed").
		Int("steps", len(report.Steps)).
		Int("mismatches", report.Mismatches).
		Msg("scenario completed")
	return report, nil
}

func runStep(ctx context.Context, e *policy.Engine, tl timeline.Timeline, duration float64, i int, st Step) (StepResult, error) {
	op, ok := st.Action.Operation()
	if !ok {
		return StepResult{}, fmt.Errorf("%w: step %d: unknown action %q", ErrInvalidScenario, i, st.Action)
	}

	res := StepResult{Index: i, Action: st.Action, At: st.At, Expected: st.Expect, Match: true}
	if b, in := tl.BreakAt(st.At); in {
		res.Break = b.Key()
	}

	_, span := telemetry.Tracer(tracerName).Start(ctx, "scenario.step",
		trace.WithAttributes(telemetry.PolicyAttributes(string(op), e.Mode().String(), st.At)...),
		trace.WithAttributes(telemetry.TimelineAttributes(tl.Len(), res.Break)...),
	)
	defer span.End()
	span.SetAttributes(attributeStep(i))

	switch st.Action {
	case ActionMode:
		mode, err := policy.ParseMode(st.Mode)
		if err != nil {
			span.RecordError(err)
			return res, fmt.Errorf("%w: step %d: %w", ErrInvalidScenario, i, err)
		}
		e.SetPlaybackMode(mode)
	case ActionDidSkip:
		e.DidSkip(st.At, st.To, tl)
	case ActionDidSeek:
		e.DidSeek(st.At, st.To, tl)
	case ActionStop:
		res.Got = BoolValue(e.CanStop(st.At, tl))
	case ActionPause:
		res.Got = BoolValue(e.CanPause(st.At, tl))
	case ActionSkip:
		res.Got = NumberValue(e.CanSkip(st.At, tl, duration))
	case ActionSeek:
		res.Got = NumberValue(e.WillSeekTo(st.To, tl, st.At))
	case ActionVolume:
		res.Got = BoolValue(e.CanChangeVolume(st.Mute, st.At, tl))
	case ActionResize:
		res.Got = BoolValue(e.CanResize(st.Fullscreen, st.At, tl))
	case ActionResizeCreative:
		res.Got = BoolValue(e.CanResizeCreative(st.Expand, st.At, tl))
	case ActionClickThrough:
		res.Got = BoolValue(e.CanClickThrough(st.URL, st.At, tl))
	}

	if !res.Got.IsZero() {
		span.SetAttributes(attributeResult(res.Got))
	}
	if st.Expect != nil {
		res.Match = res.Got.Equal(*st.Expect)
		span.SetAttributes(attributeExpect(*st.Expect, res.Match)...)
		if !res.Match {
			span.SetStatus(codes.Error, "decision mismatch")
		}
	}
	return res, nil
}

func attributeStep(i int) attribute.KeyValue {
	return attribute.Int(telemetry.ScenarioStepKey, i)
}

func attributeResult(v Value) attribute.KeyValue {
	return attribute.String(telemetry.PolicyResultKey, v.String())
}

func attributeExpect(v Value, match bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(telemetry.PolicyExpectedKey, v.String()),
		attribute.Bool(telemetry.PolicyMatchKey, match),
	}
}
