// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package scenario

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ManuGH/adpolicy/internal/policy"
	"github.com/ManuGH/adpolicy/internal/rules"
)

const midRollScenario = `
name: mid-roll vod
mode: vod
duration: 3600
breaks:
  - id: mid
    start: 300
    end: 330
    ads:
      - {id: mid-1, duration: 15, skip_offset: 5}
      - {id: mid-2, non_linear: true, duration: 15}
  - id: pre
    start: 0
    end: 30
    ads:
      - {id: pre-1, duration: 30, skip_offset: -1}
steps:
  - {action: pause, at: 100, expect: true}
  - {action: skip, at: 301, expect: 4}
  - {action: skip, at: 310, expect: now}
  - {action: seek, at: 100, to: 600, expect: 600}
  - {action: resize_creative, at: 320, expand: true, expect: true}
  - {action: click_through, at: 310, url: "https://ads.example.com", expect: true}
  - {action: did_skip, at: 305, to: 330}
  - {action: mode, mode: live}
  - {action: pause, at: 100, expect: false}
  - {action: skip, at: 100, expect: never}
  - {action: seek, at: 100, to: 600, expect: 100}
  - {action: stop, at: 100}
`

func quietEngine(opts ...policy.Option) *policy.Engine {
	return policy.New(append([]policy.Option{policy.WithLogger(zerolog.Nop())}, opts...)...)
}

func TestParse(t *testing.T) {
	sc, err := Parse([]byte(midRollScenario))
	require.NoError(t, err)

	assert.Equal(t, "mid-roll vod", sc.Name)
	assert.Equal(t, 3600.0, sc.Duration)
	require.Len(t, sc.Steps, 12)

	tl := sc.Timeline()
	require.Equal(t, 2, tl.Len())
	assert.Equal(t, "pre", tl.Breaks()[0].ID, "breaks are ordered by start")

	assert.Equal(t, ActionSeek, sc.Steps[3].Action)
	assert.Equal(t, 600.0, sc.Steps[3].To)
	require.NotNil(t, sc.Steps[2].Expect)
	assert.Equal(t, NumberValue(policy.SkipNow), *sc.Steps[2].Expect)
	assert.Nil(t, sc.Steps[6].Expect)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr error
	}{
		{name: "empty", doc: "", wantErr: ErrInvalidScenario},
		{name: "unknown field", doc: "steps:\n  - {action: pause, at: 1, expcet: true}\n", wantErr: ErrUnknownField},
		{name: "no steps", doc: "name: x\n", wantErr: ErrInvalidScenario},
		{name: "unknown action", doc: "steps:\n  - {action: rewind}\n", wantErr: ErrInvalidScenario},
		{name: "bad scenario mode", doc: "mode: dvr\nsteps:\n  - {action: stop}\n", wantErr: policy.ErrInvalidMode},
		{name: "bad step mode", doc: "steps:\n  - {action: mode, mode: dvr}\n", wantErr: policy.ErrInvalidMode},
		{name: "click without url", doc: "steps:\n  - {action: click_through}\n", wantErr: ErrInvalidScenario},
		{name: "expect on notification", doc: "steps:\n  - {action: did_seek, at: 1, to: 2, expect: true}\n", wantErr: ErrInvalidScenario},
		{name: "expect kind mismatch", doc: "steps:\n  - {action: pause, expect: 3}\n", wantErr: ErrInvalidScenario},
		{name: "multiple documents", doc: "steps:\n  - {action: stop}\n---\nname: again\n", wantErr: ErrInvalidScenario},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Parse() err=%v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParse_BadExpectValue(t *testing.T) {
	_, err := Parse([]byte("steps:\n  - {action: skip, expect: sometime}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported expect value")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "midroll.yaml")
	require.NoError(t, os.WriteFile(path, []byte(midRollScenario), 0o600))

	sc, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, sc.Steps, 12)

	_, err = Load(filepath.Join(dir, "midroll.json"))
	require.Error(t, err)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRun_AllExpectationsHold(t *testing.T) {
	sc, err := Parse([]byte(midRollScenario))
	require.NoError(t, err)

	e := quietEngine()
	report, err := Run(context.Background(), e, sc)
	require.NoError(t, err)

	assert.True(t, report.OK(), "failed steps: %+v", report.Failed())
	assert.Equal(t, e.SessionID(), report.SessionID)

	got := make([]Value, 0, len(report.Steps))
	for _, st := range report.Steps {
		got = append(got, st.Got)
	}
	want := []Value{
		BoolValue(true),
		NumberValue(4),
		NumberValue(0),
		NumberValue(600),
		BoolValue(true),
		BoolValue(true),
		{},
		{},
		BoolValue(false),
		NumberValue(policy.SkipNever),
		NumberValue(100),
		BoolValue(true),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("decisions mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, "mid", report.Steps[1].Break)
	assert.Empty(t, report.Steps[0].Break)
	assert.Equal(t, policy.ModeLive, report.State.Mode)
	assert.Equal(t, 1, report.State.Skips)
}

func TestRun_ReportsMismatches(t *testing.T) {
	sc, err := Parse([]byte(`
name: strict pause
breaks:
  - {id: pre, start: 0, end: 30}
steps:
  - {action: pause, at: 10, expect: true}
  - {action: volume, at: 10, mute: true, expect: true}
  - {action: skip, at: 40, expect: never}
`))
	require.NoError(t, err)

	set := rules.New(rules.Config{DenyPauseInBreaks: true, DenyMuteInBreaks: true}, policy.ModeVOD)
	report, err := Run(context.Background(), quietEngine(policy.WithRules(set)), sc)
	require.NoError(t, err)

	assert.False(t, report.OK())
	assert.Equal(t, 3, report.Mismatches)

	failed := report.Failed()
	require.Len(t, failed, 3)
	if diff := cmp.Diff([]Action{ActionPause, ActionVolume, ActionSkip}, []Action{failed[0].Action, failed[1].Action, failed[2].Action}); diff != "" {
		t.Fatalf("failed actions (-want +got):\n%s", diff)
	}
	assert.Equal(t, BoolValue(false), failed[0].Got)
	assert.Equal(t, NumberValue(0), failed[2].Got)
}

func TestRun_StopsOnCancel(t *testing.T) {
	sc, err := Parse([]byte(midRollScenario))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := quietEngine(policy.WithMode(policy.ModeLive))
	report, err := Run(ctx, e, sc)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, report.Steps)
	assert.Equal(t, policy.ModeVOD, report.State.Mode, "scenario mode is applied before the first step")
}

func TestRun_TracesEachStep(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	sc, err := Parse([]byte(midRollScenario))
	require.NoError(t, err)
	_, err = Run(context.Background(), quietEngine(), sc)
	require.NoError(t, err)

	spans := sr.Ended()
	require.Len(t, spans, len(sc.Steps)+1)

	names := map[string]int{}
	for _, s := range spans {
		names[s.Name()]++
	}
	assert.Equal(t, map[string]int{"scenario.run": 1, "scenario.step": len(sc.Steps)}, names)

	root := spans[len(spans)-1]
	assert.Equal(t, "scenario.run", root.Name())
	for _, s := range spans[:len(spans)-1] {
		assert.Equal(t, root.SpanContext().TraceID(), s.SpanContext().TraceID())
	}
}

func TestValue_JSON(t *testing.T) {
	res := StepResult{Index: 1, Action: ActionSkip, Got: NumberValue(-1), Match: true}
	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"index":1,"action":"skip","at":0,"got":-1,"match":true}`, string(data))

	data, err = json.Marshal(StepResult{Action: ActionDidSkip})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"got":null`)

	assert.Equal(t, "never", NumberValue(-1).String())
	assert.Equal(t, "true", BoolValue(true).String())
	assert.True(t, NumberValue(1.0001).Equal(NumberValue(1.0)))
	assert.False(t, NumberValue(1).Equal(BoolValue(true)))
}
