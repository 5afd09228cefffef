// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package scenario replays scripted playback sessions against a policy engine.
//
// A scenario is a YAML document describing an ad timeline and a sequence of
// user actions and notifications, each optionally carrying the decision the
// engine is expected to return.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ManuGH/adpolicy/internal/policy"
	"github.com/ManuGH/adpolicy/internal/timeline"
)

var (
	// ErrInvalidScenario classifies scenario documents that decode but do not
	// describe a runnable session.
	ErrInvalidScenario = errors.New("invalid scenario")

	// ErrUnknownField classifies strict decode failures caused by unknown keys.
	ErrUnknownField = errors.New("unknown scenario field")
)

// Action names one step of a scenario.
type Action string

const (
	ActionMode           Action = "mode"
	ActionStop           Action = "stop"
	ActionPause          Action = "pause"
	ActionSkip           Action = "skip"
	ActionSeek           Action = "seek"
	ActionVolume         Action = "volume"
	ActionResize         Action = "resize"
	ActionResizeCreative Action = "resize_creative"
	ActionClickThrough   Action = "click_through"
	ActionDidSkip        Action = "did_skip"
	ActionDidSeek        Action = "did_seek"
)

var actionOps = map[Action]policy.Operation{
	ActionMode:           policy.OpSetPlaybackMode,
	ActionStop:           policy.OpCanStop,
	ActionPause:          policy.OpCanPause,
	ActionSkip:           policy.OpCanSkip,
	ActionSeek:           policy.OpWillSeekTo,
	ActionVolume:         policy.OpCanChangeVolume,
	ActionResize:         policy.OpCanResize,
	ActionResizeCreative: policy.OpCanResizeCreative,
	ActionClickThrough:   policy.OpCanClickThrough,
	ActionDidSkip:        policy.OpDidSkip,
	ActionDidSeek:        policy.OpDidSeek,
}

// Operation returns the policy operation the action exercises.
func (a Action) Operation() (policy.Operation, bool) {
	op, ok := actionOps[a]
	return op, ok
}

// Query reports whether the action returns a decision.
func (a Action) Query() bool {
	switch a {
	case ActionMode, ActionDidSkip, ActionDidSeek:
		return false
	}
	_, ok := actionOps[a]
	return ok
}

// Scenario is a scripted playback session.
type Scenario struct {
	Name string `yaml:"name"`
	// Mode is the playback mode set before the first step. Empty keeps the
	// engine's mode.
	Mode string `yaml:"mode"`
	// Duration of the stream in seconds, zero for live.
	Duration float64            `yaml:"duration"`
	Breaks   []timeline.AdBreak `yaml:"breaks"`
	Steps    []Step             `yaml:"steps"`
}

// Step is one action against the engine.
type Step struct {
	Action Action `yaml:"action"`
	// At is the playhead when the action happens, or the previous position
	// for did_skip and did_seek.
	At float64 `yaml:"at"`
	// To is the seek target, or the current position for did_skip and did_seek.
	To         float64 `yaml:"to"`
	Mode       string  `yaml:"mode"`
	Mute       bool    `yaml:"mute"`
	Fullscreen bool    `yaml:"fullscreen"`
	Expand     bool    `yaml:"expand"`
	URL        string  `yaml:"url"`
	Expect     *Value  `yaml:"expect"`
}

// Timeline builds the ad timeline of the scenario.
func (s Scenario) Timeline() timeline.Timeline {
	return timeline.New(s.Breaks...)
}

// Load reads and validates a YAML scenario file.
func Load(path string) (Scenario, error) {
	path = filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return Scenario{}, fmt.Errorf("unsupported scenario format: %s (only YAML supported)", ext)
	}
	// #nosec G304 -- scenario paths are provided by the operator via CLI
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("read scenario: %w", err)
	}
	sc, err := Parse(data)
	if err != nil {
		return Scenario{}, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// Parse strictly decodes and validates a YAML scenario.
func Parse(data []byte) (Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&sc); err != nil {
		if errors.Is(err, io.EOF) {
			return Scenario{}, fmt.Errorf("%w: empty document", ErrInvalidScenario)
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return Scenario{}, fmt.Errorf("strict scenario parse error: %w: %v", ErrUnknownField, err)
		}
		return Scenario{}, fmt.Errorf("strict scenario parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return Scenario{}, fmt.Errorf("%w: multiple documents or trailing content", ErrInvalidScenario)
	}

	if err := sc.Validate(); err != nil {
		return Scenario{}, err
	}
	return sc, nil
}

// Validate checks that every step can be executed.
func (s Scenario) Validate() error {
	if s.Mode != "" {
		if _, err := policy.ParseMode(s.Mode); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidScenario, err)
		}
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("%w: no steps", ErrInvalidScenario)
	}

	for i, st := range s.Steps {
		if _, ok := st.Action.Operation(); !ok {
			return fmt.Errorf("%w: step %d: unknown action %q", ErrInvalidScenario, i, st.Action)
		}
		switch st.Action {
		case ActionMode:
			if _, err := policy.ParseMode(st.Mode); err != nil {
				return fmt.Errorf("%w: step %d: %w", ErrInvalidScenario, i, err)
			}
		case ActionClickThrough:
			if strings.TrimSpace(st.URL) == "" {
				return fmt.Errorf("%w: step %d: click_through needs a url", ErrInvalidScenario, i)
			}
		}
		if st.Expect == nil {
			continue
		}
		if !st.Action.Query() {
			return fmt.Errorf("%w: step %d: %s returns no decision to expect", ErrInvalidScenario, i, st.Action)
		}
		want := KindBool
		if st.Action == ActionSkip || st.Action == ActionSeek {
			want = KindNumber
		}
		if st.Expect.Kind != want {
			return fmt.Errorf("%w: step %d: %s expects a %s, got %s", ErrInvalidScenario, i, st.Action, kindName(want), st.Expect)
		}
	}
	return nil
}

func kindName(k Kind) string {
	if k == KindNumber {
		return "number"
	}
	return "boolean"
}
