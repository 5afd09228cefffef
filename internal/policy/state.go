// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package policy

import (
	"math"
	"sort"

	"github.com/ManuGH/adpolicy/internal/timeline"
)

// State is a point-in-time copy of an engine's mutable state.
type State struct {
	SessionID        string   `json:"session_id"`
	Mode             Mode     `json:"mode"`
	SkipOncePerBreak bool     `json:"skip_once_per_break"`
	ExercisedBreaks  []string `json:"exercised_breaks"`
	PassedOverBreaks []string `json:"passed_over_breaks"`
	Skips            int      `json:"skips"`
	Seeks            int      `json:"seeks"`
	Faults           uint64   `json:"faults"`
}

// State returns a snapshot of the engine state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return State{
		SessionID:        e.sessionID,
		Mode:             e.mode,
		SkipOncePerBreak: e.skipOnce,
		ExercisedBreaks:  sortedKeys(e.book.exercised),
		PassedOverBreaks: sortedKeys(e.book.passedOver),
		Skips:            e.book.skips,
		Seeks:            e.book.seeks,
		Faults:           e.faults.Load(),
	}
}

// bookkeeping tracks which breaks have had their skip exercised and which
// were jumped over by forward seeks. Callers hold Engine.mu.
type bookkeeping struct {
	exercised  map[string]float64 // break key -> break start
	passedOver map[string]float64
	skips      int
	seeks      int
}

// recordSkip marks the break the skip was taken from. When previous is not
// inside a break, every break starting in [previous, current) is marked.
func (b *bookkeeping) recordSkip(previous, current float64, tl timeline.Timeline) []string {
	b.skips++
	if b.exercised == nil {
		b.exercised = make(map[string]float64)
	}

	if br, ok := tl.BreakAt(previous); ok {
		b.exercised[br.Key()] = br.Start
		return []string{br.Key()}
	}
	var marked []string
	for _, br := range tl.BreaksBetween(previous, current) {
		b.exercised[br.Key()] = br.Start
		marked = append(marked, br.Key())
	}
	return marked
}

// recordSeek restores the skip allowance of exercised breaks when the seek
// lands before their start, and remembers breaks a forward seek jumped over.
func (b *bookkeeping) recordSeek(previous, current float64, tl timeline.Timeline) (restored, passed []string) {
	b.seeks++
	if math.IsNaN(previous) || math.IsNaN(current) {
		return nil, nil
	}

	if current < previous {
		for key, start := range b.exercised {
			if current < start {
				delete(b.exercised, key)
				restored = append(restored, key)
			}
		}
		sort.Strings(restored)
		return restored, nil
	}

	if b.passedOver == nil {
		b.passedOver = make(map[string]float64)
	}
	for _, br := range tl.BreaksBetween(previous, current) {
		if br.Contains(current) {
			continue
		}
		b.passedOver[br.Key()] = br.Start
		passed = append(passed, br.Key())
	}
	return nil, passed
}

func (b *bookkeeping) exhausted(playhead float64, tl timeline.Timeline) bool {
	br, ok := tl.BreakAt(playhead)
	if !ok {
		return false
	}
	_, done := b.exercised[br.Key()]
	return done
}

func sortedKeys(m map[string]float64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
