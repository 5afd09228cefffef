// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package timeline models the ad breaks of a playback session as a read-only
// value that policy decisions are evaluated against.
package timeline

import (
	"math"
	"sort"
	"strconv"
)

// Ad is a single creative inside an ad break.
type Ad struct {
	ID string `yaml:"id" json:"id,omitempty"`
	// NonLinear ads overlay content instead of taking over the viewport.
	// Ads are linear unless marked.
	NonLinear bool `yaml:"non_linear,omitempty" json:"non_linear,omitempty"`
	// Duration in seconds. Zero means the ad runs to the end of its break.
	Duration float64 `yaml:"duration" json:"duration,omitempty"`
	// SkipOffset is the delay in seconds after the break start before the ad
	// may be skipped. Negative values mean no offset was supplied.
	SkipOffset float64 `yaml:"skip_offset" json:"skip_offset"`
}

// HasSkipOffset reports whether the creative data carried a skip offset.
func (a Ad) HasSkipOffset() bool {
	return a.SkipOffset >= 0 && !math.IsNaN(a.SkipOffset) && !math.IsInf(a.SkipOffset, 0)
}

// AdBreak is a contiguous span of the stream reserved for advertising.
type AdBreak struct {
	ID    string  `yaml:"id" json:"id,omitempty"`
	Start float64 `yaml:"start" json:"start"`
	// End is zero (or not after Start) for a live break the host has not closed.
	End float64 `yaml:"end" json:"end,omitempty"`
	Ads []Ad    `yaml:"ads" json:"ads,omitempty"`
}

// Key identifies the break across calls. Hosts pass a fresh timeline on every
// query, so breaks without an ID are identified by their start offset.
func (b AdBreak) Key() string {
	if b.ID != "" {
		return b.ID
	}
	return "start:" + strconv.FormatFloat(b.Start, 'f', -1, 64)
}

// IsOpen reports whether the break has no known end.
func (b AdBreak) IsOpen() bool {
	return b.End <= b.Start || math.IsNaN(b.End)
}

// Duration returns the break length in seconds, or zero for open breaks.
func (b AdBreak) Duration() float64 {
	if b.IsOpen() {
		return 0
	}
	return b.End - b.Start
}

// Contains reports whether p lies in [Start, End). Open breaks contain every
// position at or after Start.
func (b AdBreak) Contains(p float64) bool {
	if !validPosition(p) || p < b.Start {
		return false
	}
	if b.IsOpen() {
		return true
	}
	return p < b.End
}

// AdAt returns the ad playing at p. Ads are laid out back to back from the
// break start; an ad without a duration fills the rest of the break.
func (b AdBreak) AdAt(p float64) (Ad, bool) {
	if len(b.Ads) == 0 || !b.Contains(p) {
		return Ad{}, false
	}
	cursor := b.Start
	for _, ad := range b.Ads {
		if ad.Duration <= 0 || math.IsNaN(ad.Duration) {
			return ad, true
		}
		if p < cursor+ad.Duration {
			return ad, true
		}
		cursor += ad.Duration
	}
	// Durations did not cover the break; attribute the tail to the last ad.
	return b.Ads[len(b.Ads)-1], true
}

// Timeline is an ordered sequence of ad breaks.
type Timeline struct {
	breaks []AdBreak
}

// New builds a timeline ordered by break start.
func New(breaks ...AdBreak) Timeline {
	sorted := make([]AdBreak, len(breaks))
	copy(sorted, breaks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})
	return Timeline{breaks: sorted}
}

// Breaks returns the ordered ad breaks. The slice is a copy.
func (t Timeline) Breaks() []AdBreak {
	out := make([]AdBreak, len(t.breaks))
	copy(out, t.breaks)
	return out
}

// Len returns the number of breaks.
func (t Timeline) Len() int { return len(t.breaks) }

// BreakAt returns the break containing p. When breaks abut or overlap the
// latest-starting break that contains p wins.
func (t Timeline) BreakAt(p float64) (AdBreak, bool) {
	if !validPosition(p) {
		return AdBreak{}, false
	}
	for i := len(t.breaks) - 1; i >= 0; i-- {
		b := t.breaks[i]
		if b.Start > p {
			continue
		}
		if b.Contains(p) {
			return b, true
		}
	}
	return AdBreak{}, false
}

// AdAt returns the ad playing at p, if any.
func (t Timeline) AdAt(p float64) (Ad, bool) {
	b, ok := t.BreakAt(p)
	if !ok {
		return Ad{}, false
	}
	return b.AdAt(p)
}

// BreaksBetween returns the breaks whose start lies in [min(a,b), max(a,b)).
func (t Timeline) BreaksBetween(a, b float64) []AdBreak {
	if math.IsNaN(a) || math.IsNaN(b) {
		return nil
	}
	lo, hi := math.Min(a, b), math.Max(a, b)
	var out []AdBreak
	for _, br := range t.breaks {
		if br.Start >= lo && br.Start < hi {
			out = append(out, br)
		}
	}
	return out
}

func validPosition(p float64) bool {
	return p >= 0 && !math.IsNaN(p) && !math.IsInf(p, 0)
}
