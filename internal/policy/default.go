// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package policy

import (
	"math"
	"sync"

	"github.com/ManuGH/adpolicy/internal/timeline"
)

// DefaultHandler implements the documented default rules.
type DefaultHandler struct {
	mu   sync.RWMutex
	mode Mode
}

var _ Handler = (*DefaultHandler)(nil)

// NewDefaultHandler returns the default rules for mode. Unknown modes are
// treated as VOD.
func NewDefaultHandler(mode Mode) *DefaultHandler {
	if !mode.Valid() {
		mode = ModeVOD
	}
	return &DefaultHandler{mode: mode}
}

// Mode returns the current playback mode.
func (h *DefaultHandler) Mode() Mode {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.mode
}

func (h *DefaultHandler) CanStop(float64, timeline.Timeline) (bool, error) {
	return defaultCanStop(), nil
}

func (h *DefaultHandler) CanPause(float64, timeline.Timeline) (bool, error) {
	return defaultCanPause(h.Mode()), nil
}

func (h *DefaultHandler) CanSkip(playhead float64, tl timeline.Timeline, _ float64) (float64, error) {
	return defaultCanSkip(h.Mode(), playhead, tl), nil
}

func (h *DefaultHandler) WillSeekTo(position float64, _ timeline.Timeline, playhead float64) (float64, error) {
	return defaultWillSeekTo(h.Mode(), position, playhead), nil
}

func (h *DefaultHandler) CanChangeVolume(bool, float64, timeline.Timeline) (bool, error) {
	return true, nil
}

func (h *DefaultHandler) CanResize(bool, float64, timeline.Timeline) (bool, error) {
	return true, nil
}

func (h *DefaultHandler) CanResizeCreative(bool, float64, timeline.Timeline) (bool, error) {
	return true, nil
}

func (h *DefaultHandler) CanClickThrough(string, float64, timeline.Timeline) (bool, error) {
	return true, nil
}

// SetPlaybackMode ignores unknown modes.
func (h *DefaultHandler) SetPlaybackMode(mode Mode) {
	if !mode.Valid() {
		return
	}
	h.mu.Lock()
	h.mode = mode
	h.mu.Unlock()
}

func (h *DefaultHandler) DidSkip(float64, float64, timeline.Timeline) {}

func (h *DefaultHandler) DidSeek(float64, float64, timeline.Timeline) {}

func defaultCanStop() bool { return true }

func defaultCanPause(mode Mode) bool { return !mode.IsLive() }

// defaultCanSkip returns SkipNever for live streams. Otherwise skipping is
// unrestricted unless the ad at the playhead carries a skip offset that has
// not yet elapsed since the start of its break.
func defaultCanSkip(mode Mode, playhead float64, tl timeline.Timeline) float64 {
	if mode.IsLive() {
		return SkipNever
	}
	b, ok := tl.BreakAt(playhead)
	if !ok {
		return SkipNow
	}
	ad, ok := b.AdAt(playhead)
	if !ok || !ad.HasSkipOffset() {
		return SkipNow
	}
	if remaining := b.Start + ad.SkipOffset - playhead; remaining > 0 {
		return remaining
	}
	return SkipNow
}

// defaultWillSeekTo pins live seeks to the playhead and lets other modes land
// on the target. Unusable positions collapse to the nearest sane value.
func defaultWillSeekTo(mode Mode, position, playhead float64) float64 {
	current := clampPosition(playhead, 0)
	if mode.IsLive() {
		return current
	}
	return clampPosition(position, current)
}

func clampPosition(p, fallback float64) float64 {
	switch {
	case math.IsNaN(p), math.IsInf(p, 0):
		return fallback
	case p < 0:
		return 0
	default:
		return p
	}
}

func validSkip(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return v == SkipNever || v >= 0
}

func validPosition(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
