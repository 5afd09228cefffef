// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package policy decides whether user-initiated player actions are allowed
// while a stream with inserted advertising plays.
//
// A host installs an optional custom Handler on an Engine. The Engine asks it
// first and substitutes the documented default for the current playback mode
// whenever the handler is absent, returns an error or an invalid value, or
// panics. Query methods on Engine therefore always return a usable decision.
package policy

import "github.com/ManuGH/adpolicy/internal/timeline"

// Operation names one query or notification of the handler contract.
type Operation string

const (
	OpCanStop           Operation = "can_stop"
	OpCanPause          Operation = "can_pause"
	OpCanSkip           Operation = "can_skip"
	OpWillSeekTo        Operation = "will_seek_to"
	OpCanChangeVolume   Operation = "can_change_volume"
	OpCanResize         Operation = "can_resize"
	OpCanResizeCreative Operation = "can_resize_creative"
	OpCanClickThrough   Operation = "can_click_through"
	OpSetPlaybackMode   Operation = "set_playback_mode"
	OpDidSkip           Operation = "did_skip"
	OpDidSeek           Operation = "did_seek"
)

// Skip delay sentinels.
const (
	SkipNever float64 = -1
	SkipNow   float64 = 0
)

// Handler is the playback policy capability set. Positions are in seconds.
//
// Implementations signal failure through the returned error; the Engine
// treats a panic or an out-of-domain value the same way.
type Handler interface {
	// CanStop reports whether playback can stop.
	CanStop(playhead float64, tl timeline.Timeline) (bool, error)
	// CanPause reports whether playback can pause.
	CanPause(playhead float64, tl timeline.Timeline) (bool, error)
	// CanSkip returns the delay before the current advert can be skipped,
	// or SkipNever. duration is the stream duration, zero for live streams.
	CanSkip(playhead float64, tl timeline.Timeline, duration float64) (float64, error)
	// WillSeekTo returns the position a seek to position actually lands on.
	WillSeekTo(position float64, tl timeline.Timeline, playhead float64) (float64, error)
	// CanChangeVolume reports whether volume can be muted or unmuted.
	CanChangeVolume(mute bool, playhead float64, tl timeline.Timeline) (bool, error)
	// CanResize reports whether the player may enter or leave full screen.
	CanResize(fullscreen bool, playhead float64, tl timeline.Timeline) (bool, error)
	// CanResizeCreative reports whether a linear creative can expand or
	// collapse. It is never asked about non-linear creatives.
	CanResizeCreative(expand bool, playhead float64, tl timeline.Timeline) (bool, error)
	// CanClickThrough reports whether the user can follow url.
	CanClickThrough(url string, playhead float64, tl timeline.Timeline) (bool, error)

	// SetPlaybackMode replaces the mode used for subsequent decisions.
	SetPlaybackMode(mode Mode)
	// DidSkip is called after a skip moved the playhead from previous to current.
	DidSkip(previous, current float64, tl timeline.Timeline)
	// DidSeek is called after a seek moved the playhead from previous to current.
	DidSeek(previous, current float64, tl timeline.Timeline)
}
