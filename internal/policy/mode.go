// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package policy

import (
	"fmt"
	"strings"
)

// Mode is the temporal nature of the stream being played.
type Mode string

const (
	ModeLive Mode = "live"
	ModeVOD  Mode = "vod"
	// ModeStartOver is a live event watched from its beginning; it follows
	// the non-live defaults.
	ModeStartOver Mode = "start_over"
)

// IsLive reports whether the mode uses the live defaults.
func (m Mode) IsLive() bool { return m == ModeLive }

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeLive, ModeVOD, ModeStartOver:
		return true
	default:
		return false
	}
}

func (m Mode) String() string { return string(m) }

// ParseMode accepts the canonical names plus the common aliases hosts send.
func ParseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "live", "linear":
		return ModeLive, nil
	case "vod", "on_demand", "ondemand":
		return ModeVOD, nil
	case "start_over", "startover", "live_start_over", "catchup":
		return ModeStartOver, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, raw)
	}
}
