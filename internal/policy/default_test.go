// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package policy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/adpolicy/internal/timeline"
)

func TestDefaultHandler_DecisionTable(t *testing.T) {
	t.Parallel()
	tl := fixtureTimeline()

	tests := []struct {
		mode      Mode
		wantPause bool
		wantSkip  float64
		wantSeek  float64
	}{
		{mode: ModeLive, wantPause: false, wantSkip: SkipNever, wantSeek: 120},
		{mode: ModeVOD, wantPause: true, wantSkip: SkipNow, wantSeek: 600},
		{mode: ModeStartOver, wantPause: true, wantSkip: SkipNow, wantSeek: 600},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(string(tt.mode), func(t *testing.T) {
			t.Parallel()
			h := NewDefaultHandler(tt.mode)

			pause, err := h.CanPause(120, tl)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPause, pause)

			skip, err := h.CanSkip(120, tl, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSkip, skip)

			seek, err := h.WillSeekTo(600, tl, 120)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSeek, seek)

			for _, q := range []func() (bool, error){
				func() (bool, error) { return h.CanStop(120, tl) },
				func() (bool, error) { return h.CanChangeVolume(true, 120, tl) },
				func() (bool, error) { return h.CanResize(false, 120, tl) },
				func() (bool, error) { return h.CanResizeCreative(true, 120, tl) },
				func() (bool, error) { return h.CanClickThrough("https://example.com", 120, tl) },
			} {
				ok, err := q()
				require.NoError(t, err)
				assert.True(t, ok)
			}
		})
	}
}

func TestDefaultHandler_SetPlaybackMode(t *testing.T) {
	h := NewDefaultHandler(Mode(""))
	assert.Equal(t, ModeVOD, h.Mode(), "unknown initial mode becomes vod")

	h.SetPlaybackMode(ModeLive)
	assert.Equal(t, ModeLive, h.Mode())

	h.SetPlaybackMode(Mode("nope"))
	assert.Equal(t, ModeLive, h.Mode())

	h.DidSkip(0, 10, timeline.New())
	h.DidSeek(10, 0, timeline.New())
	assert.Equal(t, ModeLive, h.Mode())
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "live", want: ModeLive},
		{in: " LIVE ", want: ModeLive},
		{in: "vod", want: ModeVOD},
		{in: "on_demand", want: ModeVOD},
		{in: "start_over", want: ModeStartOver},
		{in: "catchup", want: ModeStartOver},
		{in: "", wantErr: true},
		{in: "dvr-window", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidMode) {
					t.Fatalf("ParseMode(%q) err=%v, want ErrInvalidMode", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMode(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("ParseMode(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidators(t *testing.T) {
	assert.True(t, validSkip(SkipNever))
	assert.True(t, validSkip(0))
	assert.True(t, validSkip(7.5))
	assert.False(t, validSkip(-2))

	assert.True(t, validPosition(0))
	assert.False(t, validPosition(-0.1))
}
