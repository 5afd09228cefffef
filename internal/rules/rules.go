// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package rules provides a configurable custom rule set for the policy engine.
package rules

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"sync"

	"github.com/ManuGH/adpolicy/internal/policy"
	"github.com/ManuGH/adpolicy/internal/timeline"
)

// ErrInvalidURL is returned for click-through URLs without a host.
var ErrInvalidURL = errors.New("invalid click-through url")

// Config selects which restrictions the rule set applies on top of the
// defaults. The zero value behaves exactly like the defaults.
type Config struct {
	DenyPauseInBreaks        bool     `yaml:"deny_pause_in_breaks" json:"deny_pause_in_breaks"`
	DenySkipOutsideBreaks    bool     `yaml:"deny_skip_outside_breaks" json:"deny_skip_outside_breaks"`
	MinSkipDelay             float64  `yaml:"min_skip_delay" json:"min_skip_delay"`
	SnapSeekToUnwatchedBreak bool     `yaml:"snap_seek_to_unwatched_break" json:"snap_seek_to_unwatched_break"`
	DenyMuteInBreaks         bool     `yaml:"deny_mute_in_breaks" json:"deny_mute_in_breaks"`
	DenyResizeCreative       bool     `yaml:"deny_resize_creative" json:"deny_resize_creative"`
	DenyClickThroughHosts    []string `yaml:"deny_click_through_hosts" json:"deny_click_through_hosts"`
}

// Enabled reports whether any restriction is configured.
func (c Config) Enabled() bool {
	return c.DenyPauseInBreaks || c.DenySkipOutsideBreaks || c.MinSkipDelay > 0 ||
		c.SnapSeekToUnwatchedBreak || c.DenyMuteInBreaks || c.DenyResizeCreative ||
		len(c.DenyClickThroughHosts) > 0
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	if c.MinSkipDelay < 0 || math.IsNaN(c.MinSkipDelay) || math.IsInf(c.MinSkipDelay, 0) {
		return fmt.Errorf("min_skip_delay must be a finite value >= 0, got %v", c.MinSkipDelay)
	}
	for _, h := range c.DenyClickThroughHosts {
		if strings.TrimSpace(h) == "" {
			return errors.New("deny_click_through_hosts contains an empty host")
		}
	}
	return nil
}

// Set is a policy.Handler applying Config on top of the default rules.
type Set struct {
	*policy.DefaultHandler

	cfg   Config
	hosts []string

	mu      sync.Mutex
	watched map[string]struct{}
}

var _ policy.Handler = (*Set)(nil)

// New builds a rule set starting in mode.
func New(cfg Config, mode policy.Mode) *Set {
	hosts := make([]string, 0, len(cfg.DenyClickThroughHosts))
	for _, h := range cfg.DenyClickThroughHosts {
		hosts = append(hosts, strings.ToLower(strings.TrimSpace(h)))
	}
	return &Set{
		DefaultHandler: policy.NewDefaultHandler(mode),
		cfg:            cfg,
		hosts:          hosts,
		watched:        make(map[string]struct{}),
	}
}

// Config returns the configuration the set was built from.
func (s *Set) Config() Config { return s.cfg }

func (s *Set) CanPause(playhead float64, tl timeline.Timeline) (bool, error) {
	if s.cfg.DenyPauseInBreaks {
		if _, in := tl.BreakAt(playhead); in {
			return false, nil
		}
	}
	return s.DefaultHandler.CanPause(playhead, tl)
}

func (s *Set) CanSkip(playhead float64, tl timeline.Timeline, duration float64) (float64, error) {
	b, in := tl.BreakAt(playhead)
	if s.cfg.DenySkipOutsideBreaks && !in {
		return policy.SkipNever, nil
	}
	delay, err := s.DefaultHandler.CanSkip(playhead, tl, duration)
	if err != nil || delay == policy.SkipNever || !in || s.cfg.MinSkipDelay <= 0 {
		return delay, err
	}
	if remaining := b.Start + s.cfg.MinSkipDelay - playhead; remaining > delay {
		return remaining, nil
	}
	return delay, nil
}

// WillSeekTo lands a forward seek on the start of the first unwatched break
// it would jump over.
func (s *Set) WillSeekTo(position float64, tl timeline.Timeline, playhead float64) (float64, error) {
	target, err := s.DefaultHandler.WillSeekTo(position, tl, playhead)
	if err != nil || !s.cfg.SnapSeekToUnwatchedBreak || s.Mode().IsLive() || target <= playhead {
		return target, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range tl.BreaksBetween(playhead, target) {
		if b.Contains(playhead) {
			continue
		}
		if _, seen := s.watched[b.Key()]; seen {
			continue
		}
		return b.Start, nil
	}
	return target, nil
}

func (s *Set) CanChangeVolume(mute bool, playhead float64, tl timeline.Timeline) (bool, error) {
	if s.cfg.DenyMuteInBreaks && mute {
		if _, in := tl.BreakAt(playhead); in {
			return false, nil
		}
	}
	return s.DefaultHandler.CanChangeVolume(mute, playhead, tl)
}

func (s *Set) CanResizeCreative(expand bool, playhead float64, tl timeline.Timeline) (bool, error) {
	if s.cfg.DenyResizeCreative && expand {
		return false, nil
	}
	return s.DefaultHandler.CanResizeCreative(expand, playhead, tl)
}

func (s *Set) CanClickThrough(raw string, playhead float64, tl timeline.Timeline) (bool, error) {
	if len(s.hosts) == 0 {
		return s.DefaultHandler.CanClickThrough(raw, playhead, tl)
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false, fmt.Errorf("%w: %q has no host", ErrInvalidURL, raw)
	}
	for _, denied := range s.hosts {
		if host == denied || strings.HasSuffix(host, "."+denied) {
			return false, nil
		}
	}
	return true, nil
}

// DidSkip marks the break the skip left as watched.
func (s *Set) DidSkip(previous, current float64, tl timeline.Timeline) {
	s.markWatched(tl, previous)
	s.DefaultHandler.DidSkip(previous, current, tl)
}

// DidSeek marks the break the seek left, and the break it landed in, as watched.
func (s *Set) DidSeek(previous, current float64, tl timeline.Timeline) {
	s.markWatched(tl, previous, current)
	s.DefaultHandler.DidSeek(previous, current, tl)
}

// Watched reports whether the break with key has been watched.
func (s *Set) Watched(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.watched[key]
	return ok
}

func (s *Set) markWatched(tl timeline.Timeline, positions ...float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range positions {
		if b, ok := tl.BreakAt(p); ok {
			s.watched[b.Key()] = struct{}{}
		}
	}
}
