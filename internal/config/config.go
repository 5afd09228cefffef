// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"time"

	xglog "github.com/ManuGH/adpolicy/internal/log"
	"github.com/ManuGH/adpolicy/internal/policy"
	"github.com/ManuGH/adpolicy/internal/resilience"
	"github.com/ManuGH/adpolicy/internal/rules"
	"github.com/ManuGH/adpolicy/internal/telemetry"
)

// Config is the resolved adpolicy configuration.
type Config struct {
	// Mode is the initial playback mode ("live", "vod", "start_over").
	Mode string `yaml:"mode" json:"mode"`

	// SkipOncePerBreak makes a completed skip consume the allowance of its break.
	SkipOncePerBreak bool `yaml:"skip_once_per_break" json:"skip_once_per_break"`

	Log          LogConfig          `yaml:"log" json:"log"`
	Telemetry    TelemetryConfig    `yaml:"telemetry" json:"telemetry"`
	FaultBreaker FaultBreakerConfig `yaml:"fault_breaker" json:"fault_breaker"`
	Rules        rules.Config       `yaml:"rules" json:"rules"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	Exporter     string  `yaml:"exporter" json:"exporter"`
	Endpoint     string  `yaml:"endpoint" json:"endpoint"`
	Environment  string  `yaml:"environment" json:"environment"`
	SamplingRate float64 `yaml:"sampling_rate" json:"sampling_rate"`
}

// FaultBreakerConfig quarantines custom rules after repeated faults.
// A zero threshold disables the breaker.
type FaultBreakerConfig struct {
	Threshold    int           `yaml:"threshold" json:"threshold"`
	ResetTimeout time.Duration `yaml:"reset_timeout" json:"reset_timeout"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Mode: string(policy.ModeVOD),
		Log:  LogConfig{Level: "info"},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			Environment:  "development",
			SamplingRate: 1.0,
		},
		FaultBreaker: FaultBreakerConfig{
			ResetTimeout: 30 * time.Second,
		},
	}
}

// PlaybackMode returns the parsed initial mode, VOD if it does not parse.
func (c Config) PlaybackMode() policy.Mode {
	m, err := policy.ParseMode(c.Mode)
	if err != nil {
		return policy.ModeVOD
	}
	return m
}

// TracingConfig maps the tracing settings onto the telemetry provider config.
func (c Config) TracingConfig(version string) telemetry.Config {
	return telemetry.Config{
		Enabled:        c.Telemetry.Enabled,
		ServiceName:    telemetry.DefaultServiceName,
		ServiceVersion: version,
		Environment:    c.Telemetry.Environment,
		Exporter:       c.Telemetry.Exporter,
		Endpoint:       c.Telemetry.Endpoint,
		SamplingRate:   c.Telemetry.SamplingRate,
	}
}

// NewRules builds the custom rule set, or nil when no rule is configured.
func (c Config) NewRules() policy.Handler {
	if !c.Rules.Enabled() {
		return nil
	}
	return rules.New(c.Rules, c.PlaybackMode())
}

// EngineOptions returns the engine options described by the configuration.
func (c Config) EngineOptions() []policy.Option {
	opts := []policy.Option{
		policy.WithMode(c.PlaybackMode()),
		policy.WithSkipOncePerBreak(c.SkipOncePerBreak),
	}
	if h := c.NewRules(); h != nil {
		opts = append(opts, policy.WithRules(h))
	}
	if c.FaultBreaker.Threshold > 0 {
		cb := resilience.NewCircuitBreaker("custom_rules", c.FaultBreaker.Threshold, c.FaultBreaker.ResetTimeout,
			resilience.WithStateListener(logQuarantine))
		opts = append(opts, policy.WithFaultBreaker(cb))
	}
	return opts
}

func logQuarantine(t resilience.Transition) {
	logger := xglog.WithComponent("policy")
	ev := logger.Info()
	if t.To == resilience.StateOpen {
		ev = logger.Warn()
	}
	ev.Str(xglog.FieldEvent, "policy.rules_quarantine").
		Str("breaker", t.Name).
		Str(xglog.FieldOldState, string(t.From)).
		Str(xglog.FieldNewState, string(t.To)).
		Str("reason", t.Reason).
		Msg("custom rule breaker changed state")
}
