// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"github.com/ManuGH/adpolicy/internal/policy"
	"github.com/ManuGH/adpolicy/internal/telemetry"
	"github.com/ManuGH/adpolicy/internal/validate"
)

// Validate reports every invalid setting of cfg as a validate.ValidationError.
func Validate(cfg Config) error {
	v := validate.New()

	_, err := policy.ParseMode(cfg.Mode)
	v.Check("mode", cfg.Mode, err)
	v.Section("log").LogLevel("level", cfg.Log.Level)

	tel := v.Section("telemetry")
	if cfg.Telemetry.Enabled {
		tel.OneOf("exporter", cfg.Telemetry.Exporter, telemetry.Exporters()...)
		tel.Endpoint("endpoint", cfg.Telemetry.Endpoint)
	}
	tel.Range("sampling_rate", cfg.Telemetry.SamplingRate, 0, 1)

	fb := v.Section("fault_breaker")
	fb.NonNegative("threshold", cfg.FaultBreaker.Threshold)
	if cfg.FaultBreaker.Threshold > 0 {
		fb.Positive("reset_timeout", cfg.FaultBreaker.ResetTimeout)
	}

	v.Check("rules", cfg.Rules, cfg.Rules.Validate())
	return v.Err()
}
