// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"testing"

	"github.com/ManuGH/adpolicy/internal/validate"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "mode alias", mutate: func(c *Config) { c.Mode = "catchup" }},
		{name: "bad mode", mutate: func(c *Config) { c.Mode = "dvr" }, wantField: "mode"},
		{name: "bad log level", mutate: func(c *Config) { c.Log.Level = "loud" }, wantField: "log.level"},
		{name: "bad exporter", mutate: func(c *Config) {
			c.Telemetry.Enabled = true
			c.Telemetry.Exporter = "zipkin"
		}, wantField: "telemetry.exporter"},
		{name: "bad endpoint", mutate: func(c *Config) {
			c.Telemetry.Enabled = true
			c.Telemetry.Endpoint = "collector"
		}, wantField: "telemetry.endpoint"},
		{name: "disabled telemetry ignores endpoint", mutate: func(c *Config) { c.Telemetry.Endpoint = "" }},
		{name: "bad sampling rate", mutate: func(c *Config) { c.Telemetry.SamplingRate = 2 }, wantField: "telemetry.sampling_rate"},
		{name: "negative threshold", mutate: func(c *Config) { c.FaultBreaker.Threshold = -1 }, wantField: "fault_breaker.threshold"},
		{name: "zero reset timeout", mutate: func(c *Config) {
			c.FaultBreaker.Threshold = 3
			c.FaultBreaker.ResetTimeout = 0
		}, wantField: "fault_breaker.reset_timeout"},
		{name: "bad rules", mutate: func(c *Config) { c.Rules.MinSkipDelay = -3 }, wantField: "rules"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)

			err := Validate(cfg)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var verr validate.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if got := verr.Errors()[0].Field; got != tt.wantField {
				t.Fatalf("expected field %q, got %q (%v)", tt.wantField, got, err)
			}
		})
	}
}
