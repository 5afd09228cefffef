// SPDX-License-Identifier: MIT
package validate

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestValidator_Checks(t *testing.T) {
	tests := []struct {
		name  string
		check func(v *Validator)
		valid bool
	}{
		{"not empty ok", func(v *Validator) { v.NotEmpty("f", "vod") }, true},
		{"not empty blank", func(v *Validator) { v.NotEmpty("f", " \t") }, false},
		{"one of ok", func(v *Validator) { v.OneOf("f", "http", "grpc", "http") }, true},
		{"one of is case sensitive", func(v *Validator) { v.OneOf("f", "GRPC", "grpc", "http") }, false},
		{"non negative zero", func(v *Validator) { v.NonNegative("f", 0) }, true},
		{"non negative below", func(v *Validator) { v.NonNegative("f", -1) }, false},
		{"range bounds inclusive", func(v *Validator) { v.Range("f", 1, 0, 1) }, true},
		{"range above", func(v *Validator) { v.Range("f", 1.01, 0, 1) }, false},
		{"range nan", func(v *Validator) { v.Range("f", math.NaN(), 0, 1) }, false},
		{"range inf", func(v *Validator) { v.Range("f", math.Inf(-1), 0, 1) }, false},
		{"positive duration", func(v *Validator) { v.Positive("f", time.Millisecond) }, true},
		{"zero duration", func(v *Validator) { v.Positive("f", 0) }, false},
		{"check nil", func(v *Validator) { v.Check("f", 1, nil) }, true},
		{"check error", func(v *Validator) { v.Check("f", 1, errors.New("boom")) }, false},
		{"log level", func(v *Validator) { v.LogLevel("f", "Warn") }, true},
		{"log level unknown", func(v *Validator) { v.LogLevel("f", "loud") }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			tt.check(v)
			if v.Valid() != tt.valid {
				t.Fatalf("Valid() = %v, want %v (err: %v)", v.Valid(), tt.valid, v.Err())
			}
		})
	}
}

func TestValidator_Endpoint(t *testing.T) {
	tests := []struct {
		value string
		valid bool
	}{
		{"localhost:4317", true},
		{"10.0.0.5:4318", true},
		{"[::1]:4317", true},
		{"https://otel.example.com", true},
		{"http://otel.example.com:4318/v1/traces", true},
		{"", false},
		{"collector", false},
		{":4317", false},
		{"grpc://collector:4317", false},
		{"http://", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			v := New()
			v.Endpoint("telemetry.endpoint", tt.value)
			if v.Valid() != tt.valid {
				t.Fatalf("Endpoint(%q) valid = %v, want %v (err: %v)", tt.value, v.Valid(), tt.valid, v.Err())
			}
		})
	}
}

func TestValidator_SectionsShareErrors(t *testing.T) {
	v := New()
	v.NotEmpty("mode", "")
	tel := v.Section("telemetry")
	tel.OneOf("exporter", "zipkin", "grpc", "http")
	tel.Section("tls").NotEmpty("ca", "")

	err := v.Err()
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}

	var fields []string
	for _, f := range verr.Errors() {
		fields = append(fields, f.Field)
	}
	if got := strings.Join(fields, ","); got != "mode,telemetry.exporter,telemetry.tls.ca" {
		t.Fatalf("fields = %s", got)
	}
	if !verr.Has("telemetry.exporter") || verr.Has("exporter") {
		t.Error("Has() does not match full field paths")
	}
	if !strings.Contains(err.Error(), "(3 settings)") {
		t.Errorf("unexpected message %q", err.Error())
	}

	v.NotEmpty("later", "")
	if len(verr.Errors()) != 3 {
		t.Error("Err() must return a snapshot")
	}
}

func TestValidator_ErrNilWhenValid(t *testing.T) {
	v := New()
	v.NotEmpty("mode", "vod")
	if err := v.Err(); err != nil {
		t.Fatalf("Err() = %v, want nil", err)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zerolog.Level
		wantErr bool
	}{
		{in: "debug", want: zerolog.DebugLevel},
		{in: " INFO ", want: zerolog.InfoLevel},
		{in: "trace", want: zerolog.TraceLevel},
		{in: "panic", want: zerolog.PanicLevel},
		{in: "verbose", wantErr: true},
		{in: "disabled", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLogLevel(tt.in)
			if tt.wantErr {
				var fe FieldError
				if !errors.As(err, &fe) || fe.Field != "log.level" {
					t.Fatalf("ParseLogLevel(%q) err = %v, want log.level FieldError", tt.in, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("ParseLogLevel(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
			}
		})
	}
}
