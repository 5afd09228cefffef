// SPDX-License-Identifier: MIT

// Package validate collects field-level configuration errors so a single
// load reports every bad setting at once.
package validate

import (
	"fmt"
	"math"
	"net"
	"net/url"
	"slices"
	"strings"
	"time"
)

// FieldError is one invalid setting, addressed by its dotted YAML path.
type FieldError struct {
	Field   string
	Value   any
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError is returned by Validator.Err.
type ValidationError struct {
	fields []FieldError
}

// Errors returns the individual field errors in the order they were found.
func (e ValidationError) Errors() []FieldError { return e.fields }

// Has reports whether field failed validation.
func (e ValidationError) Has(field string) bool {
	return slices.ContainsFunc(e.fields, func(f FieldError) bool { return f.Field == field })
}

func (e ValidationError) Error() string {
	switch len(e.fields) {
	case 0:
		return "invalid configuration"
	case 1:
		return "invalid configuration: " + e.fields[0].Error()
	}
	msgs := make([]string, len(e.fields))
	for i, f := range e.fields {
		msgs[i] = f.Error()
	}
	return fmt.Sprintf("invalid configuration (%d settings): %s", len(e.fields), strings.Join(msgs, "; "))
}

// Validator accumulates field errors. Validators returned by Section share
// the error list of their parent.
type Validator struct {
	prefix string
	errs   *[]FieldError
}

// New returns an empty root validator.
func New() *Validator {
	return &Validator{errs: new([]FieldError)}
}

// Section returns a validator whose field names are prefixed with name.
func (v *Validator) Section(name string) *Validator {
	return &Validator{prefix: v.path(name), errs: v.errs}
}

func (v *Validator) path(field string) string {
	if v.prefix == "" {
		return field
	}
	return v.prefix + "." + field
}

// Fail records an error for field.
func (v *Validator) Fail(field string, value any, format string, args ...any) {
	*v.errs = append(*v.errs, FieldError{Field: v.path(field), Value: value, Message: fmt.Sprintf(format, args...)})
}

// Valid reports whether no error has been recorded.
func (v *Validator) Valid() bool { return len(*v.errs) == 0 }

// Err returns a ValidationError snapshot, or nil when valid.
func (v *Validator) Err() error {
	if v.Valid() {
		return nil
	}
	return ValidationError{fields: slices.Clone(*v.errs)}
}

// Check records err against field when it is non-nil.
func (v *Validator) Check(field string, value any, err error) {
	if err != nil {
		v.Fail(field, value, "%v", err)
	}
}

// NotEmpty rejects empty and whitespace-only strings.
func (v *Validator) NotEmpty(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.Fail(field, value, "must not be empty")
	}
}

// OneOf requires value to equal one of allowed.
func (v *Validator) OneOf(field, value string, allowed ...string) {
	if !slices.Contains(allowed, value) {
		v.Fail(field, value, "must be one of %s, got %q", strings.Join(allowed, ", "), value)
	}
}

// NonNegative requires value >= 0.
func (v *Validator) NonNegative(field string, value int) {
	if value < 0 {
		v.Fail(field, value, "must not be negative, got %d", value)
	}
}

// Range requires a finite value within [lo, hi].
func (v *Validator) Range(field string, value, lo, hi float64) {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < lo || value > hi {
		v.Fail(field, value, "must be between %g and %g, got %g", lo, hi, value)
	}
}

// Positive requires a duration greater than zero.
func (v *Validator) Positive(field string, value time.Duration) {
	if value <= 0 {
		v.Fail(field, value, "must be a positive duration, got %s", value)
	}
}

// Endpoint accepts host:port or an http(s) URL with a host.
func (v *Validator) Endpoint(field, value string) {
	if value == "" {
		v.Fail(field, value, "must not be empty")
		return
	}
	if strings.Contains(value, "://") {
		u, err := url.Parse(value)
		switch {
		case err != nil:
			v.Fail(field, value, "invalid URL: %v", err)
		case u.Scheme != "http" && u.Scheme != "https":
			v.Fail(field, value, "unsupported URL scheme %q", u.Scheme)
		case u.Host == "":
			v.Fail(field, value, "URL has no host")
		}
		return
	}
	host, port, err := net.SplitHostPort(value)
	if err != nil || host == "" || port == "" {
		v.Fail(field, value, "must be host:port or an http(s) URL")
	}
}
