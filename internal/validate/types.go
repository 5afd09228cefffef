// SPDX-License-Identifier: MIT
package validate

import (
	"strings"

	"github.com/rs/zerolog"
)

// LogLevels lists the accepted log level names.
var LogLevels = []string{"trace", "debug", "info", "warn", "error", "fatal", "panic"}

// ParseLogLevel maps a case-insensitive level name onto a zerolog level.
// Numeric levels, "disabled" and the empty string are rejected.
func ParseLogLevel(s string) (zerolog.Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	lvl, err := zerolog.ParseLevel(name)
	if err != nil || lvl == zerolog.NoLevel || lvl == zerolog.Disabled || lvl.String() != name {
		return zerolog.NoLevel, FieldError{Field: "log.level", Value: s, Message: "must be one of " + strings.Join(LogLevels, ", ")}
	}
	return lvl, nil
}

// LogLevel validates a log level setting.
func (v *Validator) LogLevel(field, value string) {
	if _, err := ParseLogLevel(value); err != nil {
		v.Fail(field, value, "must be one of %s, got %q", strings.Join(LogLevels, ", "), value)
	}
}
