// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package scenario

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ManuGH/adpolicy/internal/policy"
)

// Kind is the shape of a decision value.
type Kind int

const (
	KindNone Kind = iota
	KindBool
	KindNumber
)

// Value is a decision outcome: a boolean, or a number of seconds for skip
// delays and seek positions.
type Value struct {
	Kind   Kind
	Bool   bool
	Number float64
}

// BoolValue wraps b.
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// NumberValue wraps n.
func NumberValue(n float64) Value { return Value{Kind: KindNumber, Number: n} }

// IsZero reports whether no value is set.
func (v Value) IsZero() bool { return v.Kind == KindNone }

// Equal compares two values. Numbers match within a millisecond.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindBool:
		return v.Bool == o.Bool
	case KindNumber:
		return math.Abs(v.Number-o.Number) < 1e-3
	default:
		return true
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindNumber:
		if v.Number == policy.SkipNever {
			return "never"
		}
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	default:
		return "none"
	}
}

// UnmarshalYAML accepts booleans, numbers and the words "never" (-1) and
// "now" (0) for skip delays.
func (v *Value) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expect must be a scalar", n.Line)
	}
	switch n.Tag {
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return err
		}
		*v = BoolValue(b)
		return nil
	case "!!int", "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return err
		}
		*v = NumberValue(f)
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(n.Value)) {
	case "never":
		*v = NumberValue(policy.SkipNever)
	case "now":
		*v = NumberValue(policy.SkipNow)
	default:
		return fmt.Errorf("line %d: unsupported expect value %q", n.Line, n.Value)
	}
	return nil
}

// MarshalJSON renders the bare boolean or number, or null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindBool:
		return json.Marshal(v.Bool)
	case KindNumber:
		return json.Marshal(v.Number)
	default:
		return []byte("null"), nil
	}
}
