package protocol

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Value is a single invocation argument: the closed set of primitives the
// host accepts positionally. The zero Value is null. Values marshal as bare
// JSON primitives, so an argument list encodes as e.g. [3, true, "north"].
type Value struct {
	kind valueKind
	b    bool
	i    int64
	f    float64
	s    string
}

type valueKind uint8

const (
	kindNull valueKind = iota
	kindBool
	kindInt
	kindFloat
	kindString
)

// Null returns the null value.
func Null() Value { return Value{} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: kindBool, b: b} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: kindInt, i: i} }

// Float returns a floating-point value.
func Float(f float64) Value { return Value{kind: kindFloat, f: f} }

// String returns a string value.
func String(s string) Value { return Value{kind: kindString, s: s} }

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindNull:
		return []byte("null"), nil
	case kindBool:
		return json.Marshal(v.b)
	case kindInt:
		return json.Marshal(v.i)
	case kindFloat:
		return json.Marshal(v.f)
	case kindString:
		return json.Marshal(v.s)
	}
	return nil, fmt.Errorf("invalid value kind %d", v.kind)
}

func (v *Value) UnmarshalJSON(b []byte) error {
	tok := strings.TrimSpace(string(b))
	switch {
	case tok == "null":
		*v = Null()
	case tok == "true":
		*v = Bool(true)
	case tok == "false":
		*v = Bool(false)
	case strings.HasPrefix(tok, `"`):
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = String(s)
	case strings.HasPrefix(tok, "[") || strings.HasPrefix(tok, "{"):
		return fmt.Errorf("parameter values must be primitives, got %s", tok)
	default:
		if !strings.ContainsAny(tok, ".eE") {
			i, err := strconv.ParseInt(tok, 10, 64)
			if err == nil {
				*v = Int(i)
				return nil
			}
		}
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return fmt.Errorf("invalid parameter value %s", tok)
		}
		*v = Float(f)
	}
	return nil
}

// String renders the value the way it appears on the wire.
func (v Value) String() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return "<invalid>"
	}
	return string(b)
}

// ParseValue converts a command-line literal into a Value: "null", "true",
// "false", integers, and floats parse as themselves; anything else is a
// string.
func ParseValue(lit string) Value {
	switch lit {
	case "null":
		return Null()
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}
	if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
		return Int(i)
	}
	if f, err := strconv.ParseFloat(lit, 64); err == nil {
		return Float(f)
	}
	return String(lit)
}
