// ABOUTME: Scope and value-type enums plus the typed Value union for settings
// ABOUTME: Coerces arbitrary inputs into exactly one of four typed representations

package settings

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrTypeConversion is returned when an input cannot be coerced to the
// declared value type.
var ErrTypeConversion = errors.New("type conversion failed")

// Scope is the granularity at which a setting applies.
type Scope string

const (
	ScopeGlobal   Scope = "GLOBAL"   // system-wide
	ScopeInstance Scope = "INSTANCE" // one deployment/server
	ScopeUser     Scope = "USER"     // one account
)

// ValidScopes lists all valid scopes.
var ValidScopes = []Scope{ScopeGlobal, ScopeInstance, ScopeUser}

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool {
	switch s {
	case ScopeGlobal, ScopeInstance, ScopeUser:
		return true
	}
	return false
}

// ValueType is the declared data type of a setting's value.
type ValueType string

const (
	TypeBoolean ValueType = "BOOLEAN"
	TypeInteger ValueType = "INTEGER"
	TypeFloat   ValueType = "FLOAT"
	TypeString  ValueType = "STRING"
)

// ValidValueTypes lists all valid value types.
var ValidValueTypes = []ValueType{TypeBoolean, TypeInteger, TypeFloat, TypeString}

// Valid reports whether t is a known value type.
func (t ValueType) Valid() bool {
	switch t {
	case TypeBoolean, TypeInteger, TypeFloat, TypeString:
		return true
	}
	return false
}

// Column returns the storage column holding the payload for this type.
// The same 4-entry table drives both the write and the read path.
func (t ValueType) Column() string {
	switch t {
	case TypeBoolean:
		return "value_boolean"
	case TypeInteger:
		return "value_integer"
	case TypeFloat:
		return "value_float"
	default:
		return "value_string"
	}
}

// Value is a tagged union holding exactly one typed payload. The zero Value
// has no type and represents an absent result.
type Value struct {
	Type ValueType

	boolVal   bool
	intVal    int64
	floatVal  float64
	stringVal string
}

// BoolValue wraps a boolean.
func BoolValue(v bool) Value { return Value{Type: TypeBoolean, boolVal: v} }

// IntValue wraps an integer.
func IntValue(v int64) Value { return Value{Type: TypeInteger, intVal: v} }

// FloatValue wraps a float.
func FloatValue(v float64) Value { return Value{Type: TypeFloat, floatVal: v} }

// StringValue wraps a string.
func StringValue(v string) Value { return Value{Type: TypeString, stringVal: v} }

// IsZero reports whether the value is absent (untyped).
func (v Value) IsZero() bool { return v.Type == "" }

// Bool returns the boolean payload. Valid only for TypeBoolean.
func (v Value) Bool() bool { return v.boolVal }

// Int returns the integer payload. Valid only for TypeInteger.
func (v Value) Int() int64 { return v.intVal }

// Float returns the float payload. Valid only for TypeFloat.
func (v Value) Float() float64 { return v.floatVal }

// Str returns the string payload. Valid only for TypeString.
func (v Value) Str() string { return v.stringVal }

// Any returns the payload as an untyped value, or nil for the zero Value.
func (v Value) Any() any {
	switch v.Type {
	case TypeBoolean:
		return v.boolVal
	case TypeInteger:
		return v.intVal
	case TypeFloat:
		return v.floatVal
	case TypeString:
		return v.stringVal
	}
	return nil
}

// String returns the canonical string form used for history records.
func (v Value) String() string {
	switch v.Type {
	case TypeBoolean:
		return strconv.FormatBool(v.boolVal)
	case TypeInteger:
		return strconv.FormatInt(v.intVal, 10)
	case TypeFloat:
		return strconv.FormatFloat(v.floatVal, 'g', -1, 64)
	default:
		return v.stringVal
	}
}

// trueWords is the fixed membership set for permissive boolean coercion.
// Anything outside it (including "false", "0", "no") coerces to false.
var trueWords = map[string]bool{
	"true": true,
	"1":    true,
	"yes":  true,
	"sim":  true,
}

// Coerce converts a raw input into a Value of the declared type.
//
// BOOLEAN coercion is a permissive membership test, not a strict parse:
// native bools pass through, the lower-cased string form of anything else is
// checked against {"true","1","yes","sim"}, and unrecognized strings become
// false rather than failing. Callers depend on this policy; do not tighten it.
//
// INTEGER and FLOAT fail with ErrTypeConversion when the input's string form
// does not parse. STRING accepts anything.
func Coerce(raw any, t ValueType) (Value, error) {
	switch t {
	case TypeBoolean:
		if b, ok := raw.(bool); ok {
			return BoolValue(b), nil
		}
		return BoolValue(trueWords[strings.ToLower(stringify(raw))]), nil

	case TypeInteger:
		switch n := raw.(type) {
		case int:
			return IntValue(int64(n)), nil
		case int32:
			return IntValue(int64(n)), nil
		case int64:
			return IntValue(n), nil
		case uint:
			if uint64(n) > math.MaxInt64 {
				return Value{}, fmt.Errorf("%w: %d overflows integer", ErrTypeConversion, n)
			}
			return IntValue(int64(n)), nil
		case uint64:
			if n > math.MaxInt64 {
				return Value{}, fmt.Errorf("%w: %d overflows integer", ErrTypeConversion, n)
			}
			return IntValue(int64(n)), nil
		case float32:
			return IntValue(int64(n)), nil
		case float64:
			return IntValue(int64(n)), nil
		}
		i, err := strconv.ParseInt(strings.TrimSpace(stringify(raw)), 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q is not an integer", ErrTypeConversion, stringify(raw))
		}
		return IntValue(i), nil

	case TypeFloat:
		switch n := raw.(type) {
		case float32:
			return FloatValue(float64(n)), nil
		case float64:
			return FloatValue(n), nil
		case int:
			return FloatValue(float64(n)), nil
		case int64:
			return FloatValue(float64(n)), nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(stringify(raw)), 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q is not a float", ErrTypeConversion, stringify(raw))
		}
		return FloatValue(f), nil

	case TypeString:
		return StringValue(stringify(raw)), nil
	}

	return Value{}, fmt.Errorf("%w: unknown value type %q", ErrTypeConversion, t)
}

// stringify renders a raw input the way the coercion rules expect.
func stringify(raw any) string {
	if s, ok := raw.(string); ok {
		return s
	}
	return fmt.Sprint(raw)
}
