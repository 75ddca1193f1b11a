package ir

import (
	"fmt"
	"math"
)

// Value is a sealed interface representing a constraint literal.
// Only Null, String, Int, Float and Bool implement it.
type Value interface {
	irValue() // Sealed - only these types implement it
}

// Null represents the SQL NULL literal.
type Null struct{}

func (Null) irValue() {}

// String represents a text literal.
type String string

func (String) irValue() {}

// Int represents an integer literal.
type Int int64

func (Int) irValue() {}

// Float represents a real-valued literal (durations, coordinates).
type Float float64

func (Float) irValue() {}

// Bool represents a boolean literal. Stored as 1/0 by the relational store.
type Bool bool

func (Bool) irValue() {}

// FromGo converts a native Go value into a Value.
//
// Supported inputs: nil, string, bool, every signed and unsigned integer
// type, float32/float64, []byte (as text), and existing Values.
func FromGo(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case []byte:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint:
		return fromUnsigned(uint64(val))
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint64:
		return fromUnsigned(val)
	case float32:
		return Float(val), nil
	case float64:
		return Float(val), nil
	default:
		return nil, fmt.Errorf("unsupported literal type %T", v)
	}
}

// MustFromGo is like FromGo but panics on unsupported input.
// Intended for literals written directly in code and tests.
func MustFromGo(v any) Value {
	val, err := FromGo(v)
	if err != nil {
		panic(err)
	}
	return val
}

// Values converts a list of native Go values.
func Values(vs ...any) ([]Value, error) {
	out := make([]Value, 0, len(vs))
	for i, v := range vs {
		val, err := FromGo(v)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		out = append(out, val)
	}
	return out, nil
}

// Native returns the Go value a Value stands for (nil for Null).
func Native(v Value) any {
	switch val := v.(type) {
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case Bool:
		return bool(val)
	default:
		return nil
	}
}

func fromUnsigned(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return nil, fmt.Errorf("integer %d overflows int64", u)
	}
	return Int(int64(u)), nil
}
