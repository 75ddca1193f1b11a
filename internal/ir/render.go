package ir

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrNonFinite is returned when rendering NaN or an infinity.
var ErrNonFinite = errors.New("non-finite float has no literal form")

// SQL renders a Value as a SQL literal.
//
// Strings are single-quoted with embedded quotes doubled, integers are plain
// decimal, floats use the shortest round-trip form and always carry a decimal
// point or exponent, booleans render as 1/0 and Null as NULL.
func SQL(v Value) (string, error) {
	switch val := v.(type) {
	case nil, Null:
		return "NULL", nil
	case String:
		return quote(string(val)), nil
	case Int:
		return strconv.FormatInt(int64(val), 10), nil
	case Float:
		return formatFloat(float64(val))
	case Bool:
		if val {
			return "1", nil
		}
		return "0", nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}

// SQLList renders values as a parenthesized, comma-separated list.
func SQLList(vs []Value) (string, error) {
	parts := make([]string, len(vs))
	for i, v := range vs {
		s, err := SQL(v)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return "(" + strings.Join(parts, ", ") + ")", nil
}

// Normalize returns s in Unicode normalization form C.
func Normalize(s string) string {
	return norm.NFC.String(s)
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(Normalize(s), "'", "''") + "'"
}

func formatFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("%w: %v", ErrNonFinite, f)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s, nil
}
