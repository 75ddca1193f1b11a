package ir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQL(t *testing.T) {
	tests := []struct {
		name string
		in   Value
		want string
	}{
		{"null", Null{}, "NULL"},
		{"nil interface", nil, "NULL"},
		{"string", String("NIRCam"), "'NIRCam'"},
		{"string with quote", String("O'Brien"), "'O''Brien'"},
		{"empty string", String(""), "''"},
		{"int", Int(300), "300"},
		{"negative int", Int(-12), "-12"},
		{"whole float", Float(300), "300.0"},
		{"fractional float", Float(0.25), "0.25"},
		{"small float", Float(1e-7), "1e-07"},
		{"large float", Float(1e21), "1e+21"},
		{"true", Bool(true), "1"},
		{"false", Bool(false), "0"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := SQL(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSQL_NonFinite(t *testing.T) {
	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := SQL(Float(f))
		require.ErrorIs(t, err, ErrNonFinite)
	}
}

func TestSQL_NormalizesStrings(t *testing.T) {
	// "e" followed by a combining acute accent composes to U+00E9.
	decomposed := String("cafe\u0301")
	got, err := SQL(decomposed)
	require.NoError(t, err)
	assert.Equal(t, "'caf\u00e9'", got)
}

func TestSQLList(t *testing.T) {
	got, err := SQLList([]Value{String("MIRI"), String("NIRISS"), Int(3)})
	require.NoError(t, err)
	assert.Equal(t, "('MIRI', 'NIRISS', 3)", got)

	got, err = SQLList(nil)
	require.NoError(t, err)
	assert.Equal(t, "()", got)

	_, err = SQLList([]Value{Float(math.NaN())})
	require.ErrorIs(t, err, ErrNonFinite)
}
