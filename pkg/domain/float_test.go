package domain_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor/pkg/domain"
)

func TestFloat_MarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want string
	}{
		{"finite", 1.5, `1.5`},
		{"zero", 0, `0`},
		{"nan", math.NaN(), `"NaN"`},
		{"positive infinity", math.Inf(1), `"Infinity"`},
		{"negative infinity", math.Inf(-1), `"-Infinity"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := json.Marshal(domain.Float(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(out))
		})
	}
}

func TestFloat_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want float64
	}{
		{"number", `2.5`, 2.5},
		{"numeric string", `"2.5"`, 2.5},
		{"infinity token", `"Infinity"`, math.Inf(1)},
		{"tokens ignore case", `"INFINITY"`, math.Inf(1)},
		{"explicit plus sign", `"+Infinity"`, math.Inf(1)},
		{"negative infinity", `"-infinity"`, math.Inf(-1)},
		{"unrecognized string is zero", `"abc"`, 0},
		{"empty string is zero", `""`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f domain.Float
			require.NoError(t, json.Unmarshal([]byte(tt.in), &f))
			assert.Equal(t, tt.want, float64(f))
		})
	}
}

func TestFloat_UnmarshalJSON_NaN(t *testing.T) {
	for _, in := range []string{`"NaN"`, `"nan"`} {
		var f domain.Float
		require.NoError(t, json.Unmarshal([]byte(in), &f))
		assert.True(t, math.IsNaN(float64(f)), in)
	}
}

func TestFloat_UnmarshalJSON_NullKeepsValue(t *testing.T) {
	var v struct {
		Score domain.Float `json:"score"`
	}
	v.Score = 7

	require.NoError(t, json.Unmarshal([]byte(`{"score":null}`), &v))
	assert.Equal(t, domain.Float(7), v.Score)
}

func TestFloat_RoundTripInsideStruct(t *testing.T) {
	type action struct {
		AverageActionScore domain.Float `json:"averageActionScore"`
	}

	var a action
	require.NoError(t, json.Unmarshal([]byte(`{"averageActionScore":"Infinity"}`), &a))
	assert.True(t, math.IsInf(float64(a.AverageActionScore), 1))

	out, err := json.Marshal(a)
	require.NoError(t, err)
	assert.JSONEq(t, `{"averageActionScore":"Infinity"}`, string(out))
}

func TestParseFloat(t *testing.T) {
	assert.Equal(t, 3.0, domain.ParseFloat(" 3 "))
	assert.Equal(t, -0.5, domain.ParseFloat("-0.5"))
	assert.Equal(t, math.Inf(-1), domain.ParseFloat("-Infinity"))
	assert.True(t, math.IsNaN(domain.ParseFloat("NAN")))
	assert.Zero(t, domain.ParseFloat("twelve"))
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in          float64
		wantToken   string
		wantSpecial bool
	}{
		{0.25, "0.25", false},
		{100, "100", false},
		{math.NaN(), "NaN", true},
		{math.Inf(1), "Infinity", true},
		{math.Inf(-1), "-Infinity", true},
	}

	for _, tt := range tests {
		token, special := domain.FormatFloat(tt.in)
		assert.Equal(t, tt.wantToken, token)
		assert.Equal(t, tt.wantSpecial, special)

		if special {
			assert.True(t, math.IsNaN(domain.ParseFloat(token)) || domain.ParseFloat(token) == tt.in,
				"%s parses back", token)
		}
	}
}
