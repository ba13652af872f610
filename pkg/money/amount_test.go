package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBRL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Centavos
	}{
		{"plain decimal", "894,60", 89460},
		{"thousands separator", "1.234,56", 123456},
		{"millions", "1.234.567,89", 123456789},
		{"no decimal part", "150", 15000},
		{"single decimal digit", "7,5", 750},
		{"currency prefix", "R$ 894,60", 89460},
		{"surrounding whitespace", "  42,00  ", 4200},
		{"zero", "0,00", 0},
		{"negative", "-10,50", -1050},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBRL(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseBRL_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"letters", "abc"},
		{"three decimal places", "1,234"},
		{"mixed garbage", "12x,30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBRL(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestCentavos_String(t *testing.T) {
	assert.Equal(t, "894,60", Centavos(89460).String())
	assert.Equal(t, "1.234,56", Centavos(123456).String())
	assert.Equal(t, "1.234.567,89", Centavos(123456789).String())
	assert.Equal(t, "0,05", Centavos(5).String())
	assert.Equal(t, "-10,50", Centavos(-1050).String())
}

func TestParseBRL_RoundTrip(t *testing.T) {
	for _, v := range []Centavos{0, 1, 99, 100, 89460, 123456, 100000000} {
		parsed, err := ParseBRL(v.String())
		require.NoError(t, err)
		assert.Equal(t, v, parsed)
	}
}
