package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMulDiv(t *testing.T) {
	tests := []struct {
		name     string
		amount   int64
		num      int64
		den      int64
		expected int64
	}{
		{"exact division", 6000, 50, 100, 3000},
		{"rounds half up", 100, 25, 1000, 3}, // 2.5 -> 3
		{"rounds down below half", 100, 24, 1000, 2},
		{"zero amount", 0, 50, 100, 0},
		{"identity", 12345, 1, 1, 12345},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MulDiv(tt.amount, tt.num, tt.den))
		})
	}
}

func TestPercentAndBasisPoints(t *testing.T) {
	assert.Equal(t, int64(3000), Percent(6000, 50))
	assert.Equal(t, int64(6000), GrossFromPortion(3000, 50))
	assert.Equal(t, int64(120), BasisPoints(6000, 200))
	assert.Equal(t, int64(0), BasisPoints(6000, 0))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "360.00", Format(36000))
	assert.Equal(t, "0.01", Format(1))
	assert.Equal(t, "0.00", Format(0))
	assert.Equal(t, "12345.67", Format(1234567))
}

func TestFromDecimalString(t *testing.T) {
	t.Run("parses whole cents", func(t *testing.T) {
		cents, err := FromDecimalString("360.00")
		require.NoError(t, err)
		assert.Equal(t, int64(36000), cents)
	})

	t.Run("parses bare integer", func(t *testing.T) {
		cents, err := FromDecimalString("360")
		require.NoError(t, err)
		assert.Equal(t, int64(36000), cents)
	})

	t.Run("rejects sub-cent precision", func(t *testing.T) {
		_, err := FromDecimalString("360.001")
		assert.Error(t, err)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := FromDecimalString("not-money")
		assert.Error(t, err)
	})
}
