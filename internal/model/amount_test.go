package model

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitsToRaw(t *testing.T) {
	tests := []struct {
		name     string
		units    string
		decimals int32
		expected string
	}{
		{name: "six decimals", units: "100.00", decimals: 6, expected: "100000000"},
		{name: "stellar precision", units: "12.3456789", decimals: 7, expected: "123456789"},
		{name: "eighteen decimals", units: "0.000000000000000001", decimals: 18, expected: "1"},
		{name: "rounds half away from zero", units: "1.0000005", decimals: 6, expected: "1000001"},
		{name: "rounds down below half", units: "1.0000004", decimals: 6, expected: "1000000"},
		{name: "zero decimals", units: "42", decimals: 0, expected: "42"},
		{name: "large value", units: "123456789012345678901234567890.5", decimals: 12, expected: "123456789012345678901234567890500000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := UnitsToRaw(tt.units, tt.decimals)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, raw)
		})
	}
}

func TestUnitsRawRoundTrip(t *testing.T) {
	cases := []struct {
		units    string
		decimals int32
	}{
		{"100.00", 6},
		{"0.1", 6},
		{"99999.999999", 6},
		{"7.1234567", 7},
		{"1.000000000000000001", 18},
		{"0", 12},
		{"3.14159265358", 12},
	}

	for _, c := range cases {
		raw, err := UnitsToRaw(c.units, c.decimals)
		require.NoError(t, err)

		back, err := RawToUnits(raw, c.decimals)
		require.NoError(t, err)

		want := decimal.RequireFromString(c.units)
		got := decimal.RequireFromString(back)
		assert.True(t, want.Equal(got), "units %s decimals %d came back as %s", c.units, c.decimals, back)

		again, err := UnitsToRaw(back, c.decimals)
		require.NoError(t, err)
		assert.Equal(t, raw, again)
	}
}

func TestUnitsToRawRejectsInvalid(t *testing.T) {
	for _, units := range []string{"", "abc", "-1", "1.2.3"} {
		_, err := UnitsToRaw(units, 6)
		assert.ErrorIs(t, err, ErrInvalidAmount, units)
	}

	_, err := RawToUnits("12.5", 6)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = RawToUnits("-5", 6)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestNewAmountFromUnits(t *testing.T) {
	a, err := NewAmountFromUnits("100.00", 6)
	require.NoError(t, err)
	assert.Equal(t, Amount{Units: "100", Raw: "100000000"}, a)
	assert.False(t, a.IsZero())
}

func TestHardMinimumOutputRaw(t *testing.T) {
	amountIn, err := NewAmountFromUnits("100.00", 6)
	require.NoError(t, err)
	assert.Equal(t, "100000000", amountIn.Raw)

	// quote of 99.5 output units after a 0.5% pool margin
	amountOut := new(big.Int).Mul(amountIn.RawInt(), big.NewInt(995))
	amountOut.Quo(amountOut, big.NewInt(1000))
	assert.Equal(t, "99500000", amountOut.String())

	assert.Equal(t, "94525000", HardMinimumOutputRaw(amountOut).String())
	assert.Equal(t, "9", HardMinimumOutputRaw(big.NewInt(10)).String())
	assert.Equal(t, "99002500", SoftMinimumOutputRaw(amountOut).String())
}

func TestAmountArithmetic(t *testing.T) {
	a := Amount{Units: "1.5", Raw: "1500000"}
	b := Amount{Units: "0.5", Raw: "500000"}

	assert.Equal(t, Amount{Units: "2", Raw: "2000000"}, a.Add(b, 6))
	assert.Equal(t, Amount{Units: "1", Raw: "1000000"}, a.Sub(b, 6))
	assert.Equal(t, Amount{Units: "0", Raw: "0"}, b.Sub(a, 6))
	assert.Equal(t, "0", Amount{}.RawInt().String())
}

func TestAmountRescale(t *testing.T) {
	a := Amount{Units: "1.2345678", Raw: "12345678"}

	up := a.Rescale(7, 12)
	assert.Equal(t, "1234567800000", up.Raw)
	assert.Equal(t, "1.2345678", up.Units)

	down := a.Rescale(7, 6)
	assert.Equal(t, "1234567", down.Raw)
	assert.Equal(t, "1.234567", down.Units)
}
