package model

import (
	"math/big"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// Amount keeps a human readable and a chain precision representation side by side.
// Raw is always round(Units * 10^decimals).
type Amount struct {
	Units string `json:"units"`
	Raw   string `json:"raw"`
}

func NewAmountFromUnits(units string, decimals int32) (Amount, error) {
	raw, err := UnitsToRaw(units, decimals)
	if err != nil {
		return Amount{}, err
	}
	normalized, err := RawToUnits(raw, decimals)
	if err != nil {
		return Amount{}, err
	}
	return Amount{Units: normalized, Raw: raw}, nil
}

func NewAmountFromRaw(raw *big.Int, decimals int32) Amount {
	return Amount{
		Units: decimal.NewFromBigInt(raw, -decimals).String(),
		Raw:   raw.String(),
	}
}

func UnitsToRaw(units string, decimals int32) (string, error) {
	if decimals < 0 {
		return "", errors.Wrapf(ErrInvalidAmount, "negative decimals %d", decimals)
	}
	d, err := decimal.NewFromString(units)
	if err != nil {
		return "", errors.Wrapf(ErrInvalidAmount, "units %q", units)
	}
	if d.IsNegative() {
		return "", errors.Wrapf(ErrInvalidAmount, "negative units %q", units)
	}

	return d.Shift(decimals).Round(0).BigInt().String(), nil
}

func RawToUnits(raw string, decimals int32) (string, error) {
	if decimals < 0 {
		return "", errors.Wrapf(ErrInvalidAmount, "negative decimals %d", decimals)
	}
	n, ok := new(big.Int).SetString(raw, 10)
	if !ok || n.Sign() < 0 {
		return "", errors.Wrapf(ErrInvalidAmount, "raw %q", raw)
	}

	return decimal.NewFromBigInt(n, -decimals).String(), nil
}

// RawInt returns the raw value, or zero when Raw is empty or malformed.
func (a Amount) RawInt() *big.Int {
	n, ok := new(big.Int).SetString(a.Raw, 10)
	if !ok {
		return new(big.Int)
	}
	return n
}

func (a Amount) IsZero() bool {
	return a.RawInt().Sign() == 0
}

// Add and Sub keep the receiver's decimals.
func (a Amount) Add(other Amount, decimals int32) Amount {
	return NewAmountFromRaw(new(big.Int).Add(a.RawInt(), other.RawInt()), decimals)
}

func (a Amount) Sub(other Amount, decimals int32) Amount {
	res := new(big.Int).Sub(a.RawInt(), other.RawInt())
	if res.Sign() < 0 {
		res.SetInt64(0)
	}
	return NewAmountFromRaw(res, decimals)
}

// Rescale converts between chain precisions, truncating any excess digits.
func (a Amount) Rescale(from, to int32) Amount {
	raw := a.RawInt()
	switch {
	case to > from:
		raw.Mul(raw, pow10(to-from))
	case to < from:
		raw.Quo(raw, pow10(from-to))
	}
	return NewAmountFromRaw(raw, to)
}

const (
	hardMinimumOutputPercent = 95
	softMinimumOutputPermil  = 995
)

// HardMinimumOutputRaw is the minimum baked into the pre-signed swap: floor(out * 0.95).
func HardMinimumOutputRaw(amountOutRaw *big.Int) *big.Int {
	res := new(big.Int).Mul(amountOutRaw, big.NewInt(hardMinimumOutputPercent))
	return res.Quo(res, big.NewInt(100))
}

// SoftMinimumOutputRaw is the re-quote floor checked right before the swap is broadcast: floor(out * 0.995).
func SoftMinimumOutputRaw(amountOutRaw *big.Int) *big.Int {
	res := new(big.Int).Mul(amountOutRaw, big.NewInt(softMinimumOutputPermil))
	return res.Quo(res, big.NewInt(1000))
}

func pow10(n int32) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
