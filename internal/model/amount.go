package model

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
)

// nanJSON is the JSON form of a NaN amount. encoding/json refuses NaN floats,
// and a missing price is commonly configured as NaN.
var nanJSON = []byte(`"NaN"`)

// Amount is a monetary value or ratio. NaN is a valid value meaning
// "not found" when the price sentinel is configured that way.
type Amount float64

// Float64 returns the amount as a float64.
func (a Amount) Float64() float64 {
	return float64(a)
}

// IsNaN reports whether the amount is NaN.
func (a Amount) IsNaN() bool {
	return math.IsNaN(float64(a))
}

// String formats the amount without trailing zeros, or "NaN".
func (a Amount) String() string {
	if a.IsNaN() {
		return "NaN"
	}
	return strconv.FormatFloat(float64(a), 'f', -1, 64)
}

// MarshalJSON encodes NaN as the string "NaN" and everything else as a number.
func (a Amount) MarshalJSON() ([]byte, error) {
	f := float64(a)
	if math.IsNaN(f) {
		return nanJSON, nil
	}
	if math.IsInf(f, 0) {
		return nil, fmt.Errorf("unsupported amount: %v", f)
	}
	return strconv.AppendFloat(nil, f, 'f', -1, 64), nil
}

// UnmarshalJSON accepts numbers, "NaN" and null (decoded as NaN).
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, nanJSON) || bytes.Equal(data, []byte("null")) {
		*a = Amount(math.NaN())
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid amount %s: %w", data, err)
	}
	*a = Amount(f)
	return nil
}
