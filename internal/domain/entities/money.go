package entities

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// MinorUnits is the number of fraction digits every supported currency carries.
const MinorUnits = 2

var (
	maxMinor = decimal.NewFromInt(math.MaxInt64)
	minMinor = decimal.NewFromInt(math.MinInt64)
)

// Money is an amount expressed in currency minor units (cents).
type Money int64

// ParseMoney parses a decimal string in major units ("1000", "12.50").
// More than two fraction digits is rejected rather than rounded.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if !d.Equal(d.Truncate(MinorUnits)) {
		return 0, fmt.Errorf("invalid amount %q: more than %d decimal places", s, MinorUnits)
	}
	minor := d.Shift(MinorUnits)
	if minor.GreaterThan(maxMinor) || minor.LessThan(minMinor) {
		return 0, fmt.Errorf("invalid amount %q: out of range", s)
	}
	return Money(minor.IntPart()), nil
}

// MustMoney is ParseMoney for constants and tests.
func MustMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Major builds Money from a whole number of major units.
func Major(units int64) Money {
	return Money(units * 100)
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -MinorUnits)
}

// String formats the amount in major units with two decimals.
func (m Money) String() string {
	return m.Decimal().StringFixed(MinorUnits)
}

// IsPositive reports whether m > 0.
func (m Money) IsPositive() bool {
	return m > 0
}

// Percent applies a rate given in basis points and rounds half-up to the minor unit.
func (m Money) Percent(bps int64) Money {
	d := decimal.NewFromInt(int64(m)).Mul(decimal.New(bps, -4))
	return Money(d.Round(0).IntPart())
}

// MarshalJSON encodes Money as a decimal string so clients never see float rounding.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts either a decimal string or a JSON number in major units.
func (m *Money) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("amount must be a string or number")
		}
		s = n.String()
	}
	v, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// MinorString returns the raw minor-unit count, as gateways expect it.
func (m Money) MinorString() string {
	return strconv.FormatInt(int64(m), 10)
}
