package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is a decimal amount. It serialises as a bare JSON number ("total": 100)
// so backup files stay readable by clients that store amounts as numbers, and
// it accepts both quoted and unquoted numbers when decoding.
type Money struct {
	decimal.Decimal
}

// Zero is the zero amount.
var Zero = Money{}

// NewMoney creates an amount from an integer number of units.
func NewMoney(units int64) Money {
	return Money{decimal.NewFromInt(units)}
}

// MoneyFromFloat creates an amount from a float.
func MoneyFromFloat(f float64) Money {
	return Money{decimal.NewFromFloat(f)}
}

// ParseMoney parses a decimal string such as "12.50".
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("parse money %q: %w", s, err)
	}
	return Money{d}, nil
}

// MarshalJSON writes the amount as a JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.String()), nil
}

// UnmarshalJSON accepts a JSON number, a quoted number, or null (zero).
func (m *Money) UnmarshalJSON(data []byte) error {
	return m.Decimal.UnmarshalJSON(data)
}

// Equal reports whether two amounts are numerically equal.
func (m Money) Equal(other Money) bool {
	return m.Decimal.Equal(other.Decimal)
}

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool {
	return m.Decimal.IsNegative()
}

// Float returns the amount as a float64 (for validation and display only).
func (m Money) Float() float64 {
	f, _ := m.Decimal.Float64()
	return f
}
