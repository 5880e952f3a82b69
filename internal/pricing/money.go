package pricing

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is an exact decimal amount. It marshals as a plain JSON number so
// clients see 83.72 rather than "83.72".
type Money struct {
	d decimal.Decimal
}

// Zero is the zero amount.
var Zero = Money{}

// NewMoney converts a float into Money using its shortest decimal
// representation, so 4.99 stays 4.99.
func NewMoney(v float64) Money {
	return Money{d: decimal.NewFromFloat(v)}
}

// ParseMoney parses a decimal string such as "83.72".
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("pricing: parse money %q: %w", s, err)
	}
	return Money{d: d}, nil
}

// MustParseMoney is ParseMoney for literals; it panics on malformed input.
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Decimal exposes the underlying decimal value.
func (m Money) Decimal() decimal.Decimal { return m.d }

// Add returns m + o.
func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d)} }

// Equal reports whether both amounts are numerically equal.
func (m Money) Equal(o Money) bool { return m.d.Equal(o.d) }

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.d.IsZero() }

// Float64 returns the nearest float64.
func (m Money) Float64() float64 { return m.d.InexactFloat64() }

// StringFixed renders the amount with exactly places decimals.
func (m Money) StringFixed(places int32) string { return m.d.StringFixed(places) }

// String renders the amount without trailing zeros.
func (m Money) String() string { return m.d.String() }

// MarshalJSON implements json.Marshaler.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.d.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) || len(data) == 0 {
		*m = Money{}
		return nil
	}
	data = bytes.Trim(data, `"`)
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return fmt.Errorf("pricing: decode money: %w", err)
	}
	m.d = d
	return nil
}
