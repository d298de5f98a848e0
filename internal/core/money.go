// Package core holds the pure domain of the aggregation engine: entities,
// money, period math, budget progress, time bucketing and the anomaly
// statistics. Nothing in this package performs I/O.
package core

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an exact monetary value in integer cents. Arithmetic on ledgers
// stays in cents; decimals appear only at the parse/format boundary.
type Money struct {
	Cents int64
}

// Largest amount accepted from user input. Keeps cents well inside int64
// when summed over a ledger.
var maxAmount = decimal.New(1, 12) // 10^12 currency units

// ParseAmount converts a decimal string to Money with half-up rounding on the
// third decimal place. Both dot and comma decimal separators are accepted.
// Only strictly positive amounts are valid: transactions carry an unsigned
// magnitude, the sign comes from the transaction type.
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	if d.Sign() <= 0 || d.GreaterThanOrEqual(maxAmount) {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Shift(2).Round(0).IntPart()
	if cents <= 0 {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents}, nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Decimal returns the amount in currency units as an exact decimal.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String formats the amount in currency units with two decimal places,
// e.g. 1234 cents -> "12.34".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Units returns the amount in currency units as a float64. Use only for
// derived metrics (velocity, percentages, statistics), never for ledger sums.
func (m Money) Units() float64 {
	return float64(m.Cents) / 100.0
}

type moneyJSON struct {
	Cents     int64  `json:"cents"`
	Formatted string `json:"formatted"`
}

// MarshalJSON renders the amount as cents plus a formatted string so API
// clients never have to do decimal math.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Cents: m.Cents, Formatted: m.String()})
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var v moneyJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	m.Cents = v.Cents
	return nil
}
