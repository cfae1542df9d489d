package catalog

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrNegativeMoney  = errors.New("money amount cannot be negative")
	ErrNegativeFactor = errors.New("money factor cannot be negative")
)

// Money is a non-negative amount in the store's single currency.
// Arithmetic is exact; rounding only happens when formatting.
type Money struct {
	amount decimal.Decimal
}

func Zero() Money {
	return Money{amount: decimal.Zero}
}

func NewMoney(amount decimal.Decimal) (Money, error) {
	if amount.IsNegative() {
		return Money{}, ErrNegativeMoney
	}
	return Money{amount: amount}, nil
}

func MoneyFromFloat(amount float64) (Money, error) {
	return NewMoney(decimal.NewFromFloat(amount))
}

// MustMoney panics on a negative amount. Intended for literals and seed data.
func MustMoney(amount string) Money {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		panic(err)
	}
	m, err := NewMoney(d)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Amount() decimal.Decimal {
	return m.amount
}

func (m Money) Add(other Money) Money {
	return Money{amount: m.amount.Add(other.amount)}
}

func (m Money) Multiply(factor decimal.Decimal) (Money, error) {
	if factor.IsNegative() {
		return Money{}, ErrNegativeFactor
	}
	return Money{amount: m.amount.Mul(factor)}, nil
}

func (m Money) MultiplyInt(factor int) (Money, error) {
	return m.Multiply(decimal.NewFromInt(int64(factor)))
}

func (m Money) Equal(other Money) bool {
	return m.amount.Equal(other.amount)
}

func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

func (m Money) StringFixed(places int32) string {
	return m.amount.StringFixed(places)
}

func (m Money) String() string {
	return m.StringFixed(2)
}

// Float64 is for DTOs only.
func (m Money) Float64() float64 {
	f, _ := m.amount.Round(2).Float64()
	return f
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.StringFixed(2)), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	parsed, err := NewMoney(d)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
