package money

import (
	"errors"
	"fmt"

	"golang.org/x/text/currency"
)

// ErrCurrencyMismatch is returned when two amounts of different currencies
// are combined. The core never converts between currencies.
var ErrCurrencyMismatch = errors.New("currency mismatch")

// ValidationError reports a malformed monetary input (bad tax rate,
// unknown currency code). It is never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Currency is an ISO 4217 code, e.g. "IDR", "EUR".
type Currency string

// Scale returns the number of minor-unit digits for the currency.
func (c Currency) Scale() (int, error) {
	unit, err := currency.ParseISO(string(c))
	if err != nil {
		return 0, &ValidationError{Field: "currency", Reason: fmt.Sprintf("unknown code %q", c)}
	}

	scale, _ := currency.Standard.Rounding(unit)

	return scale, nil
}

// Amount is a sum of money in integer minor units of its currency.
// All arithmetic stays in minor units; binary floats never appear.
type Amount struct {
	Currency Currency
	Units    int64
}

func New(c Currency, units int64) Amount {
	return Amount{Currency: c, Units: units}
}

// Add returns a+b, or ErrCurrencyMismatch if the currencies differ.
func (a Amount) Add(b Amount) (Amount, error) {
	if a.Currency != b.Currency {
		return Amount{}, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, a.Currency, b.Currency)
	}

	return Amount{Currency: a.Currency, Units: a.Units + b.Units}, nil
}

// Sub returns a-b, or ErrCurrencyMismatch if the currencies differ.
func (a Amount) Sub(b Amount) (Amount, error) {
	if a.Currency != b.Currency {
		return Amount{}, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, a.Currency, b.Currency)
	}

	return Amount{Currency: a.Currency, Units: a.Units - b.Units}, nil
}

func (a Amount) IsZero() bool     { return a.Units == 0 }
func (a Amount) IsNegative() bool { return a.Units < 0 }

func (a Amount) String() string {
	return fmt.Sprintf("%d %s", a.Units, a.Currency)
}
