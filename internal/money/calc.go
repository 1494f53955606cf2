package money

import (
	"github.com/shopspring/decimal"
)

var (
	decimalZero = decimal.NewFromInt(0)
	decimalOne  = decimal.NewFromInt(1)
)

// validateRate checks that a rate is within [0,1] and carries at most
// four decimal digits.
func validateRate(field string, rate decimal.Decimal) error {
	if rate.LessThan(decimalZero) || rate.GreaterThan(decimalOne) {
		return &ValidationError{Field: field, Reason: "must be between 0 and 1"}
	}

	if !rate.Equal(rate.Round(4)) {
		return &ValidationError{Field: field, Reason: "at most 4 decimal places"}
	}

	return nil
}

// roundedMinorUnits multiplies minor units by a decimal rate and rounds
// half-up to whole minor units.
func roundedMinorUnits(units int64, rate decimal.Decimal) int64 {
	// decimal.Round is round-half-away-from-zero, which is half-up for
	// the non-negative amounts handled here.
	return decimal.NewFromInt(units).Mul(rate).Round(0).IntPart()
}

// LineItemTax computes the tax owed on a line-item subtotal.
func LineItemTax(subtotal Amount, taxRate decimal.Decimal) (Amount, error) {
	if err := validateRate("tax_rate", taxRate); err != nil {
		return Amount{}, err
	}

	return Amount{
		Currency: subtotal.Currency,
		Units:    roundedMinorUnits(subtotal.Units, taxRate),
	}, nil
}

// ServiceFee computes subtotal × feePercentage + feeFixed, rounded
// half-up to the currency's minor unit.
func ServiceFee(subtotal Amount, feePercentage decimal.Decimal, feeFixed Amount) (Amount, error) {
	if err := validateRate("fee_percentage", feePercentage); err != nil {
		return Amount{}, err
	}

	if subtotal.Currency != feeFixed.Currency {
		return Amount{}, ErrCurrencyMismatch
	}

	variable := Amount{
		Currency: subtotal.Currency,
		Units:    roundedMinorUnits(subtotal.Units, feePercentage),
	}

	return variable.Add(feeFixed)
}

// InstallmentShare is one installment's slice of an invoice: the gross
// amount charged plus its tax and service-fee breakdown.
type InstallmentShare struct {
	Amount     Amount
	TaxAmount  Amount
	ServiceFee Amount
}

// DistributeInstallments splits an invoice total (and its tax and fee
// components) into n shares. The first n-1 shares get the floored
// division; the last share absorbs the remainder so each column sums
// back to its input exactly, with no leftover minor units.
func DistributeInstallments(total, taxTotal, feeTotal Amount, n int) ([]InstallmentShare, error) {
	if n < 1 {
		return nil, &ValidationError{Field: "installments", Reason: "must be at least 1"}
	}

	if total.Currency != taxTotal.Currency || total.Currency != feeTotal.Currency {
		return nil, ErrCurrencyMismatch
	}

	amounts := splitUnits(total.Units, n)
	taxes := splitUnits(taxTotal.Units, n)
	fees := splitUnits(feeTotal.Units, n)

	cur := total.Currency

	shares := make([]InstallmentShare, n)
	for i := range shares {
		shares[i] = InstallmentShare{
			Amount:     Amount{Currency: cur, Units: amounts[i]},
			TaxAmount:  Amount{Currency: cur, Units: taxes[i]},
			ServiceFee: Amount{Currency: cur, Units: fees[i]},
		}
	}

	return shares, nil
}

func splitUnits(units int64, n int) []int64 {
	base := units / int64(n)

	out := make([]int64, n)
	for i := range out {
		out[i] = base
	}

	out[n-1] = units - base*int64(n-1)

	return out
}
