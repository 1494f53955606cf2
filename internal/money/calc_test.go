package money_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/payflow/internal/money"
)

func TestLineItemTax(t *testing.T) {
	type testCase struct {
		name     string
		subtotal money.Amount
		rate     string
		want     int64
		wantErr  bool
	}

	tests := []testCase{
		{
			name:     "TenPercentIDR",
			subtotal: money.New("IDR", 100_000),
			rate:     "0.10",
			want:     10_000,
		},
		{
			name:     "RoundsHalfUp",
			subtotal: money.New("EUR", 105), // 1.05 EUR at 5% = 5.25 cents
			rate:     "0.05",
			want:     5,
		},
		{
			name:     "RoundsHalfUpOnExactHalf",
			subtotal: money.New("EUR", 110), // 110 * 0.05 = 5.5
			rate:     "0.05",
			want:     6,
		},
		{
			name:     "ZeroRate",
			subtotal: money.New("IDR", 100_000),
			rate:     "0",
			want:     0,
		},
		{
			name:     "RateAboveOne",
			subtotal: money.New("IDR", 100_000),
			rate:     "1.5",
			wantErr:  true,
		},
		{
			name:     "NegativeRate",
			subtotal: money.New("IDR", 100_000),
			rate:     "-0.1",
			wantErr:  true,
		},
		{
			name:     "TooManyDecimalPlaces",
			subtotal: money.New("IDR", 100_000),
			rate:     "0.12345",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate, err := decimal.NewFromString(tt.rate)
			require.NoError(t, err)

			got, err := money.LineItemTax(tt.subtotal, rate)

			if tt.wantErr {
				var verr *money.ValidationError
				assert.ErrorAs(t, err, &verr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Units)
			assert.Equal(t, tt.subtotal.Currency, got.Currency)
		})
	}
}

func TestServiceFee(t *testing.T) {
	t.Run("PercentagePlusFixed", func(t *testing.T) {
		fee, err := money.ServiceFee(
			money.New("IDR", 100_000),
			decimal.RequireFromString("0.029"),
			money.New("IDR", 2_000),
		)
		require.NoError(t, err)
		assert.Equal(t, int64(4_900), fee.Units)
	})

	t.Run("FixedCurrencyMismatch", func(t *testing.T) {
		_, err := money.ServiceFee(
			money.New("IDR", 100_000),
			decimal.RequireFromString("0.029"),
			money.New("USD", 30),
		)
		assert.ErrorIs(t, err, money.ErrCurrencyMismatch)
	})

	t.Run("InvalidPercentage", func(t *testing.T) {
		_, err := money.ServiceFee(
			money.New("IDR", 100_000),
			decimal.RequireFromString("1.01"),
			money.New("IDR", 0),
		)

		var verr *money.ValidationError
		assert.ErrorAs(t, err, &verr)
	})
}

func TestDistributeInstallments(t *testing.T) {
	t.Run("ExactThreeWaySplit", func(t *testing.T) {
		// Invoice scenario: 100,000 subtotal, 10% tax, 2.9% + 2,000 fee.
		shares, err := money.DistributeInstallments(
			money.New("IDR", 114_900),
			money.New("IDR", 10_000),
			money.New("IDR", 4_900),
			3,
		)
		require.NoError(t, err)
		require.Len(t, shares, 3)

		for _, s := range shares {
			assert.Equal(t, int64(38_300), s.Amount.Units)
		}

		assert.Equal(t, []int64{3_333, 3_333, 3_334}, taxUnits(shares))
		assert.Equal(t, []int64{1_633, 1_633, 1_634}, feeUnits(shares))
	})

	t.Run("RemainderOnLastShare", func(t *testing.T) {
		shares, err := money.DistributeInstallments(
			money.New("EUR", 100),
			money.New("EUR", 0),
			money.New("EUR", 0),
			3,
		)
		require.NoError(t, err)

		var sum int64
		for _, s := range shares {
			sum += s.Amount.Units
		}

		assert.Equal(t, int64(100), sum)
		assert.Equal(t, int64(33), shares[0].Amount.Units)
		assert.Equal(t, int64(33), shares[1].Amount.Units)
		assert.Equal(t, int64(34), shares[2].Amount.Units)
	})

	t.Run("SingleInstallment", func(t *testing.T) {
		shares, err := money.DistributeInstallments(
			money.New("EUR", 101),
			money.New("EUR", 17),
			money.New("EUR", 3),
			1,
		)
		require.NoError(t, err)
		require.Len(t, shares, 1)
		assert.Equal(t, int64(101), shares[0].Amount.Units)
		assert.Equal(t, int64(17), shares[0].TaxAmount.Units)
	})

	t.Run("CurrencyMismatch", func(t *testing.T) {
		_, err := money.DistributeInstallments(
			money.New("IDR", 100),
			money.New("USD", 10),
			money.New("IDR", 0),
			2,
		)
		assert.ErrorIs(t, err, money.ErrCurrencyMismatch)
	})

	t.Run("ZeroInstallments", func(t *testing.T) {
		_, err := money.DistributeInstallments(
			money.New("IDR", 100),
			money.New("IDR", 10),
			money.New("IDR", 0),
			0,
		)

		var verr *money.ValidationError
		assert.ErrorAs(t, err, &verr)
	})
}

func TestAmountAdd(t *testing.T) {
	t.Run("SameCurrency", func(t *testing.T) {
		sum, err := money.New("IDR", 100).Add(money.New("IDR", 50))
		require.NoError(t, err)
		assert.Equal(t, int64(150), sum.Units)
	})

	t.Run("Mismatch", func(t *testing.T) {
		_, err := money.New("IDR", 100).Add(money.New("EUR", 50))
		assert.ErrorIs(t, err, money.ErrCurrencyMismatch)
	})
}

func taxUnits(shares []money.InstallmentShare) []int64 {
	out := make([]int64, len(shares))
	for i, s := range shares {
		out[i] = s.TaxAmount.Units
	}

	return out
}

func feeUnits(shares []money.InstallmentShare) []int64 {
	out := make([]int64, len(shares))
	for i, s := range shares {
		out[i] = s.ServiceFee.Units
	}

	return out
}
