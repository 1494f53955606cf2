package invoice_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/payflow/internal/invoice"
	"github.com/MrJamesThe3rd/payflow/internal/money"
)

func TestService_Create(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := invoice.NewMockRepository(ctrl)
	svc := invoice.NewService(repo)

	tenantID := uuid.New()
	due := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	repo.EXPECT().
		CreateInvoice(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, inv *invoice.Invoice) error {
			inv.ID = uuid.New()
			inv.CreatedAt = time.Now()
			return nil
		})

	inv, err := svc.Create(context.Background(), invoice.CreateParams{
		TenantID: tenantID,
		Gateway:  "xendit",
		Currency: "IDR",
		LineItems: []invoice.LineItemParams{
			{Description: "Subscription", Quantity: 1, UnitPrice: 100_000, TaxRate: decimal.RequireFromString("0.10")},
		},
		FeePercentage: decimal.RequireFromString("0.029"),
		FeeFixed:      2_000,
		DueDates:      []time.Time{due, due.AddDate(0, 1, 0), due.AddDate(0, 2, 0)},
		ExpiresAt:     due.AddDate(0, 3, 0),
	})
	require.NoError(t, err)

	assert.Equal(t, invoice.StatusDraft, inv.Status)
	assert.Equal(t, int64(100_000), inv.Subtotal)
	assert.Equal(t, int64(10_000), inv.TaxTotal)
	assert.Equal(t, int64(4_900), inv.ServiceFee)
	assert.Equal(t, int64(114_900), inv.TotalAmount)
	assert.Equal(t, inv.Subtotal+inv.TaxTotal+inv.ServiceFee, inv.TotalAmount)

	require.Len(t, inv.Installments, 3)

	var sum int64
	for _, inst := range inv.Installments {
		sum += inst.Amount

		assert.Equal(t, invoice.InstallmentUnpaid, inst.Status)
		assert.Equal(t, int64(38_300), inst.Amount)
	}

	assert.Equal(t, inv.TotalAmount, sum)
}

func TestService_Create_InvalidInput(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := invoice.NewMockRepository(ctrl)
	svc := invoice.NewService(repo)

	t.Run("NoLineItems", func(t *testing.T) {
		_, err := svc.Create(context.Background(), invoice.CreateParams{
			TenantID: uuid.New(),
			Currency: "IDR",
		})

		var verr *money.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("BadTaxRate", func(t *testing.T) {
		_, err := svc.Create(context.Background(), invoice.CreateParams{
			TenantID: uuid.New(),
			Currency: "IDR",
			LineItems: []invoice.LineItemParams{
				{Quantity: 1, UnitPrice: 100, TaxRate: decimal.RequireFromString("1.5")},
			},
		})

		var verr *money.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("ZeroQuantity", func(t *testing.T) {
		_, err := svc.Create(context.Background(), invoice.CreateParams{
			TenantID: uuid.New(),
			Currency: "IDR",
			LineItems: []invoice.LineItemParams{
				{Quantity: 0, UnitPrice: 100, TaxRate: decimal.Zero},
			},
		})

		var verr *money.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("NegativeUnitPrice", func(t *testing.T) {
		_, err := svc.Create(context.Background(), invoice.CreateParams{
			TenantID: uuid.New(),
			Currency: "IDR",
			LineItems: []invoice.LineItemParams{
				{Quantity: 1, UnitPrice: -100, TaxRate: decimal.Zero},
			},
		})

		var verr *money.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("UnknownCurrency", func(t *testing.T) {
		_, err := svc.Create(context.Background(), invoice.CreateParams{
			TenantID: uuid.New(),
			Currency: "BOGUS",
			LineItems: []invoice.LineItemParams{
				{Quantity: 1, UnitPrice: 100, TaxRate: decimal.Zero},
			},
		})

		var verr *money.ValidationError
		assert.ErrorAs(t, err, &verr)
	})
}

func TestService_Get_TenantIsolation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := invoice.NewMockRepository(ctrl)
	svc := invoice.NewService(repo)

	owner := uuid.New()
	stranger := uuid.New()
	id := uuid.New()

	repo.EXPECT().
		GetInvoice(gomock.Any(), id).
		Return(&invoice.Invoice{ID: id, TenantID: owner}, nil).
		Times(2)

	inv, err := svc.Get(context.Background(), owner, id)
	require.NoError(t, err)
	assert.Equal(t, id, inv.ID)

	_, err = svc.Get(context.Background(), stranger, id)
	assert.ErrorIs(t, err, invoice.ErrNotFound)
}

func TestService_ReplaceLineItems_Immutable(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := invoice.NewMockRepository(ctrl)
	svc := invoice.NewService(repo)

	tenantID := uuid.New()
	id := uuid.New()
	initiatedAt := time.Now()

	repo.EXPECT().
		GetInvoice(gomock.Any(), id).
		Return(&invoice.Invoice{
			ID:                 id,
			TenantID:           tenantID,
			Currency:           "IDR",
			Status:             invoice.StatusPending,
			PaymentInitiatedAt: &initiatedAt,
		}, nil)

	_, err := svc.ReplaceLineItems(context.Background(), tenantID, id,
		[]invoice.LineItemParams{{Quantity: 1, UnitPrice: 500, TaxRate: decimal.Zero}},
		decimal.Zero, 0)
	assert.ErrorIs(t, err, invoice.ErrImmutable)
}

func TestService_ReplaceLineItems_RedistributesSchedule(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := invoice.NewMockRepository(ctrl)
	svc := invoice.NewService(repo)

	tenantID := uuid.New()
	id := uuid.New()
	due := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	repo.EXPECT().
		GetInvoice(gomock.Any(), id).
		Return(&invoice.Invoice{
			ID:          id,
			TenantID:    tenantID,
			Currency:    "IDR",
			Status:      invoice.StatusDraft,
			Subtotal:    100_000,
			TaxTotal:    10_000,
			ServiceFee:  4_900,
			TotalAmount: 114_900,
			Installments: []invoice.Installment{
				{Number: 1, Amount: 38_300, DueDate: due, Status: invoice.InstallmentUnpaid},
				{Number: 2, Amount: 38_300, DueDate: due.AddDate(0, 1, 0), Status: invoice.InstallmentUnpaid},
				{Number: 3, Amount: 38_300, DueDate: due.AddDate(0, 2, 0), Status: invoice.InstallmentUnpaid},
			},
		}, nil)

	var saved *invoice.Invoice

	repo.EXPECT().
		ReplaceLineItems(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, inv *invoice.Invoice) error {
			saved = inv
			return nil
		})

	inv, err := svc.ReplaceLineItems(context.Background(), tenantID, id,
		[]invoice.LineItemParams{{Description: "Discounted plan", Quantity: 1, UnitPrice: 50_000, TaxRate: decimal.Zero}},
		decimal.Zero, 0)
	require.NoError(t, err)

	assert.Equal(t, int64(50_000), inv.TotalAmount)
	require.Len(t, inv.Installments, 3)

	var sum int64
	for i, inst := range inv.Installments {
		sum += inst.Amount

		assert.Equal(t, i+1, inst.Number)
		assert.Equal(t, invoice.InstallmentUnpaid, inst.Status)
		assert.Equal(t, due.AddDate(0, i, 0), inst.DueDate)
	}

	assert.Equal(t, inv.TotalAmount, sum)
	assert.Same(t, inv, saved)
}

func TestService_ApplyPaymentTotal(t *testing.T) {
	type testCase struct {
		name        string
		invoice     *invoice.Invoice
		totalPaid   int64
		wantStatus  invoice.Status
		wantOverpay int64
		wantCovered int
	}

	installments := []invoice.Installment{
		{Number: 1, Amount: 38_300},
		{Number: 2, Amount: 38_300},
		{Number: 3, Amount: 38_300},
	}

	tests := []testCase{
		{
			name: "FirstInstallmentPaid",
			invoice: &invoice.Invoice{
				Status:       invoice.StatusPending,
				TotalAmount:  114_900,
				Installments: installments,
			},
			totalPaid:   38_300,
			wantStatus:  invoice.StatusPartiallyPaid,
			wantCovered: 1,
		},
		{
			name: "FullPayment",
			invoice: &invoice.Invoice{
				Status:       invoice.StatusPartiallyPaid,
				TotalAmount:  114_900,
				Installments: installments,
			},
			totalPaid:   114_900,
			wantStatus:  invoice.StatusPaid,
			wantCovered: 3,
		},
		{
			name: "OverpaymentReported",
			invoice: &invoice.Invoice{
				Status:       invoice.StatusPending,
				TotalAmount:  114_900,
				Installments: installments,
			},
			totalPaid:   130_000,
			wantStatus:  invoice.StatusPaid,
			wantOverpay: 15_100,
			wantCovered: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := invoice.NewMockRepository(ctrl)
			svc := invoice.NewService(repo)

			id := uuid.New()
			tt.invoice.ID = id

			repo.EXPECT().GetInvoice(gomock.Any(), id).Return(tt.invoice, nil)
			repo.EXPECT().UpdatePaymentState(gomock.Any(), id, tt.wantStatus, tt.totalPaid).Return(nil)

			if tt.wantCovered > 0 {
				repo.EXPECT().MarkInstallmentsPaid(gomock.Any(), id, tt.wantCovered).Return(nil)
			}

			status, overpaid, err := svc.ApplyPaymentTotal(context.Background(), id, tt.totalPaid)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantOverpay, overpaid)
		})
	}
}

func TestService_CreateSupplementary(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := invoice.NewMockRepository(ctrl)
	svc := invoice.NewService(repo)

	originalID := uuid.New()
	tenantID := uuid.New()
	expires := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)

	repo.EXPECT().
		GetInvoice(gomock.Any(), originalID).
		Return(&invoice.Invoice{ID: originalID, TenantID: tenantID, Gateway: "xendit", Currency: "IDR"}, nil)

	repo.EXPECT().
		CreateInvoice(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, inv *invoice.Invoice) error {
			inv.ID = uuid.New()
			return nil
		})

	inv, err := svc.CreateSupplementary(context.Background(), originalID, 5_100, expires)
	require.NoError(t, err)

	require.NotNil(t, inv.OriginalInvoiceID)
	assert.Equal(t, originalID, *inv.OriginalInvoiceID)
	assert.Equal(t, tenantID, inv.TenantID)
	assert.Equal(t, int64(5_100), inv.TotalAmount)
	assert.Equal(t, invoice.StatusDraft, inv.Status)
}
