package invoice

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/payflow/internal/money"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=invoice
type Repository interface {
	CreateInvoice(ctx context.Context, inv *Invoice) error
	GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error)
	ListInvoices(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]*Invoice, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	UpdatePaymentState(ctx context.Context, id uuid.UUID, status Status, totalPaid int64) error
	ReplaceLineItems(ctx context.Context, inv *Invoice) error
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
	MarkInstallmentsPaid(ctx context.Context, invoiceID uuid.UUID, upToNumber int) error
	MarkInstallmentsOverdue(ctx context.Context, now time.Time) (int64, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type LineItemParams struct {
	Description string
	Quantity    int64
	UnitPrice   int64
	TaxRate     decimal.Decimal
}

type CreateParams struct {
	TenantID      uuid.UUID
	Gateway       string
	Currency      money.Currency
	LineItems     []LineItemParams
	FeePercentage decimal.Decimal
	FeeFixed      int64
	// DueDates sets the installment schedule; one installment per date.
	// Empty means a single installment due at ExpiresAt.
	DueDates  []time.Time
	ExpiresAt time.Time
}

type ListFilter struct {
	Status *Status
}

// Create builds a draft invoice: line-item tax, service fee, totals and
// the installment schedule all derive from the calculator so the
// exactness invariants hold from the start.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Invoice, error) {
	if _, err := params.Currency.Scale(); err != nil {
		return nil, err
	}

	inv := &Invoice{
		TenantID:  params.TenantID,
		Gateway:   params.Gateway,
		Currency:  params.Currency,
		Status:    StatusDraft,
		ExpiresAt: params.ExpiresAt,
	}

	if err := computeLineItems(inv, params.LineItems, params.FeePercentage, params.FeeFixed); err != nil {
		return nil, err
	}

	dueDates := params.DueDates
	if len(dueDates) == 0 {
		dueDates = []time.Time{params.ExpiresAt}
	}

	if err := buildSchedule(inv, dueDates); err != nil {
		return nil, err
	}

	if err := s.repo.CreateInvoice(ctx, inv); err != nil {
		return nil, fmt.Errorf("creating invoice: %w", err)
	}

	return inv, nil
}

// computeLineItems validates the item inputs and recomputes the
// invoice's line items and totals in place.
func computeLineItems(inv *Invoice, items []LineItemParams, feePercentage decimal.Decimal, feeFixed int64) error {
	if len(items) == 0 {
		return &money.ValidationError{Field: "line_items", Reason: "at least one required"}
	}

	inv.LineItems = nil
	inv.Subtotal, inv.TaxTotal = 0, 0

	for _, li := range items {
		if li.Quantity <= 0 {
			return &money.ValidationError{Field: "quantity", Reason: "must be positive"}
		}

		if li.UnitPrice < 0 {
			return &money.ValidationError{Field: "unit_price", Reason: "must not be negative"}
		}

		subtotal := li.Quantity * li.UnitPrice

		tax, err := money.LineItemTax(money.New(inv.Currency, subtotal), li.TaxRate)
		if err != nil {
			return err
		}

		inv.LineItems = append(inv.LineItems, LineItem{
			InvoiceID:   inv.ID,
			Description: li.Description,
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice,
			Subtotal:    subtotal,
			TaxRate:     li.TaxRate.String(),
			TaxAmount:   tax.Units,
		})

		inv.Subtotal += subtotal
		inv.TaxTotal += tax.Units
	}

	fee, err := money.ServiceFee(
		money.New(inv.Currency, inv.Subtotal),
		feePercentage,
		money.New(inv.Currency, feeFixed),
	)
	if err != nil {
		return err
	}

	inv.ServiceFee = fee.Units
	inv.TotalAmount = inv.Subtotal + inv.TaxTotal + inv.ServiceFee

	return nil
}

// buildSchedule redistributes the invoice totals across the due dates,
// one unpaid installment per date, so the schedule sums to the total
// exactly.
func buildSchedule(inv *Invoice, dueDates []time.Time) error {
	shares, err := money.DistributeInstallments(
		money.New(inv.Currency, inv.TotalAmount),
		money.New(inv.Currency, inv.TaxTotal),
		money.New(inv.Currency, inv.ServiceFee),
		len(dueDates),
	)
	if err != nil {
		return err
	}

	inv.Installments = nil

	for i, share := range shares {
		inv.Installments = append(inv.Installments, Installment{
			InvoiceID:        inv.ID,
			Number:           i + 1,
			Amount:           share.Amount.Units,
			TaxAmount:        share.TaxAmount.Units,
			ServiceFeeAmount: share.ServiceFee.Units,
			DueDate:          dueDates[i],
			Status:           InstallmentUnpaid,
		})
	}

	return nil
}

// Get loads an invoice scoped to its owning tenant. Invoices of other
// tenants are indistinguishable from missing ones.
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error) {
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}

	if inv.TenantID != tenantID {
		return nil, ErrNotFound
	}

	return inv, nil
}

func (s *Service) List(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]*Invoice, error) {
	return s.repo.ListInvoices(ctx, tenantID, filter)
}

// ReplaceLineItems rewrites a draft invoice's line items, recomputes
// its totals and redistributes the installment schedule over the
// existing due dates. Rejected once payment initiation froze the
// invoice.
func (s *Service) ReplaceLineItems(ctx context.Context, tenantID, id uuid.UUID, items []LineItemParams, feePercentage decimal.Decimal, feeFixed int64) (*Invoice, error) {
	inv, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if inv.Initiated() {
		return nil, ErrImmutable
	}

	if err := computeLineItems(inv, items, feePercentage, feeFixed); err != nil {
		return nil, err
	}

	dueDates := make([]time.Time, 0, len(inv.Installments))
	for _, inst := range inv.Installments {
		dueDates = append(dueDates, inst.DueDate)
	}

	if len(dueDates) == 0 {
		dueDates = []time.Time{inv.ExpiresAt}
	}

	if err := buildSchedule(inv, dueDates); err != nil {
		return nil, err
	}

	if err := s.repo.ReplaceLineItems(ctx, inv); err != nil {
		return nil, fmt.Errorf("replacing line items: %w", err)
	}

	return inv, nil
}

// Cancel withdraws an unpaid invoice.
func (s *Service) Cancel(ctx context.Context, tenantID, id uuid.UUID) error {
	inv, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}

	if err := inv.Cancel(); err != nil {
		return err
	}

	return s.repo.UpdateStatus(ctx, id, StatusCancelled)
}

// ApplyPaymentTotal pushes a ledger-recomputed total into the state
// machine and persists the resulting status. The returned overpayment
// is zero unless totalPaid exceeds the invoice total.
func (s *Service) ApplyPaymentTotal(ctx context.Context, invoiceID uuid.UUID, totalPaid int64) (Status, int64, error) {
	inv, err := s.repo.GetInvoice(ctx, invoiceID)
	if err != nil {
		return "", 0, err
	}

	overpaid, err := inv.ApplyPayment(totalPaid)
	if err != nil {
		return "", 0, err
	}

	if err := s.repo.UpdatePaymentState(ctx, invoiceID, inv.Status, totalPaid); err != nil {
		return "", 0, fmt.Errorf("updating payment state: %w", err)
	}

	if covered := coveredInstallments(inv.Installments, totalPaid); covered > 0 {
		if err := s.repo.MarkInstallmentsPaid(ctx, invoiceID, covered); err != nil {
			return "", 0, fmt.Errorf("marking installments paid: %w", err)
		}
	}

	return inv.Status, overpaid, nil
}

// InvoiceCurrency reports the denomination of an invoice, so the
// ledger can reject cross-currency transactions before they land.
func (s *Service) InvoiceCurrency(ctx context.Context, invoiceID uuid.UUID) (money.Currency, error) {
	inv, err := s.repo.GetInvoice(ctx, invoiceID)
	if err != nil {
		return "", err
	}

	return inv.Currency, nil
}

// MarkFailed records a definitive gateway failure for the invoice.
func (s *Service) MarkFailed(ctx context.Context, invoiceID uuid.UUID) error {
	inv, err := s.repo.GetInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}

	if err := inv.Fail(); err != nil {
		return err
	}

	return s.repo.UpdateStatus(ctx, invoiceID, StatusFailed)
}

// CreateSupplementary spawns a follow-up invoice capturing an
// overpayment that exceeded the original's total.
func (s *Service) CreateSupplementary(ctx context.Context, originalID uuid.UUID, overpayment int64, expiresAt time.Time) (*Invoice, error) {
	if overpayment <= 0 {
		return nil, &money.ValidationError{Field: "overpayment", Reason: "must be positive"}
	}

	original, err := s.repo.GetInvoice(ctx, originalID)
	if err != nil {
		return nil, err
	}

	inv := &Invoice{
		TenantID:          original.TenantID,
		Gateway:           original.Gateway,
		Currency:          original.Currency,
		Subtotal:          overpayment,
		TotalAmount:       overpayment,
		Status:            StatusDraft,
		ExpiresAt:         expiresAt,
		OriginalInvoiceID: &original.ID,
		LineItems: []LineItem{{
			Description: fmt.Sprintf("Overpayment on invoice %s", original.ID),
			Quantity:    1,
			UnitPrice:   overpayment,
			Subtotal:    overpayment,
			TaxRate:     "0",
		}},
		Installments: []Installment{{
			Number:  1,
			Amount:  overpayment,
			DueDate: expiresAt,
			Status:  InstallmentUnpaid,
		}},
	}

	if err := s.repo.CreateInvoice(ctx, inv); err != nil {
		return nil, fmt.Errorf("creating supplementary invoice: %w", err)
	}

	return inv, nil
}

// ExpireOverdue expires every draft, pending or partially paid invoice
// whose expires_at has passed. Called by the external scheduler.
func (s *Service) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	return s.repo.ExpireOverdue(ctx, now)
}

// MarkInstallmentsOverdue flags unpaid installments past their due
// date. Called by the external scheduler.
func (s *Service) MarkInstallmentsOverdue(ctx context.Context, now time.Time) (int64, error) {
	return s.repo.MarkInstallmentsOverdue(ctx, now)
}

// coveredInstallments returns the highest installment number fully
// covered by the cumulative paid total.
func coveredInstallments(installments []Installment, totalPaid int64) int {
	var cumulative int64

	covered := 0

	for _, inst := range installments {
		cumulative += inst.Amount
		if totalPaid < cumulative {
			break
		}

		covered = inst.Number
	}

	return covered
}
