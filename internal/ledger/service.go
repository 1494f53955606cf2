package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/payflow/internal/invoice"
	"github.com/MrJamesThe3rd/payflow/internal/money"
)

//go:generate mockgen -source=service.go -destination=service_mock.go -package=ledger
type Repository interface {
	// InsertTransaction inserts idempotently on gateway_transaction_ref.
	// When the ref is already on record it returns the existing row and
	// inserted=false, leaving all state untouched.
	InsertTransaction(ctx context.Context, tx *Transaction) (existing *Transaction, inserted bool, err error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
	ListTransactions(ctx context.Context, invoiceID uuid.UUID) ([]*Transaction, error)
	SumCompleted(ctx context.Context, invoiceID uuid.UUID) (int64, error)
	SetOverpayment(ctx context.Context, id uuid.UUID, amount int64) error
	SetRefund(ctx context.Context, id uuid.UUID, refundID uuid.UUID, amount int64, reason string, at time.Time) error
}

// InvoiceUpdater pushes a recomputed paid total into the invoice state
// machine. Implemented by the invoice service.
type InvoiceUpdater interface {
	ApplyPaymentTotal(ctx context.Context, invoiceID uuid.UUID, totalPaid int64) (invoice.Status, int64, error)
	MarkFailed(ctx context.Context, invoiceID uuid.UUID) error
	InvoiceCurrency(ctx context.Context, invoiceID uuid.UUID) (money.Currency, error)
}

// RefundPolicy decides what happens to the parent invoice after a
// refund. Whether a refund reverses a paid invoice is a business rule,
// so the ledger delegates instead of assuming an answer.
type RefundPolicy interface {
	AfterRefund(ctx context.Context, tx *Transaction) error
}

// KeepStatusPolicy leaves the invoice untouched after a refund.
type KeepStatusPolicy struct{}

func (KeepStatusPolicy) AfterRefund(context.Context, *Transaction) error { return nil }

type Service struct {
	repo     Repository
	invoices InvoiceUpdater
	policy   RefundPolicy
}

func NewService(repo Repository, invoices InvoiceUpdater, policy RefundPolicy) *Service {
	if policy == nil {
		policy = KeepStatusPolicy{}
	}

	return &Service{repo: repo, invoices: invoices, policy: policy}
}

type RecordParams struct {
	InvoiceID             uuid.UUID
	InstallmentNumber     *int
	Gateway               string
	GatewayTransactionRef string
	Currency              money.Currency
	AmountPaid            int64
	Status                TransactionStatus
}

// RecordOutcome reports what recording a transaction did.
// AlreadyRecorded is an idempotence signal, not a failure: callers
// treat it as a successful no-op.
type RecordOutcome struct {
	Transaction     *Transaction
	AlreadyRecorded bool
	InvoiceStatus   invoice.Status
	Overpayment     int64
}

// Record applies one settlement attempt exactly once. A duplicate
// gateway_transaction_ref changes nothing; a novel completed
// transaction recomputes the invoice's paid total from the sum of all
// completed transactions, so out-of-order delivery converges to the
// same state. A failed transaction marks the invoice failed.
func (s *Service) Record(ctx context.Context, params RecordParams) (*RecordOutcome, error) {
	if params.GatewayTransactionRef == "" {
		return nil, &money.ValidationError{Field: "gateway_transaction_ref", Reason: "must not be empty"}
	}

	if params.AmountPaid < 0 {
		return nil, &money.ValidationError{Field: "amount_paid", Reason: "must not be negative"}
	}

	currency, err := s.invoices.InvoiceCurrency(ctx, params.InvoiceID)
	if err != nil {
		return nil, fmt.Errorf("loading invoice currency: %w", err)
	}

	// Per-currency isolation: a transaction in another denomination
	// must never flow into the invoice's paid total unit-for-unit.
	if params.Currency != currency {
		return nil, fmt.Errorf("%w: invoice in %s, transaction in %s", money.ErrCurrencyMismatch, currency, params.Currency)
	}

	tx := &Transaction{
		InvoiceID:             params.InvoiceID,
		InstallmentNumber:     params.InstallmentNumber,
		Gateway:               params.Gateway,
		GatewayTransactionRef: params.GatewayTransactionRef,
		Currency:              params.Currency,
		AmountPaid:            params.AmountPaid,
		Status:                params.Status,
	}

	existing, inserted, err := s.repo.InsertTransaction(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("inserting transaction: %w", err)
	}

	if !inserted {
		return &RecordOutcome{Transaction: existing, AlreadyRecorded: true}, nil
	}

	outcome := &RecordOutcome{Transaction: tx}

	switch params.Status {
	case StatusCompleted:
		totalPaid, err := s.repo.SumCompleted(ctx, params.InvoiceID)
		if err != nil {
			return nil, fmt.Errorf("summing completed transactions: %w", err)
		}

		status, overpaid, err := s.invoices.ApplyPaymentTotal(ctx, params.InvoiceID, totalPaid)
		if err != nil {
			return nil, fmt.Errorf("applying payment total: %w", err)
		}

		outcome.InvoiceStatus = status
		outcome.Overpayment = overpaid

		// Excess over the invoice total is pinned to the transaction
		// that produced it, never silently dropped.
		if overpaid > 0 {
			if err := s.repo.SetOverpayment(ctx, tx.ID, overpaid); err != nil {
				return nil, fmt.Errorf("recording overpayment: %w", err)
			}

			tx.OverpaymentAmount = &overpaid
		}
	case StatusFailed:
		if err := s.invoices.MarkFailed(ctx, params.InvoiceID); err != nil {
			return nil, fmt.Errorf("marking invoice failed: %w", err)
		}

		outcome.InvoiceStatus = invoice.StatusFailed
	}

	return outcome, nil
}

// RefundOutcome reports a recorded refund.
type RefundOutcome struct {
	Transaction *Transaction
	RefundID    uuid.UUID
}

// RecordRefund marks a completed transaction refunded. The invoice's
// own status is only touched through the configured refund policy.
func (s *Service) RecordRefund(ctx context.Context, transactionID uuid.UUID, refundAmount int64, reason string) (*RefundOutcome, error) {
	tx, err := s.repo.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	if tx.Status != StatusCompleted {
		return nil, fmt.Errorf("%w: status %s", ErrNotRefundable, tx.Status)
	}

	if refundAmount <= 0 || refundAmount > tx.AmountPaid {
		return nil, &money.ValidationError{Field: "refund_amount", Reason: "must be positive and at most the amount paid"}
	}

	refundID := uuid.New()
	now := time.Now().UTC()

	if err := s.repo.SetRefund(ctx, tx.ID, refundID, refundAmount, reason, now); err != nil {
		return nil, fmt.Errorf("recording refund: %w", err)
	}

	tx.Status = StatusRefunded
	tx.RefundID = &refundID
	tx.RefundAmount = &refundAmount
	tx.RefundReason = &reason
	tx.RefundTimestamp = &now

	if err := s.policy.AfterRefund(ctx, tx); err != nil {
		return nil, fmt.Errorf("applying refund policy: %w", err)
	}

	return &RefundOutcome{Transaction: tx, RefundID: refundID}, nil
}

// List returns all transactions recorded against an invoice.
func (s *Service) List(ctx context.Context, invoiceID uuid.UUID) ([]*Transaction, error) {
	return s.repo.ListTransactions(ctx, invoiceID)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}
