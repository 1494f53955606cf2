package invoice

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/payflow/internal/money"
)

var (
	ErrNotFound = errors.New("invoice not found")

	// ErrAlreadyInitiated signals that payment initiation already
	// happened. Callers treat it as a successful no-op, not a failure.
	ErrAlreadyInitiated = errors.New("payment already initiated")

	// ErrInvalidTransition reports a status change the state machine
	// does not allow, including any transition out of a terminal state.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrImmutable reports an attempt to change monetary or line-item
	// fields after payment initiation.
	ErrImmutable = errors.New("invoice is immutable after payment initiation")
)

// Status is the lifecycle state of an invoice.
type Status string

const (
	StatusDraft         Status = "draft"
	StatusPending       Status = "pending"
	StatusPartiallyPaid Status = "partially_paid"
	StatusPaid          Status = "paid"
	StatusFailed        Status = "failed"
	StatusExpired       Status = "expired"
	StatusCancelled     Status = "cancelled"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	switch s {
	case StatusPaid, StatusFailed, StatusExpired, StatusCancelled:
		return true
	}

	return false
}

var transitions = map[Status]map[Status]struct{}{
	StatusDraft: {
		StatusPending:   {},
		StatusExpired:   {},
		StatusCancelled: {},
		StatusFailed:    {},
	},
	StatusPending: {
		StatusPartiallyPaid: {},
		StatusPaid:          {},
		StatusExpired:       {},
		StatusCancelled:     {},
		StatusFailed:        {},
	},
	StatusPartiallyPaid: {
		StatusPartiallyPaid: {},
		StatusPaid:          {},
		StatusExpired:       {},
		StatusFailed:        {},
	},
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to Status) bool {
	next, ok := transitions[from]
	if !ok {
		return false
	}

	_, ok = next[to]

	return ok
}

// InstallmentStatus is the lifecycle state of one installment.
type InstallmentStatus string

const (
	InstallmentUnpaid  InstallmentStatus = "unpaid"
	InstallmentOverdue InstallmentStatus = "overdue"
	InstallmentPaid    InstallmentStatus = "paid"
)

// Invoice is a merchant-issued bill processed through a payment gateway.
// All monetary fields are integer minor units of Currency.
type Invoice struct {
	ID                 uuid.UUID
	TenantID           uuid.UUID
	Gateway            string // gateway id the tenant configured for this invoice
	Currency           money.Currency
	Subtotal           int64
	TaxTotal           int64
	ServiceFee         int64
	TotalAmount        int64
	TotalPaid          int64
	Status             Status
	PaymentInitiatedAt *time.Time
	PaymentReference   *string
	ExpiresAt          time.Time
	OriginalInvoiceID  *uuid.UUID // set on supplementary invoices spawned from an overpayment
	LineItems          []LineItem
	Installments       []Installment
	CreatedAt          time.Time
	UpdatedAt          *time.Time
}

// LineItem is one billed position on an invoice. Immutable once the
// invoice's payment has been initiated.
type LineItem struct {
	ID          uuid.UUID
	InvoiceID   uuid.UUID
	Description string
	Quantity    int64
	UnitPrice   int64
	Subtotal    int64
	TaxRate     string // decimal string, at most 4 decimal places
	TaxAmount   int64
}

// Installment is one slice of an invoice's installment schedule.
type Installment struct {
	ID               uuid.UUID
	InvoiceID        uuid.UUID
	Number           int
	Amount           int64
	TaxAmount        int64
	ServiceFeeAmount int64
	DueDate          time.Time
	Status           InstallmentStatus
}

// Total returns the invoice total as a currency-tagged amount.
func (inv *Invoice) Total() money.Amount {
	return money.New(inv.Currency, inv.TotalAmount)
}

// Initiated reports whether payment initiation has happened, after
// which monetary fields are frozen.
func (inv *Invoice) Initiated() bool {
	return inv.PaymentInitiatedAt != nil
}

// MarkInitiated records the first successful payment initiation and
// moves the invoice from draft to pending. It is set exactly once; a
// second attempt fails with ErrAlreadyInitiated.
func (inv *Invoice) MarkInitiated(ref string, at time.Time) error {
	if inv.Initiated() {
		return ErrAlreadyInitiated
	}

	if !CanTransition(inv.Status, StatusPending) {
		return transitionError(inv.Status, StatusPending)
	}

	inv.Status = StatusPending
	inv.PaymentInitiatedAt = &at
	inv.PaymentReference = &ref

	return nil
}

// ApplyPayment recomputes the invoice status from the sum of completed
// transactions. It returns the overpayment in minor units, which is
// zero unless totalPaid exceeds the invoice total.
func (inv *Invoice) ApplyPayment(totalPaid int64) (int64, error) {
	if totalPaid <= 0 {
		inv.TotalPaid = totalPaid
		return 0, nil
	}

	target := StatusPartiallyPaid
	if totalPaid >= inv.TotalAmount {
		target = StatusPaid
	}

	// A distinct completed transaction landing after the invoice is
	// already paid keeps the status and tops up the recorded total, so
	// the excess surfaces as overpayment instead of an error.
	if inv.Status != target && !CanTransition(inv.Status, target) {
		return 0, transitionError(inv.Status, target)
	}

	inv.Status = target
	inv.TotalPaid = totalPaid

	if over := totalPaid - inv.TotalAmount; over > 0 {
		return over, nil
	}

	return 0, nil
}

// Expire moves an overdue invoice to expired. Only draft, pending and
// partially paid invoices are eligible; a paid invoice never expires.
func (inv *Invoice) Expire(now time.Time) error {
	if now.Before(inv.ExpiresAt) {
		return fmt.Errorf("invoice %s not yet overdue", inv.ID)
	}

	if !CanTransition(inv.Status, StatusExpired) {
		return transitionError(inv.Status, StatusExpired)
	}

	inv.Status = StatusExpired

	return nil
}

// Fail marks the invoice failed after a definitive gateway failure
// signal. Timeouts never drive this transition.
func (inv *Invoice) Fail() error {
	if !CanTransition(inv.Status, StatusFailed) {
		return transitionError(inv.Status, StatusFailed)
	}

	inv.Status = StatusFailed

	return nil
}

// Cancel withdraws an invoice before it is paid.
func (inv *Invoice) Cancel() error {
	if !CanTransition(inv.Status, StatusCancelled) {
		return transitionError(inv.Status, StatusCancelled)
	}

	inv.Status = StatusCancelled

	return nil
}

func transitionError(from, to Status) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
