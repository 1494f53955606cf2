package ledger

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/payflow/internal/money"
)

var (
	ErrNotFound = errors.New("transaction not found")

	// ErrNotRefundable reports a refund against a transaction that is
	// not in completed status.
	ErrNotRefundable = errors.New("transaction is not refundable")
)

// TransactionStatus is the settlement state of one payment transaction.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
	StatusRefunded  TransactionStatus = "refunded"
)

// Transaction is one settlement attempt recorded against an invoice.
// GatewayTransactionRef is globally unique and acts as the idempotency
// key: a ref already on record is never re-applied. Transactions are
// never deleted; a refund is a status change plus refund fields.
type Transaction struct {
	ID                    uuid.UUID
	InvoiceID             uuid.UUID
	InstallmentNumber     *int
	Gateway               string
	GatewayTransactionRef string
	Currency              money.Currency
	AmountPaid            int64
	OverpaymentAmount     *int64
	Status                TransactionStatus

	RefundID        *uuid.UUID
	RefundAmount    *int64
	RefundReason    *string
	RefundTimestamp *time.Time

	CreatedAt time.Time
	UpdatedAt *time.Time
}
