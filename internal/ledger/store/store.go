package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/payflow/internal/ledger"
	"github.com/MrJamesThe3rd/payflow/internal/money"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const selectTransactionColumns = `
	t.id, t.invoice_id, t.installment_number, t.gateway, t.gateway_transaction_ref,
	t.currency, t.amount_paid, t.overpayment_amount, t.status,
	t.refund_id, t.refund_amount, t.refund_reason, t.refund_timestamp,
	t.created_at, t.updated_at
`

func scanTransaction(s scanner) (*ledger.Transaction, error) {
	var tx ledger.Transaction

	var statusStr, currencyStr string

	var reason sql.NullString

	if err := s.Scan(
		&tx.ID, &tx.InvoiceID, &tx.InstallmentNumber, &tx.Gateway, &tx.GatewayTransactionRef,
		&currencyStr, &tx.AmountPaid, &tx.OverpaymentAmount, &statusStr,
		&tx.RefundID, &tx.RefundAmount, &reason, &tx.RefundTimestamp,
		&tx.CreatedAt, &tx.UpdatedAt,
	); err != nil {
		return nil, err
	}

	tx.Status = ledger.TransactionStatus(statusStr)
	tx.Currency = money.Currency(currencyStr)

	if reason.Valid {
		tx.RefundReason = &reason.String
	}

	return &tx, nil
}

// InsertTransaction inserts atomically and idempotently: the unique
// index on gateway_transaction_ref plus ON CONFLICT DO NOTHING make a
// duplicate ref a read, not a write, even across racing processes.
func (s *Store) InsertTransaction(ctx context.Context, tx *ledger.Transaction) (*ledger.Transaction, bool, error) {
	query := `
		INSERT INTO payment_transactions
			(invoice_id, installment_number, gateway, gateway_transaction_ref, currency, amount_paid, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (gateway_transaction_ref) DO NOTHING
		RETURNING id, created_at, updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		tx.InvoiceID, tx.InstallmentNumber, tx.Gateway, tx.GatewayTransactionRef,
		string(tx.Currency), tx.AmountPaid, tx.Status,
	).Scan(&tx.ID, &tx.CreatedAt, &tx.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		existing, err := s.getByRef(ctx, tx.GatewayTransactionRef)
		if err != nil {
			return nil, false, err
		}

		return existing, false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("inserting transaction: %w", err)
	}

	return tx, true, nil
}

func (s *Store) getByRef(ctx context.Context, ref string) (*ledger.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM payment_transactions t
		WHERE t.gateway_transaction_ref = $1`

	tx, err := scanTransaction(s.db.QueryRowContext(ctx, query, ref))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}

		return nil, fmt.Errorf("getting transaction by ref: %w", err)
	}

	return tx, nil
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM payment_transactions t
		WHERE t.id = $1`

	tx, err := scanTransaction(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}

		return nil, fmt.Errorf("getting transaction: %w", err)
	}

	return tx, nil
}

func (s *Store) ListTransactions(ctx context.Context, invoiceID uuid.UUID) ([]*ledger.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM payment_transactions t
		WHERE t.invoice_id = $1
		ORDER BY t.created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var txs []*ledger.Transaction

	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transactions: %w", err)
	}

	return txs, nil
}

func (s *Store) SumCompleted(ctx context.Context, invoiceID uuid.UUID) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount_paid), 0)
		FROM payment_transactions
		WHERE invoice_id = $1 AND status = $2
	`

	var total int64
	if err := s.db.QueryRowContext(ctx, query, invoiceID, ledger.StatusCompleted).Scan(&total); err != nil {
		return 0, fmt.Errorf("summing completed transactions: %w", err)
	}

	return total, nil
}

func (s *Store) SetOverpayment(ctx context.Context, id uuid.UUID, amount int64) error {
	query := `
		UPDATE payment_transactions
		SET overpayment_amount = $1, updated_at = NOW()
		WHERE id = $2
	`

	if _, err := s.db.ExecContext(ctx, query, amount, id); err != nil {
		return fmt.Errorf("setting overpayment: %w", err)
	}

	return nil
}

// SetRefund flips a completed transaction to refunded. The status
// guard keeps a double refund from rewriting refund fields.
func (s *Store) SetRefund(ctx context.Context, id, refundID uuid.UUID, amount int64, reason string, at time.Time) error {
	query := `
		UPDATE payment_transactions
		SET status = $1, refund_id = $2, refund_amount = $3, refund_reason = $4, refund_timestamp = $5, updated_at = NOW()
		WHERE id = $6 AND status = $7
	`

	res, err := s.db.ExecContext(ctx, query,
		ledger.StatusRefunded, refundID, amount, reason, at, id, ledger.StatusCompleted)
	if err != nil {
		return fmt.Errorf("setting refund: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}

	if affected == 0 {
		return ledger.ErrNotRefundable
	}

	return nil
}
