package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/payflow/internal/invoice"
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

const selectInvoiceColumns = `
	i.id, i.tenant_id, i.gateway, i.currency, i.subtotal, i.tax_total, i.service_fee,
	i.total_amount, i.total_paid, i.status, i.payment_initiated_at, i.payment_reference,
	i.expires_at, i.original_invoice_id, i.created_at, i.updated_at
`

func scanInvoice(s scanner) (*invoice.Invoice, error) {
	var inv invoice.Invoice

	var statusStr, currencyStr string

	var paymentRef sql.NullString

	if err := s.Scan(
		&inv.ID, &inv.TenantID, &inv.Gateway, &currencyStr, &inv.Subtotal, &inv.TaxTotal,
		&inv.ServiceFee, &inv.TotalAmount, &inv.TotalPaid, &statusStr,
		&inv.PaymentInitiatedAt, &paymentRef, &inv.ExpiresAt, &inv.OriginalInvoiceID,
		&inv.CreatedAt, &inv.UpdatedAt,
	); err != nil {
		return nil, err
	}

	inv.Status = invoice.Status(statusStr)
	inv.Currency = money.Currency(currencyStr)

	if paymentRef.Valid {
		inv.PaymentReference = &paymentRef.String
	}

	return &inv, nil
}

func (s *Store) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	query := `
		INSERT INTO invoices (tenant_id, gateway, currency, subtotal, tax_total, service_fee,
			total_amount, total_paid, status, expires_at, original_invoice_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9, $10, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err = dbTx.QueryRowContext(ctx, query,
		inv.TenantID, inv.Gateway, string(inv.Currency), inv.Subtotal, inv.TaxTotal,
		inv.ServiceFee, inv.TotalAmount, inv.Status, inv.ExpiresAt, inv.OriginalInvoiceID,
	).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating invoice: %w", err)
	}

	if err := insertLineItems(ctx, dbTx, inv); err != nil {
		return err
	}

	if err := insertInstallments(ctx, dbTx, inv); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing invoice: %w", err)
	}

	return nil
}

func insertLineItems(ctx context.Context, dbTx *sql.Tx, inv *invoice.Invoice) error {
	query := `
		INSERT INTO line_items (invoice_id, description, quantity, unit_price, subtotal, tax_rate, tax_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	for i := range inv.LineItems {
		li := &inv.LineItems[i]
		li.InvoiceID = inv.ID

		err := dbTx.QueryRowContext(ctx, query,
			inv.ID, li.Description, li.Quantity, li.UnitPrice, li.Subtotal, li.TaxRate, li.TaxAmount,
		).Scan(&li.ID)
		if err != nil {
			return fmt.Errorf("creating line item: %w", err)
		}
	}

	return nil
}

func insertInstallments(ctx context.Context, dbTx *sql.Tx, inv *invoice.Invoice) error {
	query := `
		INSERT INTO installments (invoice_id, number, amount, tax_amount, service_fee_amount, due_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	for i := range inv.Installments {
		inst := &inv.Installments[i]
		inst.InvoiceID = inv.ID

		err := dbTx.QueryRowContext(ctx, query,
			inv.ID, inst.Number, inst.Amount, inst.TaxAmount, inst.ServiceFeeAmount, inst.DueDate, inst.Status,
		).Scan(&inst.ID)
		if err != nil {
			return fmt.Errorf("creating installment: %w", err)
		}
	}

	return nil
}

func (s *Store) GetInvoice(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	query := `SELECT ` + selectInvoiceColumns + ` FROM invoices i WHERE i.id = $1`

	inv, err := scanInvoice(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, invoice.ErrNotFound
		}

		return nil, fmt.Errorf("getting invoice: %w", err)
	}

	if err := s.loadChildren(ctx, inv); err != nil {
		return nil, err
	}

	return inv, nil
}

func (s *Store) loadChildren(ctx context.Context, inv *invoice.Invoice) error {
	itemQuery := `
		SELECT id, invoice_id, description, quantity, unit_price, subtotal, tax_rate, tax_amount
		FROM line_items WHERE invoice_id = $1 ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, itemQuery, inv.ID)
	if err != nil {
		return fmt.Errorf("listing line items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var li invoice.LineItem
		if err := rows.Scan(&li.ID, &li.InvoiceID, &li.Description, &li.Quantity,
			&li.UnitPrice, &li.Subtotal, &li.TaxRate, &li.TaxAmount); err != nil {
			return fmt.Errorf("scanning line item: %w", err)
		}

		inv.LineItems = append(inv.LineItems, li)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating line items: %w", err)
	}

	instQuery := `
		SELECT id, invoice_id, number, amount, tax_amount, service_fee_amount, due_date, status
		FROM installments WHERE invoice_id = $1 ORDER BY number
	`

	instRows, err := s.db.QueryContext(ctx, instQuery, inv.ID)
	if err != nil {
		return fmt.Errorf("listing installments: %w", err)
	}
	defer instRows.Close()

	for instRows.Next() {
		var inst invoice.Installment

		var statusStr string

		if err := instRows.Scan(&inst.ID, &inst.InvoiceID, &inst.Number, &inst.Amount,
			&inst.TaxAmount, &inst.ServiceFeeAmount, &inst.DueDate, &statusStr); err != nil {
			return fmt.Errorf("scanning installment: %w", err)
		}

		inst.Status = invoice.InstallmentStatus(statusStr)
		inv.Installments = append(inv.Installments, inst)
	}

	if err := instRows.Err(); err != nil {
		return fmt.Errorf("iterating installments: %w", err)
	}

	return nil
}

func (s *Store) ListInvoices(ctx context.Context, tenantID uuid.UUID, filter invoice.ListFilter) ([]*invoice.Invoice, error) {
	query := `SELECT ` + selectInvoiceColumns + ` FROM invoices i WHERE i.tenant_id = $1`

	args := []any{tenantID}

	if filter.Status != nil {
		query += " AND i.status = $2"

		args = append(args, *filter.Status)
	}

	query += " ORDER BY i.created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*invoice.Invoice

	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning invoice: %w", err)
		}

		invoices = append(invoices, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating invoices: %w", err)
	}

	return invoices, nil
}

func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, status invoice.Status) error {
	query := `
		UPDATE invoices
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`

	if _, err := s.db.ExecContext(ctx, query, status, id); err != nil {
		return fmt.Errorf("updating status: %w", err)
	}

	return nil
}

func (s *Store) UpdatePaymentState(ctx context.Context, id uuid.UUID, status invoice.Status, totalPaid int64) error {
	query := `
		UPDATE invoices
		SET status = $1, total_paid = $2, updated_at = NOW()
		WHERE id = $3
	`

	if _, err := s.db.ExecContext(ctx, query, status, totalPaid, id); err != nil {
		return fmt.Errorf("updating payment state: %w", err)
	}

	return nil
}

// SetPaymentInitiated freezes the invoice: status moves to pending and
// payment_initiated_at is written exactly once. The WHERE guard makes a
// concurrent double-initiation a no-op reported to the caller.
func (s *Store) SetPaymentInitiated(ctx context.Context, id uuid.UUID, ref string, at time.Time) error {
	query := `
		UPDATE invoices
		SET status = $1, payment_initiated_at = $2, payment_reference = $3, updated_at = NOW()
		WHERE id = $4 AND payment_initiated_at IS NULL
	`

	res, err := s.db.ExecContext(ctx, query, invoice.StatusPending, at, ref, id)
	if err != nil {
		return fmt.Errorf("setting payment initiated: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}

	if affected == 0 {
		return invoice.ErrAlreadyInitiated
	}

	return nil
}

// ReplaceLineItems rewrites a draft invoice's line items, totals and
// installment schedule in one transaction, keeping the schedule sum
// equal to the new total. The payment_initiated_at guard enforces
// immutability even against a racing initiation.
func (s *Store) ReplaceLineItems(ctx context.Context, inv *invoice.Invoice) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	query := `
		UPDATE invoices
		SET subtotal = $1, tax_total = $2, service_fee = $3, total_amount = $4, updated_at = NOW()
		WHERE id = $5 AND payment_initiated_at IS NULL
	`

	res, err := dbTx.ExecContext(ctx, query,
		inv.Subtotal, inv.TaxTotal, inv.ServiceFee, inv.TotalAmount, inv.ID)
	if err != nil {
		return fmt.Errorf("updating invoice totals: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}

	if affected == 0 {
		return invoice.ErrImmutable
	}

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM line_items WHERE invoice_id = $1`, inv.ID); err != nil {
		return fmt.Errorf("deleting line items: %w", err)
	}

	if err := insertLineItems(ctx, dbTx, inv); err != nil {
		return err
	}

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM installments WHERE invoice_id = $1`, inv.ID); err != nil {
		return fmt.Errorf("deleting installments: %w", err)
	}

	if err := insertInstallments(ctx, dbTx, inv); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing line items: %w", err)
	}

	return nil
}

func (s *Store) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE invoices
		SET status = $1, updated_at = NOW()
		WHERE status IN ($2, $3, $4) AND expires_at <= $5
	`

	res, err := s.db.ExecContext(ctx, query,
		invoice.StatusExpired, invoice.StatusDraft, invoice.StatusPending, invoice.StatusPartiallyPaid, now)
	if err != nil {
		return 0, fmt.Errorf("expiring invoices: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading rows affected: %w", err)
	}

	return affected, nil
}

func (s *Store) MarkInstallmentsPaid(ctx context.Context, invoiceID uuid.UUID, upToNumber int) error {
	query := `
		UPDATE installments
		SET status = $1
		WHERE invoice_id = $2 AND number <= $3 AND status != $1
	`

	if _, err := s.db.ExecContext(ctx, query, invoice.InstallmentPaid, invoiceID, upToNumber); err != nil {
		return fmt.Errorf("marking installments paid: %w", err)
	}

	return nil
}

func (s *Store) MarkInstallmentsOverdue(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE installments
		SET status = $1
		WHERE status = $2 AND due_date <= $3
	`

	res, err := s.db.ExecContext(ctx, query, invoice.InstallmentOverdue, invoice.InstallmentUnpaid, now)
	if err != nil {
		return 0, fmt.Errorf("marking installments overdue: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading rows affected: %w", err)
	}

	return affected, nil
}
