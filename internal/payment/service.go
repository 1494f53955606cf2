package payment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/payflow/internal/gateway"
	"github.com/MrJamesThe3rd/payflow/internal/invoice"
	"github.com/MrJamesThe3rd/payflow/internal/paylock"
)

//go:generate mockgen -source=service.go -destination=service_mock.go -package=payment

// Locker serializes payment initiation per invoice across processes.
type Locker interface {
	Acquire(ctx context.Context, invoiceID uuid.UUID) (paylock.Lock, error)
}

// InvoiceStore is the slice of invoice persistence initiation needs.
// SetPaymentInitiated also moves the invoice to pending in the same
// guarded update.
type InvoiceStore interface {
	GetInvoice(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error)
	SetPaymentInitiated(ctx context.Context, id uuid.UUID, ref string, at time.Time) error
}

// Registry resolves a gateway adapter by id.
type Registry interface {
	Get(name string) (gateway.Gateway, error)
}

// Service runs payment initiation under the per-invoice lock, so an
// invoice hits the gateway at most once no matter how many clients
// race the button.
type Service struct {
	locks    Locker
	invoices InvoiceStore
	gateways Registry
	now      func() time.Time
}

func NewService(locks Locker, invoices InvoiceStore, gateways Registry) *Service {
	return &Service{
		locks:    locks,
		invoices: invoices,
		gateways: gateways,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Initiate starts payment collection for an invoice. The invoice is
// re-read and validated after the lock is held; a second caller either
// waits on the lock and then gets ErrAlreadyInitiated, or times out
// with paylock.ErrLockTimeout.
func (s *Service) Initiate(ctx context.Context, tenantID, invoiceID uuid.UUID) (*gateway.PaymentReference, error) {
	lock, err := s.locks.Acquire(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("acquiring payment lock: %w", err)
	}

	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			slog.Error("failed to release payment lock", "invoice_id", invoiceID, "error", err)
		}
	}()

	inv, err := s.invoices.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("loading invoice: %w", err)
	}

	if inv.TenantID != tenantID {
		return nil, invoice.ErrNotFound
	}

	if inv.PaymentInitiatedAt != nil {
		return nil, invoice.ErrAlreadyInitiated
	}

	if inv.Status != invoice.StatusDraft && inv.Status != invoice.StatusPending {
		return nil, fmt.Errorf("%w: cannot initiate payment from %s", invoice.ErrInvalidTransition, inv.Status)
	}

	gw, err := s.gateways.Get(inv.Gateway)
	if err != nil {
		return nil, err
	}

	ref, err := gw.InitiatePayment(ctx, inv)
	if err != nil {
		return nil, fmt.Errorf("initiating payment with %s: %w", inv.Gateway, err)
	}

	if err := s.invoices.SetPaymentInitiated(ctx, invoiceID, ref.Ref, s.now()); err != nil {
		return nil, fmt.Errorf("persisting payment reference: %w", err)
	}

	slog.Info("payment initiated",
		"invoice_id", invoiceID, "gateway", inv.Gateway, "ref", ref.Ref)

	return ref, nil
}
