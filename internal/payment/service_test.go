package payment

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/payflow/internal/gateway"
	"github.com/MrJamesThe3rd/payflow/internal/invoice"
	"github.com/MrJamesThe3rd/payflow/internal/paylock"
)

func pendingInvoice(tenantID uuid.UUID) *invoice.Invoice {
	return &invoice.Invoice{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Status:      invoice.StatusPending,
		Gateway:     "xendit",
		Currency:    "IDR",
		TotalAmount: 114_900,
	}
}

func TestService_Initiate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	locks := NewMockLocker(ctrl)
	invoices := NewMockInvoiceStore(ctrl)
	registry := NewMockRegistry(ctrl)
	gw := gateway.NewMockGateway(ctrl)
	lock := paylock.NewMockLock(ctrl)

	svc := NewService(locks, invoices, registry)

	tenantID := uuid.New()
	inv := pendingInvoice(tenantID)
	inv.Status = invoice.StatusDraft

	ref := &gateway.PaymentReference{
		Ref:        "pay-1",
		PaymentURL: "https://checkout.example/pay-1",
		ExpiresAt:  time.Now().Add(24 * time.Hour),
	}

	gomock.InOrder(
		locks.EXPECT().Acquire(gomock.Any(), inv.ID).Return(lock, nil),
		invoices.EXPECT().GetInvoice(gomock.Any(), inv.ID).Return(inv, nil),
		registry.EXPECT().Get("xendit").Return(gw, nil),
		gw.EXPECT().InitiatePayment(gomock.Any(), inv).Return(ref, nil),
		invoices.EXPECT().SetPaymentInitiated(gomock.Any(), inv.ID, "pay-1", gomock.Any()).Return(nil),
		lock.EXPECT().Release(gomock.Any()).Return(nil),
	)

	got, err := svc.Initiate(context.Background(), tenantID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, ref, got)
}

func TestService_Initiate_AlreadyInitiated(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	locks := NewMockLocker(ctrl)
	invoices := NewMockInvoiceStore(ctrl)
	registry := NewMockRegistry(ctrl)
	lock := paylock.NewMockLock(ctrl)

	svc := NewService(locks, invoices, registry)

	tenantID := uuid.New()
	inv := pendingInvoice(tenantID)
	initiated := time.Now().Add(-time.Minute)
	inv.PaymentInitiatedAt = &initiated

	locks.EXPECT().Acquire(gomock.Any(), inv.ID).Return(lock, nil)
	invoices.EXPECT().GetInvoice(gomock.Any(), inv.ID).Return(inv, nil)
	lock.EXPECT().Release(gomock.Any()).Return(nil)

	_, err := svc.Initiate(context.Background(), tenantID, inv.ID)
	assert.ErrorIs(t, err, invoice.ErrAlreadyInitiated)
}

func TestService_Initiate_LockTimeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	locks := NewMockLocker(ctrl)
	svc := NewService(locks, NewMockInvoiceStore(ctrl), NewMockRegistry(ctrl))

	invoiceID := uuid.New()
	locks.EXPECT().Acquire(gomock.Any(), invoiceID).Return(nil, paylock.ErrLockTimeout)

	_, err := svc.Initiate(context.Background(), uuid.New(), invoiceID)
	assert.ErrorIs(t, err, paylock.ErrLockTimeout)
}

func TestService_Initiate_ReleasesLockOnGatewayError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	locks := NewMockLocker(ctrl)
	invoices := NewMockInvoiceStore(ctrl)
	registry := NewMockRegistry(ctrl)
	gw := gateway.NewMockGateway(ctrl)
	lock := paylock.NewMockLock(ctrl)

	svc := NewService(locks, invoices, registry)

	tenantID := uuid.New()
	inv := pendingInvoice(tenantID)
	gwErr := &gateway.Error{Gateway: "xendit", StatusCode: 503, Err: errors.New("unavailable")}

	locks.EXPECT().Acquire(gomock.Any(), inv.ID).Return(lock, nil)
	invoices.EXPECT().GetInvoice(gomock.Any(), inv.ID).Return(inv, nil)
	registry.EXPECT().Get("xendit").Return(gw, nil)
	gw.EXPECT().InitiatePayment(gomock.Any(), inv).Return(nil, gwErr)
	lock.EXPECT().Release(gomock.Any()).Return(nil)

	_, err := svc.Initiate(context.Background(), tenantID, inv.ID)
	assert.ErrorIs(t, err, gwErr)
}

func TestService_Initiate_TenantMismatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	locks := NewMockLocker(ctrl)
	invoices := NewMockInvoiceStore(ctrl)
	lock := paylock.NewMockLock(ctrl)

	svc := NewService(locks, invoices, NewMockRegistry(ctrl))

	inv := pendingInvoice(uuid.New())

	locks.EXPECT().Acquire(gomock.Any(), inv.ID).Return(lock, nil)
	invoices.EXPECT().GetInvoice(gomock.Any(), inv.ID).Return(inv, nil)
	lock.EXPECT().Release(gomock.Any()).Return(nil)

	_, err := svc.Initiate(context.Background(), uuid.New(), inv.ID)
	assert.ErrorIs(t, err, invoice.ErrNotFound)
}

func TestService_Initiate_TerminalStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	locks := NewMockLocker(ctrl)
	invoices := NewMockInvoiceStore(ctrl)
	lock := paylock.NewMockLock(ctrl)

	svc := NewService(locks, invoices, NewMockRegistry(ctrl))

	tenantID := uuid.New()
	inv := pendingInvoice(tenantID)
	inv.Status = invoice.StatusCancelled

	locks.EXPECT().Acquire(gomock.Any(), inv.ID).Return(lock, nil)
	invoices.EXPECT().GetInvoice(gomock.Any(), inv.ID).Return(inv, nil)
	lock.EXPECT().Release(gomock.Any()).Return(nil)

	_, err := svc.Initiate(context.Background(), tenantID, inv.ID)
	assert.ErrorIs(t, err, invoice.ErrInvalidTransition)
}

// memLocker and memInvoices back the concurrency test with real
// blocking behavior instead of gomock expectations.

type memLocker struct {
	mu sync.Mutex
}

type memLock struct {
	mu *sync.Mutex
}

func (l *memLocker) Acquire(_ context.Context, _ uuid.UUID) (paylock.Lock, error) {
	l.mu.Lock()
	return &memLock{mu: &l.mu}, nil
}

func (l *memLock) Release(context.Context) error {
	l.mu.Unlock()
	return nil
}

type memInvoices struct {
	mu  sync.Mutex
	inv *invoice.Invoice
}

func (m *memInvoices) GetInvoice(_ context.Context, _ uuid.UUID) (*invoice.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *m.inv
	return &cp, nil
}

func (m *memInvoices) SetPaymentInitiated(_ context.Context, _ uuid.UUID, ref string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.inv.PaymentInitiatedAt != nil {
		return invoice.ErrAlreadyInitiated
	}

	m.inv.PaymentInitiatedAt = &at
	m.inv.PaymentReference = &ref
	m.inv.Status = invoice.StatusPending

	return nil
}

type countingGateway struct {
	mu    sync.Mutex
	calls int
}

func (g *countingGateway) Name() string { return "xendit" }

func (g *countingGateway) InitiatePayment(context.Context, *invoice.Invoice) (*gateway.PaymentReference, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()

	return &gateway.PaymentReference{Ref: "pay-1"}, nil
}

func (g *countingGateway) ParseWebhook(http.Header, []byte) (*gateway.Event, error) {
	return nil, errors.New("not implemented")
}

func TestService_Initiate_ConcurrentCallersHitGatewayOnce(t *testing.T) {
	tenantID := uuid.New()
	inv := pendingInvoice(tenantID)

	gw := &countingGateway{}
	svc := NewService(&memLocker{}, &memInvoices{inv: inv}, gateway.NewRegistry(gw))

	const callers = 8

	errs := make(chan error, callers)

	var wg sync.WaitGroup
	for range callers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := svc.Initiate(context.Background(), tenantID, inv.ID)
			errs <- err
		}()
	}

	wg.Wait()
	close(errs)

	var won, lost int

	for err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, invoice.ErrAlreadyInitiated):
			lost++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, won)
	assert.Equal(t, callers-1, lost)
	assert.Equal(t, 1, gw.calls)
}
