// Package gateway defines the capability set every payment-gateway
// adapter implements and the registry that selects an adapter by the
// invoice's configured gateway id.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/payflow/internal/invoice"
	"github.com/MrJamesThe3rd/payflow/internal/money"
)

var ErrUnknownGateway = errors.New("unknown gateway")

// PaymentReference is what a gateway hands back when a payment is
// initiated: the ref later echoed in webhook events, plus a checkout
// URL for the payer.
type PaymentReference struct {
	Ref        string
	PaymentURL string
	ExpiresAt  time.Time
}

// EventStatus is the canonical settlement status carried by an event.
type EventStatus string

const (
	EventCompleted EventStatus = "completed"
	EventFailed    EventStatus = "failed"
	EventPending   EventStatus = "pending"
)

// Event is the canonical webhook shape every adapter translates its
// native payload into before ingestion.
type Event struct {
	EventID    string
	Gateway    string
	Payload    EventPayload
	ReceivedAt time.Time
}

// EventPayload carries the settlement facts of one gateway event.
type EventPayload struct {
	GatewayTransactionRef string
	InvoiceID             uuid.UUID
	InstallmentNumber     *int
	AmountPaid            int64
	Currency              money.Currency
	Status                EventStatus
}

//go:generate mockgen -source=gateway.go -destination=gateway_mock.go -package=gateway

// Gateway is the capability set of one payment-gateway adapter.
type Gateway interface {
	Name() string
	InitiatePayment(ctx context.Context, inv *invoice.Invoice) (*PaymentReference, error)
	ParseWebhook(header http.Header, body []byte) (*Event, error)
}

// Registry holds one adapter per gateway id.
type Registry struct {
	gateways map[string]Gateway
}

func NewRegistry(gateways ...Gateway) *Registry {
	r := &Registry{gateways: make(map[string]Gateway, len(gateways))}
	for _, g := range gateways {
		r.gateways[g.Name()] = g
	}

	return r
}

func (r *Registry) Get(name string) (Gateway, error) {
	g, ok := r.gateways[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGateway, name)
	}

	return g, nil
}

// Error is a failure reported by a gateway. Network errors and 5xx
// responses are transient and drive retry scheduling; 4xx responses
// are permanent and never retried.
type Error struct {
	Gateway    string
	StatusCode int // zero for network-level failures
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Gateway, e.StatusCode, e.Err)
	}

	return fmt.Sprintf("%s: %v", e.Gateway, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Transient reports whether the failure is worth retrying.
func (e *Error) Transient() bool {
	return e.StatusCode == 0 || e.StatusCode >= 500
}

// IsTransient reports whether err is a retryable gateway failure.
// Anything that is not a gateway error is treated as transient
// infrastructure trouble (database down, timeout).
func IsTransient(err error) bool {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Transient()
	}

	return true
}
