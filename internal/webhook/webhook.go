// Package webhook ingests gateway events: deduplicates them, dispatches
// novel ones to the transaction ledger, and retries transient failures
// on a bounded in-memory schedule.
package webhook

import (
	"context"
	"time"

	"github.com/MrJamesThe3rd/payflow/internal/gateway"
	"github.com/MrJamesThe3rd/payflow/internal/ledger"
)

// Status is the durable processing state of an incoming event.
type Status string

const (
	StatusReceived  Status = "received"
	StatusProcessed Status = "processed"
	// StatusPermanentlyFailed events take no further retries; an
	// external sweep surfaces them for manual review.
	StatusPermanentlyFailed Status = "permanently_failed"
)

// Record is the durable trace of one gateway event.
type Record struct {
	EventID     string
	Gateway     string
	Status      Status
	Attempts    int
	LastError   *string
	ReceivedAt  time.Time
	ProcessedAt *time.Time
}

// AuditEntry is one append-only row per processing attempt.
type AuditEntry struct {
	WebhookID   string
	Attempt     int
	Status      string
	Error       string
	AttemptedAt time.Time
}

//go:generate mockgen -source=webhook.go -destination=pipeline_mock.go -package=webhook
type EventStore interface {
	// SaveEvent inserts the event if absent and returns its current
	// durable status either way.
	SaveEvent(ctx context.Context, ev gateway.Event) (Status, error)
	MarkProcessed(ctx context.Context, eventID string, at time.Time) error
	MarkPermanentlyFailed(ctx context.Context, eventID, reason string, at time.Time) error
	AppendAttempt(ctx context.Context, entry AuditEntry) error
	ListPermanentlyFailed(ctx context.Context) ([]*Record, error)
}

// Cache is the fast-path dedup check in front of the durable store.
// Cache failures are never fatal; the pipeline falls back to the store.
type Cache interface {
	Processed(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID string) error
}

// Recorder is the slice of the transaction ledger the pipeline uses.
type Recorder interface {
	Record(ctx context.Context, params ledger.RecordParams) (*ledger.RecordOutcome, error)
}
