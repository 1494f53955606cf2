package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrJamesThe3rd/payflow/internal/gateway"
	"github.com/MrJamesThe3rd/payflow/internal/invoice"
	"github.com/MrJamesThe3rd/payflow/internal/ledger"
	"github.com/MrJamesThe3rd/payflow/internal/money"
)

// retryBackoff are the gaps between attempts: cumulative delays of
// 1, 6 and 36 minutes after the first failure. After the third failed
// retry the event is marked permanently failed.
var retryBackoff = []time.Duration{
	1 * time.Minute,
	5 * time.Minute,
	30 * time.Minute,
}

// Pipeline is the webhook ingestion state machine: dedup, dispatch to
// the ledger, classify the outcome, retry transient failures.
type Pipeline struct {
	store  EventStore
	cache  Cache
	ledger Recorder
	sched  *Scheduler
}

func NewPipeline(store EventStore, cache Cache, recorder Recorder, sched *Scheduler) *Pipeline {
	return &Pipeline{store: store, cache: cache, ledger: recorder, sched: sched}
}

// Start brings up the retry scheduler.
func (p *Pipeline) Start() { p.sched.Start() }

// Stop cancels pending retries and waits for in-flight processing.
func (p *Pipeline) Stop() { p.sched.Stop() }

// Ingest runs one gateway event through the pipeline. A duplicate
// event id is acknowledged without side effects. The returned error is
// nil whenever the event was accepted, including when its processing
// failed and a retry was scheduled.
func (p *Pipeline) Ingest(ctx context.Context, ev gateway.Event) error {
	dup, err := p.alreadyProcessed(ctx, ev.EventID)
	if err != nil {
		return err
	}

	if dup {
		slog.Info("discarding duplicate webhook", "event_id", ev.EventID, "gateway", ev.Gateway)
		return nil
	}

	status, err := p.store.SaveEvent(ctx, ev)
	if err != nil {
		return fmt.Errorf("saving webhook event: %w", err)
	}

	if status != StatusReceived {
		// A racing delivery already took the event past received.
		slog.Info("discarding duplicate webhook", "event_id", ev.EventID, "status", status)
		return nil
	}

	p.process(ctx, ev, 1)

	return nil
}

// alreadyProcessed consults the cache fast path, then the durable
// store. Cache trouble degrades to the store check.
func (p *Pipeline) alreadyProcessed(ctx context.Context, eventID string) (bool, error) {
	if p.cache != nil {
		seen, err := p.cache.Processed(ctx, eventID)
		if err != nil {
			slog.Warn("webhook dedup cache unavailable", "event_id", eventID, "error", err)
		} else if seen {
			return true, nil
		}
	}

	return false, nil
}

// process is one attempt; attempt counts from 1.
func (p *Pipeline) process(ctx context.Context, ev gateway.Event, attempt int) {
	if attempt > 1 {
		// Retry cancellation point: a duplicate delivery may have
		// completed while this retry waited.
		if dup, _ := p.alreadyProcessed(ctx, ev.EventID); dup {
			slog.Info("cancelling retry, event already processed", "event_id", ev.EventID)
			return
		}
	}

	_, err := p.ledger.Record(ctx, recordParams(ev))
	if err == nil {
		p.succeed(ctx, ev, attempt)
		return
	}

	p.audit(ctx, ev.EventID, attempt, "failed", err.Error())

	if permanent(err) {
		slog.Error("webhook permanently failed", "event_id", ev.EventID, "attempt", attempt, "error", err)
		p.failForever(ctx, ev.EventID, err.Error())

		return
	}

	retry := attempt // first retry after the first failed attempt
	if retry > len(retryBackoff) {
		slog.Error("webhook retries exhausted", "event_id", ev.EventID, "attempts", attempt, "error", err)
		p.failForever(ctx, ev.EventID, err.Error())

		return
	}

	delay := retryBackoff[retry-1]

	slog.Warn("webhook processing failed, retry scheduled",
		"event_id", ev.EventID, "attempt", attempt, "delay", delay, "error", err)

	p.sched.Schedule(delay, func(ctx context.Context) {
		p.process(ctx, ev, attempt+1)
	})
}

func (p *Pipeline) succeed(ctx context.Context, ev gateway.Event, attempt int) {
	now := time.Now().UTC()

	p.audit(ctx, ev.EventID, attempt, "succeeded", "")

	if err := p.store.MarkProcessed(ctx, ev.EventID, now); err != nil {
		slog.Error("failed to mark webhook processed", "event_id", ev.EventID, "error", err)
		return
	}

	if p.cache != nil {
		if err := p.cache.MarkProcessed(ctx, ev.EventID); err != nil {
			slog.Warn("failed to cache processed webhook", "event_id", ev.EventID, "error", err)
		}
	}

	slog.Info("webhook processed", "event_id", ev.EventID, "gateway", ev.Gateway, "attempt", attempt)
}

func (p *Pipeline) failForever(ctx context.Context, eventID, reason string) {
	if err := p.store.MarkPermanentlyFailed(ctx, eventID, reason, time.Now().UTC()); err != nil {
		slog.Error("failed to mark webhook permanently failed", "event_id", eventID, "error", err)
	}
}

func (p *Pipeline) audit(ctx context.Context, eventID string, attempt int, status, errMsg string) {
	entry := AuditEntry{
		WebhookID:   eventID,
		Attempt:     attempt,
		Status:      status,
		Error:       errMsg,
		AttemptedAt: time.Now().UTC(),
	}

	if err := p.store.AppendAttempt(ctx, entry); err != nil {
		slog.Error("failed to append webhook audit entry", "event_id", eventID, "error", err)
	}
}

// ManualReview lists events that exhausted their retries or failed
// permanently, for the external sweep job.
func (p *Pipeline) ManualReview(ctx context.Context) ([]*Record, error) {
	return p.store.ListPermanentlyFailed(ctx)
}

// permanent reports whether the failure should never be retried:
// validation problems, impossible state transitions and definitive
// gateway rejections. Everything else is treated as transient.
func permanent(err error) bool {
	var verr *money.ValidationError
	if errors.As(err, &verr) {
		return true
	}

	if errors.Is(err, invoice.ErrInvalidTransition) || errors.Is(err, invoice.ErrNotFound) {
		return true
	}

	if errors.Is(err, money.ErrCurrencyMismatch) {
		return true
	}

	return !gateway.IsTransient(err)
}

func recordParams(ev gateway.Event) ledger.RecordParams {
	return ledger.RecordParams{
		InvoiceID:             ev.Payload.InvoiceID,
		InstallmentNumber:     ev.Payload.InstallmentNumber,
		Gateway:               ev.Gateway,
		GatewayTransactionRef: ev.Payload.GatewayTransactionRef,
		Currency:              ev.Payload.Currency,
		AmountPaid:            ev.Payload.AmountPaid,
		Status:                transactionStatus(ev.Payload.Status),
	}
}

func transactionStatus(s gateway.EventStatus) ledger.TransactionStatus {
	switch s {
	case gateway.EventCompleted:
		return ledger.StatusCompleted
	case gateway.EventFailed:
		return ledger.StatusFailed
	default:
		return ledger.StatusPending
	}
}
