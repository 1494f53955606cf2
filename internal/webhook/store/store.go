package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/MrJamesThe3rd/payflow/internal/gateway"
	"github.com/MrJamesThe3rd/payflow/internal/webhook"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// SaveEvent inserts the event if its id is novel. The upsert returns
// the row's status either way, so a racing duplicate observes whatever
// state the first delivery reached.
func (s *Store) SaveEvent(ctx context.Context, ev gateway.Event) (webhook.Status, error) {
	query := `
		INSERT INTO webhook_events (event_id, gateway, status, received_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (event_id) DO UPDATE SET event_id = EXCLUDED.event_id
		RETURNING status
	`

	var statusStr string

	err := s.db.QueryRowContext(ctx, query,
		ev.EventID, ev.Gateway, webhook.StatusReceived, ev.ReceivedAt,
	).Scan(&statusStr)
	if err != nil {
		return "", fmt.Errorf("saving webhook event: %w", err)
	}

	return webhook.Status(statusStr), nil
}

func (s *Store) MarkProcessed(ctx context.Context, eventID string, at time.Time) error {
	query := `
		UPDATE webhook_events
		SET status = $1, processed_at = $2
		WHERE event_id = $3
	`

	if _, err := s.db.ExecContext(ctx, query, webhook.StatusProcessed, at, eventID); err != nil {
		return fmt.Errorf("marking webhook processed: %w", err)
	}

	return nil
}

func (s *Store) MarkPermanentlyFailed(ctx context.Context, eventID, reason string, at time.Time) error {
	query := `
		UPDATE webhook_events
		SET status = $1, last_error = $2, processed_at = $3
		WHERE event_id = $4 AND status != $5
	`

	_, err := s.db.ExecContext(ctx, query,
		webhook.StatusPermanentlyFailed, reason, at, eventID, webhook.StatusProcessed)
	if err != nil {
		return fmt.Errorf("marking webhook permanently failed: %w", err)
	}

	return nil
}

// AppendAttempt writes one append-only audit row per processing
// attempt and bumps the event's attempt counter.
func (s *Store) AppendAttempt(ctx context.Context, entry webhook.AuditEntry) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	auditQuery := `
		INSERT INTO webhook_attempts (webhook_id, attempt_number, status, error_message, attempted_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	if _, err := dbTx.ExecContext(ctx, auditQuery,
		entry.WebhookID, entry.Attempt, entry.Status, entry.Error, entry.AttemptedAt); err != nil {
		return fmt.Errorf("appending webhook attempt: %w", err)
	}

	countQuery := `
		UPDATE webhook_events
		SET attempts = GREATEST(attempts, $1), last_error = NULLIF($2, '')
		WHERE event_id = $3
	`

	if _, err := dbTx.ExecContext(ctx, countQuery, entry.Attempt, entry.Error, entry.WebhookID); err != nil {
		return fmt.Errorf("updating attempt count: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing webhook attempt: %w", err)
	}

	return nil
}

func (s *Store) ListPermanentlyFailed(ctx context.Context) ([]*webhook.Record, error) {
	query := `
		SELECT event_id, gateway, status, attempts, last_error, received_at, processed_at
		FROM webhook_events
		WHERE status = $1
		ORDER BY received_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, webhook.StatusPermanentlyFailed)
	if err != nil {
		return nil, fmt.Errorf("listing failed webhooks: %w", err)
	}
	defer rows.Close()

	var records []*webhook.Record

	for rows.Next() {
		var rec webhook.Record

		var statusStr string

		var lastError sql.NullString

		if err := rows.Scan(&rec.EventID, &rec.Gateway, &statusStr, &rec.Attempts,
			&lastError, &rec.ReceivedAt, &rec.ProcessedAt); err != nil {
			return nil, fmt.Errorf("scanning webhook record: %w", err)
		}

		rec.Status = webhook.Status(statusStr)

		if lastError.Valid {
			rec.LastError = &lastError.String
		}

		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating webhook records: %w", err)
	}

	return records, nil
}
