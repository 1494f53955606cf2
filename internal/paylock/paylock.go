// Package paylock serializes payment initiation per invoice across all
// server instances. The lock is database-backed, so a crashed holder is
// released with its session rather than wedging the invoice.
package paylock

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

// ErrLockTimeout is returned when the invoice lock stays contended
// through all retry attempts. Callers surface it as a conflict.
var ErrLockTimeout = errors.New("payment lock timeout")

// Lock is a held per-invoice lock. Release must be called
// unconditionally, success or error.
type Lock interface {
	Release(ctx context.Context) error
}

//go:generate mockgen -source=paylock.go -destination=store_mock.go -package=paylock
type Store interface {
	// TryLock attempts a non-blocking exclusive acquisition for the
	// invoice. It returns (nil, nil) when the lock is held elsewhere.
	TryLock(ctx context.Context, invoiceID uuid.UUID) (Lock, error)
}

const (
	maxRetries  = 3
	backoffBase = 100 * time.Millisecond
	jitterRange = 20 * time.Millisecond
)

// Manager acquires per-invoice payment locks with bounded retries:
// 3 retries on contention, exponential backoff from 100ms, ±20ms jitter.
type Manager struct {
	store Store
	sleep func(ctx context.Context, d time.Duration) error
}

func NewManager(store Store) *Manager {
	return &Manager{store: store, sleep: sleepCtx}
}

// Acquire returns the held lock or ErrLockTimeout after the final
// contended attempt.
func (m *Manager) Acquire(ctx context.Context, invoiceID uuid.UUID) (Lock, error) {
	for attempt := 0; ; attempt++ {
		lock, err := m.store.TryLock(ctx, invoiceID)
		if err != nil {
			return nil, fmt.Errorf("acquiring payment lock: %w", err)
		}

		if lock != nil {
			return lock, nil
		}

		if attempt == maxRetries {
			return nil, ErrLockTimeout
		}

		if err := m.sleep(ctx, backoff(attempt)); err != nil {
			return nil, err
		}
	}
}

func backoff(attempt int) time.Duration {
	d := backoffBase << attempt
	jitter := time.Duration(rand.Int64N(int64(2*jitterRange))) - jitterRange

	return d + jitter
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
