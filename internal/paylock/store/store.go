package store

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/payflow/internal/paylock"
)

// Store implements paylock.Store on Postgres session advisory locks.
// The lock key is derived from the invoice id, and each held lock pins
// one connection so the lock lives exactly as long as its session.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func lockKey(invoiceID uuid.UUID) int64 {
	h := fnv.New64a()
	h.Write(invoiceID[:])

	return int64(h.Sum64())
}

func (s *Store) TryLock(ctx context.Context, invoiceID uuid.UUID) (paylock.Lock, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("checking out connection: %w", err)
	}

	key := lockKey(invoiceID)

	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&acquired); err != nil {
		conn.Close()
		return nil, fmt.Errorf("trying advisory lock: %w", err)
	}

	if !acquired {
		conn.Close()
		return nil, nil
	}

	return &held{conn: conn, key: key}, nil
}

type held struct {
	conn *sql.Conn
	key  int64
}

// Release unlocks and returns the pinned connection to the pool. Even
// if the unlock statement fails, closing the connection drops the
// session and with it the advisory lock.
func (h *held) Release(ctx context.Context) error {
	defer h.conn.Close()

	if _, err := h.conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", h.key); err != nil {
		return fmt.Errorf("releasing advisory lock: %w", err)
	}

	return nil
}
