package paylock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestManager_Acquire_FirstTry(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := NewMockStore(ctrl)
	lock := NewMockLock(ctrl)
	m := NewManager(store)

	id := uuid.New()
	store.EXPECT().TryLock(gomock.Any(), id).Return(lock, nil)

	got, err := m.Acquire(context.Background(), id)
	require.NoError(t, err)
	assert.Same(t, lock, got)
}

func TestManager_Acquire_RetriesThenSucceeds(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := NewMockStore(ctrl)
	lock := NewMockLock(ctrl)
	m := NewManager(store)

	var slept []time.Duration

	m.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	id := uuid.New()

	gomock.InOrder(
		store.EXPECT().TryLock(gomock.Any(), id).Return(nil, nil),
		store.EXPECT().TryLock(gomock.Any(), id).Return(nil, nil),
		store.EXPECT().TryLock(gomock.Any(), id).Return(lock, nil),
	)

	got, err := m.Acquire(context.Background(), id)
	require.NoError(t, err)
	assert.Same(t, lock, got)

	// Backoff doubles from 100ms with up to ±20ms of jitter.
	require.Len(t, slept, 2)
	assert.InDelta(t, 100*time.Millisecond, slept[0], float64(20*time.Millisecond))
	assert.InDelta(t, 200*time.Millisecond, slept[1], float64(20*time.Millisecond))
}

func TestManager_Acquire_Timeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := NewMockStore(ctrl)
	m := NewManager(store)

	var slept []time.Duration

	m.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	id := uuid.New()

	// Initial try plus 3 retries, all contended.
	store.EXPECT().TryLock(gomock.Any(), id).Return(nil, nil).Times(4)

	_, err := m.Acquire(context.Background(), id)
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.Len(t, slept, 3)
}

func TestManager_Acquire_StoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := NewMockStore(ctrl)
	m := NewManager(store)

	id := uuid.New()
	store.EXPECT().TryLock(gomock.Any(), id).Return(nil, errors.New("connection refused"))

	_, err := m.Acquire(context.Background(), id)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrLockTimeout)
}

func TestManager_Acquire_MutualExclusion(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// A fake store with real mutex semantics: exactly one concurrent
	// caller may hold the lock.
	store := NewMockStore(ctrl)
	m := NewManager(store)
	m.sleep = func(context.Context, time.Duration) error { return nil }

	var (
		mu     sync.Mutex
		locked bool
	)

	id := uuid.New()

	store.EXPECT().
		TryLock(gomock.Any(), id).
		DoAndReturn(func(context.Context, uuid.UUID) (Lock, error) {
			mu.Lock()
			defer mu.Unlock()

			if locked {
				return nil, nil
			}

			locked = true

			return fakeLock{}, nil
		}).
		AnyTimes()

	const workers = 8

	var (
		wg      sync.WaitGroup
		results = make([]error, workers)
	)

	for i := range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := m.Acquire(context.Background(), id)
			results[i] = err
		}()
	}

	wg.Wait()

	winners := 0

	for _, err := range results {
		if err == nil {
			winners++
			continue
		}

		assert.ErrorIs(t, err, ErrLockTimeout)
	}

	assert.Equal(t, 1, winners)
}

type fakeLock struct{}

func (fakeLock) Release(context.Context) error { return nil }
