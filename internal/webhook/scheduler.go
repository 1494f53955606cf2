package webhook

import (
	"context"
	"sync"
	"time"
)

// Clock abstracts time for the retry scheduler so tests can drive it
// deterministically.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now().UTC() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// NewRealClock returns a Clock backed by the system clock.
func NewRealClock() Clock { return realClock{} }

// Scheduler runs delayed retry callbacks. Its timers are process-local
// and not persisted: a restart loses pending retries, which the
// external sweep of permanently failed webhooks compensates for.
type Scheduler struct {
	clock Clock

	mu      sync.Mutex
	done    chan struct{}
	started bool
	wg      sync.WaitGroup
}

func NewScheduler(clock Clock) *Scheduler {
	if clock == nil {
		clock = realClock{}
	}

	return &Scheduler{clock: clock}
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}

	s.done = make(chan struct{})
	s.started = true
}

// Stop cancels all pending retries and waits for in-flight callbacks.
func (s *Scheduler) Stop() {
	s.mu.Lock()

	if !s.started {
		s.mu.Unlock()
		return
	}

	close(s.done)
	s.started = false
	s.mu.Unlock()

	s.wg.Wait()
}

// Schedule runs fn after d, unless the scheduler stops first.
func (s *Scheduler) Schedule(d time.Duration, fn func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	done := s.done

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		select {
		case <-s.clock.After(d):
			fn(context.Background())
		case <-done:
		}
	}()
}
