package lifecycle

import (
	"context"
	"sync"
	"time"
)

type handle struct {
	timer *time.Timer
}

// Scheduler runs deferred actions grouped by key (an order id). Pending
// actions of a key can be cancelled together; Shutdown stops everything
// that has not fired yet and waits for running actions.
type Scheduler struct {
	mu      sync.Mutex
	pending map[string][]*handle
	closed  bool
	wg      sync.WaitGroup
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		pending: make(map[string][]*handle),
	}
}

// Schedule registers action to run once after delay. It returns false when
// the scheduler has been shut down.
func (s *Scheduler) Schedule(key string, delay time.Duration, action func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	h := &handle{}
	s.wg.Add(1)
	// The callback takes s.mu in release, so it cannot observe h before it
	// is appended below.
	h.timer = time.AfterFunc(delay, func() {
		defer s.wg.Done()
		if !s.release(key, h) {
			return
		}
		action()
	})
	s.pending[key] = append(s.pending[key], h)

	return true
}

func (s *Scheduler) release(key string, h *handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	handles := s.pending[key]
	for i, candidate := range handles {
		if candidate != h {
			continue
		}
		handles = append(handles[:i], handles[i+1:]...)
		if len(handles) == 0 {
			delete(s.pending, key)
		} else {
			s.pending[key] = handles
		}
		return true
	}

	return false
}

// Cancel drops every action still pending for key and returns how many were
// dropped. Actions already running are not interrupted.
func (s *Scheduler) Cancel(key string) int {
	s.mu.Lock()
	handles := s.pending[key]
	delete(s.pending, key)
	s.mu.Unlock()

	return s.stop(handles)
}

// Pending returns the number of actions waiting to fire for key.
func (s *Scheduler) Pending(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending[key])
}

// Len returns the number of actions waiting to fire across all keys.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, handles := range s.pending {
		n += len(handles)
	}
	return n
}

// Shutdown refuses new work, stops timers that have not fired and waits for
// in-flight actions until ctx is done.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	var handles []*handle
	for key, hs := range s.pending {
		handles = append(handles, hs...)
		delete(s.pending, key)
	}
	s.mu.Unlock()

	s.stop(handles)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) stop(handles []*handle) int {
	stopped := 0
	for _, h := range handles {
		// A timer that already fired finds itself missing in release and
		// calls Done on its own.
		if h.timer.Stop() {
			s.wg.Done()
			stopped++
		}
	}
	return stopped
}
