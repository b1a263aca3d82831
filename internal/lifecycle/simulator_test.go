package lifecycle

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sashankstar/Food-order-tracking/internal/domain"
)

const unit = 20 * time.Millisecond

type memoryStore struct {
	mu      sync.Mutex
	orders  map[string]*domain.Order
	history map[string][]domain.OrderStatus
	err     error
}

func newMemoryStore(orders ...*domain.Order) *memoryStore {
	m := &memoryStore{
		orders:  make(map[string]*domain.Order),
		history: make(map[string][]domain.OrderStatus),
	}
	for _, o := range orders {
		m.orders[o.ID] = o
	}
	return m
}

func (m *memoryStore) AdvanceStatus(_ context.Context, id string, status domain.OrderStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return false, m.err
	}

	o, ok := m.orders[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if !o.Status.CanAdvance(status) {
		return false, nil
	}

	o.Status = status
	m.history[id] = append(m.history[id], status)
	return true, nil
}

func (m *memoryStore) ListUnfinished(_ context.Context) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Order
	for _, o := range m.orders {
		if !o.Status.Terminal() {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memoryStore) status(id string) domain.OrderStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[id].Status
}

func (m *memoryStore) set(id string, status domain.OrderStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[id].Status = status
}

func (m *memoryStore) transitions(id string) []domain.OrderStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.OrderStatus(nil), m.history[id]...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.OrderStatusChangedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event.(domain.OrderStatusChangedEvent))
	return nil
}

func (p *recordingPublisher) snapshot() []domain.OrderStatusChangedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.OrderStatusChangedEvent(nil), p.events...)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func received(id string, createdAt time.Time) *domain.Order {
	return &domain.Order{ID: id, Status: domain.OrderStatusReceived, CreatedAt: createdAt}
}

var fullLifecycle = []domain.OrderStatus{
	domain.OrderStatusPreparing,
	domain.OrderStatusOutForDelivery,
	domain.OrderStatusDelivered,
}

func newSimulator(t *testing.T, store StatusStore, opts ...Option) (*Simulator, *Scheduler) {
	t.Helper()

	scheduler := NewScheduler()
	t.Cleanup(func() { _ = scheduler.Shutdown(context.Background()) })

	sim, err := NewSimulator(store, scheduler, slog.New(slog.DiscardHandler),
		append([]Option{WithTimeUnit(unit)}, opts...)...)
	require.NoError(t, err)
	return sim, scheduler
}

func TestSimulator_Start(t *testing.T) {
	t.Run("walks the order through every state in order", func(t *testing.T) {
		store := newMemoryStore(received("o1", time.Now()))
		sim, scheduler := newSimulator(t, store)

		assert.Equal(t, 3, sim.Start(context.Background(), "o1"))
		assert.Equal(t, 3, scheduler.Pending("o1"))
		assert.Equal(t, domain.OrderStatusReceived, store.status("o1"))

		require.Eventually(t, func() bool {
			return store.status("o1") == domain.OrderStatusDelivered
		}, 30*unit, unit/4)

		assert.Equal(t, fullLifecycle, store.transitions("o1"))
		assert.Zero(t, scheduler.Pending("o1"))
	})

	t.Run("state follows elapsed time", func(t *testing.T) {
		store := newMemoryStore(received("o1", time.Now()))
		sim, _ := newSimulator(t, store, WithTimeUnit(50*time.Millisecond))

		sim.Start(context.Background(), "o1")

		time.Sleep(100 * time.Millisecond)
		assert.Equal(t, domain.OrderStatusReceived, store.status("o1"))

		require.Eventually(t, func() bool {
			return store.status("o1") == domain.OrderStatusPreparing
		}, 200*time.Millisecond, 5*time.Millisecond)
	})

	t.Run("never moves an order backwards", func(t *testing.T) {
		store := newMemoryStore(received("o1", time.Now()))
		sim, scheduler := newSimulator(t, store)

		sim.Start(context.Background(), "o1")
		store.set("o1", domain.OrderStatusDelivered)

		require.Eventually(t, func() bool { return scheduler.Pending("o1") == 0 }, 30*unit, unit/4)
		time.Sleep(unit)

		assert.Equal(t, domain.OrderStatusDelivered, store.status("o1"))
		assert.Empty(t, store.transitions("o1"))
	})

	t.Run("failures are logged, not surfaced", func(t *testing.T) {
		store := newMemoryStore(received("o1", time.Now()))
		store.err = errors.New("connection refused")

		var logs syncBuffer
		scheduler := NewScheduler()
		t.Cleanup(func() { _ = scheduler.Shutdown(context.Background()) })
		sim, err := NewSimulator(store, scheduler, slog.New(slog.NewJSONHandler(&logs, nil)), WithTimeUnit(unit))
		require.NoError(t, err)

		assert.Equal(t, 3, sim.Start(context.Background(), "o1"))

		require.Eventually(t, func() bool { return scheduler.Pending("o1") == 0 }, 30*unit, unit/4)
		require.NoError(t, scheduler.Shutdown(context.Background()))

		assert.Contains(t, logs.String(), "order status transition failed")
		assert.Contains(t, logs.String(), "connection refused")
		assert.Equal(t, domain.OrderStatusReceived, store.status("o1"))
	})

	t.Run("vanished order is reported", func(t *testing.T) {
		store := newMemoryStore()

		var logs syncBuffer
		scheduler := NewScheduler()
		sim, err := NewSimulator(store, scheduler, slog.New(slog.NewJSONHandler(&logs, nil)), WithTimeUnit(unit))
		require.NoError(t, err)

		sim.Start(context.Background(), "ghost")
		require.Eventually(t, func() bool { return scheduler.Pending("ghost") == 0 }, 30*unit, unit/4)
		require.NoError(t, scheduler.Shutdown(context.Background()))

		assert.Contains(t, logs.String(), "order vanished")
	})

	t.Run("publishes a status change per advance", func(t *testing.T) {
		store := newMemoryStore(received("o1", time.Now()))
		pub := &recordingPublisher{}
		sim, _ := newSimulator(t, store, WithPublisher(pub))

		sim.Start(context.Background(), "o1")

		require.Eventually(t, func() bool { return len(pub.snapshot()) == 3 }, 30*unit, unit/4)

		events := pub.snapshot()
		for i, status := range fullLifecycle {
			assert.Equal(t, "o1", events[i].OrderID)
			assert.Equal(t, status, events[i].Status)
			assert.False(t, events[i].Timestamp.IsZero())
		}
	})
}

func TestSimulator_Cancel(t *testing.T) {
	store := newMemoryStore(received("o1", time.Now()))
	sim, scheduler := newSimulator(t, store)

	sim.Start(context.Background(), "o1")
	assert.Equal(t, 3, sim.Cancel("o1"))
	assert.Zero(t, scheduler.Pending("o1"))

	time.Sleep(12 * unit)
	assert.Equal(t, domain.OrderStatusReceived, store.status("o1"))
}

func TestSimulator_Resume(t *testing.T) {
	t.Run("overdue steps apply one state at a time", func(t *testing.T) {
		now := time.Now()
		store := newMemoryStore(received("late", now.Add(-100*unit)))
		sim, _ := newSimulator(t, store)

		n, err := sim.Resume(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		require.Eventually(t, func() bool {
			return store.status("late") == domain.OrderStatusDelivered
		}, 10*unit, unit/4)
		assert.Equal(t, fullLifecycle, store.transitions("late"))
	})

	t.Run("only remaining steps are scheduled", func(t *testing.T) {
		now := time.Now()
		midway := received("mid", now.Add(-4*unit))
		midway.Status = domain.OrderStatusPreparing
		store := newMemoryStore(midway)
		sim, scheduler := newSimulator(t, store, WithClock(func() time.Time { return now }))

		n, err := sim.Resume(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, 2, scheduler.Pending("mid"))

		require.Eventually(t, func() bool {
			return store.status("mid") == domain.OrderStatusDelivered
		}, 30*unit, unit/4)
		assert.Equal(t, fullLifecycle[1:], store.transitions("mid"))
	})

	t.Run("delivered orders are left alone", func(t *testing.T) {
		done := received("done", time.Now().Add(-100*unit))
		done.Status = domain.OrderStatusDelivered
		store := newMemoryStore(done)
		sim, _ := newSimulator(t, store)

		n, err := sim.Resume(context.Background())
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}
