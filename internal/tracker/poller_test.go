package tracker

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sashankstar/Food-order-tracking/internal/domain"
)

type recorder struct {
	mu        sync.Mutex
	snapshots []*domain.Order
	errs      []error
}

func (r *recorder) Render(snapshot *domain.Order, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, snapshot)
	r.errs = append(r.errs, err)
}

func newPoller(t *testing.T, h http.HandlerFunc) *Poller {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewPoller(srv.URL, slog.New(slog.DiscardHandler),
		WithInterval(5*time.Millisecond),
		WithHTTPClient(srv.Client()),
	)
}

func TestPoller_Fetch(t *testing.T) {
	t.Run("decodes order", func(t *testing.T) {
		p := newPoller(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/orders/abc", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"abc","status":"Preparing","total":14.98}`))
		})

		order, err := p.Fetch(context.Background(), "abc")
		require.NoError(t, err)
		assert.Equal(t, "abc", order.ID)
		assert.Equal(t, domain.OrderStatusPreparing, order.Status)
		assert.True(t, order.Total.Equal(decimal.RequireFromString("14.98")))
	})

	t.Run("maps 404 to not found", func(t *testing.T) {
		p := newPoller(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		_, err := p.Fetch(context.Background(), "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("maps 400 to invalid id", func(t *testing.T) {
		p := newPoller(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		})

		_, err := p.Fetch(context.Background(), "bad")
		assert.ErrorIs(t, err, domain.ErrInvalidID)
	})
	t.Run("nil client keeps the default", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"id":"abc","status":"Delivered","total":1}`))
		}))
		defer srv.Close()

		p := NewPoller(srv.URL, slog.New(slog.DiscardHandler), WithHTTPClient(nil))

		order, err := p.Fetch(context.Background(), "abc")
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusDelivered, order.Status)
	})
}

func TestPoller_Watch(t *testing.T) {
	t.Run("stops once delivered", func(t *testing.T) {
		statuses := domain.Statuses()
		var calls atomic.Int32
		p := newPoller(t, func(w http.ResponseWriter, r *http.Request) {
			i := int(calls.Add(1)) - 1
			if i >= len(statuses) {
				i = len(statuses) - 1
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"abc","status":"` + string(statuses[i]) + `"}`))
		})

		rec := &recorder{}
		err := p.Watch(context.Background(), "abc", rec, true)
		require.NoError(t, err)

		require.Len(t, rec.snapshots, len(statuses))
		for i, snapshot := range rec.snapshots {
			assert.Equal(t, statuses[i], snapshot.Status)
		}
	})

	t.Run("failed poll keeps previous snapshot", func(t *testing.T) {
		var calls atomic.Int32
		p := newPoller(t, func(w http.ResponseWriter, r *http.Request) {
			switch calls.Add(1) {
			case 1:
				_, _ = w.Write([]byte(`{"id":"abc","status":"Order Received"}`))
			case 2:
				w.WriteHeader(http.StatusInternalServerError)
			default:
				_, _ = w.Write([]byte(`{"id":"abc","status":"Delivered"}`))
			}
		})

		rec := &recorder{}
		require.NoError(t, p.Watch(context.Background(), "abc", rec, true))

		require.Len(t, rec.snapshots, 3)
		assert.NoError(t, rec.errs[0])
		assert.Error(t, rec.errs[1])
		assert.Equal(t, domain.OrderStatusReceived, rec.snapshots[1].Status)
		assert.Equal(t, domain.OrderStatusDelivered, rec.snapshots[2].Status)
	})

	t.Run("reports not found and keeps polling until cancelled", func(t *testing.T) {
		p := newPoller(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()

		rec := &recorder{}
		err := p.Watch(ctx, "missing", rec, true)
		assert.True(t, errors.Is(err, context.DeadlineExceeded))

		rec.mu.Lock()
		defer rec.mu.Unlock()
		require.NotEmpty(t, rec.errs)
		assert.ErrorIs(t, rec.errs[0], domain.ErrNotFound)
		assert.Nil(t, rec.snapshots[0])
	})
}

func TestTimeline_Render(t *testing.T) {
	created := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("marks completed and current steps", func(t *testing.T) {
		var buf bytes.Buffer
		tl := NewTimeline(&buf)
		tl.now = func() time.Time { return created.Add(4 * time.Second) }

		tl.Render(&domain.Order{
			ID:        "abc",
			Status:    domain.OrderStatusPreparing,
			Total:     decimal.RequireFromString("14.98"),
			CreatedAt: created,
		}, nil)

		out := buf.String()
		assert.Contains(t, out, "Order abc  total 14.98  placed 4s ago")
		assert.Contains(t, out, "[x] Order Received")
		assert.Contains(t, out, "[>] Preparing")
		assert.Contains(t, out, "[ ] Out for Delivery")
		assert.Contains(t, out, "[ ] Delivered")
	})

	t.Run("not found", func(t *testing.T) {
		var buf bytes.Buffer
		NewTimeline(&buf).Render(nil, domain.ErrNotFound)
		assert.Equal(t, "Order not found\n", buf.String())
	})
}
