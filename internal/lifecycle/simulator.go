package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sashankstar/Food-order-tracking/internal/domain"
)

var tracer = otel.Tracer("lifecycle/simulator")

const defaultWriteTimeout = 5 * time.Second

// StatusStore is the part of the order store the simulator writes to.
type StatusStore interface {
	AdvanceStatus(ctx context.Context, id string, status domain.OrderStatus) (bool, error)
	ListUnfinished(ctx context.Context) ([]domain.Order, error)
}

type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// Simulator advances freshly created orders through the lifecycle on a fixed
// schedule. Every step is a conditional advance, so steps that fire late or
// twice never move an order backwards.
type Simulator struct {
	store        StatusStore
	scheduler    *Scheduler
	publisher    Publisher
	logger       *slog.Logger
	unit         time.Duration
	writeTimeout time.Duration
	now          func() time.Time

	advanced metric.Int64Counter
	skipped  metric.Int64Counter
	failed   metric.Int64Counter
}

type Option func(*Simulator)

// WithTimeUnit sets the length of one schedule unit.
func WithTimeUnit(unit time.Duration) Option {
	return func(s *Simulator) {
		if unit > 0 {
			s.unit = unit
		}
	}
}

// WithWriteTimeout bounds each deferred store write.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Simulator) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// WithPublisher emits an order.status_changed event after each advance.
func WithPublisher(p Publisher) Option {
	return func(s *Simulator) {
		s.publisher = p
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Simulator) {
		s.now = now
	}
}

func NewSimulator(store StatusStore, scheduler *Scheduler, logger *slog.Logger, opts ...Option) (*Simulator, error) {
	s := &Simulator{
		store:        store,
		scheduler:    scheduler,
		logger:       logger,
		unit:         domain.DefaultTimeUnit,
		writeTimeout: defaultWriteTimeout,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	meter := otel.Meter("lifecycle/simulator")

	var err error
	s.advanced, err = meter.Int64Counter("order_status_transitions",
		metric.WithDescription("Order status transitions applied by the lifecycle simulator"))
	if err != nil {
		return nil, fmt.Errorf("create transitions counter: %w", err)
	}

	s.skipped, err = meter.Int64Counter("order_status_transitions_skipped",
		metric.WithDescription("Transitions that found the order already at or past the target status"))
	if err != nil {
		return nil, fmt.Errorf("create skipped counter: %w", err)
	}

	s.failed, err = meter.Int64Counter("order_status_transition_failures",
		metric.WithDescription("Background status transitions that failed and were dropped"))
	if err != nil {
		return nil, fmt.Errorf("create failures counter: %w", err)
	}

	_, err = meter.Int64ObservableGauge("order_status_transitions_pending",
		metric.WithDescription("Status transitions waiting to fire"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(scheduler.Len()))
			return nil
		}))
	if err != nil {
		return nil, fmt.Errorf("create pending gauge: %w", err)
	}

	return s, nil
}

// TimeUnit returns the configured schedule unit.
func (s *Simulator) TimeUnit() time.Duration {
	return s.unit
}

// Start schedules the three deferred transitions of a newly created order.
// It never blocks on the store.
func (s *Simulator) Start(ctx context.Context, orderID string) int {
	return s.schedule(ctx, orderID, s.now(), domain.OrderStatusReceived)
}

// Cancel drops the transitions still pending for orderID.
func (s *Simulator) Cancel(orderID string) int {
	n := s.scheduler.Cancel(orderID)
	if n > 0 {
		s.logger.Info("order status transitions cancelled", "order_id", orderID, "count", n)
	}
	return n
}

// Resume re-schedules the remaining transitions of every unfinished order,
// measured from each order's creation time. Overdue steps fire immediately;
// conditional advances keep them in lifecycle order.
func (s *Simulator) Resume(ctx context.Context) (int, error) {
	orders, err := s.store.ListUnfinished(ctx)
	if err != nil {
		return 0, fmt.Errorf("list unfinished orders: %w", err)
	}

	scheduled := 0
	for _, order := range orders {
		scheduled += s.schedule(ctx, order.ID, order.CreatedAt, order.Status)
	}

	s.logger.Info("order lifecycle resumed", "orders", len(orders), "transitions", scheduled)
	return scheduled, nil
}

func (s *Simulator) schedule(ctx context.Context, orderID string, createdAt time.Time, current domain.OrderStatus) int {
	link := trace.LinkFromContext(ctx)
	now := s.now()

	scheduled := 0
	// Overdue steps run as one action so they still apply one state at a time.
	var overdue []domain.OrderStatus
	for _, step := range domain.Transitions() {
		if !current.CanAdvance(step.Status) {
			continue
		}

		delay := createdAt.Add(step.Delay(s.unit)).Sub(now)
		if delay <= 0 {
			overdue = append(overdue, step.Status)
			continue
		}

		status := step.Status
		if !s.scheduler.Schedule(orderID, delay, func() { s.advance(link, orderID, status) }) {
			s.logger.Warn("scheduler closed, transition dropped", "order_id", orderID, "status", status)
			continue
		}
		scheduled++
	}

	if len(overdue) > 0 {
		ok := s.scheduler.Schedule(orderID, 0, func() {
			for _, status := range overdue {
				s.advance(link, orderID, status)
			}
		})
		if ok {
			scheduled += len(overdue)
		} else {
			s.logger.Warn("scheduler closed, overdue transitions dropped", "order_id", orderID, "count", len(overdue))
		}
	}

	return scheduled
}

func (s *Simulator) advance(link trace.Link, orderID string, status domain.OrderStatus) {
	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()

	attrs := []attribute.KeyValue{
		attribute.String("order.id", orderID),
		attribute.String("order.status", string(status)),
	}

	ctx, span := tracer.Start(ctx, "advance order status",
		trace.WithLinks(link),
		trace.WithAttributes(attrs...),
	)
	defer span.End()

	statusAttr := metric.WithAttributes(attribute.String("status", string(status)))

	advanced, err := s.store.AdvanceStatus(ctx, orderID, status)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.failed.Add(ctx, 1, statusAttr)

		msg := "order status transition failed"
		if errors.Is(err, domain.ErrNotFound) {
			msg = "order status transition failed: order vanished"
		}
		s.logger.Error(msg, "error", err, "order_id", orderID, "status", status)
		return
	}

	if !advanced {
		s.skipped.Add(ctx, 1, statusAttr)
		s.logger.Info("order status transition skipped", "order_id", orderID, "status", status)
		return
	}

	s.advanced.Add(ctx, 1, statusAttr)
	s.logger.Info("order status updated", "order_id", orderID, "status", status)

	if s.publisher == nil {
		return
	}

	event := domain.OrderStatusChangedEvent{
		OrderID:   orderID,
		Status:    status,
		Timestamp: s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, orderID, event); err != nil {
		s.logger.Error("failed to publish order status event", "error", err, "order_id", orderID, "status", status)
	}
}
