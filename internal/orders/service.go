package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/Sashankstar/Food-order-tracking/internal/domain"
)

type Store interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
}

// Lifecycle starts the status progression of a freshly stored order.
type Lifecycle interface {
	Start(ctx context.Context, orderID string) int
}

type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// CreateOrderRequest is the body of POST /api/orders. Pointer fields tell a
// missing value apart from a zero one.
type CreateOrderRequest struct {
	Items           []domain.OrderItem      `json:"items"`
	DeliveryDetails *domain.DeliveryDetails `json:"delivery_details"`
	Total           *decimal.Decimal        `json:"total"`
}

// Money is stored as NUMERIC(10,2): two decimal places, below 10^8.
const moneyScale = 2

var moneyLimit = decimal.New(1, 8)

type Service struct {
	store     Store
	lifecycle Lifecycle
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time

	created metric.Int64Counter
}

// NewService wires the order operations. publisher may be nil.
func NewService(store Store, lifecycle Lifecycle, publisher Publisher, logger *slog.Logger) (*Service, error) {
	created, err := otel.Meter("orders/service").Int64Counter("orders_created",
		metric.WithDescription("Orders accepted and persisted"))
	if err != nil {
		return nil, fmt.Errorf("create orders counter: %w", err)
	}

	return &Service{
		store:     store,
		lifecycle: lifecycle,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		created:   created,
	}, nil
}

func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*domain.Order, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	// Both stores keep at least millisecond precision, so the response
	// matches what a later read returns.
	now := s.now().UTC().Truncate(time.Millisecond)
	order := &domain.Order{
		Items:           req.Items,
		DeliveryDetails: normalizeDelivery(*req.DeliveryDetails),
		Total:           *req.Total,
		Status:          domain.OrderStatusReceived,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.store.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("%w: create order: %w", domain.ErrPersistence, err)
	}

	s.created.Add(ctx, 1)
	scheduled := s.lifecycle.Start(ctx, order.ID)

	if s.publisher != nil {
		event := domain.OrderCreatedEvent{
			OrderID:   order.ID,
			Items:     order.Items,
			Status:    order.Status,
			Timestamp: order.CreatedAt,
		}
		if err := s.publisher.Publish(ctx, order.ID, event); err != nil {
			s.logger.Error("failed to publish order created event", "error", err, "order_id", order.ID)
		}
	}

	s.logger.Info("order created", "order_id", order.ID, "items", len(order.Items), "transitions", scheduled)
	return order, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrInvalidID
	}

	order, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidID) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: get order %s: %w", domain.ErrPersistence, id, err)
	}

	return order, nil
}

// ListOrders returns every order, newest first.
func (s *Service) ListOrders(ctx context.Context) ([]domain.Order, error) {
	orders, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list orders: %w", domain.ErrPersistence, err)
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

func validateCreate(req CreateOrderRequest) error {
	verr := &domain.ValidationError{}

	if len(req.Items) == 0 {
		verr.Add("items", "at least one item is required")
	}
	for i, item := range req.Items {
		prefix := "items[" + strconv.Itoa(i) + "]"
		if strings.TrimSpace(item.ItemID) == "" {
			verr.Add(prefix+".item_id", "is required")
		}
		if item.Quantity < 1 {
			verr.Add(prefix+".quantity", "must be at least 1")
		}
		validateMoney(verr, prefix+".price", item.Price)
	}

	if req.DeliveryDetails == nil {
		verr.Add("delivery_details", "is required")
	} else {
		d := req.DeliveryDetails
		if strings.TrimSpace(d.Name) == "" {
			verr.Add("delivery_details.name", "is required")
		}
		if strings.TrimSpace(d.Address) == "" {
			verr.Add("delivery_details.address", "is required")
		}
		if strings.TrimSpace(d.Phone) == "" {
			verr.Add("delivery_details.phone", "is required")
		}
	}

	if req.Total == nil {
		verr.Add("total", "is required")
	} else {
		validateMoney(verr, "total", *req.Total)
	}

	return verr.Err()
}

func validateMoney(verr *domain.ValidationError, field string, amount decimal.Decimal) {
	switch {
	case amount.IsNegative():
		verr.Add(field, "must not be negative")
	case !amount.Equal(amount.Truncate(moneyScale)):
		verr.Add(field, "must have at most 2 decimal places")
	case amount.GreaterThanOrEqual(moneyLimit):
		verr.Add(field, "must be less than 100000000")
	}
}

func normalizeDelivery(d domain.DeliveryDetails) domain.DeliveryDetails {
	return domain.DeliveryDetails{
		Name:    strings.TrimSpace(d.Name),
		Address: strings.TrimSpace(d.Address),
		Phone:   strings.TrimSpace(d.Phone),
	}
}
