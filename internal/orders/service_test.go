package orders

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Sashankstar/Food-order-tracking/internal/domain"
)

func validRequest() CreateOrderRequest {
	total := decimal.RequireFromString("14.98")
	return CreateOrderRequest{
		Items: []domain.OrderItem{
			{ItemID: "pasta-1", Price: decimal.RequireFromString("11.99"), Quantity: 1},
		},
		DeliveryDetails: &domain.DeliveryDetails{Name: " Ada ", Address: "1 Main St", Phone: "555-0100"},
		Total:           &total,
	}
}

func newTestService(t *testing.T, store Store, lc Lifecycle, pub Publisher) *Service {
	t.Helper()
	s, err := NewService(store, lc, pub, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	return s
}

func TestService_CreateOrder(t *testing.T) {
	t.Run("persists, starts the lifecycle and publishes", func(t *testing.T) {
		store := &MockStore{}
		lc := &MockLifecycle{}
		pub := &MockPublisher{}

		store.On("Create", mock.Anything, mock.AnythingOfType("*domain.Order")).Return(nil).Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Order).ID = "order-1"
		})
		lc.On("Start", mock.Anything, "order-1").Return(3)
		pub.On("Publish", mock.Anything, "order-1", mock.AnythingOfType("domain.OrderCreatedEvent")).Return(nil)

		order, err := newTestService(t, store, lc, pub).CreateOrder(context.Background(), validRequest())
		require.NoError(t, err)

		assert.Equal(t, "order-1", order.ID)
		assert.Equal(t, domain.OrderStatusReceived, order.Status)
		assert.True(t, order.Total.Equal(decimal.RequireFromString("14.98")))
		assert.Equal(t, "Ada", order.DeliveryDetails.Name)
		assert.False(t, order.CreatedAt.IsZero())
		assert.Equal(t, order.CreatedAt, order.UpdatedAt)

		store.AssertExpectations(t)
		lc.AssertExpectations(t)
		pub.AssertExpectations(t)
	})

	t.Run("total is kept as supplied", func(t *testing.T) {
		store := &MockStore{}
		lc := &MockLifecycle{}
		store.On("Create", mock.Anything, mock.Anything).Return(nil)
		lc.On("Start", mock.Anything, mock.Anything).Return(3)

		req := validRequest()
		total := decimal.RequireFromString("99.00")
		req.Total = &total

		order, err := newTestService(t, store, lc, nil).CreateOrder(context.Background(), req)
		require.NoError(t, err)
		assert.True(t, order.Total.Equal(total))
	})

	t.Run("created_at is stored at millisecond precision", func(t *testing.T) {
		store := &MockStore{}
		lc := &MockLifecycle{}
		store.On("Create", mock.Anything, mock.Anything).Return(nil)
		lc.On("Start", mock.Anything, mock.Anything).Return(3)

		s := newTestService(t, store, lc, nil)
		s.now = func() time.Time { return time.Date(2026, 3, 1, 18, 30, 0, 123456789, time.UTC) }

		order, err := s.CreateOrder(context.Background(), validRequest())
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 3, 1, 18, 30, 0, 123000000, time.UTC), order.CreatedAt)
		assert.Equal(t, order.CreatedAt, order.UpdatedAt)
	})

	t.Run("trailing zeros within two places are accepted", func(t *testing.T) {
		store := &MockStore{}
		lc := &MockLifecycle{}
		store.On("Create", mock.Anything, mock.Anything).Return(nil)
		lc.On("Start", mock.Anything, mock.Anything).Return(3)

		req := validRequest()
		total := decimal.RequireFromString("99999999.990")
		req.Total = &total

		order, err := newTestService(t, store, lc, nil).CreateOrder(context.Background(), req)
		require.NoError(t, err)
		assert.True(t, order.Total.Equal(total))
	})

	t.Run("publish failure does not fail the request", func(t *testing.T) {
		store := &MockStore{}
		lc := &MockLifecycle{}
		pub := &MockPublisher{}
		store.On("Create", mock.Anything, mock.Anything).Return(nil)
		lc.On("Start", mock.Anything, mock.Anything).Return(3)
		pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))

		_, err := newTestService(t, store, lc, pub).CreateOrder(context.Background(), validRequest())
		assert.NoError(t, err)
	})

	t.Run("store failure is a persistence error and starts nothing", func(t *testing.T) {
		store := &MockStore{}
		lc := &MockLifecycle{}
		store.On("Create", mock.Anything, mock.Anything).Return(errors.New("disk full"))

		_, err := newTestService(t, store, lc, nil).CreateOrder(context.Background(), validRequest())
		assert.ErrorIs(t, err, domain.ErrPersistence)
		lc.AssertNotCalled(t, "Start", mock.Anything, mock.Anything)
	})
}

func TestService_CreateOrder_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateOrderRequest)
		field  string
	}{
		{"no items", func(r *CreateOrderRequest) { r.Items = nil }, "items"},
		{"missing item id", func(r *CreateOrderRequest) { r.Items[0].ItemID = " " }, "items[0].item_id"},
		{"zero quantity", func(r *CreateOrderRequest) { r.Items[0].Quantity = 0 }, "items[0].quantity"},
		{"negative price", func(r *CreateOrderRequest) { r.Items[0].Price = decimal.NewFromInt(-1) }, "items[0].price"},
		{"no delivery details", func(r *CreateOrderRequest) { r.DeliveryDetails = nil }, "delivery_details"},
		{"blank name", func(r *CreateOrderRequest) { r.DeliveryDetails.Name = "" }, "delivery_details.name"},
		{"blank address", func(r *CreateOrderRequest) { r.DeliveryDetails.Address = "  " }, "delivery_details.address"},
		{"blank phone", func(r *CreateOrderRequest) { r.DeliveryDetails.Phone = "" }, "delivery_details.phone"},
		{"missing total", func(r *CreateOrderRequest) { r.Total = nil }, "total"},
		{"negative total", func(r *CreateOrderRequest) {
			neg := decimal.RequireFromString("-0.01")
			r.Total = &neg
		}, "total"},
		{"total with sub-cent digits", func(r *CreateOrderRequest) {
			v := decimal.RequireFromString("14.987")
			r.Total = &v
		}, "total"},
		{"total too large", func(r *CreateOrderRequest) {
			v := decimal.New(1, 9)
			r.Total = &v
		}, "total"},
		{"price with sub-cent digits", func(r *CreateOrderRequest) { r.Items[0].Price = decimal.RequireFromString("11.999") }, "items[0].price"},
		{"price too large", func(r *CreateOrderRequest) { r.Items[0].Price = decimal.RequireFromString("100000000") }, "items[0].price"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &MockStore{}
			lc := &MockLifecycle{}

			req := validRequest()
			tt.mutate(&req)

			_, err := newTestService(t, store, lc, nil).CreateOrder(context.Background(), req)

			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
			store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestService_GetOrder(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		setup    func(*MockStore)
		wantErr  error
		wantCall bool
	}{
		{
			name:    "blank id is invalid",
			id:      "  ",
			setup:   func(*MockStore) {},
			wantErr: domain.ErrInvalidID,
		},
		{
			name: "not found passes through",
			id:   "missing",
			setup: func(s *MockStore) {
				s.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrNotFound)
			},
			wantErr:  domain.ErrNotFound,
			wantCall: true,
		},
		{
			name: "malformed id passes through",
			id:   "zzz",
			setup: func(s *MockStore) {
				s.On("GetByID", mock.Anything, "zzz").Return(nil, domain.ErrInvalidID)
			},
			wantErr:  domain.ErrInvalidID,
			wantCall: true,
		},
		{
			name: "other errors are persistence failures",
			id:   "o1",
			setup: func(s *MockStore) {
				s.On("GetByID", mock.Anything, "o1").Return(nil, errors.New("timeout"))
			},
			wantErr:  domain.ErrPersistence,
			wantCall: true,
		},
		{
			name: "found",
			id:   "o1",
			setup: func(s *MockStore) {
				s.On("GetByID", mock.Anything, "o1").Return(&domain.Order{ID: "o1", Status: domain.OrderStatusPreparing}, nil)
			},
			wantCall: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &MockStore{}
			tt.setup(store)

			order, err := newTestService(t, store, &MockLifecycle{}, nil).GetOrder(context.Background(), tt.id)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, order)
			} else {
				require.NoError(t, err)
				assert.Equal(t, domain.OrderStatusPreparing, order.Status)
			}

			if !tt.wantCall {
				store.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestService_ListOrders(t *testing.T) {
	t.Run("empty store yields empty slice", func(t *testing.T) {
		store := &MockStore{}
		store.On("List", mock.Anything).Return(nil, nil)

		orders, err := newTestService(t, store, &MockLifecycle{}, nil).ListOrders(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, orders)
		assert.Empty(t, orders)
	})

	t.Run("store failure", func(t *testing.T) {
		store := &MockStore{}
		store.On("List", mock.Anything).Return(nil, errors.New("boom"))

		_, err := newTestService(t, store, &MockLifecycle{}, nil).ListOrders(context.Background())
		assert.ErrorIs(t, err, domain.ErrPersistence)
	})
}
