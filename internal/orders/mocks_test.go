package orders

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Sashankstar/Food-order-tracking/internal/domain"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Create(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockStore) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockStore) List(ctx context.Context) ([]domain.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

type MockLifecycle struct {
	mock.Mock
}

func (m *MockLifecycle) Start(ctx context.Context, orderID string) int {
	args := m.Called(ctx, orderID)
	return args.Int(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, key string, event any) error {
	args := m.Called(ctx, key, event)
	return args.Error(0)
}
