package testhelpers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/lumenlater/lumen-later/domain/entities"
	"github.com/lumenlater/lumen-later/domain/events"
)

// MockMerchantRepository is a mock implementation of MerchantRepository.
type MockMerchantRepository struct {
	mock.Mock
}

func (m *MockMerchantRepository) Create(ctx context.Context, merchant *entities.Merchant) error {
	args := m.Called(ctx, merchant)
	return args.Error(0)
}

func (m *MockMerchantRepository) GetByAccount(ctx context.Context, account string) (*entities.Merchant, error) {
	args := m.Called(ctx, account)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Merchant), args.Error(1)
}

func (m *MockMerchantRepository) Update(ctx context.Context, merchant *entities.Merchant) error {
	args := m.Called(ctx, merchant)
	return args.Error(0)
}

// MockConfigRepository is a mock implementation of ConfigRepository.
type MockConfigRepository struct {
	mock.Mock
}

func (m *MockConfigRepository) Get(ctx context.Context) (*entities.ProtocolConfig, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ProtocolConfig), args.Error(1)
}

func (m *MockConfigRepository) Set(ctx context.Context, cfg *entities.ProtocolConfig) error {
	args := m.Called(ctx, cfg)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of EventPublisher.
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}
