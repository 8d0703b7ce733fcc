package services

import (
	"context"
	"fmt"
	"time"

	"github.com/lumenlater/lumen-later/domain/entities"
	"github.com/lumenlater/lumen-later/domain/events"
	"github.com/lumenlater/lumen-later/domain/interfaces"
)

type merchantService struct {
	merchants interfaces.MerchantRepository
	config    interfaces.ConfigRepository
	publisher interfaces.EventPublisher
	now       func() time.Time
}

// NewMerchantService creates the merchant enrollment service.
func NewMerchantService(merchants interfaces.MerchantRepository, config interfaces.ConfigRepository, publisher interfaces.EventPublisher) interfaces.MerchantService {
	return &merchantService{
		merchants: merchants,
		config:    config,
		publisher: publisher,
		now:       time.Now,
	}
}

// Enroll registers the account as a pending merchant.
func (s *merchantService) Enroll(ctx context.Context, account, infoID string) (*entities.Merchant, error) {
	existing, err := s.merchants.GetByAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to check enrollment: %w", err)
	}
	if existing != nil {
		return nil, entities.ErrMerchantAlreadyEnrolled
	}

	merchant := &entities.Merchant{
		Account: account,
		InfoID:  infoID,
		Status:  entities.MerchantStatusPending,
	}
	if err := s.merchants.Create(ctx, merchant); err != nil {
		return nil, fmt.Errorf("failed to enroll merchant: %w", err)
	}

	if err := s.publisher.Publish(events.MerchantEnrolledEvent{
		Merchant:  account,
		InfoID:    infoID,
		Timestamp: s.now(),
	}); err != nil {
		return nil, fmt.Errorf("failed to publish enrollment event: %w", err)
	}

	return merchant, nil
}

// UpdateStatus changes a merchant's status. Only the protocol admin may call
// it.
func (s *merchantService) UpdateStatus(ctx context.Context, admin, account string, status entities.MerchantStatus) error {
	if !entities.ValidMerchantStatus(status) {
		return fmt.Errorf("unknown merchant status %q", status)
	}

	cfg, err := s.config.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to load protocol config: %w", err)
	}
	if cfg == nil {
		return entities.ErrNotInitialized
	}
	if admin != cfg.Admin {
		return entities.ErrNotAdmin
	}

	merchant, err := s.merchants.GetByAccount(ctx, account)
	if err != nil {
		return fmt.Errorf("failed to get merchant: %w", err)
	}
	if merchant == nil {
		return entities.ErrMerchantNotFound
	}

	oldStatus := merchant.Status
	merchant.Status = status
	if err := s.merchants.Update(ctx, merchant); err != nil {
		return fmt.Errorf("failed to update merchant: %w", err)
	}

	return s.publisher.Publish(events.MerchantStatusUpdatedEvent{
		Merchant:  account,
		OldStatus: oldStatus,
		NewStatus: status,
		Timestamp: s.now(),
	})
}

// Get returns the merchant record for an account.
func (s *merchantService) Get(ctx context.Context, account string) (*entities.Merchant, error) {
	merchant, err := s.merchants.GetByAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to get merchant: %w", err)
	}
	if merchant == nil {
		return nil, entities.ErrMerchantNotFound
	}
	return merchant, nil
}
