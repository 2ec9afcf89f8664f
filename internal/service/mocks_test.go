package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/borrowhood/rto-engine/internal/domain"
	"github.com/borrowhood/rto-engine/internal/processor"
	"github.com/borrowhood/rto-engine/internal/repository"
)

type MockContractRepository struct {
	mock.Mock
}

func (m *MockContractRepository) CreateWithSchedule(ctx context.Context, contract *domain.Contract, payments []*domain.Payment) error {
	args := m.Called(ctx, contract, payments)
	return args.Error(0)
}

func (m *MockContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Contract, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Contract), args.Error(1)
}

func (m *MockContractRepository) GetPayments(ctx context.Context, contractID uuid.UUID) ([]*domain.Payment, error) {
	args := m.Called(ctx, contractID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payment), args.Error(1)
}

func (m *MockContractRepository) Approve(ctx context.Context, contract *domain.Contract) error {
	args := m.Called(ctx, contract)
	return args.Error(0)
}

func (m *MockContractRepository) Decline(ctx context.Context, contract *domain.Contract) error {
	args := m.Called(ctx, contract)
	return args.Error(0)
}

func (m *MockContractRepository) Cancel(ctx context.Context, contract *domain.Contract) error {
	args := m.Called(ctx, contract)
	return args.Error(0)
}

func (m *MockContractRepository) ClaimNextPending(ctx context.Context, contractID uuid.UUID) (*domain.Payment, error) {
	args := m.Called(ctx, contractID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockContractRepository) GetCapturingPayment(ctx context.Context, contractID uuid.UUID) (*domain.Payment, error) {
	args := m.Called(ctx, contractID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockContractRepository) ReleaseClaim(ctx context.Context, paymentID uuid.UUID) error {
	args := m.Called(ctx, paymentID)
	return args.Error(0)
}

func (m *MockContractRepository) Settle(ctx context.Context, s *repository.Settlement) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockContractRepository) RecordTransferRef(ctx context.Context, paymentID uuid.UUID, transferRef string) error {
	args := m.Called(ctx, paymentID, transferRef)
	return args.Error(0)
}

type MockListingRepository struct {
	mock.Mock
}

func (m *MockListingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Listing), args.Error(1)
}

type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.PaymentProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentProfile), args.Error(1)
}

type MockProcessor struct {
	mock.Mock
}

func (m *MockProcessor) Capture(ctx context.Context, amount int64, payerAccount, idempotencyKey string) (*processor.Capture, error) {
	args := m.Called(ctx, amount, payerAccount, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*processor.Capture), args.Error(1)
}

func (m *MockProcessor) Transfer(ctx context.Context, amount int64, destinationAccount, idempotencyKey string) (*processor.Transfer, error) {
	args := m.Called(ctx, amount, destinationAccount, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*processor.Transfer), args.Error(1)
}

func (m *MockProcessor) GetCapture(ctx context.Context, idempotencyKey string) (*processor.Capture, error) {
	args := m.Called(ctx, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*processor.Capture), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, userID uuid.UUID, eventType string, payload map[string]interface{}) {
	m.Called(ctx, userID, eventType, payload)
}
