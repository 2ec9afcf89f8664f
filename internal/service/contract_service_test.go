package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/borrowhood/rto-engine/internal/config"
	"github.com/borrowhood/rto-engine/internal/domain"
	"github.com/borrowhood/rto-engine/internal/notifier"
	rtoerrors "github.com/borrowhood/rto-engine/pkg/errors"
)

func testConfig() *config.Config {
	return &config.Config{
		Business: config.BusinessConfig{
			PlatformFeeBps:   200,
			MaxPayments:      36,
			ContractCacheTTL: time.Minute,
		},
	}
}

func newContractServiceFixture() (*MockContractRepository, *MockListingRepository, *MockNotifier, ContractService) {
	contractRepo := &MockContractRepository{}
	listingRepo := &MockListingRepository{}
	n := &MockNotifier{}
	redisClient, _ := redismock.NewClientMock()

	svc := NewContractService(contractRepo, listingRepo, redisClient, n, testConfig(), zap.NewNop())
	return contractRepo, listingRepo, n, svc
}

func availableListing(ownerID uuid.UUID) *domain.Listing {
	return &domain.Listing{
		ID:              uuid.New(),
		OwnerID:         ownerID,
		Title:           "Cordless drill",
		PurchasePrice:   36000,
		RentalCreditPct: 50,
		RTOEnabled:      true,
		Status:          domain.ListingStatusAvailable,
	}
}

func TestCreateContract(t *testing.T) {
	borrowerID := uuid.New()
	lenderID := uuid.New()

	tests := []struct {
		name          string
		request       *domain.CreateContractRequest
		setupMocks    func(*MockContractRepository, *MockListingRepository, *MockNotifier, *domain.Listing)
		listing       func() *domain.Listing
		expectedError string
		validate      func(*testing.T, *domain.CreateContractResponse)
	}{
		{
			name: "Success - pending contract with full schedule",
			request: &domain.CreateContractRequest{
				TotalPayments:    12,
				Cadence:          domain.CadenceMonthly,
				FirstPaymentDate: "2025-03-01",
			},
			listing: func() *domain.Listing { return availableListing(lenderID) },
			setupMocks: func(contractRepo *MockContractRepository, listingRepo *MockListingRepository, n *MockNotifier, listing *domain.Listing) {
				listingRepo.On("GetByID", mock.Anything, listing.ID).Return(listing, nil)
				contractRepo.On("CreateWithSchedule", mock.Anything,
					mock.MatchedBy(func(c *domain.Contract) bool {
						return c.Status == domain.ContractStatusPending &&
							c.PurchasePrice == 36000 &&
							c.PaymentAmount == 6000 &&
							c.LenderID == lenderID
					}),
					mock.MatchedBy(func(payments []*domain.Payment) bool {
						return len(payments) == 12
					}),
				).Return(nil)
				n.On("Notify", mock.Anything, lenderID, notifier.EventContractRequested, mock.Anything)
			},
			validate: func(t *testing.T, resp *domain.CreateContractResponse) {
				require.Len(t, resp.Schedule, 12)
				var equity int64
				for _, p := range resp.Schedule {
					equity += p.EquityPortion
					assert.Equal(t, domain.PaymentStatusPending, p.Status)
				}
				assert.Equal(t, int64(36000), equity)
				require.NotNil(t, resp.Contract.NextPaymentDate)
			},
		},
		{
			name: "Failure - listing not found",
			request: &domain.CreateContractRequest{
				TotalPayments:    12,
				Cadence:          domain.CadenceMonthly,
				FirstPaymentDate: "2025-03-01",
			},
			listing: func() *domain.Listing { return availableListing(lenderID) },
			setupMocks: func(contractRepo *MockContractRepository, listingRepo *MockListingRepository, n *MockNotifier, listing *domain.Listing) {
				listingRepo.On("GetByID", mock.Anything, listing.ID).Return(nil, sql.ErrNoRows)
			},
			expectedError: rtoerrors.ErrCodeListingNotFound,
		},
		{
			name: "Failure - own listing",
			request: &domain.CreateContractRequest{
				TotalPayments:    12,
				Cadence:          domain.CadenceMonthly,
				FirstPaymentDate: "2025-03-01",
			},
			listing: func() *domain.Listing { return availableListing(borrowerID) },
			setupMocks: func(contractRepo *MockContractRepository, listingRepo *MockListingRepository, n *MockNotifier, listing *domain.Listing) {
				listingRepo.On("GetByID", mock.Anything, listing.ID).Return(listing, nil)
			},
			expectedError: rtoerrors.ErrCodeListingNotEligible,
		},
		{
			name: "Failure - rent-to-own not offered",
			request: &domain.CreateContractRequest{
				TotalPayments:    12,
				Cadence:          domain.CadenceMonthly,
				FirstPaymentDate: "2025-03-01",
			},
			listing: func() *domain.Listing {
				l := availableListing(lenderID)
				l.RTOEnabled = false
				return l
			},
			setupMocks: func(contractRepo *MockContractRepository, listingRepo *MockListingRepository, n *MockNotifier, listing *domain.Listing) {
				listingRepo.On("GetByID", mock.Anything, listing.ID).Return(listing, nil)
			},
			expectedError: rtoerrors.ErrCodeListingNotEligible,
		},
		{
			name: "Failure - listing already encumbered",
			request: &domain.CreateContractRequest{
				TotalPayments:    12,
				Cadence:          domain.CadenceMonthly,
				FirstPaymentDate: "2025-03-01",
			},
			listing: func() *domain.Listing {
				l := availableListing(lenderID)
				l.Status = domain.ListingStatusEncumbered
				return l
			},
			setupMocks: func(contractRepo *MockContractRepository, listingRepo *MockListingRepository, n *MockNotifier, listing *domain.Listing) {
				listingRepo.On("GetByID", mock.Anything, listing.ID).Return(listing, nil)
			},
			expectedError: rtoerrors.ErrCodeListingNotEligible,
		},
		{
			name: "Failure - bad cadence rejected as invalid terms",
			request: &domain.CreateContractRequest{
				TotalPayments:    12,
				Cadence:          "daily",
				FirstPaymentDate: "2025-03-01",
			},
			listing: func() *domain.Listing { return availableListing(lenderID) },
			setupMocks: func(contractRepo *MockContractRepository, listingRepo *MockListingRepository, n *MockNotifier, listing *domain.Listing) {
				listingRepo.On("GetByID", mock.Anything, listing.ID).Return(listing, nil)
			},
			expectedError: rtoerrors.ErrCodeInvalidTerms,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contractRepo, listingRepo, n, svc := newContractServiceFixture()
			listing := tt.listing()
			tt.request.ListingID = listing.ID.String()
			tt.setupMocks(contractRepo, listingRepo, n, listing)

			resp, err := svc.CreateContract(context.Background(), borrowerID, tt.request)

			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				assert.Nil(t, resp)
			} else {
				require.NoError(t, err)
				tt.validate(t, resp)
			}

			contractRepo.AssertExpectations(t)
			listingRepo.AssertExpectations(t)
		})
	}
}

func TestApproveContract(t *testing.T) {
	t.Run("lender approves pending contract", func(t *testing.T) {
		contractRepo, _, n, svc := newContractServiceFixture()
		contract := pendingContract()

		contractRepo.On("GetByID", mock.Anything, contract.ID).Return(contract, nil)
		contractRepo.On("Approve", mock.Anything, mock.MatchedBy(func(c *domain.Contract) bool {
			return c.Status == domain.ContractStatusActive && c.ApprovedAt != nil
		})).Return(nil)
		n.On("Notify", mock.Anything, contract.BorrowerID, notifier.EventContractApproved, mock.Anything)

		result, err := svc.ApproveContract(context.Background(), contract.ID, contract.LenderID)

		require.NoError(t, err)
		assert.Equal(t, domain.ContractStatusActive, result.Status)
		contractRepo.AssertExpectations(t)
	})

	t.Run("non-lender rejected", func(t *testing.T) {
		contractRepo, _, _, svc := newContractServiceFixture()
		contract := pendingContract()

		contractRepo.On("GetByID", mock.Anything, contract.ID).Return(contract, nil)

		_, err := svc.ApproveContract(context.Background(), contract.ID, uuid.New())

		require.ErrorIs(t, err, rtoerrors.ErrNotLender)
		contractRepo.AssertNotCalled(t, "Approve", mock.Anything, mock.Anything)
	})

	t.Run("active contract cannot be approved again", func(t *testing.T) {
		contractRepo, _, _, svc := newContractServiceFixture()
		contract := pendingContract()
		contract.Status = domain.ContractStatusActive

		contractRepo.On("GetByID", mock.Anything, contract.ID).Return(contract, nil)

		_, err := svc.ApproveContract(context.Background(), contract.ID, contract.LenderID)

		require.ErrorIs(t, err, rtoerrors.ErrInvalidStateTransition)
	})
}

func TestDeclineContract(t *testing.T) {
	t.Run("lender declines with reason", func(t *testing.T) {
		contractRepo, _, n, svc := newContractServiceFixture()
		contract := pendingContract()

		contractRepo.On("GetByID", mock.Anything, contract.ID).Return(contract, nil)
		contractRepo.On("Decline", mock.Anything, mock.MatchedBy(func(c *domain.Contract) bool {
			return c.Status == domain.ContractStatusCancelled &&
				c.CancelReason != nil && *c.CancelReason == "changed my mind"
		})).Return(nil)
		n.On("Notify", mock.Anything, contract.BorrowerID, notifier.EventContractDeclined, mock.Anything)

		result, err := svc.DeclineContract(context.Background(), contract.ID, contract.LenderID, "changed my mind")

		require.NoError(t, err)
		assert.Equal(t, domain.ContractStatusCancelled, result.Status)
		contractRepo.AssertExpectations(t)
	})
}

func TestCancelContract(t *testing.T) {
	t.Run("borrower cancels active contract", func(t *testing.T) {
		contractRepo, _, n, svc := newContractServiceFixture()
		contract := activeContract()
		contract.PaymentsCompleted = 5
		contract.EquityAccumulated = 15000

		contractRepo.On("GetByID", mock.Anything, contract.ID).Return(contract, nil)
		contractRepo.On("Cancel", mock.Anything, mock.MatchedBy(func(c *domain.Contract) bool {
			return c.Status == domain.ContractStatusCancelled && c.EquityAccumulated == 15000
		})).Return(nil)
		n.On("Notify", mock.Anything, contract.LenderID, notifier.EventContractCancelled, mock.Anything)

		result, err := svc.CancelContract(context.Background(), contract.ID, contract.BorrowerID, "moving away")

		require.NoError(t, err)
		assert.Equal(t, domain.ContractStatusCancelled, result.Status)
		assert.Equal(t, int64(15000), result.EquityAccumulated)
		contractRepo.AssertExpectations(t)
	})

	t.Run("lender cancelling notifies borrower", func(t *testing.T) {
		contractRepo, _, n, svc := newContractServiceFixture()
		contract := activeContract()

		contractRepo.On("GetByID", mock.Anything, contract.ID).Return(contract, nil)
		contractRepo.On("Cancel", mock.Anything, mock.Anything).Return(nil)
		n.On("Notify", mock.Anything, contract.BorrowerID, notifier.EventContractCancelled, mock.Anything)

		_, err := svc.CancelContract(context.Background(), contract.ID, contract.LenderID, "need it back")

		require.NoError(t, err)
		n.AssertExpectations(t)
	})

	t.Run("pending contract cannot be cancelled", func(t *testing.T) {
		contractRepo, _, _, svc := newContractServiceFixture()
		contract := pendingContract()

		contractRepo.On("GetByID", mock.Anything, contract.ID).Return(contract, nil)

		_, err := svc.CancelContract(context.Background(), contract.ID, contract.BorrowerID, "reason")

		require.ErrorIs(t, err, rtoerrors.ErrInvalidStateTransition)
		contractRepo.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything)
	})

	t.Run("terminal contract cannot be cancelled", func(t *testing.T) {
		for _, status := range []string{domain.ContractStatusCompleted, domain.ContractStatusCancelled} {
			contractRepo, _, _, svc := newContractServiceFixture()
			contract := activeContract()
			contract.Status = status

			contractRepo.On("GetByID", mock.Anything, contract.ID).Return(contract, nil)

			_, err := svc.CancelContract(context.Background(), contract.ID, contract.BorrowerID, "reason")

			require.ErrorIs(t, err, rtoerrors.ErrInvalidStateTransition, status)
		}
	})

	t.Run("stranger rejected", func(t *testing.T) {
		contractRepo, _, _, svc := newContractServiceFixture()
		contract := activeContract()

		contractRepo.On("GetByID", mock.Anything, contract.ID).Return(contract, nil)

		_, err := svc.CancelContract(context.Background(), contract.ID, uuid.New(), "reason")

		require.ErrorIs(t, err, rtoerrors.ErrNotParty)
	})
}

func TestGetContract(t *testing.T) {
	t.Run("party gets full view", func(t *testing.T) {
		contractRepo, listingRepo, _, svc := newContractServiceFixture()
		contract := activeContract()
		listing := availableListing(contract.LenderID)
		listing.ID = contract.ListingID
		payments := []*domain.Payment{
			{ID: uuid.New(), ContractID: contract.ID, PaymentNumber: 1, TotalAmount: 6000, Status: domain.PaymentStatusCompleted},
			{ID: uuid.New(), ContractID: contract.ID, PaymentNumber: 2, TotalAmount: 6000, Status: domain.PaymentStatusPending},
		}

		contractRepo.On("GetByID", mock.Anything, contract.ID).Return(contract, nil)
		contractRepo.On("GetPayments", mock.Anything, contract.ID).Return(payments, nil)
		listingRepo.On("GetByID", mock.Anything, contract.ListingID).Return(listing, nil)

		view, err := svc.GetContract(context.Background(), contract.ID, contract.BorrowerID)

		require.NoError(t, err)
		assert.Len(t, view.Payments, 2)
		assert.Equal(t, "60.00", view.Payments[0].AmountDisplay)
		assert.Equal(t, listing.Title, view.Listing.Title)
	})

	t.Run("stranger rejected", func(t *testing.T) {
		contractRepo, _, _, svc := newContractServiceFixture()
		contract := activeContract()

		contractRepo.On("GetByID", mock.Anything, contract.ID).Return(contract, nil)

		_, err := svc.GetContract(context.Background(), contract.ID, uuid.New())

		require.ErrorIs(t, err, rtoerrors.ErrNotParty)
	})

	t.Run("unknown contract", func(t *testing.T) {
		contractRepo, _, _, svc := newContractServiceFixture()
		id := uuid.New()

		contractRepo.On("GetByID", mock.Anything, id).Return(nil, sql.ErrNoRows)

		_, err := svc.GetContract(context.Background(), id, uuid.New())

		require.ErrorIs(t, err, rtoerrors.ErrContractNotFound)
	})
}

func pendingContract() *domain.Contract {
	firstDue := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	return &domain.Contract{
		ID:               uuid.New(),
		ListingID:        uuid.New(),
		BorrowerID:       uuid.New(),
		LenderID:         uuid.New(),
		PurchasePrice:    36000,
		TotalPayments:    12,
		RentalCreditPct:  50,
		Cadence:          domain.CadenceMonthly,
		FirstPaymentDate: firstDue,
		PaymentAmount:    6000,
		NextPaymentDate:  &firstDue,
		Status:           domain.ContractStatusPending,
	}
}

func activeContract() *domain.Contract {
	c := pendingContract()
	c.Status = domain.ContractStatusActive
	return c
}
