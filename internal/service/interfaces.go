package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/borrowhood/rto-engine/internal/domain"
)

// ContractService drives the contract lifecycle state machine.
type ContractService interface {
	// CreateContract validates listing eligibility, generates the payment
	// schedule, and persists the pending contract with its payments.
	CreateContract(ctx context.Context, borrowerID uuid.UUID, req *domain.CreateContractRequest) (*domain.CreateContractResponse, error)

	// ApproveContract moves a pending contract to active and encumbers the
	// listing. Lender only.
	ApproveContract(ctx context.Context, contractID, lenderID uuid.UUID) (*domain.Contract, error)

	// DeclineContract moves a pending contract to cancelled with a reason.
	// Lender only; the listing stays available.
	DeclineContract(ctx context.Context, contractID, lenderID uuid.UUID, reason string) (*domain.Contract, error)

	// CancelContract lets either party walk away from an active contract.
	// Accumulated equity is untouched; the listing is released.
	CancelContract(ctx context.Context, contractID, callerID uuid.UUID, reason string) (*domain.Contract, error)

	// GetContract returns the full contract view. Borrower or lender only.
	GetContract(ctx context.Context, contractID, callerID uuid.UUID) (*domain.ContractView, error)
}

// PaymentService orchestrates one payment: claim, capture, settle, payout,
// notify.
type PaymentService interface {
	MakePayment(ctx context.Context, contractID, payerID uuid.UUID) (*domain.PaymentResult, error)
}
