package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/borrowhood/rto-engine/internal/domain"
)

// ContractRepository owns the contract aggregate: the contract row plus its
// ordered payments. Multi-table transitions (listing encumbrance, ownership
// transfer) run inside the same database transaction as the contract write.
type ContractRepository interface {
	// CreateWithSchedule inserts the contract and its full payment schedule
	// atomically.
	CreateWithSchedule(ctx context.Context, contract *domain.Contract, payments []*domain.Payment) error

	// GetByID retrieves a contract by id
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Contract, error)

	// GetPayments retrieves the contract's payments ordered by payment number
	GetPayments(ctx context.Context, contractID uuid.UUID) ([]*domain.Payment, error)

	// Approve persists a pending->active transition and encumbers the listing
	// in the same transaction.
	Approve(ctx context.Context, contract *domain.Contract) error

	// Decline persists a pending->cancelled transition; the listing stays
	// available.
	Decline(ctx context.Context, contract *domain.Contract) error

	// Cancel persists an active->cancelled transition, voids the remaining
	// pending payments, and releases the listing, all in one transaction.
	Cancel(ctx context.Context, contract *domain.Contract) error

	// ClaimNextPending atomically flips the lowest-numbered pending payment
	// to capturing, but only when no lower-numbered payment is already in
	// flight. Returns nil when nothing could be claimed.
	ClaimNextPending(ctx context.Context, contractID uuid.UUID) (*domain.Payment, error)

	// GetCapturingPayment returns the contract's in-flight payment, if any.
	GetCapturingPayment(ctx context.Context, contractID uuid.UUID) (*domain.Payment, error)

	// ReleaseClaim returns a capturing payment to pending after a terminal
	// capture decline.
	ReleaseClaim(ctx context.Context, paymentID uuid.UUID) error

	// Settle commits the atomic unit of a completed payment: the payment row,
	// the contract's progress counters, and, when the final payment landed,
	// contract completion plus listing ownership transfer.
	Settle(ctx context.Context, s *Settlement) error

	// RecordTransferRef stores the processor transfer reference after a
	// successful lender payout. Runs outside the settlement transaction.
	RecordTransferRef(ctx context.Context, paymentID uuid.UUID, transferRef string) error
}

// Settlement carries the already-applied in-memory state to persist in one
// transaction.
type Settlement struct {
	Contract         *domain.Contract
	Payment          *domain.Payment
	CompleteContract bool
	NewOwnerID       uuid.UUID
}

// ListingRepository reads listings; all listing writes the engine performs
// happen inside ContractRepository transactions.
type ListingRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Listing, error)
}

// ProfileRepository reads users' payment processor references.
type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.PaymentProfile, error)
}
