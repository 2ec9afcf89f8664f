package domain

import (
	"time"

	"github.com/google/uuid"

	rtoerrors "github.com/borrowhood/rto-engine/pkg/errors"
)

const (
	ContractStatusPending   = "pending"
	ContractStatusActive    = "active"
	ContractStatusCompleted = "completed"
	ContractStatusCancelled = "cancelled"
)

// Payment cadences
const (
	CadenceWeekly   = "weekly"
	CadenceBiweekly = "biweekly"
	CadenceMonthly  = "monthly"
)

// Contract is the rent-to-own agreement aggregate root. All monetary fields
// are integer minor units. payment_amount is computed once at creation and
// never recomputed.
type Contract struct {
	ID                 uuid.UUID  `json:"id" db:"id"`
	ListingID          uuid.UUID  `json:"listing_id" db:"listing_id"`
	BorrowerID         uuid.UUID  `json:"borrower_id" db:"borrower_id"`
	LenderID           uuid.UUID  `json:"lender_id" db:"lender_id"`
	PurchasePrice      int64      `json:"purchase_price" db:"purchase_price"`
	TotalPayments      int        `json:"total_payments" db:"total_payments"`
	RentalCreditPct    int        `json:"rental_credit_percent" db:"rental_credit_percent"`
	Cadence            string     `json:"cadence" db:"cadence"`
	FirstPaymentDate   time.Time  `json:"first_payment_date" db:"first_payment_date"`
	PaymentAmount      int64      `json:"payment_amount" db:"payment_amount"`
	PaymentsCompleted  int        `json:"payments_completed" db:"payments_completed"`
	EquityAccumulated  int64      `json:"equity_accumulated" db:"equity_accumulated"`
	RentalPaid         int64      `json:"rental_paid" db:"rental_paid"`
	NextPaymentDate    *time.Time `json:"next_payment_date" db:"next_payment_date"`
	Status             string     `json:"status" db:"status"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
	ApprovedAt         *time.Time `json:"approved_at" db:"approved_at"`
	CancelledAt        *time.Time `json:"cancelled_at" db:"cancelled_at"`
	CancelledBy        *uuid.UUID `json:"cancelled_by" db:"cancelled_by"`
	CancelReason       *string    `json:"cancel_reason" db:"cancel_reason"`
	CompletedAt        *time.Time `json:"completed_at" db:"completed_at"`
}

// IsParty reports whether the user is the borrower or lender.
func (c *Contract) IsParty(userID uuid.UUID) bool {
	return c.BorrowerID == userID || c.LenderID == userID
}

func (c *Contract) IsTerminal() bool {
	return c.Status == ContractStatusCompleted || c.Status == ContractStatusCancelled
}

// Approve moves the contract from pending to active. Only the lender may
// approve; the caller check happens in the service, this enforces the
// state machine alone.
func (c *Contract) Approve(now time.Time) error {
	if c.Status != ContractStatusPending {
		return rtoerrors.WrapInvalidStateTransition(c.Status, "approve")
	}
	c.Status = ContractStatusActive
	c.ApprovedAt = &now
	return nil
}

// Decline moves the contract from pending to cancelled, recording the
// lender's reason.
func (c *Contract) Decline(lenderID uuid.UUID, reason string, now time.Time) error {
	if c.Status != ContractStatusPending {
		return rtoerrors.WrapInvalidStateTransition(c.Status, "decline")
	}
	c.Status = ContractStatusCancelled
	c.CancelledAt = &now
	c.CancelledBy = &lenderID
	c.CancelReason = &reason
	return nil
}

// Cancel moves an active contract to cancelled. Either party may walk away;
// equity already accumulated is left untouched.
func (c *Contract) Cancel(callerID uuid.UUID, reason string, now time.Time) error {
	if c.Status != ContractStatusActive {
		return rtoerrors.WrapInvalidStateTransition(c.Status, "cancel")
	}
	c.Status = ContractStatusCancelled
	c.CancelledAt = &now
	c.CancelledBy = &callerID
	c.CancelReason = &reason
	return nil
}

// Complete moves an active contract to completed once every payment has
// landed.
func (c *Contract) Complete(now time.Time) error {
	if c.Status != ContractStatusActive {
		return rtoerrors.WrapInvalidStateTransition(c.Status, "complete")
	}
	if c.PaymentsCompleted != c.TotalPayments {
		return rtoerrors.WrapInvalidStateTransition(c.Status, "complete")
	}
	c.Status = ContractStatusCompleted
	c.CompletedAt = &now
	return nil
}

// ApplyPayment folds one completed payment into the contract's progress
// counters. It does not decide completion; the orchestrator checks
// PaymentsCompleted against TotalPayments after applying.
func (c *Contract) ApplyPayment(p *Payment, nextDue *time.Time) error {
	if c.Status != ContractStatusActive {
		return rtoerrors.WrapContractNotActive(c.ID.String(), c.Status)
	}
	c.PaymentsCompleted++
	c.EquityAccumulated += p.EquityPortion
	c.RentalPaid += p.RentalPortion
	c.NextPaymentDate = nextDue
	return nil
}
