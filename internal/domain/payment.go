package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	PaymentStatusPending   = "pending"
	PaymentStatusCapturing = "capturing"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
)

// Payment is one obligation in a contract's schedule, numbered 1..N.
// Amounts are fixed at creation: equity + rental == total, fee + payout == total.
type Payment struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	ContractID    uuid.UUID  `json:"contract_id" db:"contract_id"`
	PaymentNumber int        `json:"payment_number" db:"payment_number"`
	TotalAmount   int64      `json:"total_amount" db:"total_amount"`
	EquityPortion int64      `json:"equity_portion" db:"equity_portion"`
	RentalPortion int64      `json:"rental_portion" db:"rental_portion"`
	PlatformFee   int64      `json:"platform_fee" db:"platform_fee"`
	LenderPayout  int64      `json:"lender_payout" db:"lender_payout"`
	DueDate       time.Time  `json:"due_date" db:"due_date"`
	Status        string     `json:"status" db:"status"`
	PaidAt        *time.Time `json:"paid_at" db:"paid_at"`
	CaptureRef    *string    `json:"capture_ref" db:"capture_ref"`
	TransferRef   *string    `json:"transfer_ref" db:"transfer_ref"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// CaptureIdempotencyKey is stable across retries for the same payment, so
// the processor dedupes a re-sent capture.
func (p *Payment) CaptureIdempotencyKey() string {
	return fmt.Sprintf("rto-cap-%s-%d", p.ContractID, p.PaymentNumber)
}

// TransferIdempotencyKey keys the lender payout for the same payment.
func (p *Payment) TransferIdempotencyKey() string {
	return fmt.Sprintf("rto-xfer-%s-%d", p.ContractID, p.PaymentNumber)
}
