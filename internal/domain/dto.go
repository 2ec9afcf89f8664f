package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/borrowhood/rto-engine/pkg/money"
)

// DTOs for requests and responses

type CreateContractRequest struct {
	ListingID        string `json:"listing_id" validate:"required,uuid4"`
	TotalPayments    int    `json:"total_payments" validate:"required,gt=0"`
	Cadence          string `json:"cadence" validate:"required,oneof=weekly biweekly monthly"`
	FirstPaymentDate string `json:"first_payment_date" validate:"required,datetime=2006-01-02"`
}

type DeclineContractRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type CancelContractRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type CreateContractResponse struct {
	Contract *Contract  `json:"contract"`
	Schedule []*Payment `json:"schedule"`
}

// PaymentResult is returned from a successful MakePayment call.
type PaymentResult struct {
	PaymentID         uuid.UUID `json:"payment_id"`
	PaymentNumber     int       `json:"payment_number"`
	AmountCaptured    int64     `json:"amount_captured"`
	AmountDisplay     string    `json:"amount_display"`
	PaymentsCompleted int       `json:"payments_completed"`
	ContractStatus    string    `json:"contract_status"`
	ContractCompleted bool      `json:"contract_completed"`
}

// ContractView is the full read model for GetContract: the contract, its
// payment history, and a listing summary, with display-formatted amounts.
type ContractView struct {
	Contract          *Contract      `json:"contract"`
	Listing           *ListingView   `json:"listing"`
	Payments          []*PaymentView `json:"payments"`
	PurchaseDisplay   string         `json:"purchase_price_display"`
	EquityDisplay     string         `json:"equity_accumulated_display"`
	RentalPaidDisplay string         `json:"rental_paid_display"`
}

type ListingView struct {
	ID      uuid.UUID `json:"id"`
	OwnerID uuid.UUID `json:"owner_id"`
	Title   string    `json:"title"`
	Status  string    `json:"status"`
}

type PaymentView struct {
	ID            uuid.UUID  `json:"id"`
	PaymentNumber int        `json:"payment_number"`
	TotalAmount   int64      `json:"total_amount"`
	AmountDisplay string     `json:"amount_display"`
	EquityPortion int64      `json:"equity_portion"`
	RentalPortion int64      `json:"rental_portion"`
	DueDate       time.Time  `json:"due_date"`
	Status        string     `json:"status"`
	PaidAt        *time.Time `json:"paid_at"`
}

// NewContractView assembles the read model from the aggregate and listing.
func NewContractView(c *Contract, l *Listing, payments []*Payment) *ContractView {
	views := make([]*PaymentView, 0, len(payments))
	for _, p := range payments {
		views = append(views, &PaymentView{
			ID:            p.ID,
			PaymentNumber: p.PaymentNumber,
			TotalAmount:   p.TotalAmount,
			AmountDisplay: money.Format(p.TotalAmount),
			EquityPortion: p.EquityPortion,
			RentalPortion: p.RentalPortion,
			DueDate:       p.DueDate,
			Status:        p.Status,
			PaidAt:        p.PaidAt,
		})
	}

	return &ContractView{
		Contract: c,
		Listing: &ListingView{
			ID:      l.ID,
			OwnerID: l.OwnerID,
			Title:   l.Title,
			Status:  l.Status,
		},
		Payments:          views,
		PurchaseDisplay:   money.Format(c.PurchasePrice),
		EquityDisplay:     money.Format(c.EquityAccumulated),
		RentalPaidDisplay: money.Format(c.RentalPaid),
	}
}
