package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	ListingStatusAvailable  = "available"
	ListingStatusEncumbered = "encumbered"
)

// Listing is the marketplace item a contract is written against. The engine
// reads listings and performs exactly two kinds of writes: encumber/release
// around the contract lifecycle, and owner reassignment at completion.
// Rent-to-own terms (price, rental credit percent) are configured by the
// lender on the listing itself.
type Listing struct {
	ID              uuid.UUID `json:"id" db:"id"`
	OwnerID         uuid.UUID `json:"owner_id" db:"owner_id"`
	Title           string    `json:"title" db:"title"`
	PurchasePrice   int64     `json:"purchase_price" db:"purchase_price"`
	RentalCreditPct int       `json:"rental_credit_percent" db:"rental_credit_percent"`
	RTOEnabled      bool      `json:"rto_enabled" db:"rto_enabled"`
	Status          string    `json:"status" db:"status"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// PaymentProfile holds a user's processor references. CustomerRef is the
// stored payment method used for captures; PayoutRef is the transfer
// destination and may be absent.
type PaymentProfile struct {
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	CustomerRef string    `json:"customer_ref" db:"customer_ref"`
	PayoutRef   *string   `json:"payout_ref" db:"payout_ref"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
