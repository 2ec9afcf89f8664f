package processor

import (
	"context"
	"errors"
)

// Classified processor failures. Declined is terminal for the attempt; the
// payment is safe to retry later with a fresh call. Unavailable means the
// outcome is unknown and the same idempotency key must be reused.
var (
	ErrDeclined    = errors.New("processor declined the request")
	ErrUnavailable = errors.New("processor unavailable, outcome unknown")
)

// Capture is the record of a completed charge at the processor.
type Capture struct {
	Ref            string `json:"ref"`
	Amount         int64  `json:"amount"`
	IdempotencyKey string `json:"idempotency_key"`
}

// Transfer is the record of a payout to a destination account.
type Transfer struct {
	Ref            string `json:"ref"`
	Amount         int64  `json:"amount"`
	IdempotencyKey string `json:"idempotency_key"`
}

// PaymentProcessor is the external money-movement collaborator. Both Capture
// and Transfer are idempotent on their key, and captures are retrievable by
// key for reconciliation after an unknown outcome.
type PaymentProcessor interface {
	// Capture charges the payer's stored payment method.
	Capture(ctx context.Context, amount int64, payerAccount, idempotencyKey string) (*Capture, error)

	// Transfer moves captured funds on to the destination account.
	Transfer(ctx context.Context, amount int64, destinationAccount, idempotencyKey string) (*Transfer, error)

	// GetCapture looks up a capture by its idempotency key. Returns
	// (nil, nil) when no capture with that key exists.
	GetCapture(ctx context.Context, idempotencyKey string) (*Capture, error)
}
