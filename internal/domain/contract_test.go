package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rtoerrors "github.com/borrowhood/rto-engine/pkg/errors"
)

func newContract(status string) *Contract {
	return &Contract{
		ID:            uuid.New(),
		ListingID:     uuid.New(),
		BorrowerID:    uuid.New(),
		LenderID:      uuid.New(),
		PurchasePrice: 36000,
		TotalPayments: 12,
		Status:        status,
	}
}

func TestContract_Approve(t *testing.T) {
	now := time.Now()

	t.Run("pending becomes active", func(t *testing.T) {
		c := newContract(ContractStatusPending)

		err := c.Approve(now)

		require.NoError(t, err)
		assert.Equal(t, ContractStatusActive, c.Status)
		require.NotNil(t, c.ApprovedAt)
		assert.Equal(t, now, *c.ApprovedAt)
	})

	for _, status := range []string{ContractStatusActive, ContractStatusCompleted, ContractStatusCancelled} {
		t.Run("rejected from "+status, func(t *testing.T) {
			c := newContract(status)

			err := c.Approve(now)

			require.ErrorIs(t, err, rtoerrors.ErrInvalidStateTransition)
			assert.Contains(t, err.Error(), status)
			assert.Contains(t, err.Error(), "approve")
			assert.Equal(t, status, c.Status)
		})
	}
}

func TestContract_Decline(t *testing.T) {
	now := time.Now()

	t.Run("pending becomes cancelled with reason", func(t *testing.T) {
		c := newContract(ContractStatusPending)
		lenderID := c.LenderID

		err := c.Decline(lenderID, "item no longer available", now)

		require.NoError(t, err)
		assert.Equal(t, ContractStatusCancelled, c.Status)
		require.NotNil(t, c.CancelledBy)
		assert.Equal(t, lenderID, *c.CancelledBy)
		require.NotNil(t, c.CancelReason)
		assert.Equal(t, "item no longer available", *c.CancelReason)
	})

	for _, status := range []string{ContractStatusActive, ContractStatusCompleted, ContractStatusCancelled} {
		t.Run("rejected from "+status, func(t *testing.T) {
			c := newContract(status)

			err := c.Decline(c.LenderID, "reason", now)

			require.ErrorIs(t, err, rtoerrors.ErrInvalidStateTransition)
		})
	}
}

func TestContract_Cancel(t *testing.T) {
	now := time.Now()

	t.Run("active becomes cancelled, equity untouched", func(t *testing.T) {
		c := newContract(ContractStatusActive)
		c.PaymentsCompleted = 5
		c.EquityAccumulated = 15000

		err := c.Cancel(c.BorrowerID, "moving away", now)

		require.NoError(t, err)
		assert.Equal(t, ContractStatusCancelled, c.Status)
		assert.Equal(t, int64(15000), c.EquityAccumulated)
		assert.Equal(t, 5, c.PaymentsCompleted)
	})

	for _, status := range []string{ContractStatusPending, ContractStatusCompleted, ContractStatusCancelled} {
		t.Run("rejected from "+status, func(t *testing.T) {
			c := newContract(status)

			err := c.Cancel(c.BorrowerID, "reason", now)

			require.ErrorIs(t, err, rtoerrors.ErrInvalidStateTransition)
			assert.Equal(t, status, c.Status)
		})
	}
}

func TestContract_Complete(t *testing.T) {
	now := time.Now()

	t.Run("active with all payments completes", func(t *testing.T) {
		c := newContract(ContractStatusActive)
		c.PaymentsCompleted = 12

		err := c.Complete(now)

		require.NoError(t, err)
		assert.Equal(t, ContractStatusCompleted, c.Status)
		require.NotNil(t, c.CompletedAt)
	})

	t.Run("rejected when payments remain", func(t *testing.T) {
		c := newContract(ContractStatusActive)
		c.PaymentsCompleted = 11

		err := c.Complete(now)

		require.ErrorIs(t, err, rtoerrors.ErrInvalidStateTransition)
		assert.Equal(t, ContractStatusActive, c.Status)
	})

	for _, status := range []string{ContractStatusPending, ContractStatusCompleted, ContractStatusCancelled} {
		t.Run("rejected from "+status, func(t *testing.T) {
			c := newContract(status)
			c.PaymentsCompleted = c.TotalPayments

			err := c.Complete(now)

			require.ErrorIs(t, err, rtoerrors.ErrInvalidStateTransition)
		})
	}
}

func TestContract_ApplyPayment(t *testing.T) {
	t.Run("advances progress counters", func(t *testing.T) {
		c := newContract(ContractStatusActive)
		c.PaymentsCompleted = 4
		c.EquityAccumulated = 12000
		c.RentalPaid = 12000

		nextDue := time.Now().AddDate(0, 1, 0)
		err := c.ApplyPayment(&Payment{EquityPortion: 3000, RentalPortion: 3000}, &nextDue)

		require.NoError(t, err)
		assert.Equal(t, 5, c.PaymentsCompleted)
		assert.Equal(t, int64(15000), c.EquityAccumulated)
		assert.Equal(t, int64(15000), c.RentalPaid)
		require.NotNil(t, c.NextPaymentDate)
		assert.Equal(t, nextDue, *c.NextPaymentDate)
	})

	t.Run("final payment clears next due date", func(t *testing.T) {
		c := newContract(ContractStatusActive)
		c.PaymentsCompleted = 11

		err := c.ApplyPayment(&Payment{EquityPortion: 3000, RentalPortion: 3000}, nil)

		require.NoError(t, err)
		assert.Equal(t, 12, c.PaymentsCompleted)
		assert.Nil(t, c.NextPaymentDate)
	})

	t.Run("rejected on inactive contract", func(t *testing.T) {
		c := newContract(ContractStatusCancelled)

		err := c.ApplyPayment(&Payment{EquityPortion: 3000}, nil)

		require.ErrorIs(t, err, rtoerrors.ErrContractNotActive)
	})
}

func TestContract_IsParty(t *testing.T) {
	c := newContract(ContractStatusActive)

	assert.True(t, c.IsParty(c.BorrowerID))
	assert.True(t, c.IsParty(c.LenderID))
	assert.False(t, c.IsParty(uuid.New()))
}

func TestPayment_IdempotencyKeys(t *testing.T) {
	contractID := uuid.New()
	p1 := &Payment{ContractID: contractID, PaymentNumber: 1}
	p2 := &Payment{ContractID: contractID, PaymentNumber: 2}

	// Stable across calls, distinct across payments, distinct per operation.
	assert.Equal(t, p1.CaptureIdempotencyKey(), p1.CaptureIdempotencyKey())
	assert.NotEqual(t, p1.CaptureIdempotencyKey(), p2.CaptureIdempotencyKey())
	assert.NotEqual(t, p1.CaptureIdempotencyKey(), p1.TransferIdempotencyKey())
}
