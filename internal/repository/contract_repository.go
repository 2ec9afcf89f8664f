package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/borrowhood/rto-engine/internal/domain"
)

type contractRepository struct {
	db *sqlx.DB
}

func NewContractRepository(db *sqlx.DB) ContractRepository {
	return &contractRepository{db: db}
}

const contractColumns = `
	id, listing_id, borrower_id, lender_id, purchase_price, total_payments,
	rental_credit_percent, cadence, first_payment_date, payment_amount,
	payments_completed, equity_accumulated, rental_paid, next_payment_date,
	status, created_at, updated_at, approved_at, cancelled_at, cancelled_by,
	cancel_reason, completed_at
`

const paymentColumns = `
	id, contract_id, payment_number, total_amount, equity_portion,
	rental_portion, platform_fee, lender_payout, due_date, status, paid_at,
	capture_ref, transfer_ref, created_at, updated_at
`

func (r *contractRepository) CreateWithSchedule(ctx context.Context, contract *domain.Contract, payments []*domain.Payment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	contractQuery := `
		INSERT INTO rto_contracts (` + contractColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22)
	`

	_, err = tx.ExecContext(ctx, contractQuery,
		contract.ID,
		contract.ListingID,
		contract.BorrowerID,
		contract.LenderID,
		contract.PurchasePrice,
		contract.TotalPayments,
		contract.RentalCreditPct,
		contract.Cadence,
		contract.FirstPaymentDate,
		contract.PaymentAmount,
		contract.PaymentsCompleted,
		contract.EquityAccumulated,
		contract.RentalPaid,
		contract.NextPaymentDate,
		contract.Status,
		contract.CreatedAt,
		contract.UpdatedAt,
		contract.ApprovedAt,
		contract.CancelledAt,
		contract.CancelledBy,
		contract.CancelReason,
		contract.CompletedAt,
	)
	if err != nil {
		return err
	}

	paymentQuery := `
		INSERT INTO rto_payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	for _, p := range payments {
		_, err = tx.ExecContext(ctx, paymentQuery,
			p.ID,
			p.ContractID,
			p.PaymentNumber,
			p.TotalAmount,
			p.EquityPortion,
			p.RentalPortion,
			p.PlatformFee,
			p.LenderPayout,
			p.DueDate,
			p.Status,
			p.PaidAt,
			p.CaptureRef,
			p.TransferRef,
			p.CreatedAt,
			p.UpdatedAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *contractRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM rto_contracts WHERE id = $1`

	var contract domain.Contract
	if err := r.db.GetContext(ctx, &contract, query, id); err != nil {
		return nil, err
	}

	return &contract, nil
}

func (r *contractRepository) GetPayments(ctx context.Context, contractID uuid.UUID) ([]*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM rto_payments
		WHERE contract_id = $1
		ORDER BY payment_number
	`

	var payments []*domain.Payment
	if err := r.db.SelectContext(ctx, &payments, query, contractID); err != nil {
		return nil, err
	}

	return payments, nil
}

func (r *contractRepository) Approve(ctx context.Context, contract *domain.Contract) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE rto_contracts
		SET status = $2, approved_at = $3, updated_at = $4
		WHERE id = $1 AND status = 'pending'
	`, contract.ID, contract.Status, contract.ApprovedAt, time.Now())
	if err != nil {
		return err
	}
	if err := requireOneRow(res); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE listings
		SET status = $2, updated_at = $3
		WHERE id = $1
	`, contract.ListingID, domain.ListingStatusEncumbered, time.Now())
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *contractRepository) Decline(ctx context.Context, contract *domain.Contract) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE rto_contracts
		SET status = $2, cancelled_at = $3, cancelled_by = $4, cancel_reason = $5, updated_at = $6
		WHERE id = $1 AND status = 'pending'
	`, contract.ID, contract.Status, contract.CancelledAt, contract.CancelledBy, contract.CancelReason, time.Now())
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

func (r *contractRepository) Cancel(ctx context.Context, contract *domain.Contract) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE rto_contracts
		SET status = $2, cancelled_at = $3, cancelled_by = $4, cancel_reason = $5, updated_at = $6
		WHERE id = $1 AND status = 'active'
	`, contract.ID, contract.Status, contract.CancelledAt, contract.CancelledBy, contract.CancelReason, time.Now())
	if err != nil {
		return err
	}
	if err := requireOneRow(res); err != nil {
		return err
	}

	// Void the unpaid remainder of the schedule.
	_, err = tx.ExecContext(ctx, `
		UPDATE rto_payments
		SET status = $2, updated_at = $3
		WHERE contract_id = $1 AND status = 'pending'
	`, contract.ID, domain.PaymentStatusFailed, time.Now())
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE listings
		SET status = $2, updated_at = $3
		WHERE id = $1
	`, contract.ListingID, domain.ListingStatusAvailable, time.Now())
	if err != nil {
		return err
	}

	return tx.Commit()
}

// ClaimNextPending claims the lowest-numbered pending payment. The inner MIN
// spans pending and capturing rows so a payment already in flight blocks the
// next one from being claimed, keeping strict payment_number order. SKIP
// LOCKED makes concurrent claimers lose cleanly instead of blocking.
func (r *contractRepository) ClaimNextPending(ctx context.Context, contractID uuid.UUID) (*domain.Payment, error) {
	query := `
		UPDATE rto_payments
		SET status = 'capturing', updated_at = $2
		WHERE id = (
			SELECT id FROM rto_payments
			WHERE contract_id = $1
			  AND status = 'pending'
			  AND payment_number = (
				SELECT MIN(payment_number) FROM rto_payments
				WHERE contract_id = $1 AND status IN ('pending', 'capturing')
			  )
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + paymentColumns

	var payment domain.Payment
	err := r.db.GetContext(ctx, &payment, query, contractID, time.Now())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &payment, nil
}

func (r *contractRepository) GetCapturingPayment(ctx context.Context, contractID uuid.UUID) (*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM rto_payments
		WHERE contract_id = $1 AND status = 'capturing'
		ORDER BY payment_number
		LIMIT 1
	`

	var payment domain.Payment
	err := r.db.GetContext(ctx, &payment, query, contractID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &payment, nil
}

func (r *contractRepository) ReleaseClaim(ctx context.Context, paymentID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE rto_payments
		SET status = 'pending', updated_at = $2
		WHERE id = $1 AND status = 'capturing'
	`, paymentID, time.Now())
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

// Settle commits the payment row, the contract counters, and, when the final
// payment just landed, the contract completion and listing ownership
// transfer, all in one transaction.
func (r *contractRepository) Settle(ctx context.Context, s *Settlement) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE rto_payments
		SET status = 'completed', paid_at = $2, capture_ref = $3, updated_at = $4
		WHERE id = $1 AND status = 'capturing'
	`, s.Payment.ID, s.Payment.PaidAt, s.Payment.CaptureRef, time.Now())
	if err != nil {
		return err
	}
	if err := requireOneRow(res); err != nil {
		return err
	}

	res, err = tx.ExecContext(ctx, `
		UPDATE rto_contracts
		SET payments_completed = $2, equity_accumulated = $3, rental_paid = $4,
		    next_payment_date = $5, status = $6, completed_at = $7, updated_at = $8
		WHERE id = $1 AND status = 'active'
	`,
		s.Contract.ID,
		s.Contract.PaymentsCompleted,
		s.Contract.EquityAccumulated,
		s.Contract.RentalPaid,
		s.Contract.NextPaymentDate,
		s.Contract.Status,
		s.Contract.CompletedAt,
		time.Now(),
	)
	if err != nil {
		return err
	}
	if err := requireOneRow(res); err != nil {
		return err
	}

	if s.CompleteContract {
		res, err = tx.ExecContext(ctx, `
			UPDATE listings
			SET owner_id = $2, status = $3, updated_at = $4
			WHERE id = $1
		`, s.Contract.ListingID, s.NewOwnerID, domain.ListingStatusAvailable, time.Now())
		if err != nil {
			return err
		}
		if err := requireOneRow(res); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *contractRepository) RecordTransferRef(ctx context.Context, paymentID uuid.UUID, transferRef string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE rto_payments
		SET transfer_ref = $2, updated_at = $3
		WHERE id = $1
	`, paymentID, transferRef, time.Now())
	return err
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return sql.ErrNoRows
	}
	return nil
}
