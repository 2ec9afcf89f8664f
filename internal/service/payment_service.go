package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/borrowhood/rto-engine/internal/config"
	"github.com/borrowhood/rto-engine/internal/domain"
	"github.com/borrowhood/rto-engine/internal/notifier"
	"github.com/borrowhood/rto-engine/internal/processor"
	"github.com/borrowhood/rto-engine/internal/repository"
	rtoerrors "github.com/borrowhood/rto-engine/pkg/errors"
	"github.com/borrowhood/rto-engine/pkg/money"
)

// captureTrailTTL bounds how long the captured-but-unrecorded breadcrumb
// lives in Redis. Long enough for any sane retry or reconciliation window.
const captureTrailTTL = 7 * 24 * time.Hour

func captureTrailKey(idempotencyKey string) string {
	return fmt.Sprintf("rto:capture-trail:%s", idempotencyKey)
}

type paymentService struct {
	contractRepo repository.ContractRepository
	profileRepo  repository.ProfileRepository
	processor    processor.PaymentProcessor
	redis        *redis.Client
	notifier     notifier.Notifier
	config       *config.Config
	logger       *zap.Logger
}

func NewPaymentService(
	contractRepo repository.ContractRepository,
	profileRepo repository.ProfileRepository,
	proc processor.PaymentProcessor,
	redisClient *redis.Client,
	n notifier.Notifier,
	cfg *config.Config,
	logger *zap.Logger,
) PaymentService {
	return &paymentService{
		contractRepo: contractRepo,
		profileRepo:  profileRepo,
		processor:    proc,
		redis:        redisClient,
		notifier:     n,
		config:       cfg,
		logger:       logger,
	}
}

// MakePayment drives one payment end to end: claim the next pending payment,
// capture from the borrower, settle the ledger atomically, pay out the
// lender, notify. The ledger transaction never spans a processor call.
func (s *paymentService) MakePayment(ctx context.Context, contractID, payerID uuid.UUID) (*domain.PaymentResult, error) {
	contract, err := s.contractRepo.GetByID(ctx, contractID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, rtoerrors.WrapContractNotFound(contractID.String())
	}
	if err != nil {
		return nil, rtoerrors.WrapDatabaseError(err)
	}

	if contract.Status != domain.ContractStatusActive {
		return nil, rtoerrors.WrapContractNotActive(contractID.String(), contract.Status)
	}
	if contract.BorrowerID != payerID {
		return nil, rtoerrors.WrapNotBorrower(contractID.String())
	}

	payment, resumed, err := s.claimPayment(ctx, contract)
	if err != nil {
		return nil, err
	}

	key := payment.CaptureIdempotencyKey()

	capture, err := s.capture(ctx, contract, payment, key, resumed)
	if err != nil {
		return nil, err
	}

	if err := s.settle(ctx, contract, payment, capture); err != nil {
		return nil, err
	}

	completed := contract.Status == domain.ContractStatusCompleted

	s.payoutLender(ctx, contract, payment)
	s.notifySettlement(ctx, contract, payment, completed)

	return &domain.PaymentResult{
		PaymentID:         payment.ID,
		PaymentNumber:     payment.PaymentNumber,
		AmountCaptured:    payment.TotalAmount,
		AmountDisplay:     money.Format(payment.TotalAmount),
		PaymentsCompleted: contract.PaymentsCompleted,
		ContractStatus:    contract.Status,
		ContractCompleted: completed,
	}, nil
}

// claimPayment selects the payment to work on. A payment left in capturing
// by an earlier unknown-outcome attempt is resumed in preference to claiming
// a new one; otherwise the lowest-numbered pending payment is claimed with a
// conditional update so concurrent callers cannot both take it.
func (s *paymentService) claimPayment(ctx context.Context, contract *domain.Contract) (*domain.Payment, bool, error) {
	inFlight, err := s.contractRepo.GetCapturingPayment(ctx, contract.ID)
	if err != nil {
		return nil, false, rtoerrors.WrapDatabaseError(err)
	}
	if inFlight != nil {
		s.logger.Info("resuming in-flight payment",
			zap.String("contract_id", contract.ID.String()),
			zap.Int("payment_number", inFlight.PaymentNumber),
		)
		return inFlight, true, nil
	}

	payment, err := s.contractRepo.ClaimNextPending(ctx, contract.ID)
	if err != nil {
		return nil, false, rtoerrors.WrapDatabaseError(err)
	}
	if payment != nil {
		return payment, false, nil
	}

	// Nothing claimed: either the schedule is exhausted or a concurrent call
	// got there first.
	payments, err := s.contractRepo.GetPayments(ctx, contract.ID)
	if err != nil {
		return nil, false, rtoerrors.WrapDatabaseError(err)
	}
	for _, p := range payments {
		if p.Status == domain.PaymentStatusPending || p.Status == domain.PaymentStatusCapturing {
			return nil, false, rtoerrors.WrapPaymentInFlight(contract.ID.String(), p.PaymentNumber)
		}
	}
	return nil, false, rtoerrors.WrapNoPendingPayment(contract.ID.String())
}

// capture charges the borrower. On a resumed claim the processor is asked
// for the capture by idempotency key first so a charge that already landed
// is never re-issued.
func (s *paymentService) capture(ctx context.Context, contract *domain.Contract, payment *domain.Payment, key string, resumed bool) (*processor.Capture, error) {
	if resumed {
		capture, err := s.processor.GetCapture(ctx, key)
		if err != nil {
			return nil, rtoerrors.WrapCaptureUnknown(key, err)
		}
		if capture != nil {
			return capture, nil
		}
		// No capture on record: the earlier attempt never reached the
		// processor. Fall through and capture with the same key.
	}

	profile, err := s.profileRepo.GetByUserID(ctx, contract.BorrowerID)
	if errors.Is(err, sql.ErrNoRows) {
		s.releaseClaim(ctx, payment)
		return nil, rtoerrors.WrapPaymentMethodMissing(contract.BorrowerID.String())
	}
	if err != nil {
		return nil, rtoerrors.WrapDatabaseError(err)
	}

	// Breadcrumb before crossing the process boundary: if we crash between
	// capture and settlement, the trail plus the capturing row is enough for
	// a retry to finish the write without re-charging.
	if err := s.redis.Set(ctx, captureTrailKey(key), payment.ID.String(), captureTrailTTL).Err(); err != nil {
		s.logger.Warn("capture trail write failed", zap.Error(err))
	}

	capture, err := s.processor.Capture(ctx, payment.TotalAmount, profile.CustomerRef, key)
	if errors.Is(err, processor.ErrDeclined) {
		s.releaseClaim(ctx, payment)
		s.redis.Del(ctx, captureTrailKey(key))
		return nil, rtoerrors.WrapCaptureDeclined(key, err)
	}
	if err != nil {
		// Unknown outcome: the claim and the trail stay put so a retry can
		// reconcile with the same key.
		return nil, rtoerrors.WrapCaptureUnknown(key, err)
	}

	return capture, nil
}

// settle commits the atomic ledger unit: payment completed, contract
// counters advanced, and, when this was the final payment, the contract
// completed and listing ownership reassigned in the same transaction.
func (s *paymentService) settle(ctx context.Context, contract *domain.Contract, payment *domain.Payment, capture *processor.Capture) error {
	now := time.Now().UTC()
	payment.Status = domain.PaymentStatusCompleted
	payment.PaidAt = &now
	payment.CaptureRef = &capture.Ref

	nextDue, err := s.nextDueDate(ctx, contract.ID, payment.PaymentNumber)
	if err != nil {
		return rtoerrors.WrapLedgerWriteFailed(payment.CaptureIdempotencyKey(), err)
	}

	if err := contract.ApplyPayment(payment, nextDue); err != nil {
		return err
	}

	settlement := &repository.Settlement{
		Contract: contract,
		Payment:  payment,
	}

	if contract.PaymentsCompleted == contract.TotalPayments {
		if err := contract.Complete(now); err != nil {
			return err
		}
		settlement.CompleteContract = true
		settlement.NewOwnerID = contract.BorrowerID
	}

	if err := s.contractRepo.Settle(ctx, settlement); err != nil {
		// Money moved but the ledger write did not land. The capturing row
		// and the Redis trail remain; a retry resumes via the idempotency
		// key without re-capturing.
		s.logger.Error("ledger write failed after capture",
			zap.String("contract_id", contract.ID.String()),
			zap.Int("payment_number", payment.PaymentNumber),
			zap.String("capture_ref", capture.Ref),
			zap.Error(err),
		)
		return rtoerrors.WrapLedgerWriteFailed(payment.CaptureIdempotencyKey(), err)
	}

	s.redis.Del(ctx, captureTrailKey(payment.CaptureIdempotencyKey()))
	if err := s.redis.Del(ctx, contractCacheKey(contract.ID)).Err(); err != nil {
		s.logger.Warn("contract cache invalidation failed", zap.Error(err))
	}

	return nil
}

func (s *paymentService) nextDueDate(ctx context.Context, contractID uuid.UUID, currentNumber int) (*time.Time, error) {
	payments, err := s.contractRepo.GetPayments(ctx, contractID)
	if err != nil {
		return nil, err
	}
	for _, p := range payments {
		if p.PaymentNumber > currentNumber && p.Status == domain.PaymentStatusPending {
			due := p.DueDate
			return &due, nil
		}
	}
	return nil, nil
}

// payoutLender transfers the lender's share. Never fatal: the borrower's
// payment is already settled, so a failed or skipped transfer is recorded as
// a reconciliation item and the operation carries on.
func (s *paymentService) payoutLender(ctx context.Context, contract *domain.Contract, payment *domain.Payment) {
	profile, err := s.profileRepo.GetByUserID(ctx, contract.LenderID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		s.logger.Error("lender profile lookup failed, payout deferred",
			zap.String("contract_id", contract.ID.String()),
			zap.Int("payment_number", payment.PaymentNumber),
			zap.Error(err),
		)
		return
	}
	if profile == nil || profile.PayoutRef == nil {
		s.logger.Warn("lender has no payout destination, payout deferred",
			zap.String("contract_id", contract.ID.String()),
			zap.String("lender_id", contract.LenderID.String()),
			zap.Int("payment_number", payment.PaymentNumber),
			zap.Int64("lender_payout", payment.LenderPayout),
		)
		return
	}

	transfer, err := s.processor.Transfer(ctx, payment.LenderPayout, *profile.PayoutRef, payment.TransferIdempotencyKey())
	if err != nil {
		s.logger.Error("lender payout transfer failed, left for reconciliation",
			zap.String("contract_id", contract.ID.String()),
			zap.Int("payment_number", payment.PaymentNumber),
			zap.Int64("lender_payout", payment.LenderPayout),
			zap.Error(err),
		)
		return
	}

	payment.TransferRef = &transfer.Ref
	if err := s.contractRepo.RecordTransferRef(ctx, payment.ID, transfer.Ref); err != nil {
		s.logger.Error("recording transfer ref failed",
			zap.String("transfer_ref", transfer.Ref),
			zap.Error(err),
		)
	}
}

// notifySettlement runs strictly after the ledger transaction commits.
func (s *paymentService) notifySettlement(ctx context.Context, contract *domain.Contract, payment *domain.Payment, completed bool) {
	payload := map[string]interface{}{
		"contract_id":        contract.ID.String(),
		"payment_number":     payment.PaymentNumber,
		"amount":             money.Format(payment.TotalAmount),
		"payments_completed": contract.PaymentsCompleted,
		"total_payments":     contract.TotalPayments,
	}
	s.notifier.Notify(ctx, contract.BorrowerID, notifier.EventPaymentCompleted, payload)
	s.notifier.Notify(ctx, contract.LenderID, notifier.EventPaymentCompleted, payload)

	if completed {
		done := map[string]interface{}{
			"contract_id": contract.ID.String(),
			"listing_id":  contract.ListingID.String(),
			"new_owner":   contract.BorrowerID.String(),
		}
		s.notifier.Notify(ctx, contract.BorrowerID, notifier.EventContractCompleted, done)
		s.notifier.Notify(ctx, contract.LenderID, notifier.EventContractCompleted, done)
	}
}

func (s *paymentService) releaseClaim(ctx context.Context, payment *domain.Payment) {
	if err := s.contractRepo.ReleaseClaim(ctx, payment.ID); err != nil {
		s.logger.Error("releasing payment claim failed",
			zap.String("payment_id", payment.ID.String()),
			zap.Error(err),
		)
	}
}
