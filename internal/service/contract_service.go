package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/borrowhood/rto-engine/internal/config"
	"github.com/borrowhood/rto-engine/internal/domain"
	"github.com/borrowhood/rto-engine/internal/notifier"
	"github.com/borrowhood/rto-engine/internal/repository"
	"github.com/borrowhood/rto-engine/internal/schedule"
	rtoerrors "github.com/borrowhood/rto-engine/pkg/errors"
	"github.com/borrowhood/rto-engine/pkg/money"
)

func contractCacheKey(id uuid.UUID) string {
	return fmt.Sprintf("rto:contract:%s", id)
}

type contractService struct {
	contractRepo repository.ContractRepository
	listingRepo  repository.ListingRepository
	redis        *redis.Client
	notifier     notifier.Notifier
	config       *config.Config
	logger       *zap.Logger
}

func NewContractService(
	contractRepo repository.ContractRepository,
	listingRepo repository.ListingRepository,
	redisClient *redis.Client,
	n notifier.Notifier,
	cfg *config.Config,
	logger *zap.Logger,
) ContractService {
	return &contractService{
		contractRepo: contractRepo,
		listingRepo:  listingRepo,
		redis:        redisClient,
		notifier:     n,
		config:       cfg,
		logger:       logger,
	}
}

func (s *contractService) CreateContract(ctx context.Context, borrowerID uuid.UUID, req *domain.CreateContractRequest) (*domain.CreateContractResponse, error) {
	listingID, err := uuid.Parse(req.ListingID)
	if err != nil {
		return nil, rtoerrors.WrapInvalidTerms("listing_id must be a UUID")
	}

	firstDue, err := time.Parse("2006-01-02", req.FirstPaymentDate)
	if err != nil {
		return nil, rtoerrors.WrapInvalidTerms("first_payment_date must be YYYY-MM-DD")
	}

	listing, err := s.listingRepo.GetByID(ctx, listingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, rtoerrors.WrapListingNotFound(req.ListingID)
	}
	if err != nil {
		return nil, rtoerrors.WrapDatabaseError(err)
	}

	switch {
	case !listing.RTOEnabled:
		return nil, rtoerrors.WrapListingNotEligible(req.ListingID, "rent-to-own is not offered")
	case listing.OwnerID == borrowerID:
		return nil, rtoerrors.WrapListingNotEligible(req.ListingID, "cannot contract against your own listing")
	case listing.Status != domain.ListingStatusAvailable:
		return nil, rtoerrors.WrapListingNotEligible(req.ListingID, "listing is already encumbered")
	}

	if req.TotalPayments > s.config.Business.MaxPayments {
		return nil, rtoerrors.WrapInvalidTerms(fmt.Sprintf(
			"total payments must not exceed %d", s.config.Business.MaxPayments))
	}

	specs, err := schedule.Generate(schedule.Terms{
		PurchasePrice:   listing.PurchasePrice,
		TotalPayments:   req.TotalPayments,
		RentalCreditPct: listing.RentalCreditPct,
		Cadence:         req.Cadence,
		FirstPaymentDue: firstDue,
		PlatformFeeBps:  s.config.Business.PlatformFeeBps,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	nextDue := specs[0].DueDate

	contract := &domain.Contract{
		ID:               uuid.New(),
		ListingID:        listing.ID,
		BorrowerID:       borrowerID,
		LenderID:         listing.OwnerID,
		PurchasePrice:    listing.PurchasePrice,
		TotalPayments:    req.TotalPayments,
		RentalCreditPct:  listing.RentalCreditPct,
		Cadence:          req.Cadence,
		FirstPaymentDate: firstDue,
		PaymentAmount:    specs[0].TotalAmount,
		NextPaymentDate:  &nextDue,
		Status:           domain.ContractStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	payments := make([]*domain.Payment, 0, len(specs))
	for _, spec := range specs {
		payments = append(payments, &domain.Payment{
			ID:            uuid.New(),
			ContractID:    contract.ID,
			PaymentNumber: spec.PaymentNumber,
			TotalAmount:   spec.TotalAmount,
			EquityPortion: spec.EquityPortion,
			RentalPortion: spec.RentalPortion,
			PlatformFee:   spec.PlatformFee,
			LenderPayout:  spec.LenderPayout,
			DueDate:       spec.DueDate,
			Status:        domain.PaymentStatusPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}

	if err := s.contractRepo.CreateWithSchedule(ctx, contract, payments); err != nil {
		return nil, rtoerrors.WrapDatabaseError(err)
	}

	s.logger.Info("contract created",
		zap.String("contract_id", contract.ID.String()),
		zap.String("listing_id", listing.ID.String()),
		zap.Int("total_payments", contract.TotalPayments),
		zap.Int64("purchase_price", contract.PurchasePrice),
	)

	s.notifier.Notify(ctx, contract.LenderID, notifier.EventContractRequested, map[string]interface{}{
		"contract_id":    contract.ID.String(),
		"listing_id":     listing.ID.String(),
		"borrower_id":    borrowerID.String(),
		"payment_amount": money.Format(contract.PaymentAmount),
		"total_payments": contract.TotalPayments,
	})

	return &domain.CreateContractResponse{Contract: contract, Schedule: payments}, nil
}

func (s *contractService) ApproveContract(ctx context.Context, contractID, lenderID uuid.UUID) (*domain.Contract, error) {
	contract, err := s.getContract(ctx, contractID)
	if err != nil {
		return nil, err
	}

	if contract.LenderID != lenderID {
		return nil, rtoerrors.WrapNotLender(contractID.String())
	}

	if err := contract.Approve(time.Now().UTC()); err != nil {
		return nil, err
	}

	if err := s.contractRepo.Approve(ctx, contract); err != nil {
		return nil, rtoerrors.WrapDatabaseError(err)
	}

	s.invalidateCache(ctx, contractID)

	s.notifier.Notify(ctx, contract.BorrowerID, notifier.EventContractApproved, map[string]interface{}{
		"contract_id":       contract.ID.String(),
		"next_payment_date": contract.NextPaymentDate,
	})

	return contract, nil
}

func (s *contractService) DeclineContract(ctx context.Context, contractID, lenderID uuid.UUID, reason string) (*domain.Contract, error) {
	contract, err := s.getContract(ctx, contractID)
	if err != nil {
		return nil, err
	}

	if contract.LenderID != lenderID {
		return nil, rtoerrors.WrapNotLender(contractID.String())
	}

	if err := contract.Decline(lenderID, reason, time.Now().UTC()); err != nil {
		return nil, err
	}

	if err := s.contractRepo.Decline(ctx, contract); err != nil {
		return nil, rtoerrors.WrapDatabaseError(err)
	}

	s.invalidateCache(ctx, contractID)

	s.notifier.Notify(ctx, contract.BorrowerID, notifier.EventContractDeclined, map[string]interface{}{
		"contract_id": contract.ID.String(),
		"reason":      reason,
	})

	return contract, nil
}

func (s *contractService) CancelContract(ctx context.Context, contractID, callerID uuid.UUID, reason string) (*domain.Contract, error) {
	contract, err := s.getContract(ctx, contractID)
	if err != nil {
		return nil, err
	}

	if !contract.IsParty(callerID) {
		return nil, rtoerrors.WrapNotParty(contractID.String())
	}

	if err := contract.Cancel(callerID, reason, time.Now().UTC()); err != nil {
		return nil, err
	}

	if err := s.contractRepo.Cancel(ctx, contract); err != nil {
		return nil, rtoerrors.WrapDatabaseError(err)
	}

	s.invalidateCache(ctx, contractID)

	s.logger.Info("contract cancelled",
		zap.String("contract_id", contract.ID.String()),
		zap.String("cancelled_by", callerID.String()),
		zap.Int64("equity_retained", contract.EquityAccumulated),
	)

	// Tell the other party.
	counterparty := contract.LenderID
	if callerID == contract.LenderID {
		counterparty = contract.BorrowerID
	}
	s.notifier.Notify(ctx, counterparty, notifier.EventContractCancelled, map[string]interface{}{
		"contract_id":  contract.ID.String(),
		"cancelled_by": callerID.String(),
		"reason":       reason,
	})

	return contract, nil
}

func (s *contractService) GetContract(ctx context.Context, contractID, callerID uuid.UUID) (*domain.ContractView, error) {
	if view := s.cachedView(ctx, contractID); view != nil {
		if !view.Contract.IsParty(callerID) {
			return nil, rtoerrors.WrapNotParty(contractID.String())
		}
		return view, nil
	}

	contract, err := s.getContract(ctx, contractID)
	if err != nil {
		return nil, err
	}

	if !contract.IsParty(callerID) {
		return nil, rtoerrors.WrapNotParty(contractID.String())
	}

	payments, err := s.contractRepo.GetPayments(ctx, contractID)
	if err != nil {
		return nil, rtoerrors.WrapDatabaseError(err)
	}

	listing, err := s.listingRepo.GetByID(ctx, contract.ListingID)
	if err != nil {
		return nil, rtoerrors.WrapDatabaseError(err)
	}

	view := domain.NewContractView(contract, listing, payments)
	s.cacheView(ctx, contractID, view)

	return view, nil
}

func (s *contractService) getContract(ctx context.Context, contractID uuid.UUID) (*domain.Contract, error) {
	contract, err := s.contractRepo.GetByID(ctx, contractID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, rtoerrors.WrapContractNotFound(contractID.String())
	}
	if err != nil {
		return nil, rtoerrors.WrapDatabaseError(err)
	}
	return contract, nil
}

func (s *contractService) cachedView(ctx context.Context, contractID uuid.UUID) *domain.ContractView {
	raw, err := s.redis.Get(ctx, contractCacheKey(contractID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("contract cache read failed", zap.Error(err))
		}
		return nil
	}

	var view domain.ContractView
	if err := json.Unmarshal([]byte(raw), &view); err != nil {
		return nil
	}
	return &view
}

func (s *contractService) cacheView(ctx context.Context, contractID uuid.UUID, view *domain.ContractView) {
	raw, err := json.Marshal(view)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, contractCacheKey(contractID), raw, s.config.Business.ContractCacheTTL).Err(); err != nil {
		s.logger.Warn("contract cache write failed", zap.Error(err))
	}
}

func (s *contractService) invalidateCache(ctx context.Context, contractID uuid.UUID) {
	if err := s.redis.Del(ctx, contractCacheKey(contractID)).Err(); err != nil {
		s.logger.Warn("contract cache invalidation failed", zap.Error(err))
	}
}
