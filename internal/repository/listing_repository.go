package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/borrowhood/rto-engine/internal/domain"
)

type listingRepository struct {
	db *sqlx.DB
}

func NewListingRepository(db *sqlx.DB) ListingRepository {
	return &listingRepository{db: db}
}

func (r *listingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	query := `
		SELECT id, owner_id, title, purchase_price, rental_credit_percent,
		       rto_enabled, status, created_at, updated_at
		FROM listings
		WHERE id = $1
	`

	var listing domain.Listing
	if err := r.db.GetContext(ctx, &listing, query, id); err != nil {
		return nil, err
	}

	return &listing, nil
}

type profileRepository struct {
	db *sqlx.DB
}

func NewProfileRepository(db *sqlx.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.PaymentProfile, error) {
	query := `
		SELECT user_id, customer_ref, payout_ref, created_at, updated_at
		FROM payment_profiles
		WHERE user_id = $1
	`

	var profile domain.PaymentProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		return nil, err
	}

	return &profile, nil
}
