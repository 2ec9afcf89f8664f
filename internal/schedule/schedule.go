package schedule

import (
	"fmt"
	"time"

	"github.com/borrowhood/rto-engine/internal/domain"
	rtoerrors "github.com/borrowhood/rto-engine/pkg/errors"
	"github.com/borrowhood/rto-engine/pkg/money"
)

// MaxPayments caps schedule length; deployments may lower it via config but
// never raise it.
const MaxPayments = 36

// Terms are the inputs to schedule generation. PurchasePrice is integer
// minor units; PlatformFeeBps is the platform's cut in basis points.
type Terms struct {
	PurchasePrice   int64
	TotalPayments   int
	RentalCreditPct int
	Cadence         string
	FirstPaymentDue time.Time
	PlatformFeeBps  int64
}

// PaymentSpec is one generated obligation. The ledger materializes these as
// payment rows at contract creation.
type PaymentSpec struct {
	PaymentNumber int
	TotalAmount   int64
	EquityPortion int64
	RentalPortion int64
	PlatformFee   int64
	LenderPayout  int64
	DueDate       time.Time
}

// Generate produces the full ordered schedule for the given terms. Pure
// function: integer arithmetic only, half-up rounding, with the rounding
// remainder absorbed into the final payment so equity sums to the purchase
// price exactly.
func Generate(t Terms) ([]PaymentSpec, error) {
	if err := validate(t); err != nil {
		return nil, err
	}

	n := int64(t.TotalPayments)
	equityPer := t.PurchasePrice / n
	equityLast := t.PurchasePrice - equityPer*(n-1)

	specs := make([]PaymentSpec, 0, t.TotalPayments)
	due := t.FirstPaymentDue
	var equitySum int64

	for i := 1; i <= t.TotalPayments; i++ {
		equity := equityPer
		if i == t.TotalPayments {
			equity = equityLast
		}

		total := money.GrossFromPortion(equity, int64(t.RentalCreditPct))
		fee := money.BasisPoints(total, t.PlatformFeeBps)

		specs = append(specs, PaymentSpec{
			PaymentNumber: i,
			TotalAmount:   total,
			EquityPortion: equity,
			RentalPortion: total - equity,
			PlatformFee:   fee,
			LenderPayout:  total - fee,
			DueDate:       due,
		})

		equitySum += equity
		due = stepDue(due, t.Cadence)
	}

	if equitySum != t.PurchasePrice {
		return nil, rtoerrors.WrapInvalidTerms(fmt.Sprintf(
			"schedule equity %d does not reconcile to purchase price %d", equitySum, t.PurchasePrice))
	}

	return specs, nil
}

func validate(t Terms) error {
	switch {
	case t.PurchasePrice <= 0:
		return rtoerrors.WrapInvalidTerms("purchase price must be positive")
	case t.TotalPayments <= 0:
		return rtoerrors.WrapInvalidTerms("total payments must be positive")
	case t.TotalPayments > MaxPayments:
		return rtoerrors.WrapInvalidTerms(fmt.Sprintf("total payments must not exceed %d", MaxPayments))
	case t.RentalCreditPct <= 0 || t.RentalCreditPct > 100:
		return rtoerrors.WrapInvalidTerms("rental credit percent must be in (0, 100]")
	case t.PurchasePrice < int64(t.TotalPayments):
		return rtoerrors.WrapInvalidTerms("purchase price too small for payment count")
	case t.PlatformFeeBps < 0 || t.PlatformFeeBps >= 10000:
		return rtoerrors.WrapInvalidTerms("platform fee must be in [0, 10000) basis points")
	case t.FirstPaymentDue.IsZero():
		return rtoerrors.WrapInvalidTerms("first payment date is required")
	}

	switch t.Cadence {
	case domain.CadenceWeekly, domain.CadenceBiweekly, domain.CadenceMonthly:
	default:
		return rtoerrors.WrapInvalidTerms(fmt.Sprintf("unknown cadence %q", t.Cadence))
	}

	return nil
}

func stepDue(from time.Time, cadence string) time.Time {
	switch cadence {
	case domain.CadenceWeekly:
		return from.AddDate(0, 0, 7)
	case domain.CadenceBiweekly:
		return from.AddDate(0, 0, 14)
	default:
		return from.AddDate(0, 1, 0)
	}
}
