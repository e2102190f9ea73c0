package engine

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"library-borrow-engine/internal/models"
)

// FineCalculator derives the monetary penalty for a loan as of any instant.
// Lateness is billed per started hour past the due date.
type FineCalculator struct {
	RatePerHour decimal.Decimal
}

func NewFineCalculator(ratePerHour float64) FineCalculator {
	return FineCalculator{RatePerHour: decimal.NewFromFloat(ratePerHour)}
}

// ComputeFine returns ceil(hoursLate) * RatePerHour rounded to two decimal
// places, or zero when asOf is not past the due date. For a returned loan the
// frozen close-out fine is reproduced regardless of asOf, so historical fines
// never change.
func (c FineCalculator) ComputeFine(loan models.LoanRecord, asOf time.Time) decimal.Decimal {
	if loan.State == models.StateReturned {
		if frozen, ok := loan.Fine(); ok {
			return frozen
		}
		if loan.ReturnedAt != nil {
			asOf = *loan.ReturnedAt
		}
	}
	if loan.IssuedAt == nil || !asOf.After(loan.DueAt) {
		return decimal.Zero
	}
	hoursLate := math.Ceil(asOf.Sub(loan.DueAt).Hours())
	return c.RatePerHour.Mul(decimal.NewFromFloat(hoursLate)).Round(2)
}
