package engine

import (
	"library-borrow-engine/internal/models"
)

// EligibilityEvaluator decides whether a patron may receive a new loan. It is
// a pure function of the borrowing summary; the first failing rule wins.
type EligibilityEvaluator struct {
	MaxActiveLoans int
}

func (e EligibilityEvaluator) Evaluate(summary models.BorrowingSummary) error {
	if !summary.HasCredential {
		return ErrNoCredential
	}
	if summary.ActiveLoans >= e.MaxActiveLoans {
		return ErrLoanLimitReached
	}
	if summary.HasOverdue {
		return ErrHasOverdueLoan
	}
	return nil
}
