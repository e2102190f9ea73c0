package engine

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"library-borrow-engine/internal/models"
)

// IssueMode selects how RequestLoan advances a new record: parked in
// REQUESTED for librarian approval, or issued on the spot for self-service.
type IssueMode int

const (
	IssueOnApproval IssueMode = iota
	IssueImmediately
)

// LifecycleController orchestrates request, approval, rejection and return.
// It owns every mutation of the loan ledger and of title availability; the
// availability check-and-decrement is a single conditional update so two
// requests racing for the last copy cannot both win.
type LifecycleController struct {
	TitleCol    *mongo.Collection
	PatronCol   *mongo.Collection
	LoanCol     *mongo.Collection
	Advisor     *ReservationAdvisor
	Eligibility EligibilityEvaluator
	Fines       FineCalculator
	Now         func() time.Time
	Config      struct {
		LoanPeriodDays int
	}
}

func (c *LifecycleController) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// borrowingSummary assembles what the eligibility rules need: credential
// status from the patron record, loan counts from the ledger. Overdue is a
// read-time derivation, so it is counted by due date rather than by a stored
// flag.
func (c *LifecycleController) borrowingSummary(ctx context.Context, patronID primitive.ObjectID, now time.Time) (models.BorrowingSummary, error) {
	var patron models.Patron
	if err := c.PatronCol.FindOne(ctx, bson.M{"_id": patronID}).Decode(&patron); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.BorrowingSummary{}, nil
		}
		return models.BorrowingSummary{}, storeErr(err)
	}

	active, err := c.LoanCol.CountDocuments(ctx, bson.M{
		"patron_id": patronID,
		"state":     models.StateActive,
	})
	if err != nil {
		return models.BorrowingSummary{}, storeErr(err)
	}

	overdue, err := c.LoanCol.CountDocuments(ctx, bson.M{
		"patron_id": patronID,
		"state":     models.StateActive,
		"due_at":    bson.M{"$lt": now},
	})
	if err != nil {
		return models.BorrowingSummary{}, storeErr(err)
	}

	return models.BorrowingSummary{
		HasCredential: patron.HasCredential(),
		ActiveLoans:   int(active),
		HasOverdue:    overdue > 0,
	}, nil
}

// claimCopy decrements availability only while at least one copy remains.
func (c *LifecycleController) claimCopy(ctx context.Context, titleID primitive.ObjectID) error {
	res, err := c.TitleCol.UpdateOne(ctx,
		bson.M{"_id": titleID, "available": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"available": -1}},
	)
	if err != nil {
		return storeErr(err)
	}
	if res.MatchedCount == 0 {
		return ErrTitleUnavailable
	}
	return nil
}

func (c *LifecycleController) releaseCopy(ctx context.Context, titleID primitive.ObjectID) error {
	_, err := c.TitleCol.UpdateOne(ctx,
		bson.M{"_id": titleID},
		bson.M{"$inc": bson.M{"available": 1}},
	)
	if err != nil {
		return storeErr(err)
	}
	return nil
}

// unavailable handles the zero-copies outcome: gather substitutes, record the
// patron's intent, and hand both back with ErrTitleUnavailable.
func (c *LifecycleController) unavailable(ctx context.Context, patronID, titleID primitive.ObjectID) ([]models.Title, error) {
	alternates, err := c.Advisor.Suggest(ctx, titleID)
	if err != nil {
		return nil, err
	}
	if _, err := c.Advisor.RecordIntent(ctx, patronID, titleID); err != nil {
		return nil, err
	}
	return alternates, ErrTitleUnavailable
}

// RequestLoan creates a new ledger entry for an eligible patron. When the
// title has no available copies, no record is created; substitutes come back
// alongside ErrTitleUnavailable.
func (c *LifecycleController) RequestLoan(ctx context.Context, patronID, titleID primitive.ObjectID, mode IssueMode) (models.LoanRecord, []models.Title, error) {
	now := c.now()

	var title models.Title
	if err := c.TitleCol.FindOne(ctx, bson.M{"_id": titleID}).Decode(&title); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.LoanRecord{}, nil, ErrTitleNotFound
		}
		return models.LoanRecord{}, nil, storeErr(err)
	}

	summary, err := c.borrowingSummary(ctx, patronID, now)
	if err != nil {
		return models.LoanRecord{}, nil, err
	}
	if err := c.Eligibility.Evaluate(summary); err != nil {
		return models.LoanRecord{}, nil, err
	}

	if title.Available <= 0 {
		alternates, err := c.unavailable(ctx, patronID, titleID)
		return models.LoanRecord{}, alternates, err
	}

	loan := models.LoanRecord{
		ID:          primitive.NewObjectID(),
		TitleID:     titleID,
		PatronID:    patronID,
		RequestedAt: now,
		State:       models.StateRequested,
	}

	if mode == IssueImmediately {
		if err := c.claimCopy(ctx, titleID); err != nil {
			if errors.Is(err, ErrTitleUnavailable) {
				// Lost the race for the last copy since the read above.
				alternates, err := c.unavailable(ctx, patronID, titleID)
				return models.LoanRecord{}, alternates, err
			}
			return models.LoanRecord{}, nil, err
		}
		issued := now
		loan.IssuedAt = &issued
		loan.DueAt = now.AddDate(0, 0, c.Config.LoanPeriodDays)
		loan.State = models.StateActive
	}

	if _, err := c.LoanCol.InsertOne(ctx, loan); err != nil {
		if mode == IssueImmediately {
			_ = c.releaseCopy(ctx, titleID)
		}
		return models.LoanRecord{}, nil, storeErr(err)
	}
	return loan, nil, nil
}

// ApproveLoan moves a REQUESTED record to ACTIVE, stamping issue and due
// dates and taking a copy. The state flip is conditional on the record still
// being REQUESTED; a lost race undoes the claimed copy.
func (c *LifecycleController) ApproveLoan(ctx context.Context, loanID primitive.ObjectID) (models.LoanRecord, error) {
	now := c.now()

	loan, err := c.loadLoan(ctx, loanID)
	if err != nil {
		return models.LoanRecord{}, err
	}
	if loan.State != models.StateRequested {
		return models.LoanRecord{}, ErrInvalidStateTransition
	}

	if err := c.claimCopy(ctx, loan.TitleID); err != nil {
		return models.LoanRecord{}, err
	}

	dueAt := now.AddDate(0, 0, c.Config.LoanPeriodDays)
	res, err := c.LoanCol.UpdateOne(ctx,
		bson.M{"_id": loanID, "state": models.StateRequested},
		bson.M{"$set": bson.M{
			"state":     models.StateActive,
			"issued_at": now,
			"due_at":    dueAt,
		}},
	)
	if err != nil {
		_ = c.releaseCopy(ctx, loan.TitleID)
		return models.LoanRecord{}, storeErr(err)
	}
	if res.MatchedCount == 0 {
		_ = c.releaseCopy(ctx, loan.TitleID)
		return models.LoanRecord{}, ErrInvalidStateTransition
	}

	loan.State = models.StateActive
	loan.IssuedAt = &now
	loan.DueAt = dueAt
	return loan, nil
}

// RejectLoan declines a REQUESTED record. Availability never changed for a
// requested loan, so none is restored.
func (c *LifecycleController) RejectLoan(ctx context.Context, loanID primitive.ObjectID) (models.LoanRecord, error) {
	loan, err := c.loadLoan(ctx, loanID)
	if err != nil {
		return models.LoanRecord{}, err
	}
	if loan.State != models.StateRequested {
		return models.LoanRecord{}, ErrInvalidStateTransition
	}

	res, err := c.LoanCol.UpdateOne(ctx,
		bson.M{"_id": loanID, "state": models.StateRequested},
		bson.M{"$set": bson.M{"state": models.StateRejected}},
	)
	if err != nil {
		return models.LoanRecord{}, storeErr(err)
	}
	if res.MatchedCount == 0 {
		return models.LoanRecord{}, ErrInvalidStateTransition
	}

	loan.State = models.StateRejected
	return loan, nil
}

// ReturnLoan closes an ACTIVE (possibly overdue) record: freezes the fine as
// of now, stamps the return, and puts the copy back. If restoring
// availability fails the close is rolled back so no partial state survives.
func (c *LifecycleController) ReturnLoan(ctx context.Context, loanID primitive.ObjectID) (models.LoanRecord, error) {
	now := c.now()

	loan, err := c.loadLoan(ctx, loanID)
	if err != nil {
		return models.LoanRecord{}, err
	}
	if loan.State != models.StateActive {
		return models.LoanRecord{}, ErrInvalidStateTransition
	}

	fine := c.Fines.ComputeFine(loan, now)

	res, err := c.LoanCol.UpdateOne(ctx,
		bson.M{"_id": loanID, "state": models.StateActive},
		bson.M{"$set": bson.M{
			"state":         models.StateReturned,
			"returned_at":   now,
			"fine_at_close": fine.StringFixed(2),
		}},
	)
	if err != nil {
		return models.LoanRecord{}, storeErr(err)
	}
	if res.MatchedCount == 0 {
		return models.LoanRecord{}, ErrInvalidStateTransition
	}

	if err := c.releaseCopy(ctx, loan.TitleID); err != nil {
		_, _ = c.LoanCol.UpdateOne(ctx,
			bson.M{"_id": loanID},
			bson.M{
				"$set":   bson.M{"state": models.StateActive},
				"$unset": bson.M{"returned_at": "", "fine_at_close": ""},
			},
		)
		return models.LoanRecord{}, err
	}

	loan.State = models.StateReturned
	loan.ReturnedAt = &now
	loan.SetFine(fine)
	return loan, nil
}

func (c *LifecycleController) loadLoan(ctx context.Context, loanID primitive.ObjectID) (models.LoanRecord, error) {
	var loan models.LoanRecord
	if err := c.LoanCol.FindOne(ctx, bson.M{"_id": loanID}).Decode(&loan); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.LoanRecord{}, ErrInvalidStateTransition
		}
		return models.LoanRecord{}, storeErr(err)
	}
	return loan, nil
}
