package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type LoanState string

const (
	StateRequested LoanState = "REQUESTED"
	StateActive    LoanState = "ACTIVE"
	StateOverdue   LoanState = "OVERDUE" // derived at read time, never stored
	StateReturned  LoanState = "RETURNED"
	StateRejected  LoanState = "REJECTED"

	LoanEntity = "loan"
)

type LoanRecord struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TitleID     primitive.ObjectID `bson:"title_id" json:"title_id"`
	PatronID    primitive.ObjectID `bson:"patron_id" json:"patron_id"`
	RequestedAt time.Time          `bson:"requested_at" json:"requested_at"`
	IssuedAt    *time.Time         `bson:"issued_at,omitempty" json:"issued_at,omitempty"`
	DueAt       time.Time          `bson:"due_at,omitempty" json:"due_at,omitempty"`
	ReturnedAt  *time.Time         `bson:"returned_at,omitempty" json:"returned_at,omitempty"`
	State       LoanState          `bson:"state" json:"state"`
	FineAtClose *string            `bson:"fine_at_close,omitempty" json:"fine_at_close,omitempty"`
}

var StoredLoanStates = map[string]bool{
	string(StateRequested): true,
	string(StateActive):    true,
	string(StateReturned):  true,
	string(StateRejected):  true,
}

func IsStoredLoanState(state string) bool {
	return StoredLoanStates[state]
}

// StateAt derives the effective state as of now. An active loan past its due
// date reads as OVERDUE; nothing is written back.
func (l LoanRecord) StateAt(now time.Time) LoanState {
	if l.State == StateActive && l.ReturnedAt == nil && now.After(l.DueAt) {
		return StateOverdue
	}
	return l.State
}

// Fine returns the frozen close-out fine, if one has been recorded.
func (l LoanRecord) Fine() (decimal.Decimal, bool) {
	if l.FineAtClose == nil {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(*l.FineAtClose)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func (l *LoanRecord) SetFine(d decimal.Decimal) {
	s := d.StringFixed(2)
	l.FineAtClose = &s
}
