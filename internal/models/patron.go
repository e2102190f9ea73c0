package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Patron struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name       string             `bson:"name" json:"name"`
	Email      string             `bson:"email" json:"email"`
	Phone      string             `bson:"phone" json:"phone"`
	CardNumber string             `bson:"card_number" json:"card_number"`
	Active     bool               `bson:"active" json:"active"` // For deactivation
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}

const (
	PatronEntity = "patron"
)

// HasCredential reports whether the patron holds a usable membership card.
func (p Patron) HasCredential() bool {
	return p.Active && p.CardNumber != ""
}

// BorrowingSummary is what eligibility decisions are made from: the patron's
// credential status plus aggregate counts derived from the loan ledger.
type BorrowingSummary struct {
	HasCredential bool `json:"has_credential"`
	ActiveLoans   int  `json:"active_loans"`
	HasOverdue    bool `json:"has_overdue"`
}
