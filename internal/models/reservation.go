package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReservationIntent records patron interest in a title that had no copies at
// request time. It is informational only: no copy is held and no allocation
// priority is promised.
type ReservationIntent struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PatronID  primitive.ObjectID `bson:"patron_id" json:"patron_id"`
	TitleID   primitive.ObjectID `bson:"title_id" json:"title_id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

const (
	IntentEntity = "reservation_intent"
)
