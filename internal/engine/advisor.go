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

// ReservationAdvisor steps in when a requested title has no copies: it
// proposes available substitutes from the same categories and records a
// non-binding reservation intent.
type ReservationAdvisor struct {
	TitleCol  *mongo.Collection
	IntentCol *mongo.Collection
	Now       func() time.Time
}

func (a *ReservationAdvisor) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// Suggest returns all titles sharing at least one category with the requested
// title that currently have copies available, excluding the title itself.
func (a *ReservationAdvisor) Suggest(ctx context.Context, titleID primitive.ObjectID) ([]models.Title, error) {
	var requested models.Title
	if err := a.TitleCol.FindOne(ctx, bson.M{"_id": titleID}).Decode(&requested); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTitleNotFound
		}
		return nil, storeErr(err)
	}
	if len(requested.Categories) == 0 {
		return nil, nil
	}

	cursor, err := a.TitleCol.Find(ctx, bson.M{
		"_id":        bson.M{"$ne": titleID},
		"categories": bson.M{"$in": requested.Categories},
		"available":  bson.M{"$gt": 0},
	})
	if err != nil {
		return nil, storeErr(err)
	}
	defer cursor.Close(ctx)

	var alternates []models.Title
	if err := cursor.All(ctx, &alternates); err != nil {
		return nil, storeErr(err)
	}
	return alternates, nil
}

// RecordIntent appends a reservation intent. No copy is held and availability
// is untouched.
func (a *ReservationAdvisor) RecordIntent(ctx context.Context, patronID, titleID primitive.ObjectID) (models.ReservationIntent, error) {
	intent := models.ReservationIntent{
		ID:        primitive.NewObjectID(),
		PatronID:  patronID,
		TitleID:   titleID,
		CreatedAt: a.now(),
	}
	if _, err := a.IntentCol.InsertOne(ctx, intent); err != nil {
		return models.ReservationIntent{}, storeErr(err)
	}
	return intent, nil
}
