package utils

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"library-borrow-engine/internal/models"
)

type Logger struct {
	Collection *mongo.Collection
	// Performer is recorded on every entry; empty means the service itself.
	Performer string
}

func (l *Logger) Log(ctx context.Context, entity, action string, data any) error {
	performer := l.Performer
	if performer == "" {
		performer = "system"
	}
	log := models.AuditLog{
		Timestamp:   time.Now(),
		Entity:      entity,
		Action:      action,
		PerformedBy: performer,
		Data:        data,
	}
	_, err := l.Collection.InsertOne(ctx, log)
	return err
}
