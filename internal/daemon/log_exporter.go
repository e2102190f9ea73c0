package daemon

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"library-borrow-engine/internal/models"
	"library-borrow-engine/internal/utils"
)

const exportInterval = 30 * time.Second

// LogExporter drains unexported audit entries in the background and marks
// them exported.
type LogExporter struct {
	Coll *mongo.Collection
}

func (l *LogExporter) InitLogExporter() {
	go func() {
		for {
			l.exportPending()
			time.Sleep(exportInterval)
		}
	}()
}

func (l *LogExporter) exportPending() {
	ctx := context.Background()

	res, err := l.Coll.Find(ctx, bson.M{"exported": false})
	if err != nil {
		return
	}

	var logs []models.AuditLog
	if err := res.All(ctx, &logs); err != nil || len(logs) == 0 {
		return
	}

	if err := utils.ExportData(logs); err != nil {
		return
	}

	updateIds := make([]primitive.ObjectID, 0, len(logs))
	for _, entry := range logs {
		updateIds = append(updateIds, entry.ID)
	}
	l.Coll.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": updateIds}},
		bson.M{"$set": bson.M{"exported": true}},
	)
}
