package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Title struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name       string             `bson:"name" json:"name"`
	Categories []string           `bson:"categories" json:"categories"`
	Available  int                `bson:"available" json:"available"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}

const (
	TitleEntity = "title"
)
