package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type BaseNoDelete struct {
	ID        bson.ObjectID `bson:"_id" db:"id"`
	CreatedAt time.Time     `bson:"createdAt" db:"created_at"`
	UpdatedAt time.Time     `bson:"updatedAt" db:"updated_at"`
}
