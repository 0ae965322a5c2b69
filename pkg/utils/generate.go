package utils

import (
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// ==================== IDENTIFIERS ====================

// NewID returns a fresh store identifier.
func NewID() bson.ObjectID {
	return bson.NewObjectID()
}

func GenerateRequestID() string {
	return uuid.New().String()
}
