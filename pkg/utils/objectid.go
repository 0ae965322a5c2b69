package utils

import (
	"go.mongodb.org/mongo-driver/v2/bson"
)

// IsValidID reports whether s is a well-formed entity identifier:
// exactly 24 hexadecimal characters.
func IsValidID(s string) bool {
	_, ok := ParseID(s)
	return ok
}

// ParseID converts a hex identifier into an ObjectID.
func ParseID(s string) (bson.ObjectID, bool) {
	id, err := bson.ObjectIDFromHex(s)
	if err != nil {
		return bson.NilObjectID, false
	}
	return id, true
}
