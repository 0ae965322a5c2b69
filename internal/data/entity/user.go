package entity

import "go.mongodb.org/mongo-driver/v2/bson"

// User is the slice of the user document this service reads.
type User struct {
	ID       bson.ObjectID `bson:"_id" db:"id"`
	UserName string        `bson:"userName" db:"user_name"`
}
