package entity

import "go.mongodb.org/mongo-driver/v2/bson"

// Movie is the slice of the movie document this service reads.
type Movie struct {
	ID    bson.ObjectID `bson:"_id" db:"id"`
	Title string        `bson:"title" db:"title"`
}
