package entity

import (
	"go.mongodb.org/mongo-driver/v2/bson"
)

type Review struct {
	BaseNoDelete `bson:",inline"`
	Description  string        `bson:"description" db:"description"`
	UserID       bson.ObjectID `bson:"user" db:"user_id"`
	MovieID      bson.ObjectID `bson:"movie" db:"movie_id"`
	LikeCount    int           `bson:"likeCount" db:"like_count"`
	DislikeCount int           `bson:"dislikeCount" db:"dislike_count"`
	Version      int           `bson:"version" db:"version"`
}

// ReviewDetail is a review with its references resolved to display labels.
// Labels stay empty when the referenced document does not exist.
type ReviewDetail struct {
	Review     `bson:",inline"`
	UserName   string `bson:"userName,omitempty"`
	MovieTitle string `bson:"movieTitle,omitempty"`
}

// ReviewPatch carries only the fields a caller asked to change. A nil
// field keeps the stored value. Version, when set, must equal the stored
// version for the patch to apply.
type ReviewPatch struct {
	Description  *string
	LikeCount    *int
	DislikeCount *int
	Version      *int
}

type Reaction string

const (
	ReactionLike    Reaction = "like"
	ReactionDislike Reaction = "dislike"
)

func (r Reaction) Valid() bool {
	return r == ReactionLike || r == ReactionDislike
}
