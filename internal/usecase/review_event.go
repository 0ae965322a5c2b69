package usecase

import (
	"time"

	"movie-reviews/internal/data/entity"
)

// EventType doubles as the routing key on the review exchange.
type EventType string

const (
	EventReviewCreated EventType = "review.created"
	EventReviewUpdated EventType = "review.updated"
	EventReviewReacted EventType = "review.reacted"
	EventReviewDeleted EventType = "review.deleted"
)

type ReviewEvent struct {
	Type         EventType `json:"type"`
	ReviewID     string    `json:"reviewId"`
	MovieID      string    `json:"movieId,omitempty"`
	UserID       string    `json:"userId,omitempty"`
	LikeCount    int       `json:"likeCount"`
	DislikeCount int       `json:"dislikeCount"`
	Version      int       `json:"version"`
	OccurredAt   time.Time `json:"occurredAt"`
}

func NewReviewEvent(eventType EventType, review *entity.Review, at time.Time) ReviewEvent {
	event := ReviewEvent{
		Type:         eventType,
		ReviewID:     review.ID.Hex(),
		LikeCount:    review.LikeCount,
		DislikeCount: review.DislikeCount,
		Version:      review.Version,
		OccurredAt:   at.UTC(),
	}
	// a deleted review is only known by id
	if !review.MovieID.IsZero() {
		event.MovieID = review.MovieID.Hex()
	}
	if !review.UserID.IsZero() {
		event.UserID = review.UserID.Hex()
	}
	return event
}
