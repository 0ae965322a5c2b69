package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"movie-reviews/internal/data/entity"
	"movie-reviews/pkg/utils"

	"go.mongodb.org/mongo-driver/v2/bson"
)

var (
	ErrNotFound        = errors.New("review not found")
	ErrVersionConflict = errors.New("review version conflict")
)

// ValidationError is returned when a document breaks the review schema.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + utils.FormatValidationErrors(e.Fields)
}

type ReviewRepository interface {
	Create(ctx context.Context, review *entity.Review) error
	FindAll(ctx context.Context) ([]*entity.ReviewDetail, error)
	FindByMovieID(ctx context.Context, movieID bson.ObjectID) ([]*entity.ReviewDetail, error)
	FindByID(ctx context.Context, id bson.ObjectID) (*entity.ReviewDetail, error)
	UpdateByID(ctx context.Context, id bson.ObjectID, patch entity.ReviewPatch, now time.Time) (*entity.Review, error)
	IncrementReaction(ctx context.Context, id bson.ObjectID, reaction entity.Reaction, now time.Time) (*entity.Review, error)
	DeleteByID(ctx context.Context, id bson.ObjectID) error
}

// ReferenceRepository answers existence questions about the documents a
// review points at.
type ReferenceRepository interface {
	UserExists(ctx context.Context, id bson.ObjectID) (bool, error)
	MovieExists(ctx context.Context, id bson.ObjectID) (bool, error)
}

const defaultDescriptionMax = 2000

// schema holds the review document rules shared by every backend.
type schema struct {
	descriptionMax int
}

func newSchema(cfg utils.ReviewConfig) schema {
	limit := cfg.DescriptionMax
	if limit <= 0 {
		limit = defaultDescriptionMax
	}
	return schema{descriptionMax: limit}
}

// prepareCreate validates review and stamps the store-owned fields.
func (s schema) prepareCreate(review *entity.Review, now time.Time) error {
	if errs := utils.ValidateVar("description", review.Description,
		fmt.Sprintf("required,max=%d", s.descriptionMax)); len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}

	now = storeTime(now)
	review.ID = utils.NewID()
	review.CreatedAt = now
	review.UpdatedAt = now
	review.LikeCount = 0
	review.DislikeCount = 0
	review.Version = 0
	return nil
}

func (s schema) validatePatch(patch entity.ReviewPatch) error {
	if patch.Description == nil {
		return nil
	}
	if errs := utils.ValidateVar("description", *patch.Description,
		fmt.Sprintf("required,max=%d", s.descriptionMax)); len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// storeTime truncates to the millisecond precision of BSON dates so
// every backend hands back identical timestamps.
func storeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// nextUpdatedAt keeps updatedAt strictly increasing even when two writes
// land in the same millisecond.
func nextUpdatedAt(prev, now time.Time) time.Time {
	now = storeTime(now)
	if floor := prev.Add(time.Millisecond); now.Before(floor) {
		return floor
	}
	return now
}
