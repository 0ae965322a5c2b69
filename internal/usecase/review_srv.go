package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"movie-reviews/internal/data/entity"
	"movie-reviews/internal/data/repository"
	"movie-reviews/internal/dto/request"
	"movie-reviews/internal/dto/response"
	"movie-reviews/pkg/broker"
	"movie-reviews/pkg/utils"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
)

var (
	ErrInvalidID     = errors.New("invalid identifier")
	ErrUserNotFound  = errors.New("user not found")
	ErrMovieNotFound = errors.New("movie not found")

	ErrReviewNotFound  = repository.ErrNotFound
	ErrVersionConflict = repository.ErrVersionConflict
)

// ValidationError reports review fields rejected by the store schema.
type ValidationError = repository.ValidationError

type ReviewService interface {
	CreateReview(ctx context.Context, req *request.CreateReviewRequest) (*response.ReviewResponse, error)
	ListReviews(ctx context.Context) ([]response.ReviewResponse, error)
	ListMovieReviews(ctx context.Context, movieID string) ([]response.ReviewResponse, error)
	GetReview(ctx context.Context, reviewID string) (*response.ReviewResponse, error)
	UpdateReview(ctx context.Context, reviewID string, req *request.UpdateReviewRequest) (*response.ReviewResponse, error)
	ReactToReview(ctx context.Context, reviewID string, reaction entity.Reaction) (*response.ReviewResponse, error)
	DeleteReview(ctx context.Context, reviewID string) error
}

type reviewService struct {
	reviews         repository.ReviewRepository
	references      repository.ReferenceRepository
	publisher       broker.Publisher
	checkReferences bool
	now             func() time.Time
	log             *zap.Logger
}

func NewReviewService(repo *repository.Repository, publisher broker.Publisher, cfg utils.ReviewConfig, log *zap.Logger) ReviewService {
	if publisher == nil {
		publisher = broker.NopPublisher{}
	}
	return &reviewService{
		reviews:         repo.Review,
		references:      repo.Reference,
		publisher:       publisher,
		checkReferences: cfg.CheckReferences,
		now:             time.Now,
		log:             log.With(zap.String("service", "review")),
	}
}

func (s *reviewService) CreateReview(ctx context.Context, req *request.CreateReviewRequest) (*response.ReviewResponse, error) {
	userID, err := parseID("user", req.User)
	if err != nil {
		return nil, err
	}
	movieID, err := parseID("movie", req.Movie)
	if err != nil {
		return nil, err
	}

	if s.checkReferences {
		if err := s.ensureReferences(ctx, userID, movieID); err != nil {
			return nil, err
		}
	}

	review := &entity.Review{
		Description: req.Description,
		UserID:      userID,
		MovieID:     movieID,
	}

	if err := s.reviews.Create(ctx, review); err != nil {
		var validationErr *repository.ValidationError
		if errors.As(err, &validationErr) {
			s.log.Warn("Create review validation failed", zap.Any("errors", validationErr.Fields))
		} else {
			s.log.Error("Failed to create review",
				zap.Error(err),
				zap.String("user_id", req.User),
				zap.String("movie_id", req.Movie),
			)
		}
		return nil, fmt.Errorf("create review: %w", err)
	}

	s.log.Info("Review created",
		zap.String("review_id", review.ID.Hex()),
		zap.String("user_id", req.User),
		zap.String("movie_id", req.Movie),
	)
	s.publish(ctx, EventReviewCreated, review)

	resp := response.ReviewToResponse(review)
	return &resp, nil
}

func (s *reviewService) ListReviews(ctx context.Context) ([]response.ReviewResponse, error) {
	reviews, err := s.reviews.FindAll(ctx)
	if err != nil {
		s.log.Error("Failed to list reviews", zap.Error(err))
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	s.log.Debug("Reviews retrieved", zap.Int("count", len(reviews)))
	return response.ReviewDetailsToResponse(reviews), nil
}

func (s *reviewService) ListMovieReviews(ctx context.Context, movieID string) ([]response.ReviewResponse, error) {
	movieOID, err := parseID("movie", movieID)
	if err != nil {
		return nil, err
	}

	reviews, err := s.reviews.FindByMovieID(ctx, movieOID)
	if err != nil {
		s.log.Error("Failed to get movie reviews",
			zap.Error(err),
			zap.String("movie_id", movieID),
		)
		return nil, fmt.Errorf("get movie reviews: %w", err)
	}

	s.log.Debug("Movie reviews retrieved",
		zap.String("movie_id", movieID),
		zap.Int("count", len(reviews)),
	)
	return response.ReviewDetailsToResponse(reviews), nil
}

func (s *reviewService) GetReview(ctx context.Context, reviewID string) (*response.ReviewResponse, error) {
	id, err := parseID("review", reviewID)
	if err != nil {
		return nil, err
	}

	review, err := s.reviews.FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Error("Failed to get review",
				zap.Error(err),
				zap.String("review_id", reviewID),
			)
		}
		return nil, fmt.Errorf("get review %s: %w", reviewID, err)
	}

	resp := response.ReviewDetailToResponse(review)
	return &resp, nil
}

func (s *reviewService) UpdateReview(ctx context.Context, reviewID string, req *request.UpdateReviewRequest) (*response.ReviewResponse, error) {
	id, err := parseID("review", reviewID)
	if err != nil {
		return nil, err
	}

	patch := entity.ReviewPatch{
		LikeCount:    req.LikeCount,
		DislikeCount: req.DislikeCount,
		Version:      req.Version,
	}
	// an empty description means "unchanged", never "clear"
	if req.Description != nil && *req.Description != "" {
		patch.Description = req.Description
	}

	review, err := s.reviews.UpdateByID(ctx, id, patch, s.now())
	if err != nil {
		if !isClientError(err) {
			s.log.Error("Failed to update review",
				zap.Error(err),
				zap.String("review_id", reviewID),
			)
		}
		return nil, fmt.Errorf("update review %s: %w", reviewID, err)
	}

	s.log.Info("Review updated",
		zap.String("review_id", reviewID),
		zap.Int("version", review.Version),
	)
	s.publish(ctx, EventReviewUpdated, review)

	resp := response.ReviewToResponse(review)
	return &resp, nil
}

func (s *reviewService) ReactToReview(ctx context.Context, reviewID string, reaction entity.Reaction) (*response.ReviewResponse, error) {
	id, err := parseID("review", reviewID)
	if err != nil {
		return nil, err
	}
	if !reaction.Valid() {
		return nil, fmt.Errorf("unknown reaction %q", reaction)
	}

	review, err := s.reviews.IncrementReaction(ctx, id, reaction, s.now())
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Error("Failed to react to review",
				zap.Error(err),
				zap.String("review_id", reviewID),
				zap.String("reaction", string(reaction)),
			)
		}
		return nil, fmt.Errorf("%s review %s: %w", reaction, reviewID, err)
	}

	s.log.Info("Review reaction recorded",
		zap.String("review_id", reviewID),
		zap.String("reaction", string(reaction)),
		zap.Int("like_count", review.LikeCount),
		zap.Int("dislike_count", review.DislikeCount),
	)
	s.publish(ctx, EventReviewReacted, review)

	resp := response.ReviewToResponse(review)
	return &resp, nil
}

// DeleteReview succeeds whether or not the review existed.
func (s *reviewService) DeleteReview(ctx context.Context, reviewID string) error {
	id, err := parseID("review", reviewID)
	if err != nil {
		return err
	}

	if err := s.reviews.DeleteByID(ctx, id); err != nil {
		s.log.Error("Failed to delete review",
			zap.Error(err),
			zap.String("review_id", reviewID),
		)
		return fmt.Errorf("delete review %s: %w", reviewID, err)
	}

	s.log.Info("Review deleted", zap.String("review_id", reviewID))
	s.publish(ctx, EventReviewDeleted, &entity.Review{BaseNoDelete: entity.BaseNoDelete{ID: id}})

	return nil
}

// ==================== HELPER METHODS ====================

func (s *reviewService) ensureReferences(ctx context.Context, userID, movieID bson.ObjectID) error {
	ok, err := s.references.UserExists(ctx, userID)
	if err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if !ok {
		return fmt.Errorf("user %s: %w", userID.Hex(), ErrUserNotFound)
	}

	ok, err = s.references.MovieExists(ctx, movieID)
	if err != nil {
		return fmt.Errorf("check movie: %w", err)
	}
	if !ok {
		return fmt.Errorf("movie %s: %w", movieID.Hex(), ErrMovieNotFound)
	}
	return nil
}

// publish never fails the request; a lost event is only logged.
func (s *reviewService) publish(ctx context.Context, eventType EventType, review *entity.Review) {
	event := NewReviewEvent(eventType, review, s.now())
	if err := s.publisher.Publish(ctx, string(eventType), event); err != nil {
		s.log.Warn("Failed to publish review event",
			zap.Error(err),
			zap.String("event", string(eventType)),
			zap.String("review_id", review.ID.Hex()),
		)
	}
}

func parseID(kind, raw string) (bson.ObjectID, error) {
	id, ok := utils.ParseID(raw)
	if !ok {
		return bson.NilObjectID, fmt.Errorf("%w: %s ID %q", ErrInvalidID, kind, raw)
	}
	return id, nil
}

func isClientError(err error) bool {
	var validationErr *repository.ValidationError
	return errors.Is(err, repository.ErrNotFound) ||
		errors.Is(err, repository.ErrVersionConflict) ||
		errors.As(err, &validationErr)
}
