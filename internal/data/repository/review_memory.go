package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"movie-reviews/internal/data/entity"
	"movie-reviews/pkg/utils"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
)

// MemoryStore keeps reviews, users and movies in process. Each method
// holds the lock for the whole operation, so single-document writes are
// atomic the way they are in the real stores.
type MemoryStore struct {
	mu      sync.RWMutex
	reviews []entity.Review
	users   map[bson.ObjectID]string
	movies  map[bson.ObjectID]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  make(map[bson.ObjectID]string),
		movies: make(map[bson.ObjectID]string),
	}
}

// SeedUser registers a user so reviews can resolve its name.
func (s *MemoryStore) SeedUser(user entity.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user.UserName
}

// SeedMovie registers a movie so reviews can resolve its title.
func (s *MemoryStore) SeedMovie(movie entity.Movie) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.movies[movie.ID] = movie.Title
}

// Len reports how many reviews are stored.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reviews)
}

func (s *MemoryStore) indexOf(id bson.ObjectID) int {
	for i := range s.reviews {
		if s.reviews[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *MemoryStore) detail(review entity.Review) *entity.ReviewDetail {
	return &entity.ReviewDetail{
		Review:     review,
		UserName:   s.users[review.UserID],
		MovieTitle: s.movies[review.MovieID],
	}
}

type memoryReviewRepository struct {
	store  *MemoryStore
	schema schema
	log    *zap.Logger
}

func NewMemoryReviewRepository(store *MemoryStore, cfg utils.ReviewConfig, log *zap.Logger) ReviewRepository {
	return &memoryReviewRepository{
		store:  store,
		schema: newSchema(cfg),
		log:    log.With(zap.String("repository", "review"), zap.String("driver", utils.DriverMemory)),
	}
}

func (r *memoryReviewRepository) Create(ctx context.Context, review *entity.Review) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.schema.prepareCreate(review, time.Now()); err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.reviews = append(r.store.reviews, *review)
	return nil
}

func (r *memoryReviewRepository) FindAll(ctx context.Context) ([]*entity.ReviewDetail, error) {
	return r.filter(ctx, func(entity.Review) bool { return true })
}

func (r *memoryReviewRepository) FindByMovieID(ctx context.Context, movieID bson.ObjectID) ([]*entity.ReviewDetail, error) {
	return r.filter(ctx, func(review entity.Review) bool { return review.MovieID == movieID })
}

func (r *memoryReviewRepository) FindByID(ctx context.Context, id bson.ObjectID) (*entity.ReviewDetail, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	i := r.store.indexOf(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	return r.store.detail(r.store.reviews[i]), nil
}

func (r *memoryReviewRepository) UpdateByID(ctx context.Context, id bson.ObjectID, patch entity.ReviewPatch, now time.Time) (*entity.Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.schema.validatePatch(patch); err != nil {
		return nil, err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	i := r.store.indexOf(id)
	if i < 0 {
		return nil, ErrNotFound
	}

	review := &r.store.reviews[i]
	if patch.Version != nil && *patch.Version != review.Version {
		return nil, ErrVersionConflict
	}
	if patch.Description != nil {
		review.Description = *patch.Description
	}
	if patch.LikeCount != nil {
		review.LikeCount = *patch.LikeCount
	}
	if patch.DislikeCount != nil {
		review.DislikeCount = *patch.DislikeCount
	}
	touch(review, now)

	updated := *review
	return &updated, nil
}

func (r *memoryReviewRepository) IncrementReaction(ctx context.Context, id bson.ObjectID, reaction entity.Reaction, now time.Time) (*entity.Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !reaction.Valid() {
		return nil, fmt.Errorf("unknown reaction %q", reaction)
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	i := r.store.indexOf(id)
	if i < 0 {
		return nil, ErrNotFound
	}

	review := &r.store.reviews[i]
	if reaction == entity.ReactionLike {
		review.LikeCount++
	} else {
		review.DislikeCount++
	}
	touch(review, now)

	updated := *review
	return &updated, nil
}

func (r *memoryReviewRepository) DeleteByID(ctx context.Context, id bson.ObjectID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if i := r.store.indexOf(id); i >= 0 {
		r.store.reviews = append(r.store.reviews[:i], r.store.reviews[i+1:]...)
	}
	return nil
}

func (r *memoryReviewRepository) filter(ctx context.Context, keep func(entity.Review) bool) ([]*entity.ReviewDetail, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	reviews := make([]*entity.ReviewDetail, 0)
	for _, review := range r.store.reviews {
		if keep(review) {
			reviews = append(reviews, r.store.detail(review))
		}
	}
	return reviews, nil
}

func touch(review *entity.Review, now time.Time) {
	review.UpdatedAt = nextUpdatedAt(review.UpdatedAt, now)
	review.Version++
}

type memoryReferenceRepository struct {
	store *MemoryStore
}

func NewMemoryReferenceRepository(store *MemoryStore) ReferenceRepository {
	return &memoryReferenceRepository{store: store}
}

func (r *memoryReferenceRepository) UserExists(ctx context.Context, id bson.ObjectID) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	_, ok := r.store.users[id]
	return ok, ctx.Err()
}

func (r *memoryReferenceRepository) MovieExists(ctx context.Context, id bson.ObjectID) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	_, ok := r.store.movies[id]
	return ok, ctx.Err()
}
