package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"movie-reviews/internal/data/entity"
	"movie-reviews/pkg/utils"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

const (
	CollectionReviews = "reviews"
	CollectionUsers   = "users"
	CollectionMovies  = "movies"
)

// reviewCollection is the part of *mongo.Collection the review
// repository uses.
type reviewCollection interface {
	InsertOne(ctx context.Context, document any, opts ...options.Lister[options.InsertOneOptions]) (*mongo.InsertOneResult, error)
	Aggregate(ctx context.Context, pipeline any, opts ...options.Lister[options.AggregateOptions]) (*mongo.Cursor, error)
	FindOneAndUpdate(ctx context.Context, filter any, update any, opts ...options.Lister[options.FindOneAndUpdateOptions]) *mongo.SingleResult
	CountDocuments(ctx context.Context, filter any, opts ...options.Lister[options.CountOptions]) (int64, error)
	DeleteOne(ctx context.Context, filter any, opts ...options.Lister[options.DeleteOneOptions]) (*mongo.DeleteResult, error)
}

type mongoReviewRepository struct {
	reviews reviewCollection
	schema  schema
	log     *zap.Logger
}

func NewMongoReviewRepository(db *mongo.Database, cfg utils.ReviewConfig, log *zap.Logger) ReviewRepository {
	return &mongoReviewRepository{
		reviews: db.Collection(CollectionReviews),
		schema:  newSchema(cfg),
		log:     log.With(zap.String("repository", "review"), zap.String("driver", utils.DriverMongo)),
	}
}

// EnsureMongoIndexes creates the index backing list-by-movie lookups.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(CollectionReviews).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "movie", Value: 1}},
		Options: options.Index().SetName("movie_1"),
	})
	if err != nil {
		return fmt.Errorf("create reviews.movie index: %w", err)
	}
	return nil
}

func (r *mongoReviewRepository) Create(ctx context.Context, review *entity.Review) error {
	if err := r.schema.prepareCreate(review, time.Now()); err != nil {
		return err
	}

	if _, err := r.reviews.InsertOne(ctx, review); err != nil {
		r.log.Error("Failed to create review",
			zap.Error(err),
			zap.String("user_id", review.UserID.Hex()),
			zap.String("movie_id", review.MovieID.Hex()),
		)
		return fmt.Errorf("create review for movie %s by user %s: %w",
			review.MovieID.Hex(), review.UserID.Hex(), err)
	}

	return nil
}

func (r *mongoReviewRepository) FindAll(ctx context.Context) ([]*entity.ReviewDetail, error) {
	reviews, err := r.aggregate(ctx, resolvePipeline(nil))
	if err != nil {
		r.log.Error("Failed to find reviews", zap.Error(err))
		return nil, fmt.Errorf("find reviews: %w", err)
	}
	return reviews, nil
}

func (r *mongoReviewRepository) FindByMovieID(ctx context.Context, movieID bson.ObjectID) ([]*entity.ReviewDetail, error) {
	reviews, err := r.aggregate(ctx, resolvePipeline(bson.D{{Key: "movie", Value: movieID}}))
	if err != nil {
		r.log.Error("Failed to find reviews by movie ID",
			zap.Error(err),
			zap.String("movie_id", movieID.Hex()),
		)
		return nil, fmt.Errorf("find reviews by movie ID %s: %w", movieID.Hex(), err)
	}
	return reviews, nil
}

func (r *mongoReviewRepository) FindByID(ctx context.Context, id bson.ObjectID) (*entity.ReviewDetail, error) {
	reviews, err := r.aggregate(ctx, resolvePipeline(bson.D{{Key: "_id", Value: id}}))
	if err != nil {
		r.log.Error("Failed to find review by ID",
			zap.Error(err),
			zap.String("review_id", id.Hex()),
		)
		return nil, fmt.Errorf("find review by ID %s: %w", id.Hex(), err)
	}
	if len(reviews) == 0 {
		return nil, ErrNotFound
	}
	return reviews[0], nil
}

func (r *mongoReviewRepository) UpdateByID(ctx context.Context, id bson.ObjectID, patch entity.ReviewPatch, now time.Time) (*entity.Review, error) {
	if err := r.schema.validatePatch(patch); err != nil {
		return nil, err
	}

	filter := bson.D{{Key: "_id", Value: id}}
	if patch.Version != nil {
		filter = append(filter, bson.E{Key: "version", Value: *patch.Version})
	}

	review, err := r.findOneAndUpdate(ctx, filter, buildUpdatePipeline(patch, now))
	if errors.Is(err, ErrNotFound) && patch.Version != nil {
		return nil, r.conflictOrNotFound(ctx, id)
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		r.log.Error("Failed to update review",
			zap.Error(err),
			zap.String("review_id", id.Hex()),
		)
		return nil, fmt.Errorf("update review %s: %w", id.Hex(), err)
	}
	return review, err
}

func (r *mongoReviewRepository) IncrementReaction(ctx context.Context, id bson.ObjectID, reaction entity.Reaction, now time.Time) (*entity.Review, error) {
	pipeline, err := buildReactionPipeline(reaction, now)
	if err != nil {
		return nil, err
	}

	review, err := r.findOneAndUpdate(ctx, bson.D{{Key: "_id", Value: id}}, pipeline)
	if err != nil && !errors.Is(err, ErrNotFound) {
		r.log.Error("Failed to increment review reaction",
			zap.Error(err),
			zap.String("review_id", id.Hex()),
			zap.String("reaction", string(reaction)),
		)
		return nil, fmt.Errorf("increment %s on review %s: %w", reaction, id.Hex(), err)
	}
	return review, err
}

func (r *mongoReviewRepository) DeleteByID(ctx context.Context, id bson.ObjectID) error {
	result, err := r.reviews.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		r.log.Error("Failed to delete review",
			zap.Error(err),
			zap.String("review_id", id.Hex()),
		)
		return fmt.Errorf("delete review %s: %w", id.Hex(), err)
	}

	r.log.Debug("Review delete executed",
		zap.String("review_id", id.Hex()),
		zap.Int64("deleted", result.DeletedCount),
	)
	return nil
}

func (r *mongoReviewRepository) aggregate(ctx context.Context, pipeline mongo.Pipeline) ([]*entity.ReviewDetail, error) {
	cursor, err := r.reviews.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	reviews := make([]*entity.ReviewDetail, 0)
	if err := cursor.All(ctx, &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

func (r *mongoReviewRepository) findOneAndUpdate(ctx context.Context, filter bson.D, pipeline mongo.Pipeline) (*entity.Review, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var review entity.Review
	err := r.reviews.FindOneAndUpdate(ctx, filter, pipeline, opts).Decode(&review)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *mongoReviewRepository) conflictOrNotFound(ctx context.Context, id bson.ObjectID) error {
	n, err := r.reviews.CountDocuments(ctx, bson.D{{Key: "_id", Value: id}}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("check review %s: %w", id.Hex(), err)
	}
	if n > 0 {
		return ErrVersionConflict
	}
	return ErrNotFound
}

// resolvePipeline joins each review with its user and movie and exposes
// their labels as userName / movieTitle. Natural order is preserved.
func resolvePipeline(match bson.D) mongo.Pipeline {
	pipeline := mongo.Pipeline{}
	if match != nil {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: match}})
	}

	return append(pipeline,
		bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: CollectionUsers},
			{Key: "localField", Value: "user"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "userDoc"},
		}}},
		bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: CollectionMovies},
			{Key: "localField", Value: "movie"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "movieDoc"},
		}}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "userName", Value: bson.D{{Key: "$arrayElemAt", Value: bson.A{"$userDoc.userName", 0}}}},
			{Key: "movieTitle", Value: bson.D{{Key: "$arrayElemAt", Value: bson.A{"$movieDoc.title", 0}}}},
		}}},
		bson.D{{Key: "$project", Value: bson.D{
			{Key: "userDoc", Value: 0},
			{Key: "movieDoc", Value: 0},
		}}},
	)
}

// buildUpdatePipeline sets only the patched fields. Values go through
// $literal so strings starting with "$" are not read as field paths.
func buildUpdatePipeline(patch entity.ReviewPatch, now time.Time) mongo.Pipeline {
	set := bson.D{}
	if patch.Description != nil {
		set = append(set, bson.E{Key: "description", Value: literal(*patch.Description)})
	}
	if patch.LikeCount != nil {
		set = append(set, bson.E{Key: "likeCount", Value: literal(*patch.LikeCount)})
	}
	if patch.DislikeCount != nil {
		set = append(set, bson.E{Key: "dislikeCount", Value: literal(*patch.DislikeCount)})
	}
	set = append(set, touchFields(now)...)

	return mongo.Pipeline{bson.D{{Key: "$set", Value: set}}}
}

func buildReactionPipeline(reaction entity.Reaction, now time.Time) (mongo.Pipeline, error) {
	var field string
	switch reaction {
	case entity.ReactionLike:
		field = "likeCount"
	case entity.ReactionDislike:
		field = "dislikeCount"
	default:
		return nil, fmt.Errorf("unknown reaction %q", reaction)
	}

	set := bson.D{{Key: field, Value: increment(field)}}
	set = append(set, touchFields(now)...)
	return mongo.Pipeline{bson.D{{Key: "$set", Value: set}}}, nil
}

// touchFields bumps version and moves updatedAt to max(now, updatedAt+1ms).
func touchFields(now time.Time) bson.D {
	return bson.D{
		{Key: "updatedAt", Value: bson.D{{Key: "$max", Value: bson.A{
			storeTime(now),
			bson.D{{Key: "$add", Value: bson.A{"$updatedAt", 1}}},
		}}}},
		{Key: "version", Value: increment("version")},
	}
}

func increment(field string) bson.D {
	return bson.D{{Key: "$add", Value: bson.A{
		bson.D{{Key: "$ifNull", Value: bson.A{"$" + field, 0}}},
		1,
	}}}
}

func literal(v any) bson.D {
	return bson.D{{Key: "$literal", Value: v}}
}

type mongoReferenceRepository struct {
	users  *mongo.Collection
	movies *mongo.Collection
	log    *zap.Logger
}

func NewMongoReferenceRepository(db *mongo.Database, log *zap.Logger) ReferenceRepository {
	return &mongoReferenceRepository{
		users:  db.Collection(CollectionUsers),
		movies: db.Collection(CollectionMovies),
		log:    log.With(zap.String("repository", "reference"), zap.String("driver", utils.DriverMongo)),
	}
}

func (r *mongoReferenceRepository) UserExists(ctx context.Context, id bson.ObjectID) (bool, error) {
	return r.exists(ctx, r.users, id)
}

func (r *mongoReferenceRepository) MovieExists(ctx context.Context, id bson.ObjectID) (bool, error) {
	return r.exists(ctx, r.movies, id)
}

func (r *mongoReferenceRepository) exists(ctx context.Context, coll *mongo.Collection, id bson.ObjectID) (bool, error) {
	n, err := coll.CountDocuments(ctx, bson.D{{Key: "_id", Value: id}}, options.Count().SetLimit(1))
	if err != nil {
		r.log.Error("Failed to check reference",
			zap.Error(err),
			zap.String("collection", coll.Name()),
			zap.String("id", id.Hex()),
		)
		return false, fmt.Errorf("check %s %s: %w", coll.Name(), id.Hex(), err)
	}
	return n > 0, nil
}
