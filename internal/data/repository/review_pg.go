package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"movie-reviews/internal/data/entity"
	"movie-reviews/pkg/database"
	"movie-reviews/pkg/utils"

	"github.com/jackc/pgx/v5"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
)

const reviewColumns = `r.id, r.description, r.user_id, r.movie_id, r.like_count,
		r.dislike_count, r.version, r.created_at, r.updated_at`

const reviewDetailQuery = `
		SELECT ` + reviewColumns + `,
		       COALESCE(u.user_name, ''), COALESCE(m.title, '')
		FROM reviews r
		LEFT JOIN users u ON u.id = r.user_id
		LEFT JOIN movies m ON m.id = r.movie_id
	`

type pgReviewRepository struct {
	db     database.PgxIface
	schema schema
	log    *zap.Logger
}

func NewPostgresReviewRepository(db database.PgxIface, cfg utils.ReviewConfig, log *zap.Logger) ReviewRepository {
	return &pgReviewRepository{
		db:     db,
		schema: newSchema(cfg),
		log:    log.With(zap.String("repository", "review"), zap.String("driver", utils.DriverPostgres)),
	}
}

func (r *pgReviewRepository) Create(ctx context.Context, review *entity.Review) error {
	if err := r.schema.prepareCreate(review, time.Now()); err != nil {
		return err
	}

	query := `
		INSERT INTO reviews (id, description, user_id, movie_id, like_count,
		                     dislike_count, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Exec(ctx, query,
		review.ID.Hex(),
		review.Description,
		review.UserID.Hex(),
		review.MovieID.Hex(),
		review.LikeCount,
		review.DislikeCount,
		review.Version,
		review.CreatedAt,
		review.UpdatedAt,
	)

	if err != nil {
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

func (r *pgReviewRepository) FindAll(ctx context.Context) ([]*entity.ReviewDetail, error) {
	rows, err := r.db.Query(ctx, reviewDetailQuery+` ORDER BY r.seq`)
	if err != nil {
		r.log.Error("Failed to find reviews", zap.Error(err))
		return nil, fmt.Errorf("find reviews: %w", err)
	}
	defer rows.Close()

	return r.collectDetails(rows)
}

func (r *pgReviewRepository) FindByMovieID(ctx context.Context, movieID bson.ObjectID) ([]*entity.ReviewDetail, error) {
	rows, err := r.db.Query(ctx, reviewDetailQuery+` WHERE r.movie_id = $1 ORDER BY r.seq`, movieID.Hex())
	if err != nil {
		r.log.Error("Failed to find reviews by movie ID",
			zap.Error(err),
			zap.String("movie_id", movieID.Hex()),
		)
		return nil, fmt.Errorf("find reviews by movie ID %s: %w", movieID.Hex(), err)
	}
	defer rows.Close()

	return r.collectDetails(rows)
}

func (r *pgReviewRepository) FindByID(ctx context.Context, id bson.ObjectID) (*entity.ReviewDetail, error) {
	review, err := scanReviewDetail(r.db.QueryRow(ctx, reviewDetailQuery+` WHERE r.id = $1`, id.Hex()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		r.log.Error("Failed to find review by ID",
			zap.Error(err),
			zap.String("review_id", id.Hex()),
		)
		return nil, fmt.Errorf("find review by ID %s: %w", id.Hex(), err)
	}

	return review, nil
}

func (r *pgReviewRepository) UpdateByID(ctx context.Context, id bson.ObjectID, patch entity.ReviewPatch, now time.Time) (*entity.Review, error) {
	if err := r.schema.validatePatch(patch); err != nil {
		return nil, err
	}

	query := `
		UPDATE reviews r
		SET description   = COALESCE($2, r.description),
		    like_count    = COALESCE($3, r.like_count),
		    dislike_count = COALESCE($4, r.dislike_count),
		    version       = r.version + 1,
		    updated_at    = GREATEST($5, r.updated_at + INTERVAL '1 millisecond')
		WHERE r.id = $1 AND ($6::int IS NULL OR r.version = $6::int)
		RETURNING ` + reviewColumns

	review, err := scanReview(r.db.QueryRow(ctx, query,
		id.Hex(),
		patch.Description,
		patch.LikeCount,
		patch.DislikeCount,
		storeTime(now),
		patch.Version,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		if patch.Version != nil {
			return nil, r.conflictOrNotFound(ctx, id)
		}
		return nil, ErrNotFound
	}
	if err != nil {
		r.log.Error("Failed to update review",
			zap.Error(err),
			zap.String("review_id", id.Hex()),
		)
		return nil, fmt.Errorf("update review %s: %w", id.Hex(), err)
	}

	return review, nil
}

func (r *pgReviewRepository) IncrementReaction(ctx context.Context, id bson.ObjectID, reaction entity.Reaction, now time.Time) (*entity.Review, error) {
	var column string
	switch reaction {
	case entity.ReactionLike:
		column = "like_count"
	case entity.ReactionDislike:
		column = "dislike_count"
	default:
		return nil, fmt.Errorf("unknown reaction %q", reaction)
	}

	query := `
		UPDATE reviews r
		SET ` + column + ` = r.` + column + ` + 1,
		    version    = r.version + 1,
		    updated_at = GREATEST($2, r.updated_at + INTERVAL '1 millisecond')
		WHERE r.id = $1
		RETURNING ` + reviewColumns

	review, err := scanReview(r.db.QueryRow(ctx, query, id.Hex(), storeTime(now)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		r.log.Error("Failed to increment review reaction",
			zap.Error(err),
			zap.String("review_id", id.Hex()),
			zap.String("reaction", string(reaction)),
		)
		return nil, fmt.Errorf("increment %s on review %s: %w", reaction, id.Hex(), err)
	}

	return review, nil
}

func (r *pgReviewRepository) DeleteByID(ctx context.Context, id bson.ObjectID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id.Hex())
	if err != nil {
		r.log.Error("Failed to delete review",
			zap.Error(err),
			zap.String("review_id", id.Hex()),
		)
		return fmt.Errorf("delete review %s: %w", id.Hex(), err)
	}

	r.log.Debug("Review delete executed",
		zap.String("review_id", id.Hex()),
		zap.Int64("deleted", result.RowsAffected()),
	)
	return nil
}

func (r *pgReviewRepository) conflictOrNotFound(ctx context.Context, id bson.ObjectID) error {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM reviews WHERE id = $1)`, id.Hex()).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check review %s: %w", id.Hex(), err)
	}
	if exists {
		return ErrVersionConflict
	}
	return ErrNotFound
}

func (r *pgReviewRepository) collectDetails(rows pgx.Rows) ([]*entity.ReviewDetail, error) {
	reviews := make([]*entity.ReviewDetail, 0)
	for rows.Next() {
		review, err := scanReviewDetail(rows)
		if err != nil {
			r.log.Error("Failed to scan review row", zap.Error(err))
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}

	return reviews, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// reviewRow mirrors the hex-encoded id columns before they are parsed.
type reviewRow struct {
	id, userID, movieID string
	review              entity.Review
}

func (row *reviewRow) dest() []any {
	return []any{
		&row.id,
		&row.review.Description,
		&row.userID,
		&row.movieID,
		&row.review.LikeCount,
		&row.review.DislikeCount,
		&row.review.Version,
		&row.review.CreatedAt,
		&row.review.UpdatedAt,
	}
}

func (row *reviewRow) finish() (*entity.Review, error) {
	var err error
	if row.review.ID, err = bson.ObjectIDFromHex(row.id); err != nil {
		return nil, fmt.Errorf("review id %q: %w", row.id, err)
	}
	if row.review.UserID, err = bson.ObjectIDFromHex(row.userID); err != nil {
		return nil, fmt.Errorf("user id %q: %w", row.userID, err)
	}
	if row.review.MovieID, err = bson.ObjectIDFromHex(row.movieID); err != nil {
		return nil, fmt.Errorf("movie id %q: %w", row.movieID, err)
	}
	row.review.CreatedAt = row.review.CreatedAt.UTC()
	row.review.UpdatedAt = row.review.UpdatedAt.UTC()
	return &row.review, nil
}

func scanReview(s rowScanner) (*entity.Review, error) {
	var row reviewRow
	if err := s.Scan(row.dest()...); err != nil {
		return nil, err
	}
	return row.finish()
}

func scanReviewDetail(s rowScanner) (*entity.ReviewDetail, error) {
	var row reviewRow
	var detail entity.ReviewDetail
	dest := append(row.dest(), &detail.UserName, &detail.MovieTitle)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}

	review, err := row.finish()
	if err != nil {
		return nil, err
	}
	detail.Review = *review
	return &detail, nil
}

type pgReferenceRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewPostgresReferenceRepository(db database.PgxIface, log *zap.Logger) ReferenceRepository {
	return &pgReferenceRepository{
		db:  db,
		log: log.With(zap.String("repository", "reference"), zap.String("driver", utils.DriverPostgres)),
	}
}

func (r *pgReferenceRepository) UserExists(ctx context.Context, id bson.ObjectID) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, "user", id)
}

func (r *pgReferenceRepository) MovieExists(ctx context.Context, id bson.ObjectID) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM movies WHERE id = $1)`, "movie", id)
}

func (r *pgReferenceRepository) exists(ctx context.Context, query, kind string, id bson.ObjectID) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, query, id.Hex()).Scan(&exists); err != nil {
		r.log.Error("Failed to check reference",
			zap.Error(err),
			zap.String("kind", kind),
			zap.String("id", id.Hex()),
		)
		return false, fmt.Errorf("check %s %s: %w", kind, id.Hex(), err)
	}
	return exists, nil
}
