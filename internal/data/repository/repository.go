package repository

import (
	"movie-reviews/pkg/database"
	"movie-reviews/pkg/utils"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.uber.org/zap"
)

type Repository struct {
	Review    ReviewRepository
	Reference ReferenceRepository
}

func NewMongoRepository(db *mongo.Database, cfg utils.ReviewConfig, log *zap.Logger) *Repository {
	return &Repository{
		Review:    NewMongoReviewRepository(db, cfg, log),
		Reference: NewMongoReferenceRepository(db, log),
	}
}

func NewPostgresRepository(db database.PgxIface, cfg utils.ReviewConfig, log *zap.Logger) *Repository {
	return &Repository{
		Review:    NewPostgresReviewRepository(db, cfg, log),
		Reference: NewPostgresReferenceRepository(db, log),
	}
}

func NewMemoryRepository(store *MemoryStore, cfg utils.ReviewConfig, log *zap.Logger) *Repository {
	return &Repository{
		Review:    NewMemoryReviewRepository(store, cfg, log),
		Reference: NewMemoryReferenceRepository(store),
	}
}
