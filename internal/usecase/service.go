package usecase

import (
	"movie-reviews/internal/data/repository"
	"movie-reviews/pkg/broker"
	"movie-reviews/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Review ReviewService
}

func NewService(repo *repository.Repository, publisher broker.Publisher, config *utils.Config, log *zap.Logger) *Service {
	return &Service{
		Review: NewReviewService(repo, publisher, config.Review, log),
	}
}
