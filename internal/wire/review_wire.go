package wire

import (
	"strings"

	"movie-reviews/internal/adaptor"
	"movie-reviews/pkg/middleware"
	"movie-reviews/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireReview(
	r chi.Router,
	reviewHandler *adaptor.ReviewHandler,
	config *utils.Config,
	log *zap.Logger,
) {
	routes := func(r chi.Router) {
		// POST / - Create review
		r.Post("/", reviewHandler.CreateReview)

		// GET / - List every review with user name and movie title
		r.Get("/", reviewHandler.ListReviews)

		// GET /movie/{id} - Reviews of one movie (authenticated)
		r.With(middleware.JWTAuth(config.JWT.Secret, log)).
			Get("/movie/{id}", reviewHandler.ListMovieReviews)

		// GET /{id} - Single review
		r.Get("/{id}", reviewHandler.GetReview)

		// PATCH /{id} - Partial update of description / counters
		r.Patch("/{id}", reviewHandler.UpdateReview)

		// DELETE /{id} - Delete review, succeeds even when absent
		r.Delete("/{id}", reviewHandler.DeleteReview)

		// POST /{id}/like, /{id}/dislike - Atomic counter increments
		r.Post("/{id}/like", reviewHandler.LikeReview)
		r.Post("/{id}/dislike", reviewHandler.DislikeReview)
	}

	basePath := strings.TrimSuffix(config.HTTP.BasePath, "/")
	if basePath == "" {
		routes(r)
		return
	}
	r.Route(basePath, routes)
}
