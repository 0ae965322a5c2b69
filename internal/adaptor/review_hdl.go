package adaptor

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"movie-reviews/internal/data/entity"
	"movie-reviews/internal/dto/request"
	"movie-reviews/internal/dto/response"
	"movie-reviews/internal/usecase"
	"movie-reviews/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	msgInvalidReviewID = "Invalid review ID format."
	msgInvalidMovieID  = "Invalid Movie ID format."
	msgInvalidRefIDs   = "Invalid User or Movie ID format."
	msgInvalidBody     = "Invalid request body."
)

type ReviewHandler struct {
	service usecase.ReviewService
	log     *zap.Logger
}

func NewReviewHandler(service usecase.ReviewService, log *zap.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: service,
		log:     log.With(zap.String("handler", "review")),
	}
}

// CreateReview handles POST /
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	var req request.CreateReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, msgInvalidBody)
		return
	}

	// ids are checked before anything reaches the store
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		h.log.Debug("Create review rejected", zap.Any("errors", errs))
		utils.ResponseBadRequest(w, msgInvalidRefIDs)
		return
	}

	review, err := h.service.CreateReview(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, r, err, "create review", "Creating review failed, please try again.")
		return
	}

	utils.ResponseCreated(w, response.ReviewEnvelope{
		Message: "Review created successfully",
		Review:  review,
	})
}

// ListReviews handles GET /
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.service.ListReviews(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err, "list reviews", "Fetching reviews failed, please try again later.")
		return
	}

	utils.ResponseSuccess(w, response.ReviewListEnvelope{Reviews: reviews})
}

// ListMovieReviews handles GET /movie/{id} (protected)
func (h *ReviewHandler) ListMovieReviews(w http.ResponseWriter, r *http.Request) {
	movieID := chi.URLParam(r, "id")
	if !utils.IsValidID(movieID) {
		utils.ResponseBadRequest(w, msgInvalidMovieID)
		return
	}
	utils.RequestLogger(r.Context(), h.log).Debug("Listing movie reviews", zap.String("movie_id", movieID))

	reviews, err := h.service.ListMovieReviews(r.Context(), movieID)
	if err != nil {
		h.handleServiceError(w, r, err, "list movie reviews", "Fetching reviews failed, please try again.")
		return
	}

	utils.ResponseSuccess(w, response.ReviewListEnvelope{Reviews: reviews})
}

// GetReview handles GET /{id}
func (h *ReviewHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	reviewID := chi.URLParam(r, "id")
	if !utils.IsValidID(reviewID) {
		utils.ResponseBadRequest(w, msgInvalidReviewID)
		return
	}

	review, err := h.service.GetReview(r.Context(), reviewID)
	if err != nil {
		h.handleServiceError(w, r, err, "get review", "Fetching review failed, please try again later.")
		return
	}

	utils.ResponseSuccess(w, response.ReviewEnvelope{Review: review})
}

// UpdateReview handles PATCH /{id}
func (h *ReviewHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	reviewID := chi.URLParam(r, "id")
	if !utils.IsValidID(reviewID) {
		utils.ResponseBadRequest(w, msgInvalidReviewID)
		return
	}

	// no body is an empty patch and only refreshes updatedAt
	var req request.UpdateReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.ResponseBadRequest(w, msgInvalidBody)
		return
	}

	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		utils.ResponseBadRequest(w, "Validation error: "+utils.FormatValidationErrors(errs))
		return
	}

	review, err := h.service.UpdateReview(r.Context(), reviewID, &req)
	if err != nil {
		h.handleServiceError(w, r, err, "update review", "Updating review failed, please try again.")
		return
	}

	utils.ResponseSuccess(w, response.ReviewEnvelope{
		Message: "Review updated successfully",
		Review:  review,
	})
}

// LikeReview handles POST /{id}/like
func (h *ReviewHandler) LikeReview(w http.ResponseWriter, r *http.Request) {
	h.react(w, r, entity.ReactionLike, "Review liked successfully")
}

// DislikeReview handles POST /{id}/dislike
func (h *ReviewHandler) DislikeReview(w http.ResponseWriter, r *http.Request) {
	h.react(w, r, entity.ReactionDislike, "Review disliked successfully")
}

func (h *ReviewHandler) react(w http.ResponseWriter, r *http.Request, reaction entity.Reaction, message string) {
	reviewID := chi.URLParam(r, "id")
	if !utils.IsValidID(reviewID) {
		utils.ResponseBadRequest(w, msgInvalidReviewID)
		return
	}

	review, err := h.service.ReactToReview(r.Context(), reviewID, reaction)
	if err != nil {
		h.handleServiceError(w, r, err, string(reaction)+" review", "Updating review failed, please try again.")
		return
	}

	utils.ResponseSuccess(w, response.ReviewEnvelope{
		Message: message,
		Review:  review,
	})
}

// DeleteReview handles DELETE /{id}. Deleting a missing review still succeeds.
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	reviewID := chi.URLParam(r, "id")
	if !utils.IsValidID(reviewID) {
		utils.ResponseBadRequest(w, msgInvalidReviewID)
		return
	}

	if err := h.service.DeleteReview(r.Context(), reviewID); err != nil {
		h.handleServiceError(w, r, err, "delete review", "Deleting review failed, please try again.")
		return
	}

	utils.ResponseSuccess(w, response.MessageResponse{Message: "Review deleted successfully"})
}

// handleServiceError turns a service error into an HTTPError response.
// failure is the message sent for anything unexpected.
func (h *ReviewHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error, operation, failure string) {
	utils.ResponseError(w, toHTTPError(utils.RequestLogger(r.Context(), h.log), err, operation, failure))
}

func toHTTPError(log *zap.Logger, err error, operation, failure string) *utils.HTTPError {
	var validationErr *usecase.ValidationError

	switch {
	case errors.As(err, &validationErr):
		log.Warn(operation+" validation failed",
			zap.Error(err),
			zap.String("operation", operation))
		return utils.NewHTTPError("Validation error: "+utils.FormatValidationErrors(validationErr.Fields), http.StatusBadRequest)

	case errors.Is(err, usecase.ErrInvalidID):
		log.Warn("Invalid input for "+operation,
			zap.Error(err),
			zap.String("operation", operation))
		return utils.NewHTTPError("Invalid ID format.", http.StatusBadRequest)

	case errors.Is(err, usecase.ErrReviewNotFound):
		log.Warn(operation+" failed - not found",
			zap.Error(err),
			zap.String("operation", operation))
		return utils.NewHTTPError("Review not found.", http.StatusNotFound)

	case errors.Is(err, usecase.ErrUserNotFound):
		return utils.NewHTTPError("User not found.", http.StatusNotFound)

	case errors.Is(err, usecase.ErrMovieNotFound):
		return utils.NewHTTPError("Movie not found.", http.StatusNotFound)

	case errors.Is(err, usecase.ErrVersionConflict):
		log.Warn(operation+" failed - version conflict",
			zap.Error(err),
			zap.String("operation", operation))
		return utils.NewHTTPError("Review was modified by another request, reload and retry.", http.StatusConflict)

	default:
		log.Error("Failed to "+operation,
			zap.Error(err),
			zap.String("operation", operation))
		return utils.NewHTTPError(failure, http.StatusInternalServerError)
	}
}
