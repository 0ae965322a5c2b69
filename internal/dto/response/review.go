package response

import (
	"time"

	"movie-reviews/internal/data/entity"
)

type ReviewUser struct {
	ID       string `json:"id"`
	UserName string `json:"userName,omitempty"`
}

type ReviewMovie struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

type ReviewResponse struct {
	ID           string      `json:"id"`
	Description  string      `json:"description"`
	User         ReviewUser  `json:"user"`
	Movie        ReviewMovie `json:"movie"`
	LikeCount    int         `json:"likeCount"`
	DislikeCount int         `json:"dislikeCount"`
	Version      int         `json:"version"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// ReviewEnvelope wraps a single review, optionally with a status message.
type ReviewEnvelope struct {
	Message string          `json:"message,omitempty"`
	Review  *ReviewResponse `json:"review"`
}

type ReviewListEnvelope struct {
	Reviews []ReviewResponse `json:"reviews"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// Helper converter
func ReviewToResponse(review *entity.Review) ReviewResponse {
	return ReviewResponse{
		ID:           review.ID.Hex(),
		Description:  review.Description,
		User:         ReviewUser{ID: review.UserID.Hex()},
		Movie:        ReviewMovie{ID: review.MovieID.Hex()},
		LikeCount:    review.LikeCount,
		DislikeCount: review.DislikeCount,
		Version:      review.Version,
		CreatedAt:    review.CreatedAt,
		UpdatedAt:    review.UpdatedAt,
	}
}

// ReviewDetailToResponse also fills the resolved user name and movie title.
func ReviewDetailToResponse(detail *entity.ReviewDetail) ReviewResponse {
	resp := ReviewToResponse(&detail.Review)
	resp.User.UserName = detail.UserName
	resp.Movie.Title = detail.MovieTitle
	return resp
}

func ReviewDetailsToResponse(details []*entity.ReviewDetail) []ReviewResponse {
	reviews := make([]ReviewResponse, len(details))
	for i, detail := range details {
		reviews[i] = ReviewDetailToResponse(detail)
	}
	return reviews
}
