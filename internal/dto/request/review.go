package request

type CreateReviewRequest struct {
	Description string `json:"description"`
	User        string `json:"user" validate:"objectid"`
	Movie       string `json:"movie" validate:"objectid"`
}

// UpdateReviewRequest is a partial update: nil fields are left untouched.
// Version opts into a compare-and-set against the stored version.
type UpdateReviewRequest struct {
	Description  *string `json:"description,omitempty"`
	LikeCount    *int    `json:"likeCount,omitempty" validate:"omitempty,min=0"`
	DislikeCount *int    `json:"dislikeCount,omitempty" validate:"omitempty,min=0"`
	Version      *int    `json:"version,omitempty" validate:"omitempty,min=0"`
}
