package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Review bounds.
const (
	MinRating        = 1
	MaxRating        = 5
	MinCommentLength = 10
	MaxCommentLength = 1000
)

// Review is a customer's rating of a completed request.
type Review struct {
	ID         string    `json:"id"`
	RequestID  string    `json:"request_id"`
	ServiceID  string    `json:"service_id"`
	ReviewerID string    `json:"reviewer_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	ReviewerName string `json:"reviewer_name,omitempty"`
	ServiceTitle string `json:"service_title,omitempty"`
}

// ValidRating reports whether rating lies in [MinRating, MaxRating].
func ValidRating(rating int) bool {
	return rating >= MinRating && rating <= MaxRating
}

// ValidComment reports whether the trimmed comment length, in characters,
// lies in [MinCommentLength, MaxCommentLength].
func ValidComment(comment string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(comment))
	return n >= MinCommentLength && n <= MaxCommentLength
}

// IsAuthoredBy reports whether userID wrote r.
func (r *Review) IsAuthoredBy(userID string) bool {
	return userID != "" && r.ReviewerID == userID
}
