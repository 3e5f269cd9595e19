package domain

import "time"

// Service is an offering published by a provider.
type Service struct {
	ID            string    `json:"id"`
	ProviderID    string    `json:"provider_id"`
	ProviderName  string    `json:"provider_name,omitempty"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	Price         float64   `json:"price"`
	Location      string    `json:"location,omitempty"`
	ImageURL      string    `json:"image_url,omitempty"`
	IsActive      bool      `json:"is_active"`
	AverageRating float64   `json:"average_rating"`
	ReviewCount   int       `json:"review_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsOwnedBy reports whether userID is the provider of s.
func (s *Service) IsOwnedBy(userID string) bool {
	return userID != "" && s.ProviderID == userID
}
