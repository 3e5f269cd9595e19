package domain

import "time"

// User roles. A user holds exactly one role for the lifetime of the account.
const (
	RoleCustomer = "CUSTOMER"
	RoleProvider = "PROVIDER"
)

// IsValidRole reports whether role is one of the known roles.
func IsValidRole(role string) bool {
	return role == RoleCustomer || role == RoleProvider
}

// User is the marketplace's view of an account. Accounts are owned by the
// identity service; this module mirrors them and maintains the derived
// rating aggregate.
type User struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone,omitempty"`
	Role          string    `json:"role"`
	Verified      bool      `json:"verified"`
	AverageRating float64   `json:"average_rating"`
	ReviewCount   int       `json:"review_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsProvider reports whether u offers services.
func (u *User) IsProvider() bool { return u.Role == RoleProvider }

// PublicProfile is what other users may see about u.
type PublicProfile struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Role          string  `json:"role"`
	Verified      bool    `json:"verified"`
	AverageRating float64 `json:"average_rating"`
	ReviewCount   int     `json:"review_count"`
}

// Profile returns the public projection of u.
func (u *User) Profile() PublicProfile {
	return PublicProfile{
		ID:            u.ID,
		Name:          u.Name,
		Role:          u.Role,
		Verified:      u.Verified,
		AverageRating: u.AverageRating,
		ReviewCount:   u.ReviewCount,
	}
}
