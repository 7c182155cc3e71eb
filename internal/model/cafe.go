package model

import "time"

// Visit statuses accepted by the backend for a cafe listing.
const (
	VisitStatusToVisit = "to_visit"
	VisitStatusVisited = "visited"
)

// User is a registered account.
type User struct {
	ID        uint      `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
}

// CafeListing is a cafe owned by a user.
type CafeListing struct {
	ID          uint      `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	UserID      uint      `json:"user_id"`
	Name        string    `json:"name"`
	Address     string    `json:"address"`
	Description string    `json:"description,omitempty"`
	VisitStatus string    `json:"visit_status,omitempty"`
}

// Rating is a user's review of a cafe.
type Rating struct {
	ID            uint      `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	UserID        uint      `json:"user_id"`
	CafeListingID uint      `json:"cafe_listing_id"`
	VisitedAt     time.Time `json:"visited_at"`
	Rating        int       `json:"rating"`
	Review        string    `json:"review,omitempty"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is returned by both auth endpoints.
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// CafeInput is the create/update payload for a cafe listing.
type CafeInput struct {
	Name        string `json:"name"`
	Address     string `json:"address,omitempty"`
	Description string `json:"description,omitempty"`
	VisitStatus string `json:"visit_status,omitempty"`
}

// RatingInput is the create/update payload for a rating.
type RatingInput struct {
	Rating    int        `json:"rating"`
	Review    string     `json:"review,omitempty"`
	VisitedAt *time.Time `json:"visited_at,omitempty"`
}

// ListCafesQuery filters GET /me/cafes.
type ListCafesQuery struct {
	Status string
	Sort   string
}
