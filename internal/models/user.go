package models

import "time"

/** --------------------ENTITIES-------------------- */

// User is an account created on first Google login. Username mirrors the
// email address, matching how accounts were provisioned historically.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Username  string    `gorm:"not null" json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`

	Profile *UserProfile `gorm:"foreignKey:UserID" json:"profile,omitempty"`
}

// UserProfile holds the Google credential material for a user.
type UserProfile struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"uniqueIndex;not null" json:"-"`
	GoogleToken  string    `json:"google_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenExpiry  time.Time `json:"token_expiry"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

/** -------------------- DTOs -------------------- */

type UserResponse struct {
	ID        uint   `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type AuthURLResponse struct {
	AuthURL string `json:"auth_url"`
}

// AuthCallbackResponse is the payload returned after a successful OAuth
// exchange: the user, its Google profile and a fresh API token.
type AuthCallbackResponse struct {
	UserResponse
	Profile  *UserProfile `json:"profile"`
	APIToken string       `json:"api_token"`
}

func NewUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}
