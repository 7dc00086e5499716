package models

import "time"

// User represents the authenticated account, never carrying a password
type User struct {
	ID                string    `json:"id" yaml:"id"`
	Username          string    `json:"username" yaml:"username"`
	Email             string    `json:"email" yaml:"email"`
	FirstName         string    `json:"firstName" yaml:"first_name"`
	LastName          string    `json:"lastName" yaml:"last_name"`
	ProfilePictureURL string    `json:"profilePictureUrl,omitempty" yaml:"profile_picture_url,omitempty"`
	CreatedAt         time.Time `json:"createdAt" yaml:"created_at"`
	UpdatedAt         time.Time `json:"updatedAt" yaml:"updated_at"`
}

// TokenPair holds the opaque bearer credentials issued by the backend
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthResponse is returned by login, register and refresh
type AuthResponse struct {
	TokenPair
	User *User `json:"user"`
}

// DeviceMeta identifies the client installation on auth calls
type DeviceMeta struct {
	DeviceID   string `json:"deviceId,omitempty"`
	DeviceType string `json:"deviceType,omitempty"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	DeviceMeta
}

// RegisterRequest represents an account registration
type RegisterRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	DeviceMeta
}

// RefreshRequest exchanges a refresh token for a new pair
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
	DeviceMeta
}

// TokenCheck is the result of a check-token call
type TokenCheck struct {
	Valid bool  `json:"valid"`
	User  *User `json:"user,omitempty"`
}
