package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest creates a password account. Either name or firstName/lastName may be sent.
type RegisterRequest struct {
	Name      *string `json:"name" validate:"omitempty,max=255"`
	FirstName *string `json:"firstName" validate:"omitempty,max=255"`
	LastName  *string `json:"lastName" validate:"omitempty,max=255"`
	Email     string  `json:"email" validate:"required,email,max=255"`
	Password  string  `json:"password" validate:"required,min=6"`
	Role      string  `json:"role" validate:"omitempty,oneof=student teacher"`
}

// RegisterResponse identifies the account created by Register.
type RegisterResponse struct {
	Status string   `json:"status"`
	UserID string   `json:"userId"`
	Role   UserRole `json:"role"`
}

// LoginResponse returns the issued access token and the user profile.
type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   int64       `json:"expires_in"`
	User        UserProfile `json:"user"`
	IssuedAt    time.Time   `json:"issued_at"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	Email  string   `json:"email"`
	jwt.RegisteredClaims
}
