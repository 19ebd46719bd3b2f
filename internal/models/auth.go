package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user in a given role.
type LoginRequest struct {
	UserName string   `json:"user_name" validate:"required"`
	Password string   `json:"password" validate:"required"`
	Role     UserRole `json:"role" validate:"required,role"`
}

// LoginResponse returns the authenticated identity and an access token.
type LoginResponse struct {
	UserID      string    `json:"user_id"`
	UserName    string    `json:"user_name"`
	Role        UserRole  `json:"role"`
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	IssuedAt    time.Time `json:"issued_at"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	UserName string   `json:"user_name"`
	Role     UserRole `json:"role"`
	jwt.RegisteredClaims
}
