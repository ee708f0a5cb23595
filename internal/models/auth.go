package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// VerifyRequest carries the external identity assertion from the login page.
type VerifyRequest struct {
	IDToken   string `json:"id_token" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// PasswordLoginRequest is the bcrypt fallback for admin accounts that carry a
// password hash (bootstrap path when Google sign-in is unavailable).
type PasswordLoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// SessionResponse returns the issued session credential and resolved profile.
type SessionResponse struct {
	Token     string    `json:"token"`
	ExpiresIn int64     `json:"expires_in"`
	IssuedAt  time.Time `json:"issued_at"`
	User      UserInfo  `json:"user"`
}

// UserInfo describes the resolved principal in responses.
type UserInfo struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     Role   `json:"role"`
}

// JWTClaims is the session credential payload. The registered ID (jti) keys
// the redis revocation denylist consulted on every request.
type JWTClaims struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     Role   `json:"role"`
	jwt.RegisteredClaims
}
