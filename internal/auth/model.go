// Package auth handles registration, login, logout, email verification,
// and password reset for Vidora. Session liveness lives in Redis (one slot
// per user); a durable sessions row mirrors the current token for audit.
package auth

import (
	"time"
)

// Account status values. The auth subsystem never sets "deleted" itself;
// account removal is an external management action that cascades to
// sessions.
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
	StatusDeleted   = "deleted"
)

// MinPasswordLength is the minimum accepted password length across
// register, reset, and change-password.
const MinPasswordLength = 6

// User represents a registered Vidora account. This is the domain model
// used throughout the application. Database scanning and JSON marshaling
// use this struct directly.
type User struct {
	ID            string     `json:"user_id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	PasswordHash  string     `json:"-"` // Never expose in JSON responses.
	ProfileImage  *string    `json:"profile_image,omitempty"`
	Bio           *string    `json:"bio,omitempty"`
	Role          string     `json:"role"`
	AccountStatus string     `json:"account_status"`
	EmailVerified bool       `json:"email_verified"`
	Premium       bool       `json:"premium"`
	LastLoginAt   *time.Time `json:"last_login,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Session is the durable record of one live login. At most one row exists
// per user: a new login overwrites the token in place, logout deletes the
// row. The row is never consulted on the request hot path -- Redis is the
// authoritative liveness check.
type Session struct {
	ID        string     `json:"session_id"`
	UserID    string     `json:"user_id"`
	Token     string     `json:"-"`
	UserAgent string     `json:"user_agent,omitempty"`
	IPAddress string     `json:"ip_address,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// ClientMeta carries per-request client details captured by the handler
// and stored on the session row.
type ClientMeta struct {
	IPAddress string
	UserAgent string
}

// --- Request DTOs (bound from HTTP requests) ---

// RegisterRequest holds the data submitted to POST /auth/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest holds the data submitted to POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SendMagicRequest holds the data submitted to POST /auth/send-magic.
type SendMagicRequest struct {
	Email string `json:"email"`
}

// ForgotPasswordRequest holds the data submitted to POST /auth/forget-password.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest holds the data submitted to POST /auth/reset-password/:token.
type ResetPasswordRequest struct {
	Password string `json:"password"`
}

// --- Service Input DTOs (passed from handler to service) ---

// RegisterInput is the validated input for creating a new user.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// LoginInput is the validated input for authenticating a user.
type LoginInput struct {
	Email    string
	Password string
}
