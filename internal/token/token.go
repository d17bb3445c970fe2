// Package token issues and verifies the signed claim tokens used across
// the auth subsystem. Two classes share one signing mechanism: long-lived
// session tokens carrying the user id plus a point-in-time verified flag,
// and short-lived action tokens carrying an arbitrary subject (an email
// address for magic links, a user id for password resets). Expiry is
// enforced here, not by callers.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrExpired is returned when a token's signature verifies but its
	// expiry has passed. Callers surface this separately so users see
	// "link expired" rather than "link invalid".
	ErrExpired = errors.New("token expired")

	// ErrInvalid is returned for every other verification failure:
	// bad signature, wrong algorithm, malformed structure.
	ErrInvalid = errors.New("token invalid")
)

// SessionClaims is the claim set embedded in login session tokens.
// EmailVerified is a snapshot taken at issue time; authorization decisions
// that depend on verification re-read the live flag from the store.
type SessionClaims struct {
	UserID        string `json:"user_id"`
	EmailVerified bool   `json:"email_verified"`
	jwt.RegisteredClaims
}

// ActionClaims is the claim set embedded in short-lived action tokens.
type ActionClaims struct {
	Subject string `json:"subject"`
	jwt.RegisteredClaims
}

// Service signs and verifies tokens with a single HMAC secret.
type Service struct {
	secret     []byte
	sessionTTL time.Duration
}

// New creates a token service. sessionTTL applies to session tokens only;
// action tokens take their TTL per call.
func New(secret string, sessionTTL time.Duration) *Service {
	return &Service{
		secret:     []byte(secret),
		sessionTTL: sessionTTL,
	}
}

// SessionTTL returns the configured lifetime of session tokens.
func (s *Service) SessionTTL() time.Duration {
	return s.sessionTTL
}

// IssueSession produces a signed session token for the given user,
// embedding the verified flag as known at issue time.
func (s *Service) IssueSession(userID string, emailVerified bool) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		UserID:        userID,
		EmailVerified: emailVerified,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.sessionTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return signed, nil
}

// IssueAction produces a signed action token with a caller-specified TTL.
func (s *Service) IssueAction(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &ActionClaims{
		Subject: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing action token: %w", err)
	}
	return signed, nil
}

// VerifySession checks signature and expiry of a session token and returns
// its claims. Returns ErrExpired or ErrInvalid on failure.
func (s *Service) VerifySession(tok string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := s.parse(tok, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyAction checks signature and expiry of an action token and returns
// its claims. Returns ErrExpired or ErrInvalid on failure.
func (s *Service) VerifyAction(tok string) (*ActionClaims, error) {
	claims := &ActionClaims{}
	if err := s.parse(tok, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// parse runs jwt verification into the given claims value, collapsing the
// library's error taxonomy into ErrExpired / ErrInvalid.
func (s *Service) parse(tok string, claims jwt.Claims) error {
	parsed, err := jwt.ParseWithClaims(tok, claims,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpired
		}
		return ErrInvalid
	}
	if !parsed.Valid {
		return ErrInvalid
	}
	return nil
}
