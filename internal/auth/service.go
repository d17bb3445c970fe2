package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/vidorahq/vidora/internal/apperror"
	"github.com/vidorahq/vidora/internal/mail"
	"github.com/vidorahq/vidora/internal/token"
)

// AuthService defines the business logic contract for authentication.
// Handlers and middleware call these methods -- they never touch the
// repository or the cache directly.
type AuthService interface {
	// Register creates an account, grants an (unverified) session token,
	// and dispatches a verification email.
	Register(ctx context.Context, input RegisterInput, meta ClientMeta) (*User, string, error)

	// Login authenticates by email and password. For unverified accounts
	// it re-sends the verification email and returns resent=true with no
	// token instead of failing.
	Login(ctx context.Context, input LoginInput, meta ClientMeta) (tok string, resent bool, err error)

	// Logout invalidates the session carried by the given bearer token:
	// cache entry first, then the durable session row.
	Logout(ctx context.Context, bearer string) error

	// SendVerification dispatches a magic-link email carrying a fresh
	// action token, mirrored in the cache with a TTL.
	SendVerification(ctx context.Context, email string) error

	// VerifyEmail consumes a magic-link token: flips the verified flag,
	// rotates the session token, and returns the verified email.
	VerifyEmail(ctx context.Context, tok string) (string, error)

	// ForgotPassword emails a reset link carrying an action token. The
	// token is signature+expiry only -- no cache entry, so it cannot be
	// invalidated before its TTL.
	ForgotPassword(ctx context.Context, email string) error

	// ResetPassword verifies a reset token and overwrites the password
	// hash. The existing session token is not rotated.
	ResetPassword(ctx context.Context, tok, newPassword string) error

	// Authenticate verifies a bearer token's signature and expiry, then
	// checks session liveness in the cache. This is the request hot path.
	Authenticate(ctx context.Context, bearer string) (*token.SessionClaims, error)

	// IsEmailVerified reads the live verified flag from the credential
	// store -- never the snapshot embedded in the token.
	IsEmailVerified(ctx context.Context, userID string) (bool, error)

	// GetUser loads the full user record.
	GetUser(ctx context.Context, userID string) (*User, error)
}

// authService implements AuthService with argon2id hashing, JWT tokens,
// and Redis-backed session liveness.
type authService struct {
	repo      Repository
	cache     SessionCache
	tokens    *token.Service
	mailer    mail.Sender
	clientURL string
	actionTTL time.Duration
}

// NewService creates a new auth service with the given dependencies.
// clientURL is the base used to build magic-link and reset-link URLs.
func NewService(repo Repository, cache SessionCache, tokens *token.Service, mailer mail.Sender, clientURL string, actionTTL time.Duration) AuthService {
	return &authService{
		repo:      repo,
		cache:     cache,
		tokens:    tokens,
		mailer:    mailer,
		clientURL: clientURL,
		actionTTL: actionTTL,
	}
}

// Register creates a new user account. The caller gets a session token
// immediately, but the embedded verified flag is false and verified-only
// routes stay closed until the emailed link is clicked.
func (s *authService) Register(ctx context.Context, input RegisterInput, meta ClientMeta) (*User, string, error) {
	// Check if email is already taken before doing expensive hashing.
	exists, err := s.repo.EmailExists(ctx, input.Email)
	if err != nil {
		return nil, "", apperror.NewInternal(fmt.Errorf("checking email: %w", err))
	}
	if exists {
		return nil, "", apperror.NewConflict("an account with this email already exists")
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, "", apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	user := &User{
		ID:            uuid.NewString(),
		Name:          input.Name,
		Email:         input.Email,
		PasswordHash:  hash,
		Role:          "viewer",
		AccountStatus: StatusActive,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, "", apperror.NewInternal(fmt.Errorf("creating user: %w", err))
	}

	tok, err := s.establishSession(ctx, user.ID, false, meta)
	if err != nil {
		return nil, "", err
	}

	if err := s.SendVerification(ctx, user.Email); err != nil {
		return nil, "", err
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, tok, nil
}

// Login authenticates a user by email and password. Unverified accounts
// get the verification email again and no token -- the only way for them
// to hold a session token is the one granted at registration.
func (s *authService) Login(ctx context.Context, input LoginInput, meta ClientMeta) (string, bool, error) {
	user, err := s.repo.FindUserByEmail(ctx, input.Email)
	if err != nil {
		// Don't reveal whether the email exists -- use generic message.
		if apperror.SafeCode(err) == 404 {
			return "", false, apperror.NewUnauthorized("invalid email or password")
		}
		return "", false, apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	if !VerifyPassword(input.Password, user.PasswordHash) {
		return "", false, apperror.NewUnauthorized("invalid email or password")
	}

	if !user.EmailVerified {
		if err := s.SendVerification(ctx, user.Email); err != nil {
			return "", false, err
		}
		slog.Info("verification email re-sent on login",
			slog.String("user_id", user.ID),
		)
		return "", true, nil
	}

	tok, err := s.establishSession(ctx, user.ID, true, meta)
	if err != nil {
		return "", false, err
	}

	// Update the user's last login timestamp (fire-and-forget, non-critical).
	if err := s.repo.UpdateLastLogin(ctx, user.ID); err != nil {
		slog.Warn("failed to update last login",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return tok, false, nil
}

// Logout deletes the cache entry before the durable row: once the cache
// entry is gone no new request authorizes, even if the row delete fails.
func (s *authService) Logout(ctx context.Context, bearer string) error {
	claims, err := s.tokens.VerifySession(bearer)
	if err != nil {
		return apperror.NewBadRequest("Invalid token")
	}

	if err := s.cache.DeleteSession(ctx, claims.UserID); err != nil {
		return apperror.NewInternal(err)
	}
	if err := s.repo.DeleteSessionByUserID(ctx, claims.UserID); err != nil {
		return apperror.NewInternal(err)
	}

	slog.Info("user logged out", slog.String("user_id", claims.UserID))

	return nil
}

// SendVerification issues an action token for the email, mirrors it in
// the cache with a TTL, and mails the magic link.
func (s *authService) SendVerification(ctx context.Context, email string) error {
	tok, err := s.tokens.IssueAction(email, s.actionTTL)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("issuing verification token: %w", err))
	}

	if err := s.cache.SetActionToken(ctx, tok, email, s.actionTTL); err != nil {
		return apperror.NewInternal(err)
	}

	link := fmt.Sprintf("%s/verify-email?token=%s", s.clientURL, url.QueryEscape(tok))
	body := fmt.Sprintf(
		`<p>Click the link below to verify your account:</p><a href="%s">%s</a>`,
		link, link,
	)

	if err := s.mailer.Send(ctx, email, "Verify Your Account", body); err != nil {
		return apperror.NewInternal(fmt.Errorf("sending verification email: %w", err))
	}

	return nil
}

// VerifyEmail consumes a magic-link token. The cache entry must still be
// present (single-use enforcement); it is deleted on success so the link
// cannot be replayed within its TTL. A fresh session token is issued and
// written to both cache and record so an already-logged-in client is not
// forced to re-authenticate.
func (s *authService) VerifyEmail(ctx context.Context, tok string) (string, error) {
	if _, err := s.tokens.VerifyAction(tok); err != nil {
		if errors.Is(err, token.ErrExpired) {
			return "", apperror.NewUnauthorized("verification link has expired")
		}
		return "", apperror.NewBadRequest("Invalid token")
	}

	email, err := s.cache.GetActionToken(ctx, tok)
	if err != nil {
		return "", apperror.NewInternal(err)
	}
	if email == "" {
		return "", apperror.NewBadRequest("Invalid or expired token")
	}

	user, err := s.repo.FindUserByEmail(ctx, email)
	if err != nil {
		if apperror.SafeCode(err) == 404 {
			return "", apperror.NewNotFound("user not found")
		}
		return "", apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	newTok, err := s.tokens.IssueSession(user.ID, true)
	if err != nil {
		return "", apperror.NewInternal(fmt.Errorf("issuing session token: %w", err))
	}

	// Flip the flag and rotate the session row in one transaction, then
	// mirror the new token into the cache.
	if err := s.repo.CompleteVerification(ctx, user.ID, newTok); err != nil {
		return "", apperror.NewInternal(err)
	}
	if err := s.cache.SetSession(ctx, user.ID, newTok); err != nil {
		return "", apperror.NewInternal(err)
	}

	if err := s.cache.DeleteActionToken(ctx, tok); err != nil {
		slog.Warn("failed to consume verification token",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}

	slog.Info("email verified",
		slog.String("user_id", user.ID),
		slog.String("email", email),
	)

	return email, nil
}

// ForgotPassword emails a reset link. Unknown addresses are reported to
// the caller as 404.
func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.repo.FindUserByEmail(ctx, email)
	if err != nil {
		if apperror.SafeCode(err) == 404 {
			return apperror.NewNotFound("user not found")
		}
		return apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	tok, err := s.tokens.IssueAction(user.ID, s.actionTTL)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("issuing reset token: %w", err))
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", s.clientURL, url.QueryEscape(tok))
	body := fmt.Sprintf(
		`<p>Click the link below to reset your password:</p><a href="%s">%s</a><p>The link expires in %d minutes.</p>`,
		link, link, int(s.actionTTL.Minutes()),
	)

	if err := s.mailer.Send(ctx, user.Email, "Reset Your Password", body); err != nil {
		return apperror.NewInternal(fmt.Errorf("sending reset email: %w", err))
	}

	slog.Info("password reset requested", slog.String("user_id", user.ID))

	return nil
}

// ResetPassword verifies the reset token and overwrites the stored hash.
// The current session token, if any, stays valid.
func (s *authService) ResetPassword(ctx context.Context, tok, newPassword string) error {
	claims, err := s.tokens.VerifyAction(tok)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return apperror.NewUnauthorized("reset link has expired")
		}
		return apperror.NewBadRequest("Invalid token")
	}

	if len(newPassword) < MinPasswordLength {
		return apperror.NewValidation(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	if err := s.repo.UpdatePassword(ctx, claims.Subject, hash); err != nil {
		if apperror.SafeCode(err) == 404 {
			return apperror.NewNotFound("user not found")
		}
		return apperror.NewInternal(fmt.Errorf("updating password: %w", err))
	}

	slog.Info("password reset completed", slog.String("user_id", claims.Subject))

	return nil
}

// Authenticate runs the hot-path check: signature and expiry first, then
// cache liveness. A cryptographically valid token whose user has no cache
// entry is a dead session -- this is what makes logout effective.
func (s *authService) Authenticate(ctx context.Context, bearer string) (*token.SessionClaims, error) {
	claims, err := s.tokens.VerifySession(bearer)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return nil, apperror.NewUnauthorized("Session expired or invalid")
		}
		return nil, apperror.NewBadRequest("Invalid token")
	}

	cached, err := s.cache.GetSession(ctx, claims.UserID)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	if cached == "" {
		return nil, apperror.NewUnauthorized("Session expired or invalid")
	}

	return claims, nil
}

// IsEmailVerified reads the live flag from the credential store. The
// snapshot inside the token can be stale and is never trusted here.
func (s *authService) IsEmailVerified(ctx context.Context, userID string) (bool, error) {
	user, err := s.repo.FindUserByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.EmailVerified, nil
}

// GetUser loads the full user record.
func (s *authService) GetUser(ctx context.Context, userID string) (*User, error) {
	user, err := s.repo.FindUserByID(ctx, userID)
	if err != nil {
		if apperror.SafeCode(err) == 404 {
			return nil, apperror.NewNotFound("User not found")
		}
		return nil, apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}
	return user, nil
}

// establishSession issues a session token and writes it cache-first, then
// upserts the durable row. There is no transaction spanning the two
// stores: the cache wins, the record lags.
func (s *authService) establishSession(ctx context.Context, userID string, verified bool, meta ClientMeta) (string, error) {
	tok, err := s.tokens.IssueSession(userID, verified)
	if err != nil {
		return "", apperror.NewInternal(fmt.Errorf("issuing session token: %w", err))
	}

	if err := s.cache.SetSession(ctx, userID, tok); err != nil {
		return "", apperror.NewInternal(err)
	}

	expiresAt := time.Now().UTC().Add(s.tokens.SessionTTL())
	session := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Token:     tok,
		UserAgent: meta.UserAgent,
		IPAddress: meta.IPAddress,
		ExpiresAt: &expiresAt,
	}
	if err := s.repo.UpsertSession(ctx, session); err != nil {
		return "", apperror.NewInternal(fmt.Errorf("recording session: %w", err))
	}

	return tok, nil
}
