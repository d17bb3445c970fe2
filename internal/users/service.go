package users

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vidorahq/vidora/internal/apperror"
	"github.com/vidorahq/vidora/internal/auth"
)

// Service defines the account operations exposed by this package.
type Service interface {
	// GetProfile loads the user's own record.
	GetProfile(ctx context.Context, userID string) (*auth.User, error)

	// ChangePassword verifies the current password and stores a new hash.
	// Unlike the reset flow, the caller must already be authenticated and
	// prove knowledge of the current password.
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
}

// service implements Service.
type service struct {
	repo Repository
}

// NewService creates a users service with the given repository.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// GetProfile loads the user's own record.
func (s *service) GetProfile(ctx context.Context, userID string) (*auth.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if apperror.SafeCode(err) == 404 {
			return nil, apperror.NewNotFound("User not found")
		}
		return nil, apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}
	return user, nil
}

// ChangePassword verifies the current password and overwrites the hash.
// Existing sessions are untouched -- the token stays valid.
func (s *service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if apperror.SafeCode(err) == 404 {
			return apperror.NewNotFound("User not found")
		}
		return apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	if !auth.VerifyPassword(currentPassword, user.PasswordHash) {
		return apperror.NewBadRequest("Current password is incorrect")
	}

	if len(newPassword) < auth.MinPasswordLength {
		return apperror.NewValidation(fmt.Sprintf("password must be at least %d characters", auth.MinPasswordLength))
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		return apperror.NewInternal(fmt.Errorf("updating password: %w", err))
	}

	slog.Info("password changed", slog.String("user_id", userID))

	return nil
}
