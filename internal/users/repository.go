// Package users exposes the account-facing endpoints that sit next to the
// auth flows: profile fetch and password change. It reads the same users
// table through its own narrow repository.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vidorahq/vidora/internal/apperror"
	"github.com/vidorahq/vidora/internal/auth"
)

// Repository is the narrow data access contract this package needs.
type Repository interface {
	FindByID(ctx context.Context, id string) (*auth.User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

// repository implements Repository with hand-written PostgreSQL queries.
type repository struct {
	db *sql.DB
}

// NewRepository creates a repository backed by the given DB pool.
func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// FindByID retrieves a user by their UUID.
// Returns apperror.NotFound if no user exists with this ID.
func (r *repository) FindByID(ctx context.Context, id string) (*auth.User, error) {
	query := `SELECT user_id, name, email, password, profile_image, bio,
	       role, account_status, email_verified, premium, last_login,
	       created_at, updated_at
	          FROM users WHERE user_id = $1`

	user := &auth.User{}
	var lastLogin sql.NullTime
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.ProfileImage,
		&user.Bio,
		&user.Role,
		&user.AccountStatus,
		&user.EmailVerified,
		&user.Premium,
		&lastLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying user by id: %w", err)
	}
	if lastLogin.Valid {
		user.LastLoginAt = &lastLogin.Time
	}

	return user, nil
}

// UpdatePassword sets a new password hash for a user.
func (r *repository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	query := `UPDATE users SET password = $1, updated_at = NOW() WHERE user_id = $2`

	result, err := r.db.ExecContext(ctx, query, passwordHash, userID)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperror.NewNotFound("user not found")
	}
	return nil
}
