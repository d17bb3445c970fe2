package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vidorahq/vidora/internal/apperror"
)

// Repository defines the data access contract for the credential store
// (users table) and the session record store (sessions table). All SQL
// lives in the concrete implementation -- no SQL leaks out.
type Repository interface {
	// Credential store.
	CreateUser(ctx context.Context, user *User) error
	FindUserByID(ctx context.Context, id string) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	UpdateLastLogin(ctx context.Context, userID string) error

	// Session record store.
	UpsertSession(ctx context.Context, session *Session) error
	FindSessionByUserID(ctx context.Context, userID string) (*Session, error)
	DeleteSessionByUserID(ctx context.Context, userID string) error

	// CompleteVerification flips email_verified and rotates the session
	// token in a single transaction.
	CompleteVerification(ctx context.Context, userID, newToken string) error
}

// repository implements Repository with hand-written PostgreSQL queries.
type repository struct {
	db *sql.DB
}

// NewRepository creates a repository backed by the given DB pool.
func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const userColumns = `user_id, name, email, password, profile_image, bio,
	       role, account_status, email_verified, premium, last_login,
	       created_at, updated_at`

// CreateUser inserts a new user row. Role, status, and flags take their
// schema defaults.
func (r *repository) CreateUser(ctx context.Context, user *User) error {
	query := `INSERT INTO users (user_id, name, email, password)
	          VALUES ($1, $2, $3, $4)`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
	)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}

	return nil
}

// FindUserByID retrieves a user by their UUID.
// Returns apperror.NotFound if no user exists with this ID.
func (r *repository) FindUserByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`

	user := &User{}
	err := scanUser(r.db.QueryRowContext(ctx, query, id), user)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying user by id: %w", err)
	}

	return user, nil
}

// FindUserByEmail retrieves a user by their email address. The match is
// case-sensitive as stored.
// Returns apperror.NotFound if no user exists with this email.
func (r *repository) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user := &User{}
	err := scanUser(r.db.QueryRowContext(ctx, query, email), user)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying user by email: %w", err)
	}

	return user, nil
}

// EmailExists returns true if a user with the given email already exists.
// Used during registration to check for duplicates before hashing the password.
func (r *repository) EmailExists(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking email existence: %w", err)
	}

	return exists, nil
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

// UpdateLastLogin sets the last_login timestamp to now for the given user.
func (r *repository) UpdateLastLogin(ctx context.Context, userID string) error {
	query := `UPDATE users SET last_login = NOW() WHERE user_id = $1`

	_, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("updating last login: %w", err)
	}

	return nil
}

// --- Session record store ---

// UpsertSession inserts the session row for a user or, if one already
// exists, overwrites its token and client metadata in place. The unique
// constraint on user_id enforces the one-row-per-user policy.
func (r *repository) UpsertSession(ctx context.Context, session *Session) error {
	deviceInfo, err := marshalDeviceInfo(session.UserAgent)
	if err != nil {
		return fmt.Errorf("encoding device info: %w", err)
	}

	query := `INSERT INTO sessions (session_id, user_id, token, device_info, ip_address, expires_at)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          ON CONFLICT (user_id) DO UPDATE
	          SET token = EXCLUDED.token,
	              device_info = EXCLUDED.device_info,
	              ip_address = EXCLUDED.ip_address,
	              expires_at = EXCLUDED.expires_at,
	              created_at = NOW()`

	_, err = r.db.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		session.Token,
		deviceInfo,
		nullString(session.IPAddress),
		session.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("upserting session: %w", err)
	}

	return nil
}

// FindSessionByUserID retrieves the session row for a user.
// Returns apperror.NotFound if the user has no session row.
func (r *repository) FindSessionByUserID(ctx context.Context, userID string) (*Session, error) {
	query := `SELECT session_id, user_id, token, device_info, ip_address, expires_at, created_at
	          FROM sessions WHERE user_id = $1`

	session := &Session{}
	var deviceInfo []byte
	var ipAddress sql.NullString

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&session.ID,
		&session.UserID,
		&session.Token,
		&deviceInfo,
		&ipAddress,
		&session.ExpiresAt,
		&session.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("session not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying session by user id: %w", err)
	}

	session.UserAgent = unmarshalDeviceInfo(deviceInfo)
	session.IPAddress = ipAddress.String

	return session, nil
}

// DeleteSessionByUserID removes the session row for a user. Deleting a
// row that is already gone is not an error -- logout is idempotent at
// the record layer.
func (r *repository) DeleteSessionByUserID(ctx context.Context, userID string) error {
	query := `DELETE FROM sessions WHERE user_id = $1`

	_, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}

	return nil
}

// CompleteVerification marks the user's email as verified and rotates the
// session row to the freshly issued token, atomically. The cache write
// happens after commit in the service layer; the durable mutation itself
// must not be observable half-done.
func (r *repository) CompleteVerification(ctx context.Context, userID, newToken string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning verification tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET email_verified = TRUE, updated_at = NOW() WHERE user_id = $1`,
		userID,
	); err != nil {
		return fmt.Errorf("marking email verified: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET token = $1 WHERE user_id = $2`,
		newToken, userID,
	); err != nil {
		return fmt.Errorf("rotating session token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing verification tx: %w", err)
	}

	return nil
}

// --- Scan helpers ---

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanUser reads a full user row in userColumns order.
func scanUser(row rowScanner, user *User) error {
	var lastLogin sql.NullTime
	err := row.Scan(
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
	if err != nil {
		return err
	}
	if lastLogin.Valid {
		user.LastLoginAt = &lastLogin.Time
	}
	return nil
}

// deviceInfo is the JSON shape stored in the sessions.device_info column.
type deviceInfo struct {
	UserAgent string `json:"user_agent,omitempty"`
}

func marshalDeviceInfo(userAgent string) ([]byte, error) {
	if userAgent == "" {
		return nil, nil
	}
	return json.Marshal(deviceInfo{UserAgent: userAgent})
}

func unmarshalDeviceInfo(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	var info deviceInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return ""
	}
	return info.UserAgent
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
