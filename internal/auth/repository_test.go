package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userRows = []string{
	"user_id", "name", "email", "password", "profile_image", "bio",
	"role", "account_status", "email_verified", "premium", "last_login",
	"created_at", "updated_at",
}

func newMockRepository(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db), mock
}

func TestRepositoryCreateUser(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec("INSERT INTO users").
		WithArgs("user-123", "Alice", "alice@example.com", "hashed-password").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.CreateUser(context.Background(), &User{
		ID:           "user-123",
		Name:         "Alice",
		Email:        "alice@example.com",
		PasswordHash: "hashed-password",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryFindUserByEmail(t *testing.T) {
	repo, mock := newMockRepository(t)

	now := time.Now().UTC()
	lastLogin := now.Add(-time.Hour)
	rows := sqlmock.NewRows(userRows).AddRow(
		"user-123", "Alice", "alice@example.com", "hashed-password", nil, nil,
		"viewer", "active", true, false, lastLogin,
		now, now,
	)
	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("alice@example.com").
		WillReturnRows(rows)

	user, err := repo.FindUserByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user-123", user.ID)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.True(t, user.EmailVerified)
	require.NotNil(t, user.LastLoginAt)
	assert.WithinDuration(t, lastLogin, *user.LastLoginAt, time.Second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryFindUserByEmail_NotFound(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows(userRows))

	_, err := repo.FindUserByEmail(context.Background(), "nobody@example.com")
	assertAppError(t, err, 404)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryFindUserByID_NullableFields(t *testing.T) {
	repo, mock := newMockRepository(t)

	now := time.Now().UTC()
	rows := sqlmock.NewRows(userRows).AddRow(
		"user-123", "Alice", "alice@example.com", "hashed-password", nil, nil,
		"viewer", "active", false, false, nil,
		now, now,
	)
	mock.ExpectQuery("SELECT (.+) FROM users WHERE user_id").
		WithArgs("user-123").
		WillReturnRows(rows)

	user, err := repo.FindUserByID(context.Background(), "user-123")
	require.NoError(t, err)
	assert.Nil(t, user.ProfileImage)
	assert.Nil(t, user.Bio)
	assert.Nil(t, user.LastLoginAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryEmailExists(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.EmailExists(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryUpdatePassword_NotFound(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec("UPDATE users SET password").
		WithArgs("new-hash", "missing-user").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdatePassword(context.Background(), "missing-user", "new-hash")
	assertAppError(t, err, 404)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryUpsertSession(t *testing.T) {
	repo, mock := newMockRepository(t)

	expiresAt := time.Now().UTC().Add(240 * time.Hour)
	mock.ExpectExec("INSERT INTO sessions").
		WithArgs("sess-1", "user-123", "jwt-token",
			[]byte(`{"user_agent":"test-agent/1.0"}`),
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpsertSession(context.Background(), &Session{
		ID:        "sess-1",
		UserID:    "user-123",
		Token:     "jwt-token",
		UserAgent: "test-agent/1.0",
		IPAddress: "203.0.113.7",
		ExpiresAt: &expiresAt,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryFindSessionByUserID(t *testing.T) {
	repo, mock := newMockRepository(t)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"session_id", "user_id", "token", "device_info", "ip_address", "expires_at", "created_at",
	}).AddRow(
		"sess-1", "user-123", "jwt-token",
		[]byte(`{"user_agent":"test-agent/1.0"}`), "203.0.113.7", now.Add(time.Hour), now,
	)
	mock.ExpectQuery("SELECT (.+) FROM sessions WHERE user_id").
		WithArgs("user-123").
		WillReturnRows(rows)

	session, err := repo.FindSessionByUserID(context.Background(), "user-123")
	require.NoError(t, err)
	assert.Equal(t, "jwt-token", session.Token)
	assert.Equal(t, "test-agent/1.0", session.UserAgent)
	assert.Equal(t, "203.0.113.7", session.IPAddress)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryDeleteSessionByUserID_Idempotent(t *testing.T) {
	repo, mock := newMockRepository(t)

	// Zero rows affected is not an error: logout after expiry is fine.
	mock.ExpectExec("DELETE FROM sessions").
		WithArgs("user-123").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeleteSessionByUserID(context.Background(), "user-123")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryCompleteVerification(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users SET email_verified").
		WithArgs("user-123").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE sessions SET token").
		WithArgs("new-token", "user-123").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.CompleteVerification(context.Background(), "user-123", "new-token")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryCompleteVerification_RollsBackOnFailure(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users SET email_verified").
		WithArgs("user-123").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE sessions SET token").
		WithArgs("new-token", "user-123").
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	err := repo.CompleteVerification(context.Background(), "user-123", "new-token")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
