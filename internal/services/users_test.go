package services

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/ovasylenko/contactbook-backend/internal/database"
	"github.com/ovasylenko/contactbook-backend/internal/models"
)

func setupDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	database.PostgresDB = db
	return mock
}

var userTestColumns = []string{
	"id", "created_at", "email", "display_name", "password_hash", "role",
	"is_verified", "avatar_url", "reset_token_hash", "reset_token_expires_at",
}

func TestCreateUser(t *testing.T) {
	mock := setupDB(t)

	mock.ExpectExec("INSERT INTO users").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "alice@example.com", "Alice", "hash", models.RoleUser).
		WillReturnResult(sqlmock.NewResult(0, 1))

	user, err := CreateUser("alice@example.com", "hash", "Alice")
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, user.ID)
	require.Equal(t, "alice@example.com", user.Email)
	require.Equal(t, models.RoleUser, user.Role)
	require.False(t, user.IsVerified)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	mock := setupDB(t)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := CreateUser("alice@example.com", "hash", "Alice")
	require.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	mock := setupDB(t)

	mock.ExpectQuery("SELECT").
		WithArgs("nobody@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := GetUserByEmail("nobody@example.com")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestGetUserByID(t *testing.T) {
	mock := setupDB(t)

	id := uuid.New()
	created := time.Now().UTC().Truncate(time.Second)
	expires := created.Add(30 * time.Minute)

	mock.ExpectQuery("SELECT").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(userTestColumns).AddRow(
			id.String(), created, "alice@example.com", "Alice", "hash",
			models.RoleAdmin, true, "https://cdn/avatar.png", "reset-hash", expires,
		))

	user, err := GetUserByID(id)
	require.NoError(t, err)
	require.Equal(t, id, user.ID)
	require.Equal(t, models.RoleAdmin, user.Role)
	require.True(t, user.IsVerified)
	require.Equal(t, "https://cdn/avatar.png", user.AvatarURL)
	require.Equal(t, "reset-hash", user.ResetTokenHash)
	require.Equal(t, expires, user.ResetTokenExpiresAt)
}

func TestGetUserByID_NullColumns(t *testing.T) {
	mock := setupDB(t)

	id := uuid.New()
	mock.ExpectQuery("SELECT").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(userTestColumns).AddRow(
			id.String(), time.Now(), "alice@example.com", "Alice", "hash",
			models.RoleUser, false, nil, nil, nil,
		))

	user, err := GetUserByID(id)
	require.NoError(t, err)
	require.Empty(t, user.AvatarURL)
	require.Empty(t, user.ResetTokenHash)
	require.True(t, user.ResetTokenExpiresAt.IsZero())
}

func TestSetVerified_NotFound(t *testing.T) {
	mock := setupDB(t)

	id := uuid.New()
	mock.ExpectExec("UPDATE users SET is_verified = TRUE").
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := SetVerified(id)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestSetPasswordResetState(t *testing.T) {
	mock := setupDB(t)

	id := uuid.New()
	expires := time.Now().Add(30 * time.Minute)
	mock.ExpectExec("UPDATE users SET reset_token_hash").
		WithArgs(id, "token-hash", expires).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, SetPasswordResetState(id, "token-hash", expires))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByID_QueryError(t *testing.T) {
	mock := setupDB(t)

	mock.ExpectQuery("SELECT").
		WillReturnError(errors.New("connection reset"))

	_, err := GetUserByID(uuid.New())
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrUserNotFound)
}
