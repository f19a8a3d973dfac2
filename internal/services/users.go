package services

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ovasylenko/contactbook-backend/internal/database"
	"github.com/ovasylenko/contactbook-backend/internal/models"
)

var (
	ErrDuplicateEmail = errors.New("user with this email already exists")
	ErrUserNotFound   = errors.New("user not found")
)

const userColumns = `id, created_at, email, display_name, password_hash, role, is_verified,
	avatar_url, reset_token_hash, reset_token_expires_at`

// CreateUser inserts a new unverified user with role "user". The email
// must already be normalized to lowercase. Returns ErrDuplicateEmail when
// the case-insensitive unique index rejects the row.
func CreateUser(email, passwordHash, displayName string) (*models.User, error) {
	user := &models.User{
		ID:           uuid.New(),
		CreatedAt:    time.Now(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		Role:         models.RoleUser,
		IsVerified:   false,
	}

	_, err := database.PostgresDB.Exec(`
		INSERT INTO users (id, created_at, email, display_name, password_hash, role, is_verified)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE)
	`, user.ID, user.CreatedAt, user.Email, user.DisplayName, user.PasswordHash, user.Role)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}

	return user, nil
}

// GetUserByEmail looks a user up by normalized email.
func GetUserByEmail(email string) (*models.User, error) {
	row := database.PostgresDB.QueryRow(`
		SELECT `+userColumns+`
		FROM users WHERE LOWER(email) = LOWER($1)
	`, email)
	return scanUser(row)
}

// GetUserByID looks a user up by ID.
func GetUserByID(id uuid.UUID) (*models.User, error) {
	row := database.PostgresDB.QueryRow(`
		SELECT `+userColumns+`
		FROM users WHERE id = $1
	`, id)
	return scanUser(row)
}

// SetVerified marks the user's email as verified. Verification is
// monotonic; nothing ever sets it back to false.
func SetVerified(id uuid.UUID) error {
	return execOnUser(`UPDATE users SET is_verified = TRUE WHERE id = $1`, id)
}

// SetAvatarURL updates the user's avatar URL.
func SetAvatarURL(id uuid.UUID, url string) error {
	return execOnUser(`UPDATE users SET avatar_url = $2 WHERE id = $1`, id, url)
}

// SetPasswordResetState stores the hash of a freshly issued reset token
// and its expiry, revoking any previously issued reset token.
func SetPasswordResetState(id uuid.UUID, tokenHash string, expiresAt time.Time) error {
	return execOnUser(`
		UPDATE users SET reset_token_hash = $2, reset_token_expires_at = $3 WHERE id = $1
	`, id, tokenHash, expiresAt)
}

// ClearPasswordResetState removes any pending reset token, making a
// consumed token single-use.
func ClearPasswordResetState(id uuid.UUID) error {
	return execOnUser(`
		UPDATE users SET reset_token_hash = NULL, reset_token_expires_at = NULL WHERE id = $1
	`, id)
}

// UpdatePasswordHash replaces the user's password hash.
func UpdatePasswordHash(id uuid.UUID, newHash string) error {
	return execOnUser(`UPDATE users SET password_hash = $2 WHERE id = $1`, id, newHash)
}

func execOnUser(query string, args ...interface{}) error {
	result, err := database.PostgresDB.Exec(query, args...)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (*models.User, error) {
	var user models.User
	var avatarURL, resetHash sql.NullString
	var resetExpires sql.NullTime

	err := row.Scan(&user.ID, &user.CreatedAt, &user.Email, &user.DisplayName,
		&user.PasswordHash, &user.Role, &user.IsVerified,
		&avatarURL, &resetHash, &resetExpires)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	user.AvatarURL = avatarURL.String
	user.ResetTokenHash = resetHash.String
	if resetExpires.Valid {
		user.ResetTokenExpiresAt = resetExpires.Time
	}

	return &user, nil
}
