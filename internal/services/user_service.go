package services

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/minhvu/schedly-be/internal/apperr"
	"github.com/minhvu/schedly-be/internal/auth"
	"github.com/minhvu/schedly-be/internal/models"
)

// ProfileUpdate carries the fields of a profile update request. A nil field
// keeps the previously stored value.
type ProfileUpdate struct {
	Username  *string
	Email     *string
	AvatarURL *string
	DOB       *string
	Gender    *string
	Phone     *string
}

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Register(username, email, password, role string) (models.User, error)
	Authenticate(identifier, password string) (models.User, error)
	GetUserByID(id string) (models.User, error)
	FindByEmail(email string) (models.User, error)
	UpdateProfile(id string, update ProfileUpdate) (models.User, error)
	VerifyCurrentPassword(id, currentPassword string) (bool, error)
	ChangePassword(id, newPassword string) error
	StoreResetToken(userID, token string, expiry time.Time) error
	ResetPassword(userID, token, newPassword string) error
}

// UserService provides business logic for account management.
type UserService struct {
	db *sql.DB
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB) *UserService {
	return &UserService{db: db}
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint
// failure. The modernc driver exposes this only through the error text.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Register creates a new account with a hashed password. The username and
// email must both be unused; the UNIQUE columns back up the pre-check, so a
// concurrent duplicate still comes back as a conflict.
func (s *UserService) Register(username, email, password, role string) (models.User, error) {
	if username == "" || email == "" || password == "" {
		return models.User{}, fmt.Errorf("%w: username, email and password are required", apperr.ErrValidation)
	}

	role = strings.TrimSpace(role)
	if role == "" {
		role = models.DefaultRole
	}

	var exists int
	err := s.db.QueryRow("SELECT COUNT(*) FROM users WHERE username = ? OR email = ?", username, email).Scan(&exists)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %v", apperr.ErrStorageUnavailable, err)
	}
	if exists > 0 {
		return models.User{}, fmt.Errorf("%w: username or email already taken", apperr.ErrConflict)
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hashed,
		Role:         role,
		CreatedAt:    time.Now(),
	}

	_, err = s.db.Exec(
		"INSERT INTO users(id, username, email, password_hash, role, created_at) VALUES(?, ?, ?, ?, ?, ?)",
		user.ID, user.Username, user.Email, user.PasswordHash, user.Role, user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, fmt.Errorf("%w: username or email already taken", apperr.ErrConflict)
		}
		return models.User{}, fmt.Errorf("%w: %v", apperr.ErrStorageUnavailable, err)
	}

	user.PasswordHash = ""
	return user, nil
}

// Authenticate verifies credentials against either the username or the
// email. Unknown identifier and wrong password produce the same error so a
// caller cannot probe which accounts exist.
func (s *UserService) Authenticate(identifier, password string) (models.User, error) {
	row := s.db.QueryRow(userSelect+" WHERE username = ? OR email = ?", identifier, identifier)
	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.User{}, apperr.ErrInvalidCredentials
		}
		return models.User{}, fmt.Errorf("%w: %v", apperr.ErrStorageUnavailable, err)
	}

	if !auth.CheckPassword(password, user.PasswordHash) {
		return models.User{}, apperr.ErrInvalidCredentials
	}

	user.PasswordHash = ""
	return user, nil
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(id string) (models.User, error) {
	row := s.db.QueryRow(userSelect+" WHERE id = ?", id)
	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.User{}, fmt.Errorf("%w: user", apperr.ErrNotFound)
		}
		return models.User{}, fmt.Errorf("%w: %v", apperr.ErrStorageUnavailable, err)
	}
	user.PasswordHash = ""
	return user, nil
}

// FindByEmail retrieves a user by email. Used by password-reset initiation;
// the handler must answer uniformly whether or not this finds a row.
func (s *UserService) FindByEmail(email string) (models.User, error) {
	row := s.db.QueryRow(userSelect+" WHERE email = ?", email)
	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.User{}, fmt.Errorf("%w: user", apperr.ErrNotFound)
		}
		return models.User{}, fmt.Errorf("%w: %v", apperr.ErrStorageUnavailable, err)
	}
	user.PasswordHash = ""
	return user, nil
}

// UpdateProfile applies a partial profile update: fields absent from the
// request keep their stored values.
func (s *UserService) UpdateProfile(id string, update ProfileUpdate) (models.User, error) {
	current, err := s.GetUserByID(id)
	if err != nil {
		return models.User{}, err
	}

	username := current.Username
	if update.Username != nil {
		username = *update.Username
	}
	email := current.Email
	if update.Email != nil {
		email = *update.Email
	}
	avatarURL := orPrevious(update.AvatarURL, current.AvatarURL)
	dob := orPrevious(update.DOB, current.DOB)
	gender := orPrevious(update.Gender, current.Gender)
	phone := orPrevious(update.Phone, current.Phone)

	_, err = s.db.Exec(`
		UPDATE users SET username = ?, email = ?, avatar_url = ?, dob = ?, gender = ?, phone = ?
		WHERE id = ?`,
		username, email, avatarURL, dob, gender, phone, id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, fmt.Errorf("%w: username or email already taken", apperr.ErrConflict)
		}
		return models.User{}, fmt.Errorf("%w: %v", apperr.ErrStorageUnavailable, err)
	}

	return s.GetUserByID(id)
}

// VerifyCurrentPassword checks a plaintext password against the stored hash.
func (s *UserService) VerifyCurrentPassword(id, currentPassword string) (bool, error) {
	var hash string
	err := s.db.QueryRow("SELECT password_hash FROM users WHERE id = ?", id).Scan(&hash)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, fmt.Errorf("%w: user", apperr.ErrNotFound)
		}
		return false, fmt.Errorf("%w: %v", apperr.ErrStorageUnavailable, err)
	}
	return auth.CheckPassword(currentPassword, hash), nil
}

// ChangePassword re-hashes and stores a new password. The plaintext is
// hashed here unconditionally; a pre-hashed value from a caller would simply
// be treated as a (bad) plaintext.
func (s *UserService) ChangePassword(id, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: new password is required", apperr.ErrValidation)
	}

	hashed, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}

	res, err := s.db.Exec("UPDATE users SET password_hash = ? WHERE id = ?", hashed, id)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrStorageUnavailable, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: user", apperr.ErrNotFound)
	}
	return nil
}

// StoreResetToken records a digest of an issued password-reset token along
// with its expiry. Only the digest is persisted, so the table never holds a
// usable token.
func (s *UserService) StoreResetToken(userID, token string, expiry time.Time) error {
	_, err := s.db.Exec(
		"UPDATE users SET reset_token_hash = ?, reset_token_expiry = ? WHERE id = ?",
		digestToken(token), expiry, userID,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrStorageUnavailable, err)
	}
	return nil
}

/// ResetPassword consumes a reset token: the token must match the stored
// digest and be unexpired. The stored digest is cleared on success, so a
// token works exactly once.
func (s *UserService) ResetPassword(userID, token, newPassword string) error {
	var storedHash sql.NullString
	var expiry sql.NullTime
	err := s.db.QueryRow(
		"SELECT reset_token_hash, reset_token_expiry FROM users WHERE id = ?", userID,
	).Scan(&storedHash, &expiry)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: user", apperr.ErrNotFound)
		}
		return fmt.Errorf("%w: %v", apperr.ErrStorageUnavailable, err)
	}

	if !storedHash.Valid || storedHash.String != digestToken(token) {
		return fmt.Errorf("%w: reset token not recognized", apperr.ErrUnauthenticated)
	}
	if !expiry.Valid || time.Now().After(expiry.Time) {
		return fmt.Errorf("%w: reset token expired", apperr.ErrUnauthenticated)
	}

	if err := s.ChangePassword(userID, newPassword); err != nil {
		return err
	}

	_, err = s.db.Exec("UPDATE users SET reset_token_hash = NULL, reset_token_expiry = NULL WHERE id = ?", userID)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrStorageUnavailable, err)
	}
	return nil
}

const userSelect = `SELECT id, username, email, password_hash, role, avatar_url, dob, gender, phone, created_at FROM users`

func scanUser(scanner interface{ Scan(...interface{}) error }) (models.User, error) {
	var user models.User
	err := scanner.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.AvatarURL,
		&user.DOB,
		&user.Gender,
		&user.Phone,
		&user.CreatedAt,
	)
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

func orPrevious(updated, previous *string) *string {
	if updated != nil {
		return updated
	}
	return previous
}

func digestToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
