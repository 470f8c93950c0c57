// Package account holds the login accounts members are linked to. Password
// verification itself happens outside this service; only the hash is kept.
package account

import (
	"context"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mahdygh/bookclub/internal/domain/shared"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

var usernameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]{2,31}$`)

// User is a login account.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// NewUser validates the credentials and hashes the password with bcrypt.
func NewUser(id, username, password string, now time.Time) (*User, error) {
	username = NormalizeUsername(username)
	if id == "" {
		return nil, shared.NewDomainError("account", "Create", shared.ErrInvalidID, "user id is required")
	}
	if !usernameRegex.MatchString(username) {
		return nil, shared.NewDomainError("account", "Create", shared.ErrInvalidInput,
			"username must be 3-32 characters of letters, digits, '.', '_' or '-'")
	}
	if len(password) < MinPasswordLength {
		return nil, shared.ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, shared.WrapError("account", "Create", shared.ErrInvalidInput, "hash password", err)
	}

	return &User{
		ID:           id,
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    now,
	}, nil
}

// NormalizeUsername lowercases and trims a username.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// CheckPassword reports whether password matches the stored hash.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// Repository persists accounts.
type Repository interface {
	// Create returns ErrUsernameTaken when the username exists.
	Create(ctx context.Context, u *User) error

	// GetByID returns ErrUserNotFound when the user does not exist.
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByUsername returns ErrUserNotFound when the user does not exist.
	GetByUsername(ctx context.Context, username string) (*User, error)
}
