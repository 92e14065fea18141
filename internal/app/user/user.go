/*
Package user contains core data structures and logic related to user identity.

It defines the account record (User), the public projection sent to clients (Profile),
the persistence contract (Store), and the credential rules shared by registration and the admin seed.
*/
package user

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultLanguage is assigned to accounts that never chose a preferred language.
	DefaultLanguage = "en"

	minPasswordLength = 6
	maxPasswordLength = 72
)

var (
	// ErrNotFound is returned by Store lookups for an unknown account.
	ErrNotFound = errors.New("user not found")

	// ErrUsernameTaken is returned by Store.Create when the username already exists, ignoring case.
	ErrUsernameTaken = errors.New("username already taken")

	usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)
)

// User is the account record owned by the account store.
type User struct {
	ID                string     `json:"id"`
	Username          string     `json:"username"`
	PasswordHash      string     `json:"-"`
	Avatar            string     `json:"avatar,omitempty"`
	PreferredLanguage string     `json:"preferredLanguage"`
	IsAdmin           bool       `json:"isAdmin"`
	IsBlocked         bool       `json:"isBlocked"`
	LastSeen          *time.Time `json:"lastSeen,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}

// Profile is the immutable identity snapshot attached to a connection for its lifetime.
type Profile struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	Avatar            string `json:"avatar,omitempty"`
	PreferredLanguage string `json:"preferredLanguage"`
	IsAdmin           bool   `json:"isAdmin"`
}

// Profile returns the public snapshot of u.
func (u *User) Profile() Profile {
	lang := u.PreferredLanguage
	if lang == "" {
		lang = DefaultLanguage
	}

	return Profile{
		ID:                u.ID,
		DisplayName:       u.Username,
		Avatar:            u.Avatar,
		PreferredLanguage: lang,
		IsAdmin:           u.IsAdmin,
	}
}

// Store is the account persistence contract.
type Store interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	// FindByUsername matches case-insensitively.
	FindByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]User, error)
	UpdatePreferredLanguage(ctx context.Context, id, lang string) (*User, error)
	// UpdateAvatar stores the new avatar key and returns the previous one.
	UpdateAvatar(ctx context.Context, id, key string) (previous string, err error)
	SetBlocked(ctx context.Context, id string, blocked bool) (*User, error)
	TouchLastSeen(ctx context.Context, id string, at time.Time) error
}

// ValidUsername reports whether name is 3-20 letters, digits or underscores.
func ValidUsername(name string) bool {
	return usernameRegex.MatchString(name)
}

// ValidPassword reports whether password satisfies the length rules.
func ValidPassword(password string) bool {
	n := utf8.RuneCountInString(password)
	return n >= minPasswordLength && len(password) <= maxPasswordLength
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored hash.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// NormalizeUsername is the case-folded form used for uniqueness.
func NormalizeUsername(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
