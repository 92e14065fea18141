package user

import (
	"context"
	"errors"
	"fmt"
)

// EnsureAdmin creates the admin account username unless an account with that name exists.
// An existing account is left untouched and reported with created == false.
func EnsureAdmin(ctx context.Context, store Store, username, password string) (u *User, created bool, err error) {
	existing, err := store.FindByUsername(ctx, username)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, fmt.Errorf("look up admin %q: %w", username, err)
	}

	if !ValidUsername(username) || !ValidPassword(password) {
		return nil, false, fmt.Errorf("admin credentials for %q do not satisfy account rules", username)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, false, fmt.Errorf("hash admin password: %w", err)
	}

	u = &User{
		Username:          username,
		PasswordHash:      hash,
		PreferredLanguage: DefaultLanguage,
		IsAdmin:           true,
	}
	if err := store.Create(ctx, u); err != nil {
		return nil, false, fmt.Errorf("create admin %q: %w", username, err)
	}

	return u, true, nil
}
