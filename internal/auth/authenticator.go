package auth

import (
	"context"
	"errors"
	"fmt"
)

// Authenticator verifies email/password credentials against the user store.
//
// It performs a single read per call and never retries: a failed lookup or
// a failed verify is terminal for that call.
type Authenticator struct {
	users UserRepository
}

// NewAuthenticator creates an authenticator backed by the given repository.
func NewAuthenticator(users UserRepository) *Authenticator {
	return &Authenticator{users: users}
}

// Authenticate verifies a credential pair and returns the matching user.
//
// Unknown email and wrong password both return ErrInvalidCredentials —
// the caller must not be able to tell which part was wrong. An inactive
// account returns ErrUserInactive, but only after the password verified,
// so account status is never leaked to a caller who doesn't hold the
// correct password.
func (a *Authenticator) Authenticate(ctx context.Context, creds Credentials) (*User, error) {
	user, err := a.users.GetByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	if !VerifyPassword(creds.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrUserInactive
	}

	return user, nil
}
