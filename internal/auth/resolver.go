package auth

import (
	"context"
	"errors"
	"fmt"
)

// SessionResolver turns a bearer token into a live user record.
//
// Token claims are treated as an identity pointer only: role and active
// status are re-read from the store on every resolution. This closes the
// gap where an account is deactivated after a token was issued but before
// it expires — possession of a well-signed, unexpired token never grants
// access to a deactivated account.
type SessionResolver struct {
	codec *TokenCodec
	users UserRepository
}

// NewSessionResolver creates a resolver from a token codec and user store.
func NewSessionResolver(codec *TokenCodec, users UserRepository) *SessionResolver {
	return &SessionResolver{codec: codec, users: users}
}

// Resolve validates a token and loads the user it identifies.
//
// Decode failures (expired, tampered, malformed) propagate as the token
// sentinel errors; a token whose subject no longer exists in the store
// resolves to ErrTokenInvalid. An inactive account is a distinct
// ErrUserInactive outcome, since identity was established.
func (r *SessionResolver) Resolve(ctx context.Context, tokenString string) (*User, error) {
	claims, err := r.codec.Decode(tokenString)
	if err != nil {
		return nil, err
	}

	user, err := r.users.GetByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, fmt.Errorf("%w: subject no longer exists", ErrTokenInvalid)
		}
		return nil, fmt.Errorf("loading token subject: %w", err)
	}

	if !user.IsActive {
		return nil, ErrUserInactive
	}

	return user, nil
}
