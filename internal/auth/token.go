package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// defaultTokenTTLMinutes is used when no lifetime is configured.
const defaultTokenTTLMinutes = 30

// Claims extends JWT registered claims with sams-auth-specific fields.
// The subject is the user's email; role and user id are carried for
// observability only — the session resolver always re-reads them from
// the store.
type Claims struct {
	jwt.RegisteredClaims
	Role   Role  `json:"role"`
	UserID int64 `json:"uid"`
}

// TokenCodec issues and verifies signed access tokens.
//
// The codec is immutable after construction: secret and lifetime are fixed
// at process start and shared by issuer and verifier. Rotating the secret
// invalidates every outstanding token immediately — there is no dual-key
// grace period.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenCodec creates a codec with the given signing secret and token
// lifetime in minutes. A non-positive lifetime falls back to 30 minutes.
func NewTokenCodec(secret string, ttlMinutes int) *TokenCodec {
	if ttlMinutes <= 0 {
		ttlMinutes = defaultTokenTTLMinutes
	}
	return &TokenCodec{
		secret: []byte(secret),
		ttl:    time.Duration(ttlMinutes) * time.Minute,
	}
}

// TTL returns the configured token lifetime.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Issue creates a signed HS256 access token for a user. Expiry is always
// set to now + configured lifetime.
func (c *TokenCodec) Issue(user *User) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
			ID:        uuid.NewString(),
		},
		Role:   user.Role,
		UserID: user.ID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

// Decode verifies a token's signature and expiry, returning its claims.
//
// The signature is checked before any claim is trusted: a payload whose
// signature does not verify is never partially decoded into a result.
// Failures map to the sentinel errors:
//   - ErrTokenMalformed: not a structurally valid JWT
//   - ErrTokenExpired:   well-signed but past its expiry
//   - ErrTokenInvalid:   tampered signature, wrong algorithm, or missing
//     required claims
func (c *TokenCodec) Decode(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(_ *jwt.Token) (any, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: %w", ErrTokenMalformed, err)
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		default:
			return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	if claims.Role == "" {
		return nil, fmt.Errorf("%w: missing role", ErrTokenInvalid)
	}

	return claims, nil
}
