package auth

import (
	"errors"
	"regexp"
	"time"
)

// usernamePattern defines the valid format for usernames:
// alphanumeric, dots, hyphens, underscores, 1-50 characters.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,50}$`)

// maxUsernameLength is the maximum allowed username length.
const maxUsernameLength = 50

// IsValidUsername checks if a username meets format requirements.
func IsValidUsername(username string) bool {
	return len(username) <= maxUsernameLength && usernamePattern.MatchString(username)
}

// Role represents an authorisation tier in the system.
type Role string

const (
	// RoleUser is a regular account: can read the staff directory and
	// manage its own session, nothing more.
	RoleUser Role = "user"

	// RoleAdmin has full control: user accounts, staff directory,
	// audit history.
	RoleAdmin Role = "admin"
)

// ValidRoles is the set of roles a user account may hold.
var ValidRoles = []Role{RoleUser, RoleAdmin}

// IsValidRole returns true if the role is a recognised account role.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// User represents an authenticated account.
//
// Email is the authentication subject and is compared case-sensitively,
// exactly as stored. ID and Username are immutable after creation.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never serialised
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	StaffID      *int64    `json:"staff_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Credentials is an ephemeral email/password pair. It exists only for the
// duration of a login call and must never be persisted or logged.
type Credentials struct {
	Email    string
	Password string
}

// Sentinel errors for auth operations.
var (
	// ErrInvalidCredentials covers both unknown email and wrong password.
	// The two cases are deliberately indistinguishable to prevent
	// account enumeration.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrUserNotFound   = errors.New("user not found")
	ErrUserInactive   = errors.New("user account is inactive")
	ErrEmailExists    = errors.New("email already registered")
	ErrUsernameExists = errors.New("username already registered")

	ErrTokenExpired   = errors.New("token has expired")
	ErrTokenMalformed = errors.New("malformed token")
	ErrTokenInvalid   = errors.New("invalid token")

	ErrForbidden = errors.New("insufficient permissions")
)
