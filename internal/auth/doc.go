// Package auth provides authentication and authorisation for sams-auth.
//
// It implements email/password credential verification and bearer-token
// access control with:
//   - Argon2id password hashing (OWASP 2025 recommendation)
//   - Signed, expiring HS256 access tokens (subject = email)
//   - Resolution-time re-check of the user record, so a deactivated
//     account is locked out even while its token is still unexpired
//   - Role-based access policies evaluated as pure predicates
//
// The package deliberately separates "identity not established"
// (ErrTokenInvalid family, ErrInvalidCredentials) from "identity known,
// insufficient privilege" (ErrForbidden) and from "account disabled"
// (ErrUserInactive). The API layer maps these to 401, 403 and 403.
package auth
