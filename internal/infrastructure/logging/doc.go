// Package logging provides structured logging for sams-auth.
//
// It wraps log/slog with level parsing, JSON/text output selection, and
// default service/version attributes. All methods are safe for
// concurrent use.
//
// Credentials and password hashes must never appear in log attributes;
// handlers log identifiers (user id, email) only.
package logging
