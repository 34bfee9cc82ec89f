// Package database manages the SQLite connection and schema migrations
// for sams-auth.
//
// SQLite is opened with WAL mode and a busy timeout, restricted to a
// single writer connection (SQLite's natural model). Migrations are
// plain SQL files embedded into the binary and applied in version order,
// each in its own transaction, tracked via the schema_migrations table.
package database
