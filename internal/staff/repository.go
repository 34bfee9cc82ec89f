package staff

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a staff member does not exist.
var ErrNotFound = errors.New("staff member not found")

// Member represents a staff directory entry.
type Member struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Position  string    `json:"position"`
	Email     string    `json:"email"`
	PhotoURL  string    `json:"photo_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Repository defines the interface for staff directory persistence.
type Repository interface {
	Create(ctx context.Context, member *Member) error
	GetByID(ctx context.Context, id int64) (*Member, error)
	List(ctx context.Context) ([]Member, error)
	Update(ctx context.Context, member *Member) error
	Delete(ctx context.Context, id int64) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewRepository creates a new SQLite-backed staff repository.
func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const memberColumns = "id, name, position, email, photo_url, created_at, updated_at"

// Create inserts a new staff member and fills in the generated ID.
func (r *SQLiteRepository) Create(ctx context.Context, member *Member) error {
	now := time.Now().UTC().Format(time.RFC3339)
	member.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled
	member.UpdatedAt = member.CreatedAt

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO staff_members (name, position, email, photo_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		member.Name, member.Position, member.Email, nullString(member.PhotoURL), now, now,
	)
	if err != nil {
		return fmt.Errorf("creating staff member: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading new staff id: %w", err)
	}
	member.ID = id

	return nil
}

// GetByID retrieves a staff member by ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*Member, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+memberColumns+" FROM staff_members WHERE id = ?", id)
	return scanMember(row)
}

// List returns all staff members ordered by creation date.
func (r *SQLiteRepository) List(ctx context.Context) ([]Member, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+memberColumns+" FROM staff_members ORDER BY created_at ASC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("listing staff: %w", err)
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating staff: %w", err)
	}

	if members == nil {
		members = []Member{}
	}
	return members, nil
}

// Update modifies a staff member's fields.
func (r *SQLiteRepository) Update(ctx context.Context, member *Member) error {
	now := time.Now().UTC().Format(time.RFC3339)
	member.UpdatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled

	result, err := r.db.ExecContext(ctx,
		`UPDATE staff_members SET name = ?, position = ?, email = ?, photo_url = ?, updated_at = ? WHERE id = ?`,
		member.Name, member.Position, member.Email, nullString(member.PhotoURL), now, member.ID,
	)
	if err != nil {
		return fmt.Errorf("updating staff member: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a staff member by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM staff_members WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting staff member: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// scanner is an interface over sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

// scanMember scans a staff member from a row.
func scanMember(s scanner) (*Member, error) {
	var m Member
	var photoURL sql.NullString
	var createdAt, updatedAt string

	err := s.Scan(&m.ID, &m.Name, &m.Position, &m.Email, &photoURL, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning staff member: %w", err)
	}

	if photoURL.Valid {
		m.PhotoURL = photoURL.String
	}

	m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	m.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &m, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
