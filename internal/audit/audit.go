package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Actions recorded in the audit trail.
const (
	ActionRegister       = "auth.register"
	ActionLogin          = "auth.login"
	ActionLoginFailed    = "auth.login_failed"
	ActionUserCreated    = "user.created"
	ActionUserUpdated    = "user.updated"
	ActionUserDeleted    = "user.deleted"
	ActionPasswordChange = "user.password_changed"
	ActionStaffCreated   = "staff.created"
	ActionStaffUpdated   = "staff.updated"
	ActionStaffDeleted   = "staff.deleted"
)

// Entry is a single audit log record.
type Entry struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	UserID     *int64         `json:"user_id,omitempty"`
	Source     string         `json:"source"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// NewEntry builds an audit entry with a generated ID and timestamp.
// userID may be nil for unauthenticated events such as failed logins.
func NewEntry(action, entityType, entityID string, userID *int64, details map[string]any) *Entry {
	return &Entry{
		ID:         "aud-" + uuid.NewString()[:8],
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		UserID:     userID,
		Source:     "api",
		Details:    details,
		CreatedAt:  time.Now().UTC(),
	}
}

// Filter narrows a List query. Zero values mean "any".
type Filter struct {
	Action     string
	EntityType string
	EntityID   string
	Limit      int
	Offset     int
}

// ListResult is a page of audit entries plus the total matching count.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Repository defines the interface for audit log persistence.
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// marshalDetails serialises the details map for storage. A nil map is
// stored as SQL NULL rather than "null".
func marshalDetails(details map[string]any) (*string, error) {
	if details == nil {
		return nil, nil
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return nil, err
	}
	s := string(raw)
	return &s, nil
}
