package audit

import (
	"context"
	"time"
)

// Entry is one persisted activity-log row. Entries are append-only: nothing
// in the service updates or deletes them.
type Entry struct {
	ID           string            `json:"id"`
	OccurredAt   time.Time         `json:"occurred_at"`
	ActorID      string            `json:"actor_id"`
	ActorEmail   string            `json:"actor_email,omitempty"`
	Action       string            `json:"action"`
	ResourceType string            `json:"resource_type"`
	ResourceID   string            `json:"resource_id"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	RequestID    string            `json:"request_id,omitempty"`
}

// Store persists and pages through activity entries. Listing walks newest
// first; before is the id cursor from the previous page ("" for the first).
type Store interface {
	Append(ctx context.Context, entry *Entry) error
	List(ctx context.Context, limit int, before string) ([]Entry, error)
}
