package insights

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the triage state of a scraped article.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusDismissed Status = "dismissed"
)

// ParseStatus folds user input into the closed status set.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusPending, StatusApproved, StatusDismissed:
		return s, nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, raw)
	}
}

// Insight is one scraped article moving through triage.
type Insight struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	OutletID    string     `json:"outlet_id,omitempty"`
	ClientID    string     `json:"client_id,omitempty"`
	Summary     string     `json:"summary,omitempty"`
	PublishedAt time.Time  `json:"published_at"`
	Status      Status     `json:"status"`
	TriagedBy   string     `json:"triaged_by,omitempty"`
	TriagedAt   *time.Time `json:"triaged_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Stats is the dashboard aggregate over all insights.
type Stats struct {
	Pending   int            `json:"pending"`
	Approved  int            `json:"approved"`
	Dismissed int            `json:"dismissed"`
	Today     int            `json:"today"`
	ByClient  map[string]int `json:"by_client,omitempty"`
}

// ListFilter narrows List results. Zero value means everything.
type ListFilter struct {
	Status   Status
	ClientID string
	Limit    int
	Before   string // id cursor from the previous page
}

var (
	ErrNotFound     = errors.New("insights: not found")
	ErrConflict     = errors.New("insights: url already ingested")
	ErrInvalidInput = errors.New("insights: invalid input")
	ErrTriaged      = errors.New("insights: already triaged")
)

// Store persists insights. The URL is unique: Create returns ErrConflict
// when a row with the same url already exists, which backs idempotent
// ingestion under concurrent submits.
type Store interface {
	Create(ctx context.Context, in *Insight) error
	Find(ctx context.Context, id string) (*Insight, error)
	FindByURL(ctx context.Context, url string) (*Insight, error)
	List(ctx context.Context, filter ListFilter) ([]Insight, error)
	SetStatus(ctx context.Context, id string, status Status, triagedBy string, at time.Time) (*Insight, error)
	Stats(ctx context.Context, dayStart time.Time) (Stats, error)
}
