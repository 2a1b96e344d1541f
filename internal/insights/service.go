package insights

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"medialens.io/internal/ids"
)

const defaultListLimit = 50

// IngestInput is one article submitted by the scraper or a data-entry user.
type IngestInput struct {
	Title       string
	URL         string
	OutletID    string
	ClientID    string
	Summary     string
	PublishedAt time.Time
}

// Event notifies subscribers about ingest and triage changes. Sink is
// optional; a nil sink drops events.
type Event struct {
	Kind    string  `json:"kind"` // "ingested" or "triaged"
	Insight Insight `json:"insight"`
}

// Sink receives insight events. Implementations must not block.
type Sink interface {
	Publish(ev Event)
}

// Service runs ingestion and triage over a Store.
type Service struct {
	store Store
	sink  Sink
	now   func() time.Time
}

// NewService wires the insight service. sink may be nil.
func NewService(store Store, sink Sink) *Service {
	return &Service{store: store, sink: sink, now: time.Now}
}

// Ingest records a scraped article. Ingestion is idempotent on the article
// URL: resubmitting a known URL returns the existing row untouched.
func (s *Service) Ingest(ctx context.Context, in IngestInput) (*Insight, bool, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, false, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	canonical, err := canonicalURL(in.URL)
	if err != nil {
		return nil, false, err
	}

	if existing, err := s.store.FindByURL(ctx, canonical); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	now := s.now().UTC()
	published := in.PublishedAt
	if published.IsZero() {
		published = now
	}
	ins := &Insight{
		ID:          ids.New(),
		Title:       title,
		URL:         canonical,
		OutletID:    strings.TrimSpace(in.OutletID),
		ClientID:    strings.TrimSpace(in.ClientID),
		Summary:     strings.TrimSpace(in.Summary),
		PublishedAt: published.UTC(),
		Status:      StatusPending,
		CreatedAt:   now,
	}
	if err := s.store.Create(ctx, ins); err != nil {
		if errors.Is(err, ErrConflict) {
			// A concurrent submit won the url race between lookup and insert;
			// the persisted row is the one that counts.
			existing, findErr := s.store.FindByURL(ctx, canonical)
			if findErr != nil {
				return nil, false, findErr
			}
			return existing, false, nil
		}
		return nil, false, err
	}
	s.publish(Event{Kind: "ingested", Insight: *ins})
	return ins, true, nil
}

// Get returns one insight by id.
func (s *Service) Get(ctx context.Context, id string) (*Insight, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrNotFound
	}
	return s.store.Find(ctx, id)
}

// List pages through insights newest first, optionally filtered by status
// or client.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Insight, error) {
	if filter.Status != "" {
		parsed, err := ParseStatus(string(filter.Status))
		if err != nil {
			return nil, err
		}
		filter.Status = parsed
	}
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = defaultListLimit
	}
	return s.store.List(ctx, filter)
}

// Triage moves a pending insight to approved or dismissed. Any other
// transition is refused: triage decisions are final.
func (s *Service) Triage(ctx context.Context, id string, status Status, triagedBy string) (*Insight, error) {
	parsed, err := ParseStatus(string(status))
	if err != nil {
		return nil, err
	}
	if parsed == StatusPending {
		return nil, fmt.Errorf("%w: cannot triage back to pending", ErrInvalidInput)
	}
	current, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != StatusPending {
		return nil, ErrTriaged
	}
	updated, err := s.store.SetStatus(ctx, id, parsed, strings.TrimSpace(triagedBy), s.now().UTC())
	if err != nil {
		return nil, err
	}
	s.publish(Event{Kind: "triaged", Insight: *updated})
	return updated, nil
}

// Stats aggregates counts for the dashboard. "Today" starts at local
// midnight UTC.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	now := s.now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return s.store.Stats(ctx, dayStart)
}

func (s *Service) publish(ev Event) {
	if s.sink != nil {
		s.sink.Publish(ev)
	}
}

func canonicalURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: url is required", ErrInvalidInput)
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: malformed article url", ErrInvalidInput)
	}
	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)
	return u.String(), nil
}
