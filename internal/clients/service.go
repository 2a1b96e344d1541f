package clients

import (
	"context"
	"fmt"
	"strings"
	"time"

	"medialens.io/internal/ids"
)

// Service validates client mutations before they reach the store.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService wires the client service onto a store.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Create registers a new client. Name is mandatory; contact email, when
// given, must look like an address.
func (s *Service) Create(ctx context.Context, name, contactEmail string) (*Client, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	contactEmail, err := normalizeContactEmail(contactEmail)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	c := &Client{
		ID:           ids.New(),
		Name:         name,
		ContactEmail: contactEmail,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns one client by id.
func (s *Service) Get(ctx context.Context, id string) (*Client, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrNotFound
	}
	return s.store.Find(ctx, id)
}

// List returns all clients ordered by name.
func (s *Service) List(ctx context.Context) ([]Client, error) {
	return s.store.List(ctx)
}

// Count returns the number of client rows without loading them.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}

// Update applies the non-nil fields of upd.
func (s *Service) Update(ctx context.Context, id string, upd Update) (*Client, error) {
	if upd.Name != nil {
		trimmed := strings.TrimSpace(*upd.Name)
		if trimmed == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
		}
		upd.Name = &trimmed
	}
	if upd.ContactEmail != nil {
		normalized, err := normalizeContactEmail(*upd.ContactEmail)
		if err != nil {
			return nil, err
		}
		upd.ContactEmail = &normalized
	}
	return s.store.Update(ctx, id, upd)
}

// Delete removes a client. Stores refuse the delete while insights still
// reference the client; callers surface that as a conflict.
func (s *Service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrNotFound
	}
	return s.store.Delete(ctx, id)
}

func normalizeContactEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", nil
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 || strings.Count(email, "@") != 1 {
		return "", fmt.Errorf("%w: malformed contact email", ErrInvalidInput)
	}
	return email, nil
}
