package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"medialens.io/internal/ids"
)

const maxSlugAttempts = 50

// Service validates outlet mutations and owns slug generation.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService wires the catalog service onto a store.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Create registers an outlet. The slug comes from the name; a taken slug
// gets a numeric suffix (-2, -3, ...).
func (s *Service) Create(ctx context.Context, kind, name, website string) (*Outlet, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	website, err = normalizeWebsite(website)
	if err != nil {
		return nil, err
	}
	slug, err := s.uniqueSlug(ctx, name, "")
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	o := &Outlet{
		ID:        ids.New(),
		Kind:      k,
		Name:      name,
		Slug:      slug,
		Website:   website,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// Get returns one outlet by id.
func (s *Service) Get(ctx context.Context, id string) (*Outlet, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrNotFound
	}
	return s.store.Find(ctx, id)
}

// List returns outlets, optionally restricted to one channel.
func (s *Service) List(ctx context.Context, kind string) ([]Outlet, error) {
	var k Kind
	if strings.TrimSpace(kind) != "" {
		parsed, err := ParseKind(kind)
		if err != nil {
			return nil, err
		}
		k = parsed
	}
	return s.store.List(ctx, k)
}

// Update applies the non-nil fields of upd. The slug regenerates only when
// the name actually changes.
func (s *Service) Update(ctx context.Context, id string, upd Update) (*Outlet, error) {
	current, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Kind != nil {
		parsed, err := ParseKind(string(*upd.Kind))
		if err != nil {
			return nil, err
		}
		upd.Kind = &parsed
	}
	if upd.Website != nil {
		normalized, err := normalizeWebsite(*upd.Website)
		if err != nil {
			return nil, err
		}
		upd.Website = &normalized
	}
	slug := current.Slug
	if upd.Name != nil {
		trimmed := strings.TrimSpace(*upd.Name)
		if trimmed == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
		}
		upd.Name = &trimmed
		if trimmed != current.Name {
			slug, err = s.uniqueSlug(ctx, trimmed, id)
			if err != nil {
				return nil, err
			}
		}
	}
	return s.store.Update(ctx, id, upd, slug)
}

// Delete removes an outlet from the catalog.
func (s *Service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrNotFound
	}
	return s.store.Delete(ctx, id)
}

// CountByKind returns the dashboard per-channel outlet counts.
func (s *Service) CountByKind(ctx context.Context) (map[Kind]int, error) {
	return s.store.CountByKind(ctx)
}

func (s *Service) uniqueSlug(ctx context.Context, name, excludeID string) (string, error) {
	base := Slugify(name)
	if base == "" {
		return "", fmt.Errorf("%w: name yields empty slug", ErrInvalidInput)
	}
	slug := base
	for i := 2; i <= maxSlugAttempts; i++ {
		taken, err := s.store.SlugExists(ctx, slug, excludeID)
		if err != nil {
			return "", err
		}
		if !taken {
			return slug, nil
		}
		slug = base + "-" + strconv.Itoa(i)
	}
	return "", fmt.Errorf("%w: could not allocate slug for %q", ErrConflict, name)
}

func normalizeWebsite(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: malformed website url", ErrInvalidInput)
	}
	return u.String(), nil
}
