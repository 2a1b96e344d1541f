package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind is the distribution channel of a media outlet.
type Kind string

const (
	KindPrint Kind = "print"
	KindRadio Kind = "radio"
	KindTV    Kind = "tv"
	KindWeb   Kind = "web"
)

// Kinds lists every channel in display order.
var Kinds = []Kind{KindPrint, KindRadio, KindTV, KindWeb}

// ParseKind folds user input into the closed channel set.
func ParseKind(raw string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(raw))); k {
	case KindPrint, KindRadio, KindTV, KindWeb:
		return k, nil
	default:
		return "", fmt.Errorf("%w: unknown outlet kind %q", ErrInvalidInput, raw)
	}
}

// Outlet is one monitored media source. Slug is unique across the catalog
// and derived from the name.
type Outlet struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Website   string    `json:"website,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Update carries optional field changes; nil means keep the current value.
// A name change regenerates the slug.
type Update struct {
	Kind    *Kind
	Name    *string
	Website *string
	Active  *bool
}

var (
	ErrNotFound     = errors.New("catalog: not found")
	ErrConflict     = errors.New("catalog: already exists")
	ErrInvalidInput = errors.New("catalog: invalid input")
)

// Store persists outlets. SlugExists backs collision-suffixed slug
// generation.
type Store interface {
	Create(ctx context.Context, o *Outlet) error
	Find(ctx context.Context, id string) (*Outlet, error)
	List(ctx context.Context, kind Kind) ([]Outlet, error)
	Update(ctx context.Context, id string, upd Update, slug string) (*Outlet, error)
	Delete(ctx context.Context, id string) error
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
	CountByKind(ctx context.Context) (map[Kind]int, error)
}
