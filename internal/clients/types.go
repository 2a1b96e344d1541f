package clients

import (
	"context"
	"errors"
	"time"
)

// Client is a monitored customer organization. Insights reference clients by
// id, so deletion is blocked while any insight still points here.
type Client struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ContactEmail string    `json:"contact_email,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Update carries optional field changes; nil means keep the current value.
type Update struct {
	Name         *string
	ContactEmail *string
	Active       *bool
}

var (
	ErrNotFound     = errors.New("clients: not found")
	ErrConflict     = errors.New("clients: already exists")
	ErrInvalidInput = errors.New("clients: invalid input")
	ErrInUse        = errors.New("clients: referenced by insights")
)

// Store persists client rows.
type Store interface {
	Create(ctx context.Context, c *Client) error
	Find(ctx context.Context, id string) (*Client, error)
	List(ctx context.Context) ([]Client, error)
	Update(ctx context.Context, id string, upd Update) (*Client, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}
