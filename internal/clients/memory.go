package clients

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory implements Store with in-process concurrency safety. Used by tests
// and by the server when no database DSN is configured.
type Memory struct {
	mu      sync.RWMutex
	rows    map[string]*Client
	refs    map[string]int // client id -> referencing insight count
	nowFunc func() time.Time
}

// NewMemory creates an empty in-memory client store.
func NewMemory() *Memory {
	return &Memory{
		rows:    make(map[string]*Client),
		refs:    make(map[string]int),
		nowFunc: time.Now,
	}
}

// AddReference records one insight pointing at the client; Delete refuses
// while the count is positive. The pg store gets this from a foreign key.
func (m *Memory) AddReference(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refs[id]++
}

func (m *Memory) Create(ctx context.Context, c *Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[c.ID]; ok {
		return ErrConflict
	}
	cp := *c
	m.rows[c.ID] = &cp
	return nil
}

func (m *Memory) Find(ctx context.Context, id string) (*Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (m *Memory) List(ctx context.Context) ([]Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Client, 0, len(m.rows))
	for _, row := range m.rows {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) Update(ctx context.Context, id string, upd Update) (*Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.Name != nil {
		row.Name = *upd.Name
	}
	if upd.ContactEmail != nil {
		row.ContactEmail = *upd.ContactEmail
	}
	if upd.Active != nil {
		row.Active = *upd.Active
	}
	row.UpdatedAt = m.nowFunc().UTC()
	cp := *row
	return &cp, nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return ErrNotFound
	}
	if m.refs[id] > 0 {
		return ErrInUse
	}
	delete(m.rows, id)
	return nil
}

func (m *Memory) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows), nil
}
