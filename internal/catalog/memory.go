package catalog

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory implements Store in process for tests and DSN-less runs.
type Memory struct {
	mu   sync.RWMutex
	rows map[string]*Outlet
}

// NewMemory creates an empty in-memory outlet store.
func NewMemory() *Memory {
	return &Memory{rows: make(map[string]*Outlet)}
}

func (m *Memory) Create(ctx context.Context, o *Outlet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.Slug == o.Slug {
			return ErrConflict
		}
	}
	cp := *o
	m.rows[o.ID] = &cp
	return nil
}

func (m *Memory) Find(ctx context.Context, id string) (*Outlet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (m *Memory) List(ctx context.Context, kind Kind) ([]Outlet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Outlet, 0, len(m.rows))
	for _, row := range m.rows {
		if kind != "" && row.Kind != kind {
			continue
		}
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) Update(ctx context.Context, id string, upd Update, slug string) (*Outlet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.Kind != nil {
		row.Kind = *upd.Kind
	}
	if upd.Name != nil {
		row.Name = *upd.Name
	}
	if upd.Website != nil {
		row.Website = *upd.Website
	}
	if upd.Active != nil {
		row.Active = *upd.Active
	}
	row.Slug = slug
	row.UpdatedAt = time.Now().UTC()
	cp := *row
	return &cp, nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *Memory) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for id, row := range m.rows {
		if id == excludeID {
			continue
		}
		if row.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) CountByKind(ctx context.Context) (map[Kind]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[Kind]int, len(Kinds))
	for _, row := range m.rows {
		counts[row.Kind]++
	}
	return counts, nil
}
