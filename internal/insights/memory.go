package insights

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory implements Store in process. IDs are ULIDs, so sorting by id
// descending walks rows newest first.
type Memory struct {
	mu    sync.RWMutex
	rows  map[string]*Insight
	byURL map[string]string
}

// NewMemory creates an empty in-memory insight store.
func NewMemory() *Memory {
	return &Memory{
		rows:  make(map[string]*Insight),
		byURL: make(map[string]string),
	}
}

func (m *Memory) Create(ctx context.Context, in *Insight) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byURL[in.URL]; ok {
		return ErrConflict
	}
	cp := *in
	m.rows[in.ID] = &cp
	m.byURL[in.URL] = in.ID
	return nil
}

func (m *Memory) Find(ctx context.Context, id string) (*Insight, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (m *Memory) FindByURL(ctx context.Context, url string) (*Insight, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byURL[url]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m.rows[id]
	return &cp, nil
}

func (m *Memory) List(ctx context.Context, filter ListFilter) ([]Insight, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := make([]Insight, 0, len(m.rows))
	for _, row := range m.rows {
		if filter.Status != "" && row.Status != filter.Status {
			continue
		}
		if filter.ClientID != "" && row.ClientID != filter.ClientID {
			continue
		}
		all = append(all, *row)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	out := make([]Insight, 0, filter.Limit)
	for _, row := range all {
		if filter.Before != "" && row.ID >= filter.Before {
			continue
		}
		out = append(out, row)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) SetStatus(ctx context.Context, id string, status Status, triagedBy string, at time.Time) (*Insight, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	row.Status = status
	row.TriagedBy = triagedBy
	row.TriagedAt = &at
	cp := *row
	return &cp, nil
}

func (m *Memory) Stats(ctx context.Context, dayStart time.Time) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := Stats{ByClient: make(map[string]int)}
	for _, row := range m.rows {
		switch row.Status {
		case StatusPending:
			st.Pending++
		case StatusApproved:
			st.Approved++
		case StatusDismissed:
			st.Dismissed++
		}
		if !row.CreatedAt.Before(dayStart) {
			st.Today++
		}
		if row.ClientID != "" {
			st.ByClient[row.ClientID]++
		}
	}
	return st, nil
}
