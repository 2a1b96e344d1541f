package audit

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps activity entries in process for tests and DSN-less runs.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewMemoryStore creates an empty activity store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Append(ctx context.Context, entry *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *MemoryStore) List(ctx context.Context, limit int, before string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sorted := make([]Entry, len(m.entries))
	copy(sorted, m.entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID > sorted[j].ID })

	out := make([]Entry, 0, limit)
	for _, e := range sorted {
		if before != "" && e.ID >= before {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
