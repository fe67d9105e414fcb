package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryIndex is an exhaustive in-process index. Ties keep insertion order.
type MemoryIndex struct {
	mu      sync.RWMutex
	dim     int
	records []Record
	byID    map[string]int
}

func NewMemoryIndex(dim int) *MemoryIndex {
	return &MemoryIndex{dim: dim, byID: make(map[string]int)}
}

func (m *MemoryIndex) Upsert(ctx context.Context, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range records {
		if m.dim > 0 && len(r.Vector) != m.dim {
			return fmt.Errorf("record %s has dimension %d, index expects %d", r.ID, len(r.Vector), m.dim)
		}
		if i, ok := m.byID[r.ID]; ok {
			m.records[i] = r
			continue
		}
		m.byID[r.ID] = len(m.records)
		m.records = append(m.records, r)
	}
	return nil
}

func (m *MemoryIndex) Query(ctx context.Context, vector []float32, k int) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}

	m.mu.RLock()
	matches := make([]Match, len(m.records))
	for i, r := range m.records {
		matches[i] = Match{
			ID:       r.ID,
			Text:     r.Text,
			Metadata: r.Metadata,
			Distance: CosineDistance(vector, r.Vector),
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
