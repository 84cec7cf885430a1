package prices

import (
	"context"
	"sync"
)

// MemorySource is an in-process price and stats source for dev and tests.
type MemorySource struct {
	mu     sync.RWMutex
	quotes map[int64]Quote
	stats  map[string]Stats
}

func NewMemorySource() *MemorySource {
	return &MemorySource{
		quotes: make(map[int64]Quote),
		stats:  make(map[string]Stats),
	}
}

func (m *MemorySource) SetQuote(id int64, q Quote) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes[id] = q
}

func (m *MemorySource) SetStats(name string, s Stats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats[name] = s
}

func (m *MemorySource) Quotes(ctx context.Context, ids []int64) (map[int64]Quote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[int64]Quote, len(ids))
	for _, id := range ids {
		if q, ok := m.quotes[id]; ok {
			out[id] = q
		}
	}
	return out, nil
}

func (m *MemorySource) Lookup(ctx context.Context, name string) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stats[name]
	if !ok {
		return Stats{}, ErrCharacterNotFound
	}
	return s, nil
}
