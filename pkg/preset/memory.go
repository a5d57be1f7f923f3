package preset

import (
	"context"
	"iter"
	"maps"
	"slices"
	"sync"
	"time"
)

// Memory is an in-memory Store. It is safe for concurrent use.
type Memory struct {
	mu   sync.RWMutex
	data map[string]Preset
	now  func() time.Time
}

// NewMemory creates an empty in-memory Store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]Preset), now: time.Now}
}

func (m *Memory) Get(_ context.Context, id string) (*Preset, error) {
	m.mu.RLock()
	p, ok := m.data[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *Memory) Put(_ context.Context, p *Preset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var created time.Time
	if old, ok := m.data[p.ID]; ok && p.ID != "" {
		created = old.CreatedAt
	}
	if err := stamp(p, created, m.now()); err != nil {
		return err
	}
	m.data[p.ID] = *p
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[id]; !ok {
		return ErrNotFound
	}
	delete(m.data, id)
	return nil
}

func (m *Memory) List(_ context.Context) iter.Seq2[*Preset, error] {
	// Snapshot under the read lock so yield may call back into the store.
	m.mu.RLock()
	ids := slices.Sorted(maps.Keys(m.data))
	snap := make([]Preset, len(ids))
	for i, id := range ids {
		snap[i] = m.data[id]
	}
	m.mu.RUnlock()

	return func(yield func(*Preset, error) bool) {
		for i := range snap {
			p := snap[i]
			if !yield(&p, nil) {
				return
			}
		}
	}
}

func (m *Memory) Close() error {
	return nil
}
