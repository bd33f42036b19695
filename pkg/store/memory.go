// ABOUTME: In-memory store backend
// ABOUTME: Map of recordings guarded by a mutex
package store

import (
	"context"
	"sync"
)

// MemoryBackend keeps recordings in process memory
type MemoryBackend struct {
	mu   sync.Mutex
	recs map[string]Recording
}

// NewMemoryBackend creates an empty backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{recs: make(map[string]Recording)}
}

func (m *MemoryBackend) Put(ctx context.Context, rec Recording) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec.Blob = append([]byte(nil), rec.Blob...)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs[rec.ID] = rec
	return nil
}

func (m *MemoryBackend) Get(ctx context.Context, id string) (Recording, bool, error) {
	if err := ctx.Err(); err != nil {
		return Recording{}, false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	return rec, ok, nil
}

func (m *MemoryBackend) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.recs, id)
	return nil
}

func (m *MemoryBackend) List(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	entries := make([]Entry, 0, len(m.recs))
	for _, rec := range m.recs {
		entries = append(entries, Entry{ID: rec.ID, InsertedAt: rec.InsertedAt, Size: len(rec.Blob)})
	}
	return entries, nil
}
