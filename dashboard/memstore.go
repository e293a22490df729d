package dashboard

import (
	"context"
	"sync"
)

// MemoryStore is a ConfigStore that lives only as long as the process.
type MemoryStore struct {
	mu  sync.Mutex
	url string
	set bool
}

// NewMemoryStore returns a MemoryStore, pre-set when url is non-empty.
func NewMemoryStore(url string) *MemoryStore {
	return &MemoryStore{url: url, set: url != ""}
}

func (m *MemoryStore) Load(_ context.Context) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.url, m.set, nil
}

func (m *MemoryStore) Save(_ context.Context, url string) error {
	m.mu.Lock()
	m.url = url
	m.set = true
	m.mu.Unlock()
	return nil
}
