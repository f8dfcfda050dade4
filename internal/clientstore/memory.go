package clientstore

import (
	"context"
	"sync"
)

// Memory keeps records in process memory.
type Memory struct {
	mu      sync.RWMutex
	records map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, clientID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.records[clientID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), record...), nil
}

func (m *Memory) Set(_ context.Context, clientID string, record []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[clientID] = append([]byte(nil), record...)
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
