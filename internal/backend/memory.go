package backend

import (
	"context"
	"fmt"
	"sync"
)

// Memory is a thread-safe in-memory backend. It backs the mock
// transport of the daemon and the fault-injection paths in tests.
type Memory struct {
	name string

	mu     sync.RWMutex
	blobs  map[string][]byte
	routes map[string][]string

	// Fault hooks. A non-nil error makes the operation fail without
	// touching state.
	FailPut  error
	FailSend error
	FailList error
	FailGet  error

	// Call counters for tests.
	PutCalls  int
	SendCalls int
	ListCalls int
	GetCalls  int
}

func NewMemory(name string) *Memory {
	return &Memory{
		name:   name,
		blobs:  make(map[string][]byte),
		routes: make(map[string][]string),
	}
}

func (m *Memory) Name() string { return m.name }

func (m *Memory) Put(ctx context.Context, blob []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PutCalls++
	if m.FailPut != nil {
		return "", m.FailPut
	}
	hash := ContentHash(blob)
	if _, ok := m.blobs[hash]; !ok {
		m.blobs[hash] = append([]byte(nil), blob...)
	}
	return hash, nil
}

func (m *Memory) Send(ctx context.Context, routingID, hash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendCalls++
	if m.FailSend != nil {
		return m.FailSend
	}
	for _, known := range m.routes[routingID] {
		if known == hash {
			return nil
		}
	}
	m.routes[routingID] = append(m.routes[routingID], hash)
	return nil
}

func (m *Memory) List(ctx context.Context, routingID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListCalls++
	if m.FailList != nil {
		return nil, m.FailList
	}
	return append([]string(nil), m.routes[routingID]...), nil
}

func (m *Memory) Get(ctx context.Context, hash string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCalls++
	if m.FailGet != nil {
		return nil, m.FailGet
	}
	blob, ok := m.blobs[hash]
	if !ok {
		return nil, fmt.Errorf("%w: blob %s", ErrNotFound, hash)
	}
	return append([]byte(nil), blob...), nil
}

// DropBlob removes a stored blob while keeping its route entries, so
// tests can model a backend that lists a hash it cannot serve.
func (m *Memory) DropBlob(hash string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, hash)
}
