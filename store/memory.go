package store

import (
	"context"
	"sync"

	"github.com/unistay/offlinecache"
)

// Memory is an in-memory implementation of offlinecache.Stores
type Memory struct {
	mu     sync.RWMutex
	stores map[string]map[string]*offlinecache.CachedResponse
}

// NewMemory creates a new in-memory store backend
func NewMemory() *Memory {
	return &Memory{
		stores: make(map[string]map[string]*offlinecache.CachedResponse),
	}
}

// Open returns a handle to the named store, creating it on first use
func (m *Memory) Open(_ context.Context, name string) (offlinecache.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.stores[name]; !exists {
		m.stores[name] = make(map[string]*offlinecache.CachedResponse)
	}
	return &memoryStore{backend: m, name: name}, nil
}

// Names lists all store names currently held by the backend
func (m *Memory) Names(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.stores))
	for name := range m.stores {
		names = append(names, name)
	}
	return names, nil
}

// Drop removes the named store and all of its entries
func (m *Memory) Drop(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.stores, name)
	return nil
}

type memoryStore struct {
	backend *Memory
	name    string
}

// Get retrieves a cached response by identity
func (s *memoryStore) Get(_ context.Context, id string) (*offlinecache.CachedResponse, error) {
	s.backend.mu.RLock()
	defer s.backend.mu.RUnlock()

	entries, exists := s.backend.stores[s.name]
	if !exists {
		return nil, offlinecache.ErrNotFound
	}
	response, exists := entries[id]
	if !exists {
		return nil, offlinecache.ErrNotFound
	}
	return response, nil
}

// Put stores a response, replacing any existing entry for the identity.
// Writing to a dropped store silently recreates it; entries are only ever
// fully replaced, so last-writer-wins is safe.
func (s *memoryStore) Put(_ context.Context, id string, response *offlinecache.CachedResponse) error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()

	entries, exists := s.backend.stores[s.name]
	if !exists {
		entries = make(map[string]*offlinecache.CachedResponse)
		s.backend.stores[s.name] = entries
	}
	entries[id] = response
	return nil
}

// Delete removes a single entry by identity
func (s *memoryStore) Delete(_ context.Context, id string) error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()

	if entries, exists := s.backend.stores[s.name]; exists {
		delete(entries, id)
	}
	return nil
}
