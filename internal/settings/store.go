// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package settings

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrStore wraps every failure of a persistent store backend.
var ErrStore = errors.New("settings store error")

// Backend names accepted by Open.
const (
	BackendTOML   = "toml"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// =============================================================================
// STORE INTERFACE
// =============================================================================

// Store is the host's settings persistence. All values are strings at this
// boundary; typing happens in Reader. A missing key reads as "".
type Store interface {
	Get(name string) (string, error)
	Set(name, value string) error
	Delete(name string) error
	Keys() ([]string, error)
	Close() error
}

// Open opens the store backend named by backend at path.
func Open(backend, path string) (Store, error) {
	switch backend {
	case BackendTOML, "":
		return OpenTOMLStore(path)
	case BackendSQLite:
		return OpenSQLiteStore(path)
	case BackendMemory:
		return NewMemoryStore(nil), nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrStore, backend)
	}
}

// =============================================================================
// MEMORY STORE
// =============================================================================

// MemoryStore keeps settings in a map. Safe for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore returns a store seeded with a copy of initial.
func NewMemoryStore(initial map[string]string) *MemoryStore {
	values := make(map[string]string, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &MemoryStore{values: values}
}

// Get returns the stored value or "".
func (m *MemoryStore) Get(name string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.values[name], nil
}

// Set stores value under name.
func (m *MemoryStore) Set(name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[name] = value
	return nil
}

// Delete removes name.
func (m *MemoryStore) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, name)
	return nil
}

// Keys returns the stored names in sorted order.
func (m *MemoryStore) Keys() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedKeys(m.values), nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }

func sortedKeys(values map[string]string) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
