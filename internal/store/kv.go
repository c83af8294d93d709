// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides durable persistence for chat history, per-chat
// message lists, and app settings.
package store

import "sync"

// =============================================================================
// KV SUBSTRATE
// =============================================================================

// KV is the synchronous string-keyed substrate backing the store.
type KV interface {
	// Get returns the value for key. The bool reports whether the key
	// exists; the error reports substrate failure.
	Get(key string) (string, bool, error)

	// Set stores value under key, replacing any prior value.
	Set(key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error

	// Close releases substrate resources.
	Close() error
}

// =============================================================================
// IN-MEMORY SUBSTRATE
// =============================================================================

// MemKV is an in-memory KV used in tests and as an ephemeral fallback when
// the SQLite substrate cannot be opened.
type MemKV struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemKV creates an empty in-memory substrate.
func NewMemKV() *MemKV {
	return &MemKV{data: make(map[string]string)}
}

func (m *MemKV) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemKV) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemKV) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemKV) Close() error {
	return nil
}
