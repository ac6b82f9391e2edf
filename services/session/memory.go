// Copyright (C) 2026 Lectern AI (oss@lectern.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package session

import (
	"context"
	"sync"
)

// MemoryManager keeps session history in process memory.
//
// Description:
//
//	History is lost on restart. Suitable for tests and single-instance
//	deployments where continuity across restarts does not matter.
//
// Thread Safety: Safe for concurrent use.
type MemoryManager struct {
	mu           sync.RWMutex
	sessions     map[string][]Exchange
	maxExchanges int
}

// NewMemoryManager creates a MemoryManager with the given history
// window. Pass 0 to use DefaultMaxExchanges.
func NewMemoryManager(maxExchanges int) *MemoryManager {
	if maxExchanges <= 0 {
		maxExchanges = DefaultMaxExchanges
	}
	return &MemoryManager{
		sessions:     make(map[string][]Exchange),
		maxExchanges: maxExchanges,
	}
}

// Create implements Manager.
func (m *MemoryManager) Create(ctx context.Context) (string, error) {
	id := newSessionID()
	m.mu.Lock()
	m.sessions[id] = nil
	m.mu.Unlock()
	return id, nil
}

// AddExchange implements Manager.
func (m *MemoryManager) AddExchange(ctx context.Context, sessionID, query, answer string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	exchanges := append(m.sessions[sessionID], Exchange{Query: query, Answer: answer})
	m.sessions[sessionID] = trimWindow(exchanges, m.maxExchanges)
	return nil
}

// History implements Manager.
func (m *MemoryManager) History(ctx context.Context, sessionID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return renderHistory(m.sessions[sessionID]), nil
}

// Clear implements Manager.
func (m *MemoryManager) Clear(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	return nil
}
