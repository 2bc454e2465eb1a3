// Package sessionstore keeps the IDs of logged-out session tokens until
// the tokens expire on their own.
package sessionstore

import (
	"context"
	"sync"
	"time"
)

// Memory is a process-local revocation list. Revocations are lost on
// restart; use Redis when that matters or when running several instances.
type Memory struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]time.Time), now: time.Now}
}

// Revoke records tokenID until the given time. Already expired entries are
// not stored.
func (m *Memory) Revoke(_ context.Context, tokenID string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.prune(now)
	if !until.After(now) {
		return nil
	}
	m.entries[tokenID] = until
	return nil
}

func (m *Memory) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	until, ok := m.entries[tokenID]
	if !ok {
		return false, nil
	}
	if !until.After(m.now()) {
		delete(m.entries, tokenID)
		return false, nil
	}
	return true, nil
}

// Len is the number of live entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prune(m.now())
	return len(m.entries)
}

func (m *Memory) prune(now time.Time) {
	for id, until := range m.entries {
		if !until.After(now) {
			delete(m.entries, id)
		}
	}
}
