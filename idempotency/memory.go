package idempotency

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Memory is a process-local Store. Marks are only visible inside this process.
type Memory struct {
	mu      sync.Mutex
	entries map[string]mark
	Now     func() time.Time
}

type mark struct {
	expiresAt time.Time // zero: never expires
}

func NewMemory() *Memory {
	return &Memory{
		entries: map[string]mark{},
		Now:     time.Now,
	}
}

func (m *Memory) CheckAndMark(_ context.Context, key string, ttl time.Duration) (bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return false, ErrEmptyKey
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.entries[key]; ok {
		if !existing.expired(now) {
			return true, nil
		}
		delete(m.entries, key)
	}

	entry := mark{}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}
	m.entries[key] = entry
	return false, nil
}

// Sweep removes expired marks and returns how many were dropped
func (m *Memory) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	pruned := 0
	for key, entry := range m.entries {
		if entry.expired(now) {
			delete(m.entries, key)
			pruned++
		}
	}
	return pruned
}

// Len returns the number of stored marks, expired ones included until swept
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// StartSweeper runs Sweep every interval until ctx is done
func (m *Memory) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Sweep()
			}
		}
	}()
}

func (m *Memory) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (e mark) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}
