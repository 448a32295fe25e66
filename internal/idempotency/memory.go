package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/information-sharing-networks/sri-gateway/internal/config"
)

type memoryEntry struct {
	value     []byte
	storedAt  time.Time
	expiresAt time.Time
}

// MemoryStore is the in-process fallback store.
// Entries expire after their TTL and Sweep also drops anything older than maxAge.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	maxAge  time.Duration
	now     func() time.Time
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore(maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		maxAge:  maxAge,
		now:     time.Now,
	}
}

func (s *MemoryStore) Name() string { return config.CacheBackendMemory }

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok || !s.now().Before(e.expiresAt) {
		return nil, false, nil
	}
	return e.value, true, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{
		value:     append([]byte(nil), value...),
		storedAt:  now,
		expiresAt: now.Add(ttl),
	}
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

// Sweep removes expired entries and entries stored more than maxAge ago.
func (s *MemoryStore) Sweep(ctx context.Context) (int64, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) || now.Sub(e.storedAt) > s.maxAge {
			delete(s.entries, k)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of entries held, including expired ones not yet swept.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
