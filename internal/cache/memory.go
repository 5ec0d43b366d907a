package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStoreConfig holds configuration for the in-process store.
type MemoryStoreConfig struct {
	// Now returns the current time (default: time.Now).
	Now func() time.Time

	// CleanupInterval is how often expired entries are swept (default: 5 minutes).
	CleanupInterval time.Duration
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	now             func() time.Time
	cleanupInterval time.Duration

	mu          sync.RWMutex
	entries     map[string]memoryEntry
	lastCleanup time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new in-process store.
func NewMemoryStore(cfg MemoryStoreConfig) *MemoryStore {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval == 0 {
		cleanupInterval = 5 * time.Minute
	}

	return &MemoryStore{
		now:             now,
		cleanupInterval: cleanupInterval,
		entries:         make(map[string]memoryEntry),
		lastCleanup:     now(),
	}
}

// Get returns the unexpired value stored under key.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok || !s.now().Before(entry.expiresAt) {
		return nil, false, nil
	}

	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, true, nil
}

// Set stores value under key for ttl.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	now := s.now()

	stored := make([]byte, len(value))
	copy(stored, value)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = memoryEntry{
		value:     stored,
		expiresAt: now.Add(ttl),
	}

	s.cleanupIfNeeded(now)
	return nil
}

// Len returns the number of entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// cleanupIfNeeded removes expired entries. Callers hold s.mu.
func (s *MemoryStore) cleanupIfNeeded(now time.Time) {
	if now.Sub(s.lastCleanup) < s.cleanupInterval {
		return
	}
	s.lastCleanup = now

	for key, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, key)
		}
	}
}
