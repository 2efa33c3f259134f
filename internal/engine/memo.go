package engine

import (
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// Memo caches rendered strings keyed by their inputs.
// All inputs that influence the output must be part of the key, so entries
// never need invalidation. When full, the whole table is dropped.
type Memo struct {
	mu       sync.RWMutex
	entries  map[uint64]memoEntry
	capacity int

	hits   atomic.Uint64
	misses atomic.Uint64
}

type memoEntry struct {
	key   string
	value string
}

// NewMemo creates a memo holding at most capacity entries.
func NewMemo(capacity int) *Memo {
	if capacity <= 0 {
		capacity = 4096
	}
	return &Memo{
		entries:  make(map[uint64]memoEntry, capacity),
		capacity: capacity,
	}
}

// Do returns the cached value for key or computes and stores it.
// A nil Memo always computes.
func (m *Memo) Do(key string, compute func() string) string {
	if m == nil {
		return compute()
	}
	h := xxhash.Sum64String(key)

	m.mu.RLock()
	e, ok := m.entries[h]
	m.mu.RUnlock()
	if ok && e.key == key {
		m.hits.Add(1)
		return e.value
	}

	m.misses.Add(1)
	v := compute()

	m.mu.Lock()
	if len(m.entries) >= m.capacity {
		m.entries = make(map[uint64]memoEntry, m.capacity)
	}
	m.entries[h] = memoEntry{key: key, value: v}
	m.mu.Unlock()
	return v
}

// Len returns the number of cached entries.
func (m *Memo) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Stats returns hit and miss counts.
func (m *Memo) Stats() (hits, misses uint64) {
	return m.hits.Load(), m.misses.Load()
}
