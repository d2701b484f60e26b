package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/saiset-co/sai-travel/types"
)

// MemoryCache is a single named TTL store. Entries are never refreshed in
// place; a stale entry stays until it is overwritten or purged.
type MemoryCache struct {
	name   string
	ttl    time.Duration
	clock  types.Clock
	data   map[string]types.CacheEntry
	hits   uint64
	misses uint64
	mu     sync.RWMutex
}

func NewMemoryCache(name string, ttl time.Duration, clock types.Clock) *MemoryCache {
	if clock == nil {
		clock = SystemClock{}
	}

	return &MemoryCache{
		name:  name,
		ttl:   ttl,
		clock: clock,
		data:  make(map[string]types.CacheEntry),
	}
}

func (m *MemoryCache) Name() string {
	return m.name
}

func (m *MemoryCache) TTL() time.Duration {
	return m.ttl
}

// Lookup returns the value only while now - stored_at < ttl.
func (m *MemoryCache) Lookup(key string, ttl time.Duration) (interface{}, bool) {
	m.mu.RLock()
	entry, exists := m.data[key]
	m.mu.RUnlock()

	if !exists || m.clock.Now().Sub(entry.StoredAt) >= ttl {
		atomic.AddUint64(&m.misses, 1)
		return nil, false
	}

	atomic.AddUint64(&m.hits, 1)
	return entry.Value, true
}

func (m *MemoryCache) Get(key string) (types.CacheEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, exists := m.data[key]
	return entry, exists
}

func (m *MemoryCache) Set(key string, value interface{}) {
	if key == "" {
		return
	}

	entry := types.CacheEntry{Value: value, StoredAt: m.clock.Now()}

	m.mu.Lock()
	m.data[key] = entry
	m.mu.Unlock()
}

func (m *MemoryCache) Delete(key string) {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
}

func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

func (m *MemoryCache) Stats() types.CacheStats {
	return types.CacheStats{
		Name:    m.name,
		TTL:     m.ttl,
		Entries: m.Len(),
		Hits:    atomic.LoadUint64(&m.hits),
		Misses:  atomic.LoadUint64(&m.misses),
	}
}

// Purge drops entries older than maxAge and reports how many went.
func (m *MemoryCache) Purge(maxAge time.Duration) int {
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, entry := range m.data {
		if now.Sub(entry.StoredAt) >= maxAge {
			delete(m.data, key)
			removed++
		}
	}

	return removed
}
