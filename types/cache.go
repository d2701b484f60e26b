package types

import (
	"time"
)

// Clock is the only time source of the caches and the catalog index.
type Clock interface {
	Now() time.Time
}

type CacheManager interface {
	LifecycleManager
	Cache(name string) Cache
	Stats() []CacheStats
}

// Cache is one provider family's store. Freshness is decided per lookup
// against the ttl the caller passes; Get reports whatever is stored.
type Cache interface {
	Name() string
	TTL() time.Duration
	Lookup(key string, ttl time.Duration) (interface{}, bool)
	Get(key string) (CacheEntry, bool)
	Set(key string, value interface{})
	Delete(key string)
	Len() int
	Stats() CacheStats
}

type CacheEntry struct {
	Value    interface{} `json:"value"`
	StoredAt time.Time   `json:"stored_at"`
}

type CacheStats struct {
	Name    string        `json:"name"`
	TTL     time.Duration `json:"ttl"`
	Entries int           `json:"entries"`
	Hits    uint64        `json:"hits"`
	Misses  uint64        `json:"misses"`
}
