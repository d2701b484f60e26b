package cache

import (
	"context"
	"time"

	"github.com/saiset-co/sai-travel/types"
)

// GetOrFetch serves key from c while it is younger than ttl and otherwise
// calls fetch, storing only successful results. Concurrent misses on the
// same key each call fetch; callers that need coalescing wrap fetch in a
// singleflight group.
func GetOrFetch[T any](ctx context.Context, c types.Cache, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	if c != nil {
		if value, ok := c.Lookup(key, ttl); ok {
			if typed, ok := value.(T); ok {
				return typed, nil
			}
		}
	}

	value, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	if c != nil {
		c.Set(key, value)
	}

	return value, nil
}
