package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingFetcher struct {
	calls int
	value string
	err   error
}

func (f *countingFetcher) fetch(context.Context) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.value, nil
}

func TestGetOrFetch_IdempotentWithinTTL(t *testing.T) {
	clock := NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	c := NewMemoryCache("safety_a", 6*time.Hour, clock)
	f := &countingFetcher{value: "level-2"}

	first, err := GetOrFetch(context.Background(), c, "JP", c.TTL(), f.fetch)
	require.NoError(t, err)

	second, err := GetOrFetch(context.Background(), c, "JP", c.TTL(), f.fetch)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.calls)
}

func TestGetOrFetch_RefreshAfterTTL(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewFakeClock(start)
	c := NewMemoryCache("exchange", time.Hour, clock)
	f := &countingFetcher{value: "rates"}

	_, err := GetOrFetch(context.Background(), c, "exchange_EUR", c.TTL(), f.fetch)
	require.NoError(t, err)

	clock.Advance(59 * time.Minute)
	_, err = GetOrFetch(context.Background(), c, "exchange_EUR", c.TTL(), f.fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, f.calls)

	clock.Advance(time.Minute)
	_, err = GetOrFetch(context.Background(), c, "exchange_EUR", c.TTL(), f.fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, f.calls)

	entry, ok := c.Get("exchange_EUR")
	require.True(t, ok)
	assert.Equal(t, start.Add(time.Hour), entry.StoredAt)

	_, err = GetOrFetch(context.Background(), c, "exchange_EUR", c.TTL(), f.fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, f.calls)
}

func TestGetOrFetch_NoNegativeCaching(t *testing.T) {
	clock := NewFakeClock(time.Now())
	c := NewMemoryCache("news", 30*time.Minute, clock)
	f := &countingFetcher{err: errors.New("boom")}

	_, err := GetOrFetch(context.Background(), c, "JP", c.TTL(), f.fetch)
	assert.Error(t, err)
	assert.Equal(t, 0, c.Len())

	f.err = nil
	f.value = "ok"
	value, err := GetOrFetch(context.Background(), c, "JP", c.TTL(), f.fetch)
	require.NoError(t, err)
	assert.Equal(t, "ok", value)
	assert.Equal(t, 2, f.calls)
}

func TestGetOrFetch_FailedRefreshKeepsStaleEntry(t *testing.T) {
	clock := NewFakeClock(time.Now())
	c := NewMemoryCache("wiki", time.Hour, clock)
	f := &countingFetcher{value: "v1"}

	_, err := GetOrFetch(context.Background(), c, "k", c.TTL(), f.fetch)
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)
	f.err = errors.New("down")
	_, err = GetOrFetch(context.Background(), c, "k", c.TTL(), f.fetch)
	assert.Error(t, err)

	entry, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v1", entry.Value)
}

func TestGetOrFetch_TypeMismatchFetches(t *testing.T) {
	c := NewMemoryCache("poi", time.Hour, nil)
	c.Set("k", 42)

	f := &countingFetcher{value: "fresh"}
	value, err := GetOrFetch(context.Background(), c, "k", c.TTL(), f.fetch)
	require.NoError(t, err)
	assert.Equal(t, "fresh", value)
	assert.Equal(t, 1, f.calls)
}

func TestGetOrFetch_NilCache(t *testing.T) {
	f := &countingFetcher{value: "direct"}
	value, err := GetOrFetch(context.Background(), nil, "k", time.Hour, f.fetch)
	require.NoError(t, err)
	assert.Equal(t, "direct", value)
}
