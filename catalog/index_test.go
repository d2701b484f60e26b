package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saiset-co/sai-travel/cache"
	"github.com/saiset-co/sai-travel/logger"
	"github.com/saiset-co/sai-travel/types"
)

var testStart = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

type fakeCatalog struct {
	countries []types.Country
	levels    map[string]int
	listCalls atomic.Int32
	listErr   error
	gate      chan struct{}

	mu       sync.Mutex
	inFlight int
	peak     int
}

func newFakeCatalog(levels map[string]int, codes ...string) *fakeCatalog {
	f := &fakeCatalog{levels: levels}
	for _, code := range codes {
		f.countries = append(f.countries, types.Country{Code: code})
	}
	return f
}

func (f *fakeCatalog) list(ctx context.Context) ([]types.Country, error) {
	f.listCalls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.countries, nil
}

func (f *fakeCatalog) level(_ context.Context, code string) (int, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.peak {
		f.peak = f.inFlight
	}
	f.mu.Unlock()

	time.Sleep(time.Millisecond)

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	level, ok := f.levels[code]
	if !ok {
		return 0, errors.New("advisory unavailable")
	}
	return level, nil
}

func newTestIndex(t *testing.T, f *fakeCatalog, clock types.Clock, workers int) *Index {
	t.Helper()

	idx, err := NewIndex(context.Background(), &types.CatalogConfig{TTL: 6 * time.Hour, Workers: workers}, f.list, f.level, clock, logger.NewNop(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Stop() })
	return idx
}

func waitRefresh(t *testing.T, idx *Index) {
	t.Helper()
	select {
	case <-idx.done:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh did not finish")
	}
}

func TestIndex_ColdServesEmptyAndWarms(t *testing.T) {
	f := newFakeCatalog(map[string]int{"JP": 0, "US": 1, "FR": 2}, "JP", "US", "FR")
	idx := newTestIndex(t, f, cache.NewFakeClock(testStart), 4)

	assert.Equal(t, StateCold, idx.State())
	assert.Nil(t, idx.Levels())

	waitRefresh(t, idx)

	assert.Equal(t, StateWarm, idx.State())
	snap := idx.Levels()
	require.NotNil(t, snap)
	assert.Equal(t, 1, *snap.Level("US"))
	assert.Equal(t, testStart, snap.RefreshedAt)
	assert.Equal(t, int32(1), f.listCalls.Load())
}

func TestIndex_FailingCountryIsNull(t *testing.T) {
	f := newFakeCatalog(map[string]int{"JP": 0}, "JP", "XX")
	idx := newTestIndex(t, f, cache.NewFakeClock(testStart), 2)

	require.True(t, idx.Trigger())
	waitRefresh(t, idx)

	snap := idx.Snapshot()
	require.NotNil(t, snap)
	assert.Contains(t, snap.Levels, "XX")
	assert.Nil(t, snap.Levels["XX"])
	assert.Equal(t, 0, *snap.Levels["JP"])
}

func TestIndex_StaleAfterTTL(t *testing.T) {
	clock := cache.NewFakeClock(testStart)
	f := newFakeCatalog(map[string]int{"JP": 0}, "JP")
	idx := newTestIndex(t, f, clock, 1)

	require.True(t, idx.Trigger())
	waitRefresh(t, idx)

	clock.Advance(6*time.Hour - time.Second)
	assert.Equal(t, StateWarm, idx.State())
	assert.False(t, idx.Trigger())

	clock.Advance(time.Second)
	assert.Equal(t, StateStale, idx.State())
}

func TestIndex_SingleFlightWhenStale(t *testing.T) {
	clock := cache.NewFakeClock(testStart)
	f := newFakeCatalog(map[string]int{"JP": 0, "US": 1}, "JP", "US")
	idx := newTestIndex(t, f, clock, 2)

	require.True(t, idx.Trigger())
	waitRefresh(t, idx)
	first := idx.Snapshot()

	clock.Advance(7 * time.Hour)
	require.Equal(t, StateStale, idx.State())

	f.gate = make(chan struct{})

	var started atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if idx.Trigger() {
				started.Add(1)
			}
			// Readers get the stale snapshot while the refresh is held.
			assert.Same(t, first, idx.Levels())
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), started.Load())
	assert.Equal(t, StateWarming, idx.State())

	close(f.gate)
	waitRefresh(t, idx)

	assert.Equal(t, int32(2), f.listCalls.Load())
	assert.Equal(t, StateWarm, idx.State())
	assert.NotSame(t, first, idx.Snapshot())
}

func TestIndex_FailedRefreshKeepsSnapshot(t *testing.T) {
	clock := cache.NewFakeClock(testStart)
	f := newFakeCatalog(map[string]int{"JP": 0}, "JP")
	idx := newTestIndex(t, f, clock, 1)

	require.True(t, idx.Trigger())
	waitRefresh(t, idx)
	first := idx.Snapshot()

	clock.Advance(7 * time.Hour)
	f.listErr = errors.New("registry down")
	require.True(t, idx.Trigger())
	waitRefresh(t, idx)

	assert.Equal(t, StateStale, idx.State())
	assert.Same(t, first, idx.Snapshot())
}

func TestIndex_FailedColdRefreshStaysCold(t *testing.T) {
	f := newFakeCatalog(nil)
	f.listErr = errors.New("registry down")
	idx := newTestIndex(t, f, cache.NewFakeClock(testStart), 1)

	require.True(t, idx.Trigger())
	waitRefresh(t, idx)

	assert.Equal(t, StateCold, idx.State())
	assert.Nil(t, idx.Snapshot())
}

func TestIndex_WorkerPoolBound(t *testing.T) {
	codes := []string{"A1", "A2", "A3", "A4", "A5", "A6", "A7", "A8", "A9", "B1", "B2", "B3"}
	levels := make(map[string]int, len(codes))
	for _, c := range codes {
		levels[c] = 1
	}
	f := newFakeCatalog(levels, codes...)
	idx := newTestIndex(t, f, cache.NewFakeClock(testStart), 3)

	require.True(t, idx.Trigger())
	waitRefresh(t, idx)

	assert.LessOrEqual(t, f.peak, 3)
	assert.Len(t, idx.Snapshot().Levels, len(codes))
}

func TestIndex_RefreshWhileWarm(t *testing.T) {
	f := newFakeCatalog(map[string]int{"JP": 0}, "JP")
	idx := newTestIndex(t, f, cache.NewFakeClock(testStart), 1)

	require.True(t, idx.Refresh())
	waitRefresh(t, idx)
	require.Equal(t, StateWarm, idx.State())

	require.True(t, idx.Refresh())
	waitRefresh(t, idx)
	assert.Equal(t, int32(2), f.listCalls.Load())
}

func TestIndex_StopCancelsRefresh(t *testing.T) {
	f := newFakeCatalog(map[string]int{"JP": 0}, "JP")
	f.gate = make(chan struct{})
	idx := newTestIndex(t, f, cache.NewFakeClock(testStart), 1)

	require.True(t, idx.Trigger())
	require.NoError(t, idx.Stop())

	assert.False(t, idx.IsRunning())
	assert.False(t, idx.Trigger())
	assert.Nil(t, idx.Snapshot())
}

func TestFilterLevel(t *testing.T) {
	snap := &Snapshot{Levels: map[string]*int{"JP": intPtr(0), "US": intPtr(1), "FR": intPtr(2), "XX": nil}}
	countries := []types.Country{{Code: "JP"}, {Code: "US"}, {Code: "FR"}, {Code: "XX"}}

	items := FilterLevel(Annotate(countries, snap), 1)

	require.Len(t, items, 1)
	assert.Equal(t, "US", items[0].Code)
	assert.Equal(t, 1, *items[0].SafetyLevel)
}

func TestAnnotate_NilSnapshot(t *testing.T) {
	items := Annotate([]types.Country{{Code: "JP"}}, nil)

	require.Len(t, items, 1)
	assert.Nil(t, items[0].SafetyLevel)
	assert.Empty(t, FilterLevel(items, 0))
}

func intPtr(v int) *int {
	return &v
}
