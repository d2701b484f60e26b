package cache

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/saiset-co/sai-travel/types"
)

type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

// Manager owns one MemoryCache per provider family and is built once at
// startup; providers receive their cache from it explicitly.
type Manager struct {
	ctx         context.Context
	cancel      context.CancelFunc
	logger      types.Logger
	metrics     types.MetricsManager
	config      *types.CacheConfig
	clock       types.Clock
	stores      map[string]*MemoryCache
	caches      map[string]types.Cache
	mu          sync.RWMutex
	state       atomic.Value
	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

func NewManager(ctx context.Context, config *types.CacheConfig, clock types.Clock, logger types.Logger, metrics types.MetricsManager) (*Manager, error) {
	if config == nil {
		return nil, types.ErrConfigIsNil
	}

	if clock == nil {
		clock = SystemClock{}
	}

	managerCtx, cancel := context.WithCancel(ctx)

	m := &Manager{
		ctx:     managerCtx,
		cancel:  cancel,
		logger:  logger,
		metrics: metrics,
		config:  config,
		clock:   clock,
		stores:  make(map[string]*MemoryCache),
		caches:  make(map[string]types.Cache),
	}
	m.state.Store(StateStopped)

	for name := range config.TTLs {
		m.Cache(name)
	}

	return m, nil
}

// Cache returns the named cache, creating it with DefaultTTL when the
// family has no TTL of its own.
func (m *Manager) Cache(name string) types.Cache {
	m.mu.RLock()
	c, exists := m.caches[name]
	m.mu.RUnlock()
	if exists {
		return c
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if c, exists = m.caches[name]; exists {
		return c
	}

	ttl, ok := m.config.TTLs[name]
	if !ok || ttl <= 0 {
		ttl = m.config.DefaultTTL
	}

	store := NewMemoryCache(name, ttl, m.clock)
	m.stores[name] = store
	m.caches[name] = newInstrumentedCache(store, m.metrics)

	return m.caches[name]
}

func (m *Manager) Stats() []types.CacheStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make([]types.CacheStats, 0, len(m.stores))
	for _, store := range m.stores {
		stats = append(stats, store.Stats())
	}

	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}

func (m *Manager) Start() error {
	if !m.transitionState(StateStopped, StateStarting) {
		return types.ErrServerAlreadyRunning
	}

	if m.config.CleanupInterval > 0 {
		m.stopCleanup = make(chan struct{})
		m.cleanupDone = make(chan struct{})
		go m.startCleanupRoutine(m.config.CleanupInterval)
	}

	m.setState(StateRunning)
	m.logger.Info("Cache manager started",
		zap.Int("caches", len(m.Stats())),
		zap.Duration("cleanup_interval", m.config.CleanupInterval))

	return nil
}

func (m *Manager) Stop() error {
	if !m.transitionState(StateRunning, StateStopping) {
		return types.ErrServerNotRunning
	}

	defer func() {
		m.setState(StateStopped)
		m.cancel()
	}()

	if m.stopCleanup != nil {
		close(m.stopCleanup)
		<-m.cleanupDone
	}

	m.logger.Info("Cache manager stopped")
	return nil
}

func (m *Manager) IsRunning() bool {
	return m.getState() == StateRunning
}

// cleanup removes entries past their family TTL. Lookups already treat
// them as misses; this only bounds memory.
func (m *Manager) cleanup() {
	m.mu.RLock()
	stores := make([]*MemoryCache, 0, len(m.stores))
	for _, store := range m.stores {
		stores = append(stores, store)
	}
	m.mu.RUnlock()

	total := 0
	for _, store := range stores {
		total += store.Purge(store.TTL())
	}

	if total > 0 {
		m.logger.Debug("Cache cleanup completed", zap.Int("expired_entries", total))
	}
}

func (m *Manager) startCleanupRoutine(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-m.stopCleanup:
			return
		case <-ticker.C:
			m.cleanup()
		}
	}
}

func (m *Manager) getState() State {
	return m.state.Load().(State)
}

func (m *Manager) setState(newState State) bool {
	currentState := m.getState()
	return m.state.CompareAndSwap(currentState, newState)
}

func (m *Manager) transitionState(from, to State) bool {
	return m.state.CompareAndSwap(from, to)
}

type instrumentedCache struct {
	types.Cache
	metrics types.MetricsManager
}

func newInstrumentedCache(impl types.Cache, metrics types.MetricsManager) types.Cache {
	if metrics == nil {
		return impl
	}
	return &instrumentedCache{Cache: impl, metrics: metrics}
}

func (ic *instrumentedCache) Lookup(key string, ttl time.Duration) (interface{}, bool) {
	start := time.Now()
	value, ok := ic.Cache.Lookup(key, ttl)

	result := "miss"
	if ok {
		result = "hit"
	}

	ic.recordMetric("lookup", result, time.Since(start))
	return value, ok
}

func (ic *instrumentedCache) Set(key string, value interface{}) {
	start := time.Now()
	ic.Cache.Set(key, value)
	ic.recordMetric("set", "success", time.Since(start))
}

func (ic *instrumentedCache) recordMetric(operation, result string, duration time.Duration) {
	ic.metrics.Counter("cache_operations_total", map[string]string{
		"cache":     ic.Name(),
		"operation": operation,
		"result":    result,
	}).Inc()

	ic.metrics.Histogram("cache_operation_duration_seconds",
		[]float64{0.0001, 0.001, 0.01, 0.1, 1.0},
		map[string]string{"cache": ic.Name(), "operation": operation},
	).Observe(duration.Seconds())
}
