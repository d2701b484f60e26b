package middleware

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-travel/types"
)

const MaxMiddlewares = 64

// Manager orders the registered middlewares by weight and runs a chain per
// route. Every middleware is on by default; a route can switch some off
// by name. Chains are compiled once per distinct set.
type Manager struct {
	ctx     context.Context
	config  *types.MiddlewaresConfig
	logger  types.Logger
	metrics types.MetricsManager

	mu          sync.Mutex
	registry    map[string]types.Middleware
	ordered     []types.MiddlewareEntry
	nameToIndex map[string]int
	defaultMask uint64
	initialized atomic.Bool

	masks  sync.Map // *types.RouteConfig -> uint64
	chains sync.Map // uint64 -> *CompiledChain
}

type CompiledChain struct {
	mask        uint64
	middlewares []types.Middleware
}

type stopper interface {
	Stop() error
}

func NewManager(ctx context.Context, config *types.MiddlewaresConfig, logger types.Logger, metrics types.MetricsManager) (*Manager, error) {
	if config == nil {
		config = &types.MiddlewaresConfig{}
	}

	return &Manager{
		ctx:         ctx,
		config:      config,
		logger:      logger,
		metrics:     metrics,
		registry:    make(map[string]types.Middleware),
		nameToIndex: make(map[string]int),
	}, nil
}

// RegisterMiddlewares builds every middleware enabled in the configuration
// and freezes the order.
func (m *Manager) RegisterMiddlewares() error {
	if m.config.Enabled {
		builders := []struct {
			item  *types.MiddlewareItemConfig
			build func(item *types.MiddlewareItemConfig) types.Middleware
		}{
			{m.config.Recovery, func(item *types.MiddlewareItemConfig) types.Middleware {
				return NewRecoveryMiddleware(item, m.logger, m.metrics)
			}},
			{m.config.Logging, func(item *types.MiddlewareItemConfig) types.Middleware {
				return NewLoggingMiddleware(item, m.logger, m.metrics)
			}},
			{m.config.Metadata, func(item *types.MiddlewareItemConfig) types.Middleware {
				return NewMetadataMiddleware(item, m.logger)
			}},
			{m.config.RateLimit, func(item *types.MiddlewareItemConfig) types.Middleware {
				return NewRateLimitMiddleware(m.ctx, item, m.logger, m.metrics)
			}},
			{m.config.CORS, func(item *types.MiddlewareItemConfig) types.Middleware {
				return NewCORSMiddleware(item, m.logger)
			}},
			{m.config.Compression, func(item *types.MiddlewareItemConfig) types.Middleware {
				return NewCompressionMiddleware(item, m.logger)
			}},
		}

		for _, b := range builders {
			if b.item == nil || !b.item.Enabled {
				continue
			}

			mw := b.build(b.item)
			if err := m.Register(mw); err != nil {
				return err
			}
			m.logger.Info("Middleware registered",
				zap.String("name", mw.Name()),
				zap.Int("weight", mw.Weight()))
		}
	}

	return m.finalize()
}

func (m *Manager) Register(middleware types.Middleware) error {
	if middleware == nil {
		return types.Errorf(types.ErrInvalidParameter, "middleware is nil")
	}
	if m.initialized.Load() {
		return types.Errorf(types.ErrInvalidState, "cannot register middleware after finalization")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.registry) >= MaxMiddlewares {
		return types.Errorf(types.ErrInvalidState, "maximum middleware count exceeded: %d", MaxMiddlewares)
	}

	m.registry[middleware.Name()] = middleware
	return nil
}

func (m *Manager) finalize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized.Load() {
		return types.Errorf(types.ErrInvalidState, "configuration already finalized")
	}

	weights := make(map[int]string, len(m.registry))
	ordered := make([]types.MiddlewareEntry, 0, len(m.registry))
	for name, mw := range m.registry {
		if existing, ok := weights[mw.Weight()]; ok {
			return types.Errorf(types.ErrInvalidState, "duplicate weight %d for middlewares %q and %q", mw.Weight(), existing, name)
		}
		weights[mw.Weight()] = name
		ordered = append(ordered, types.MiddlewareEntry{Name: name, Middleware: mw, Weight: mw.Weight()})
	}

	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Weight < ordered[j].Weight
	})

	m.ordered = ordered
	m.nameToIndex = make(map[string]int, len(ordered))
	m.defaultMask = 0
	for i, entry := range ordered {
		m.nameToIndex[entry.Name] = i
		m.defaultMask |= 1 << uint(i)
	}

	m.initialized.Store(true)
	return nil
}

func (m *Manager) Execute(ctx *fasthttp.RequestCtx, handler func(*fasthttp.RequestCtx), config *types.RouteConfig) {
	if !m.initialized.Load() {
		handler(ctx)
		return
	}

	mask := m.routeMask(config)
	if mask == 0 {
		handler(ctx)
		return
	}

	m.chain(mask).run(ctx, handler, config)
}

func (m *Manager) routeMask(config *types.RouteConfig) uint64 {
	if config == nil || (len(config.Middlewares) == 0 && len(config.DisabledMiddlewares) == 0) {
		return m.defaultMask
	}

	if mask, ok := m.masks.Load(config); ok {
		return mask.(uint64)
	}

	mask := m.defaultMask
	for _, name := range config.Middlewares {
		if index, ok := m.nameToIndex[name]; ok {
			mask |= 1 << uint(index)
		}
	}
	for _, name := range config.DisabledMiddlewares {
		if index, ok := m.nameToIndex[name]; ok {
			mask &^= 1 << uint(index)
		}
	}

	m.masks.Store(config, mask)
	return mask
}

func (m *Manager) chain(mask uint64) *CompiledChain {
	if chain, ok := m.chains.Load(mask); ok {
		return chain.(*CompiledChain)
	}

	active := make([]types.Middleware, 0, len(m.ordered))
	for i, entry := range m.ordered {
		if mask&(1<<uint(i)) != 0 {
			active = append(active, entry.Middleware)
		}
	}

	chain, _ := m.chains.LoadOrStore(mask, &CompiledChain{mask: mask, middlewares: active})
	return chain.(*CompiledChain)
}

func (c *CompiledChain) run(ctx *fasthttp.RequestCtx, handler func(*fasthttp.RequestCtx), config *types.RouteConfig) {
	index := 0

	var next func(*fasthttp.RequestCtx)
	next = func(ctx *fasthttp.RequestCtx) {
		if index >= len(c.middlewares) {
			handler(ctx)
			return
		}

		mw := c.middlewares[index]
		index++
		mw.Handle(ctx, next, config)
	}

	next(ctx)
}

// Names lists the active middlewares in execution order.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.ordered))
	for _, entry := range m.ordered {
		names = append(names, entry.Name)
	}
	return names
}

// Clear stops middlewares with background work and resets the manager.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, mw := range m.registry {
		if s, ok := mw.(stopper); ok {
			if err := s.Stop(); err != nil {
				m.logger.Warn("Middleware stop failed", zap.String("name", name), zap.Error(err))
			}
		}
	}

	m.ordered = nil
	m.registry = make(map[string]types.Middleware)
	m.nameToIndex = make(map[string]int)
	m.defaultMask = 0
	clearMap(&m.masks)
	clearMap(&m.chains)
	m.initialized.Store(false)

	m.logger.Info("Middleware manager stopped")
}

func clearMap(sm *sync.Map) {
	sm.Range(func(key, _ interface{}) bool {
		sm.Delete(key)
		return true
	})
}
