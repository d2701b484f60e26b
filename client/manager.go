package client

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-travel/types"
)

type ManagerState int32

const (
	ManagerStateStopped ManagerState = iota
	ManagerStateStarting
	ManagerStateRunning
	ManagerStateStopping
)

type Option func(*fasthttp.Client)

// WithDial replaces the dialer of the shared client.
func WithDial(dial fasthttp.DialFunc) Option {
	return func(c *fasthttp.Client) {
		c.Dial = dial
	}
}

// Manager owns the single pooled fasthttp.Client every provider shares.
type Manager struct {
	ctx       context.Context
	cancel    context.CancelFunc
	config    *types.ClientConfig
	logger    types.Logger
	metrics   types.MetricsManager
	client    *fasthttp.Client
	upstreams map[string]*Upstream
	mu        sync.RWMutex
	state     atomic.Value
}

func NewManager(ctx context.Context, config *types.ClientConfig, logger types.Logger, metrics types.MetricsManager, opts ...Option) (*Manager, error) {
	if config == nil {
		return nil, types.ErrConfigIsNil
	}

	httpClient := &fasthttp.Client{
		Name:                     config.UserAgent,
		MaxConnsPerHost:          config.MaxConnsPerHost,
		MaxIdleConnDuration:      config.MaxIdleConnDuration,
		ReadTimeout:              config.DefaultTimeout,
		WriteTimeout:             config.DefaultTimeout,
		NoDefaultUserAgentHeader: config.UserAgent == "",
		MaxResponseBodySize:      16 << 20,
	}

	for _, opt := range opts {
		opt(httpClient)
	}

	managerCtx, cancel := context.WithCancel(ctx)

	m := &Manager{
		ctx:       managerCtx,
		cancel:    cancel,
		config:    config,
		logger:    logger,
		metrics:   metrics,
		client:    httpClient,
		upstreams: make(map[string]*Upstream),
	}
	m.state.Store(ManagerStateStopped)

	return m, nil
}

// Upstream returns the client for name, creating it on first use. Later
// calls ignore config.
func (m *Manager) Upstream(name string, config *types.ProviderConfig) types.UpstreamClient {
	m.mu.RLock()
	u, exists := m.upstreams[name]
	m.mu.RUnlock()
	if exists {
		return u
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if u, exists = m.upstreams[name]; exists {
		return u
	}

	if config == nil {
		config = &types.ProviderConfig{}
	}

	u = newUpstream(name, m.client, config, m.config, m.logger, m.metrics)
	m.upstreams[name] = u

	m.logger.Debug("Upstream client created",
		zap.String("provider", name),
		zap.Duration("timeout", u.timeout),
		zap.Int("retries", u.retries),
		zap.Float64("rate_limit", config.RateLimit))

	return u
}

func (m *Manager) BreakerStates() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	states := make(map[string]string, len(m.upstreams))
	for name, u := range m.upstreams {
		states[name] = u.breaker.State()
	}
	return states
}

func (m *Manager) Start() error {
	if !m.transitionState(ManagerStateStopped, ManagerStateStarting) {
		return types.ErrServerAlreadyRunning
	}

	m.setState(ManagerStateRunning)
	m.logger.Info("Client manager started",
		zap.Int("max_conns_per_host", m.config.MaxConnsPerHost),
		zap.Duration("default_timeout", m.config.DefaultTimeout))

	return nil
}

func (m *Manager) Stop() error {
	if !m.transitionState(ManagerStateRunning, ManagerStateStopping) {
		return types.ErrServerNotRunning
	}

	defer func() {
		m.setState(ManagerStateStopped)
		m.cancel()
	}()

	m.mu.RLock()
	for _, u := range m.upstreams {
		u.breaker.Stop()
	}
	m.mu.RUnlock()

	m.client.CloseIdleConnections()
	m.logger.Info("Client manager stopped")

	return nil
}

func (m *Manager) IsRunning() bool {
	return m.getState() == ManagerStateRunning
}

func (m *Manager) getState() ManagerState {
	return m.state.Load().(ManagerState)
}

func (m *Manager) setState(newState ManagerState) bool {
	currentState := m.getState()
	return m.state.CompareAndSwap(currentState, newState)
}

func (m *Manager) transitionState(from, to ManagerState) bool {
	return m.state.CompareAndSwap(from, to)
}
