package metrics

import (
	"context"
	"sync/atomic"
	"time"

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

// Manager fronts the configured backend. When metrics are disabled every
// instrument is a no-op, so callers never branch on configuration.
type Manager struct {
	ctx     context.Context
	cancel  context.CancelFunc
	logger  types.Logger
	backend types.MetricsManager
	state   atomic.Value
}

func NewManager(ctx context.Context, config types.ConfigManager, logger types.Logger) (*Manager, error) {
	metricsConfig := config.GetConfig().Metrics

	managerCtx, cancel := context.WithCancel(ctx)

	manager := &Manager{
		ctx:    managerCtx,
		cancel: cancel,
		logger: logger,
	}
	manager.state.Store(ManagerStateStopped)

	if metricsConfig == nil || !metricsConfig.Enabled {
		logger.Info("Metrics disabled")
		return manager, nil
	}

	switch metricsConfig.Type {
	case "prometheus":
		backend, err := NewPrometheusMetrics(managerCtx, logger, metricsConfig)
		if err != nil {
			cancel()
			return nil, types.WrapError(err, "failed to initialize metrics manager")
		}
		manager.backend = backend
	default:
		cancel()
		return nil, types.Errorf(types.ErrMetricsTypeUnknown, "type: %s", metricsConfig.Type)
	}

	logger.Info("Metrics manager initialized", zap.String("type", metricsConfig.Type))
	return manager, nil
}

// NewNop returns a stopped manager with no backend.
func NewNop() *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	manager := &Manager{ctx: ctx, cancel: cancel}
	manager.state.Store(ManagerStateStopped)
	return manager
}

func (m *Manager) Start() error {
	if !m.transitionState(ManagerStateStopped, ManagerStateStarting) {
		return types.ErrServerAlreadyRunning
	}

	if m.backend != nil {
		if err := m.backend.Start(); err != nil {
			m.setState(ManagerStateStopped)
			return types.WrapError(err, "failed to start metrics manager")
		}
	}

	m.setState(ManagerStateRunning)
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

	if m.backend != nil {
		if err := m.backend.Stop(); err != nil {
			m.logger.Error("Error during metrics manager shutdown", zap.Error(err))
		}
	}

	return nil
}

func (m *Manager) IsRunning() bool {
	return m.getState() == ManagerStateRunning
}

func (m *Manager) RegisterRoutes(router types.HTTPRouter) {
	if m.backend != nil {
		m.backend.RegisterRoutes(router)
	}
}

func (m *Manager) Counter(name string, labels map[string]string) types.Counter {
	if m.backend != nil {
		return m.backend.Counter(name, labels)
	}
	return &emptyCounter{}
}

func (m *Manager) Gauge(name string, labels map[string]string) types.Gauge {
	if m.backend != nil {
		return m.backend.Gauge(name, labels)
	}
	return &emptyGauge{}
}

func (m *Manager) Histogram(name string, buckets []float64, labels map[string]string) types.Histogram {
	if m.backend != nil {
		return m.backend.Histogram(name, buckets, labels)
	}
	return &emptyHistogram{}
}

func (m *Manager) Summary(name string, objectives map[float64]float64, labels map[string]string) types.Summary {
	if m.backend != nil {
		return m.backend.Summary(name, objectives, labels)
	}
	return &emptySummary{}
}

func (m *Manager) GetMetrics() ([]byte, error) {
	if m.backend == nil {
		return nil, types.ErrMetricsIsDisabled
	}
	return m.backend.GetMetrics()
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

type emptyCounter struct{}

func (c *emptyCounter) Inc()          {}
func (c *emptyCounter) Add(_ float64) {}
func (c *emptyCounter) Get() float64  { return 0 }

type emptyGauge struct{}

func (g *emptyGauge) Set(_ float64) {}
func (g *emptyGauge) Inc()          {}
func (g *emptyGauge) Dec()          {}
func (g *emptyGauge) Add(_ float64) {}
func (g *emptyGauge) Sub(_ float64) {}
func (g *emptyGauge) Get() float64  { return 0 }

type emptyHistogram struct{}

func (h *emptyHistogram) Observe(_ float64)           {}
func (h *emptyHistogram) ObserveDuration(_ time.Time) {}
func (h *emptyHistogram) GetCount() uint64            { return 0 }
func (h *emptyHistogram) GetSum() float64             { return 0 }

type emptySummary struct{}

func (s *emptySummary) Observe(_ float64)           {}
func (s *emptySummary) ObserveDuration(_ time.Time) {}
func (s *emptySummary) GetCount() uint64            { return 0 }
func (s *emptySummary) GetSum() float64             { return 0 }
