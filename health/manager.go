package health

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/saiset-co/sai-travel/types"
	"github.com/saiset-co/sai-travel/utils"
)

type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

type namedChecker struct {
	name  string
	check types.HealthChecker
}

// Manager runs the registered checks concurrently and serves the report
// on /health. Checks read component state; none of them call upstreams.
type Manager struct {
	ctx          context.Context
	cancel       context.CancelFunc
	config       types.ConfigManager
	logger       types.Logger
	router       types.HTTPRouter
	checkers     []namedChecker
	mu           sync.RWMutex
	startTime    time.Time
	state        atomic.Int32
	routesOnce   sync.Once
	checkTimeout time.Duration
}

func NewManager(ctx context.Context, config types.ConfigManager, logger types.Logger, router types.HTTPRouter) (*Manager, error) {
	if config == nil {
		return nil, types.ErrConfigIsNil
	}

	managerCtx, cancel := context.WithCancel(ctx)

	hm := &Manager{
		ctx:          managerCtx,
		cancel:       cancel,
		config:       config,
		logger:       logger,
		router:       router,
		checkTimeout: 2 * time.Second,
	}
	hm.state.Store(int32(StateStopped))

	return hm, nil
}

// RegisterChecker adds a check; registering a name twice replaces it.
func (hm *Manager) RegisterChecker(name string, checker types.HealthChecker) {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	for i := range hm.checkers {
		if hm.checkers[i].name == name {
			hm.checkers[i].check = checker
			return
		}
	}
	hm.checkers = append(hm.checkers, namedChecker{name: name, check: checker})
}

func (hm *Manager) Check(ctx context.Context) types.HealthReport {
	hm.mu.RLock()
	checkers := append([]namedChecker(nil), hm.checkers...)
	hm.mu.RUnlock()

	results := make([]types.HealthCheck, len(checkers))

	var g errgroup.Group
	for i, c := range checkers {
		i, c := i, c
		g.Go(func() error {
			results[i] = hm.run(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	checks := make(map[string]types.HealthCheck, len(results))
	for _, result := range results {
		checks[result.Name] = result
		if result.Status == types.StatusUnhealthy {
			hm.logger.Warn("Health check failed",
				zap.String("check", result.Name),
				zap.String("message", result.Message))
		}
	}

	return hm.buildReport(checks)
}

// run bounds one check by checkTimeout. A check that ignores its context
// is abandoned, not waited for.
func (hm *Manager) run(ctx context.Context, c namedChecker) types.HealthCheck {
	start := time.Now()

	checkCtx, cancel := context.WithTimeout(ctx, hm.checkTimeout)
	defer cancel()

	done := make(chan types.HealthCheck, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- types.HealthCheck{
					Status:  types.StatusUnhealthy,
					Message: fmt.Sprintf("check panicked: %v", r),
				}
			}
		}()
		done <- c.check(checkCtx)
	}()

	var result types.HealthCheck
	select {
	case result = <-done:
	case <-checkCtx.Done():
		result = types.HealthCheck{
			Status:  types.StatusUnhealthy,
			Message: "check timed out",
		}
	}

	result.Name = c.name
	result.LastCheck = time.Now()
	result.Duration = time.Since(start)
	return result
}

func (hm *Manager) buildReport(checks map[string]types.HealthCheck) types.HealthReport {
	cfg := hm.config.GetConfig()

	info := types.ServiceInfo{Name: cfg.Name, Version: cfg.Version}
	if cfg.Server != nil && cfg.Server.HTTP != nil {
		info.Host = cfg.Server.HTTP.Host
		info.Port = cfg.Server.HTTP.Port
	}

	summary := types.HealthSummary{Total: len(checks)}
	for _, check := range checks {
		switch check.Status {
		case types.StatusHealthy:
			summary.Healthy++
		case types.StatusUnhealthy:
			summary.Unhealthy++
		default:
			summary.Unknown++
		}
	}

	status := types.StatusHealthy
	switch {
	case summary.Unhealthy > 0:
		status = types.StatusUnhealthy
	case summary.Unknown > 0:
		status = types.StatusUnknown
	}

	report := types.HealthReport{
		Status:    status,
		Timestamp: time.Now(),
		Service:   info,
		Checks:    checks,
		Summary:   summary,
	}
	if !hm.startTime.IsZero() {
		report.Uptime = time.Since(hm.startTime)
	}
	return report
}

// Start mounts /health and /version. Routes survive a restart.
func (hm *Manager) Start() error {
	if !hm.transitionState(StateStopped, StateStarting) {
		return types.ErrServerAlreadyRunning
	}

	hm.startTime = time.Now()
	if hm.router != nil {
		hm.routesOnce.Do(hm.registerRoutes)
	}
	hm.setState(StateRunning)

	hm.logger.Info("Health manager started", zap.Int("checks", len(hm.checkers)))
	return nil
}

func (hm *Manager) Stop() error {
	if !hm.transitionState(StateRunning, StateStopping) {
		return types.ErrServerNotRunning
	}

	hm.cancel()
	hm.setState(StateStopped)

	hm.logger.Info("Health manager stopped")
	return nil
}

func (hm *Manager) IsRunning() bool {
	return hm.getState() == StateRunning
}

func (hm *Manager) getState() State {
	return State(hm.state.Load())
}

func (hm *Manager) setState(newState State) {
	hm.state.Store(int32(newState))
}

func (hm *Manager) transitionState(from, to State) bool {
	return hm.state.CompareAndSwap(int32(from), int32(to))
}

func (hm *Manager) registerRoutes() {
	config := &types.RouteConfig{
		Timeout:             5 * time.Second,
		DisabledMiddlewares: []string{"rate_limit", "compression"},
	}

	hm.router.Add(fasthttp.MethodGet, "/version", hm.handleVersion, config)
	hm.router.Add(fasthttp.MethodGet, "/health", hm.handleHealth, config)
}

func (hm *Manager) handleVersion(ctx *fasthttp.RequestCtx) {
	version := hm.config.GetConfig().Version
	utils.WriteJSON(ctx, fasthttp.StatusOK, types.VersionInfo{
		Version:   version,
		BuildInfo: getBuildInfo(version),
	})
}

// handleHealth answers 200 while the process serves; check failures are
// reported in the body, since every endpoint degrades instead of failing.
func (hm *Manager) handleHealth(ctx *fasthttp.RequestCtx) {
	if !hm.IsRunning() {
		utils.WriteError(ctx, fasthttp.StatusServiceUnavailable, types.ErrHealthIsNotRunning.Error())
		return
	}

	utils.WriteJSON(ctx, fasthttp.StatusOK, hm.Check(utils.RequestContext(ctx)))
}
