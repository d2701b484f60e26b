package service

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/saiset-co/sai-travel/aggregator"
	"github.com/saiset-co/sai-travel/api"
	"github.com/saiset-co/sai-travel/cache"
	"github.com/saiset-co/sai-travel/catalog"
	"github.com/saiset-co/sai-travel/client"
	"github.com/saiset-co/sai-travel/config"
	"github.com/saiset-co/sai-travel/cron"
	"github.com/saiset-co/sai-travel/health"
	"github.com/saiset-co/sai-travel/logger"
	"github.com/saiset-co/sai-travel/metrics"
	"github.com/saiset-co/sai-travel/middleware"
	"github.com/saiset-co/sai-travel/providers"
	"github.com/saiset-co/sai-travel/server"
	"github.com/saiset-co/sai-travel/types"
)

type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

const catalogRefreshJob = "catalog_refresh"

type component struct {
	name    string
	manager types.LifecycleManager
}

// Service owns every component. Nothing is global: each component gets its
// dependencies from here.
type Service struct {
	ctx             context.Context
	cancel          context.CancelFunc
	done            chan struct{}
	wg              sync.WaitGroup
	state           atomic.Int32
	shutdownTimeout time.Duration

	config      types.ConfigManager
	logger      types.LoggerManager
	metrics     *metrics.Manager
	caches      *cache.Manager
	clients     *client.Manager
	providers   *providers.Set
	catalog     *catalog.Index
	aggregator  *aggregator.Service
	middlewares *middleware.Manager
	router      *server.Router
	health      types.HealthManager
	cron        *cron.Manager
	server      *server.FastHTTPServer

	// components in start order; stopped in reverse.
	components []component
}

func NewService(ctx context.Context, configPath string) (*Service, error) {
	if configPath == "" {
		return nil, types.Errorf(types.ErrConfigNotFound, "config path is empty")
	}
	if _, err := os.Stat(configPath); err != nil {
		return nil, types.WrapError(err, "config file is not readable")
	}

	configManager, err := config.NewConfigurationManager(ctx, configPath)
	if err != nil {
		return nil, types.WrapError(err, "failed to load configuration")
	}

	return newService(ctx, configManager)
}

// NewServiceWithConfig builds the service from a ready configuration.
func NewServiceWithConfig(ctx context.Context, cfg *types.ServiceConfig) (*Service, error) {
	configManager, err := config.NewStaticManager(ctx, cfg)
	if err != nil {
		return nil, types.WrapError(err, "invalid configuration")
	}

	return newService(ctx, configManager)
}

func newService(ctx context.Context, configManager *config.ConfigurationManager) (*Service, error) {
	serviceCtx, cancel := context.WithCancel(ctx)

	s := &Service{
		ctx:             serviceCtx,
		cancel:          cancel,
		done:            make(chan struct{}),
		shutdownTimeout: 30 * time.Second,
		config:          configManager,
	}
	s.state.Store(int32(StateStopped))

	if err := s.build(configManager); err != nil {
		cancel()
		return nil, err
	}

	return s, nil
}

func (s *Service) build(configManager *config.ConfigurationManager) error {
	cfg := configManager.GetConfig()

	loggerManager, err := logger.NewManager(s.ctx, configManager)
	if err != nil {
		return types.WrapError(err, "failed to create logger")
	}
	s.logger = loggerManager

	s.metrics, err = metrics.NewManager(s.ctx, configManager, loggerManager)
	if err != nil {
		return types.WrapError(err, "failed to create metrics manager")
	}

	clock := cache.SystemClock{}

	s.caches, err = cache.NewManager(s.ctx, cfg.Cache, clock, loggerManager, s.metrics)
	if err != nil {
		return types.WrapError(err, "failed to create cache registry")
	}

	s.clients, err = client.NewManager(s.ctx, cfg.Client, loggerManager, s.metrics)
	if err != nil {
		return types.WrapError(err, "failed to create client manager")
	}

	s.providers, err = providers.NewSet(cfg.Providers, s.clients, s.caches, loggerManager)
	if err != nil {
		return types.WrapError(err, "failed to create providers")
	}

	s.catalog, err = catalog.NewIndex(s.ctx, cfg.Catalog,
		s.providers.Country.ListCountries,
		aggregator.LevelFunc(s.providers),
		clock, loggerManager, s.metrics)
	if err != nil {
		return types.WrapError(err, "failed to create catalog index")
	}

	s.aggregator, err = aggregator.NewService(s.providers, s.catalog, cfg.Aggregator, loggerManager, s.metrics)
	if err != nil {
		return types.WrapError(err, "failed to create aggregator")
	}

	s.middlewares, err = middleware.NewManager(s.ctx, cfg.Middlewares, loggerManager, s.metrics)
	if err != nil {
		return types.WrapError(err, "failed to create middleware manager")
	}
	if err := s.middlewares.RegisterMiddlewares(); err != nil {
		return types.WrapError(err, "failed to register middlewares")
	}

	s.router = server.NewRouter()
	api.NewHandlers(s.aggregator, loggerManager).RegisterRoutes(s.router)
	s.metrics.RegisterRoutes(s.router)

	if cfg.Cron != nil && cfg.Cron.Enabled {
		s.cron, err = cron.NewManager(s.ctx, cfg.Cron, loggerManager, s.metrics)
		if err != nil {
			return types.WrapError(err, "failed to create cron manager")
		}

		if spec := cfg.Catalog.RefreshSchedule; spec != "" {
			if err := s.cron.Add(catalogRefreshJob, spec, func() { s.catalog.Refresh() }); err != nil {
				return types.WrapError(err, "failed to schedule catalog refresh")
			}
		}
	}

	if cfg.Health != nil && cfg.Health.Enabled {
		s.health, err = health.NewManager(s.ctx, configManager, loggerManager, s.router)
		if err != nil {
			return types.WrapError(err, "failed to create health manager")
		}

		s.health.RegisterChecker("catalog", health.CatalogChecker(s.catalog))
		s.health.RegisterChecker("cache", health.CacheChecker(s.caches))
		s.health.RegisterChecker("upstreams", health.UpstreamChecker(s.clients))
		if s.cron != nil {
			s.health.RegisterChecker("cron", s.cron.Checker())
		}
	}

	s.server, err = server.NewHTTPServer(s.ctx, cfg.Server.HTTP, loggerManager, s.middlewares, s.router)
	if err != nil {
		return types.WrapError(err, "failed to create HTTP server")
	}

	s.components = []component{
		{"config", configManager},
		{"logger", loggerManager},
		{"metrics", s.metrics},
		{"cache", s.caches},
		{"client", s.clients},
		{"catalog", s.catalog},
	}
	if s.health != nil {
		s.components = append(s.components, component{"health", s.health})
	}
	s.components = append(s.components, component{"http", s.server})
	if s.cron != nil {
		s.components = append(s.components, component{"cron", s.cron})
	}

	return nil
}

// Start brings every component up and blocks until the service is stopped
// by Stop, a signal or the parent context.
func (s *Service) Start() error {
	if !s.transitionState(StateStopped, StateStarting) {
		return types.ErrServiceIsRunning
	}

	if err := s.startComponents(); err != nil {
		s.stopComponents()
		s.setState(StateStopped)
		return err
	}

	s.setState(StateRunning)
	s.setupSignalHandling()

	s.wg.Add(1)
	go s.contextMonitor()

	s.logger.Info("Service started",
		zap.String("name", s.config.GetConfig().Name),
		zap.String("version", s.config.GetConfig().Version))

	<-s.done

	s.stopComponents()
	s.wg.Wait()
	s.setState(StateStopped)

	s.logger.Info("Service stopped")
	return nil
}

func (s *Service) Stop() error {
	if !s.transitionState(StateRunning, StateStopping) {
		return types.ErrServiceIsNotRunning
	}

	s.cancel()
	return nil
}

func (s *Service) IsRunning() bool {
	return s.getState() == StateRunning
}

func (s *Service) Done() <-chan struct{} {
	return s.done
}

// Handler exposes the HTTP entry point, mainly for in-process tests.
func (s *Service) Handler() *server.FastHTTPServer {
	return s.server
}

func (s *Service) startComponents() error {
	for _, c := range s.components {
		if err := c.manager.Start(); err != nil {
			return types.Errorf(types.ErrComponentStartFailed, "%s: %v", c.name, err)
		}
	}
	return nil
}

// stopComponents stops in reverse start order. The HTTP server goes first
// so no request reaches a stopped component; the rest stop concurrently and
// the logger last.
func (s *Service) stopComponents() {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	s.middlewares.Clear()

	var rest []component
	for i := len(s.components) - 1; i >= 0; i-- {
		c := s.components[i]
		switch c.name {
		case "http", "cron":
			s.stopOne(c)
		case "logger", "config":
		default:
			rest = append(rest, c)
		}
	}

	g, gCtx := errgroup.WithContext(ctx)
	for _, c := range rest {
		c := c
		g.Go(func() error {
			select {
			case <-gCtx.Done():
				return gCtx.Err()
			default:
				s.stopOne(c)
				return nil
			}
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Warn("Component shutdown timeout, some components may not have stopped", zap.Error(err))
	}

	for _, name := range []string{"config", "logger"} {
		for _, c := range s.components {
			if c.name == name {
				s.stopOne(c)
			}
		}
	}
}

// stopOne tolerates components that never started or already stopped.
func (s *Service) stopOne(c component) {
	err := c.manager.Stop()
	if err == nil || types.IsError(err, types.ErrServerNotRunning) {
		return
	}
	s.logger.Warn("Component stop failed", zap.String("component", c.name), zap.Error(err))
}

func (s *Service) setupSignalHandling() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			s.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
			if s.transitionState(StateRunning, StateStopping) {
				s.cancel()
			}
		case <-s.ctx.Done():
		}
	}()
}

func (s *Service) contextMonitor() {
	defer s.wg.Done()
	defer close(s.done)

	<-s.ctx.Done()

	switch err := s.ctx.Err(); {
	case types.IsError(err, context.Canceled):
		s.logger.Info("Service shutdown: context cancelled")
	case types.IsError(err, context.DeadlineExceeded):
		s.logger.Warn("Service shutdown: context deadline exceeded")
	default:
		s.logger.Info(fmt.Sprintf("Service shutdown: %v", err))
	}
}

func (s *Service) getState() State {
	return State(s.state.Load())
}

func (s *Service) setState(newState State) {
	s.state.Store(int32(newState))
}

func (s *Service) transitionState(from, to State) bool {
	return s.state.CompareAndSwap(int32(from), int32(to))
}
