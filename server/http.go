package server

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

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

type FastHTTPServer struct {
	ctx             context.Context
	cancel          context.CancelFunc
	logger          types.Logger
	middlewares     types.MiddlewareManager
	router          *Router
	server          *fasthttp.Server
	listener        net.Listener
	httpConfig      *types.HTTPConfig
	state           atomic.Int32
	shutdownTimeout time.Duration
}

func NewHTTPServer(ctx context.Context, config *types.HTTPConfig, logger types.Logger, middlewares types.MiddlewareManager, router *Router) (*FastHTTPServer, error) {
	if config == nil {
		return nil, types.ErrConfigIsNil
	}
	if router == nil {
		return nil, types.Errorf(types.ErrInvalidParameter, "router is nil")
	}

	serverCtx, cancel := context.WithCancel(ctx)

	shutdownTimeout := 5 * time.Second
	if config.ShutdownTimeout > 0 {
		shutdownTimeout = time.Duration(config.ShutdownTimeout) * time.Second
	}

	h := &FastHTTPServer{
		ctx:             serverCtx,
		cancel:          cancel,
		logger:          logger,
		middlewares:     middlewares,
		router:          router,
		httpConfig:      config,
		shutdownTimeout: shutdownTimeout,
	}
	h.state.Store(int32(StateStopped))

	return h, nil
}

func (h *FastHTTPServer) Start() error {
	if !h.transitionState(StateStopped, StateStarting) {
		return types.ErrServerAlreadyRunning
	}

	if err := h.router.FinalizePendingRoutes(); err != nil {
		h.setState(StateStopped)
		return types.WrapError(err, "failed to finalize routes")
	}

	addr := fmt.Sprintf("%s:%d", h.httpConfig.Host, h.httpConfig.Port)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		h.setState(StateStopped)
		return types.WrapError(types.ErrServerStartFailed, err.Error())
	}

	h.listener = listener
	h.server = h.newServer()

	go func() {
		if err := h.server.Serve(listener); err != nil {
			h.logger.Error("HTTP server failed", zap.Error(err))
			h.setState(StateStopped)
		}
	}()

	h.setState(StateRunning)

	h.logger.Info("HTTP server started",
		zap.String("address", addr),
		zap.Int("routes", len(h.router.GetAllRoutes())))

	return nil
}

// Serve runs on a caller supplied listener, e.g. an in-memory one.
func (h *FastHTTPServer) Serve(listener net.Listener) error {
	if !h.transitionState(StateStopped, StateStarting) {
		return types.ErrServerAlreadyRunning
	}

	if err := h.router.FinalizePendingRoutes(); err != nil {
		h.setState(StateStopped)
		return types.WrapError(err, "failed to finalize routes")
	}

	h.listener = listener
	h.server = h.newServer()
	h.setState(StateRunning)

	return h.server.Serve(listener)
}

func (h *FastHTTPServer) newServer() *fasthttp.Server {
	return &fasthttp.Server{
		Handler:                      h.Handler,
		Name:                         "sai-travel",
		ReadTimeout:                  time.Duration(h.httpConfig.ReadTimeout) * time.Second,
		WriteTimeout:                 time.Duration(h.httpConfig.WriteTimeout) * time.Second,
		IdleTimeout:                  time.Duration(h.httpConfig.IdleTimeout) * time.Second,
		TCPKeepalive:                 true,
		DisablePreParseMultipartForm: true,
		CloseOnShutdown:              true,
	}
}

func (h *FastHTTPServer) Stop() error {
	if !h.transitionState(StateRunning, StateStopping) {
		return types.ErrServerNotRunning
	}

	defer func() {
		h.setState(StateStopped)
		h.cancel()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
	defer cancel()

	if err := h.server.ShutdownWithContext(ctx); err != nil {
		h.logger.Warn("HTTP server stop timeout, closing connections", zap.Error(err))
		return nil
	}

	h.logger.Info("HTTP server stopped gracefully")
	return nil
}

func (h *FastHTTPServer) IsRunning() bool {
	return h.getState() == StateRunning
}

func (h *FastHTTPServer) getState() State {
	return State(h.state.Load())
}

func (h *FastHTTPServer) setState(newState State) {
	h.state.Store(int32(newState))
}

func (h *FastHTTPServer) transitionState(from, to State) bool {
	return h.state.CompareAndSwap(int32(from), int32(to))
}

// Handler routes one request and runs it through the middleware chain.
// Unmatched OPTIONS requests still pass the chain so CORS can answer the
// preflight.
func (h *FastHTTPServer) Handler(ctx *fasthttp.RequestCtx) {
	method := string(ctx.Method())

	handler, config, params := h.router.Lookup(method, string(ctx.Path()))
	for name, value := range params {
		ctx.SetUserValue(name, value)
	}

	if handler == nil {
		if method == fasthttp.MethodOptions {
			handler = func(ctx *fasthttp.RequestCtx) {
				ctx.SetStatusCode(fasthttp.StatusNoContent)
			}
		} else {
			handler = notFound
		}
		config = &types.RouteConfig{}
	}

	h.execute(ctx, handler, config)
}

func (h *FastHTTPServer) execute(ctx *fasthttp.RequestCtx, handler types.FastHTTPHandler, config *types.RouteConfig) {
	// Cancelled on return so abandoned fan-out slots stop with the request.
	var (
		requestCtx context.Context
		cancel     context.CancelFunc
	)
	if config.Timeout > 0 {
		requestCtx, cancel = context.WithTimeout(h.ctx, config.Timeout)
	} else {
		requestCtx, cancel = context.WithCancel(h.ctx)
	}
	defer cancel()
	ctx.SetUserValue(types.RequestContextKey, requestCtx)

	if h.middlewares == nil {
		handler(ctx)
		return
	}

	h.middlewares.Execute(ctx, handler, config)
}

func notFound(ctx *fasthttp.RequestCtx) {
	utils.WriteError(ctx, fasthttp.StatusNotFound, "route not found")
}
