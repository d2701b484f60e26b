package middleware

import (
	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-travel/types"
	"github.com/saiset-co/sai-travel/utils"
)

type RecoveryMiddleware struct {
	logger         types.Logger
	metrics        types.MetricsManager
	recoveryConfig *RecoveryConfig
	name           string
	weight         int
}

type RecoveryConfig struct {
	StackTrace bool `json:"stack_trace"`
}

func NewRecoveryMiddleware(item *types.MiddlewareItemConfig, logger types.Logger, metrics types.MetricsManager) *RecoveryMiddleware {
	var recoveryConfig = &RecoveryConfig{
		StackTrace: true,
	}

	if item.Params != nil {
		if err := utils.UnmarshalConfig(item.Params, recoveryConfig); err != nil {
			logger.Error("Failed to unmarshal Recovery middleware config", zap.Error(err))
		}
	}

	return &RecoveryMiddleware{
		name:           "recovery",
		weight:         item.Weight,
		logger:         logger,
		metrics:        metrics,
		recoveryConfig: recoveryConfig,
	}
}

func (r *RecoveryMiddleware) Name() string { return r.name }
func (r *RecoveryMiddleware) Weight() int  { return r.weight }

func (r *RecoveryMiddleware) Handle(ctx *fasthttp.RequestCtx, next func(*fasthttp.RequestCtx), _ *types.RouteConfig) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logPanic(rec, ctx)
			r.metrics.Counter("http_panics_total", map[string]string{
				"path": string(ctx.Path()),
			}).Inc()
			utils.CreateErrorResponse(ctx)
		}
	}()

	next(ctx)
}

func (r *RecoveryMiddleware) logPanic(rec interface{}, ctx *fasthttp.RequestCtx) {
	fields := []zap.Field{
		zap.Any("panic", rec),
		zap.ByteString("method", ctx.Method()),
		zap.ByteString("path", ctx.Path()),
		zap.String("remote_addr", ctx.RemoteIP().String()),
	}

	if requestID := ctx.Request.Header.Peek(requestIDHeader); len(requestID) > 0 {
		fields = append(fields, zap.ByteString("request_id", requestID))
	}

	if !r.recoveryConfig.StackTrace {
		r.logger.Error("Recovered from panic", fields...)
		return
	}

	// Deferred calls run on top of the panicking frames, so the stack
	// captured here still reaches the panic site.
	r.logger.ErrorWithErrStack("Recovered from panic", errors.Errorf("panic: %v", rec), fields...)
}
