package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/saiset-co/sai-travel/types"
	"github.com/saiset-co/sai-travel/utils"
)

var durationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20}

type LoggingMiddleware struct {
	logger        types.Logger
	metrics       types.MetricsManager
	loggingConfig *LoggingConfig
	level         zapcore.Level
	name          string
	weight        int
}

type LoggingConfig struct {
	LogLevel   string `json:"log_level"`
	LogHeaders bool   `json:"log_headers"`
}

func NewLoggingMiddleware(item *types.MiddlewareItemConfig, logger types.Logger, metrics types.MetricsManager) *LoggingMiddleware {
	var loggingConfig = &LoggingConfig{
		LogLevel: "info",
	}

	if item.Params != nil {
		if err := utils.UnmarshalConfig(item.Params, loggingConfig); err != nil {
			logger.Error("Failed to unmarshal Logging middleware config", zap.Error(err))
		}
	}

	level, err := zapcore.ParseLevel(loggingConfig.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	return &LoggingMiddleware{
		name:          "logging",
		weight:        item.Weight,
		logger:        logger,
		metrics:       metrics,
		loggingConfig: loggingConfig,
		level:         level,
	}
}

func (l *LoggingMiddleware) Name() string { return l.name }
func (l *LoggingMiddleware) Weight() int  { return l.weight }

func (l *LoggingMiddleware) Handle(ctx *fasthttp.RequestCtx, next func(*fasthttp.RequestCtx), _ *types.RouteConfig) {
	start := time.Now()

	l.logRequest(ctx)

	next(ctx)

	l.logResponse(ctx, time.Since(start))
	l.observe(ctx, start)
}

func (l *LoggingMiddleware) logRequest(ctx *fasthttp.RequestCtx) {
	fields := []zap.Field{
		zap.ByteString("method", ctx.Method()),
		zap.ByteString("path", ctx.Path()),
		zap.String("remote_addr", remoteAddr(ctx)),
		zap.ByteString("user_agent", ctx.UserAgent()),
	}

	if query := ctx.QueryArgs().QueryString(); len(query) > 0 {
		fields = append(fields, zap.ByteString("query", query))
	}

	if requestID := ctx.Request.Header.Peek(requestIDHeader); len(requestID) > 0 {
		fields = append(fields, zap.ByteString("request_id", requestID))
	}

	if l.loggingConfig.LogHeaders {
		fields = append(fields, zap.Any("headers", requestHeaders(ctx)))
	}

	l.logger.Log(l.level, "Request started", fields...)
}

func (l *LoggingMiddleware) logResponse(ctx *fasthttp.RequestCtx, duration time.Duration) {
	fields := []zap.Field{
		zap.Duration("duration", duration),
		zap.ByteString("method", ctx.Method()),
		zap.ByteString("path", ctx.Path()),
		zap.Int("status", ctx.Response.StatusCode()),
		zap.Int("size", len(ctx.Response.Body())),
	}

	if requestID := ctx.Request.Header.Peek(requestIDHeader); len(requestID) > 0 {
		fields = append(fields, zap.ByteString("request_id", requestID))
	}

	switch status := ctx.Response.StatusCode(); {
	case status >= 500:
		l.logger.Error("Request completed", fields...)
	case status >= 400:
		l.logger.Warn("Request completed", fields...)
	default:
		l.logger.Log(l.level, "Request completed", fields...)
	}
}

func (l *LoggingMiddleware) observe(ctx *fasthttp.RequestCtx, start time.Time) {
	method := string(ctx.Method())

	l.metrics.Counter("http_requests_total", map[string]string{
		"method": method,
		"status": strconv.Itoa(ctx.Response.StatusCode()),
	}).Inc()

	l.metrics.Histogram("http_request_duration_seconds", durationBuckets, map[string]string{
		"method": method,
	}).ObserveDuration(start)
}

func requestHeaders(ctx *fasthttp.RequestCtx) map[string]string {
	headers := make(map[string]string)

	ctx.Request.Header.VisitAll(func(key, value []byte) {
		name := string(key)
		switch strings.ToLower(name) {
		case "authorization", "cookie", "x-api-key":
			headers[name] = "[REDACTED]"
		default:
			headers[name] = string(value)
		}
	})

	return headers
}

func remoteAddr(ctx *fasthttp.RequestCtx) string {
	if forwarded := string(ctx.Request.Header.Peek("X-Forwarded-For")); forwarded != "" {
		if comma := strings.Index(forwarded, ","); comma > 0 {
			return strings.TrimSpace(forwarded[:comma])
		}
		return strings.TrimSpace(forwarded)
	}

	if realIP := string(ctx.Request.Header.Peek("X-Real-IP")); realIP != "" {
		return realIP
	}

	return ctx.RemoteIP().String()
}
