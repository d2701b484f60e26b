package middleware

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/saiset-co/sai-travel/types"
	"github.com/saiset-co/sai-travel/utils"
)

const (
	shardCount      = 64
	cleanupInterval = 5 * time.Minute
	idleCutoff      = 30 * time.Minute
)

// RateLimitMiddleware keeps one token bucket per client address.
type RateLimitMiddleware struct {
	ctx             context.Context
	logger          types.Logger
	metrics         types.MetricsManager
	rateLimitConfig *RateLimitConfig
	shards          [shardCount]*rateLimitShard
	stopCleanup     chan struct{}
	workerGroup     sync.WaitGroup
	shutdown        atomic.Bool
	name            string
	weight          int
}

type rateLimitShard struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
}

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess atomic.Int64
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `json:"requests_per_second"`
	Burst             int     `json:"burst"`
}

func NewRateLimitMiddleware(ctx context.Context, item *types.MiddlewareItemConfig, logger types.Logger, metrics types.MetricsManager) *RateLimitMiddleware {
	var rateLimitConfig = &RateLimitConfig{
		RequestsPerSecond: 20,
		Burst:             40,
	}

	if item.Params != nil {
		if err := utils.UnmarshalConfig(item.Params, rateLimitConfig); err != nil {
			logger.Error("Failed to unmarshal RateLimit middleware config", zap.Error(err))
		}
	}

	if ctx == nil {
		ctx = context.Background()
	}

	rl := &RateLimitMiddleware{
		name:            "rate_limit",
		weight:          item.Weight,
		ctx:             ctx,
		logger:          logger,
		metrics:         metrics,
		rateLimitConfig: rateLimitConfig,
		stopCleanup:     make(chan struct{}),
	}

	for i := range rl.shards {
		rl.shards[i] = &rateLimitShard{clients: make(map[string]*clientLimiter)}
	}

	rl.workerGroup.Add(1)
	go rl.cleanupWorker()

	return rl
}

func (rl *RateLimitMiddleware) Name() string { return rl.name }
func (rl *RateLimitMiddleware) Weight() int  { return rl.weight }

func (rl *RateLimitMiddleware) Handle(ctx *fasthttp.RequestCtx, next func(*fasthttp.RequestCtx), _ *types.RouteConfig) {
	client := remoteAddr(ctx)

	if !rl.allow(client, time.Now()) {
		rl.metrics.Counter("http_rate_limited_total", nil).Inc()
		rl.logger.Debug("Rate limit exceeded", zap.String("client", client))
		rl.reject(ctx)
		return
	}

	next(ctx)
}

func (rl *RateLimitMiddleware) allow(client string, now time.Time) bool {
	shard := rl.shard(client)

	shard.mu.Lock()
	entry, ok := shard.clients[client]
	if !ok {
		entry = &clientLimiter{
			limiter: rate.NewLimiter(rate.Limit(rl.rateLimitConfig.RequestsPerSecond), rl.rateLimitConfig.Burst),
		}
		shard.clients[client] = entry
	}
	shard.mu.Unlock()

	entry.lastAccess.Store(now.UnixNano())
	return entry.limiter.AllowN(now, 1)
}

func (rl *RateLimitMiddleware) shard(client string) *rateLimitShard {
	hasher := fnv.New32a()
	_, _ = hasher.Write([]byte(client))
	return rl.shards[hasher.Sum32()%shardCount]
}

func (rl *RateLimitMiddleware) cleanupWorker() {
	defer rl.workerGroup.Done()

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			rl.cleanup(now)
		case <-rl.ctx.Done():
			return
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *RateLimitMiddleware) cleanup(now time.Time) int {
	cutoff := now.Add(-idleCutoff).UnixNano()

	removed := 0
	for _, shard := range rl.shards {
		shard.mu.Lock()
		for client, entry := range shard.clients {
			if entry.lastAccess.Load() < cutoff {
				delete(shard.clients, client)
				removed++
			}
		}
		shard.mu.Unlock()
	}

	if removed > 0 {
		rl.logger.Debug("Rate limit clients evicted", zap.Int("count", removed))
	}
	return removed
}

func (rl *RateLimitMiddleware) reject(ctx *fasthttp.RequestCtx) {
	retryAfter := 1
	if rl.rateLimitConfig.RequestsPerSecond > 0 && rl.rateLimitConfig.RequestsPerSecond < 1 {
		retryAfter = int(1/rl.rateLimitConfig.RequestsPerSecond) + 1
	}

	ctx.Response.Header.Set("Retry-After", strconv.Itoa(retryAfter))
	ctx.Response.Header.Set("X-RateLimit-Limit", strconv.Itoa(rl.rateLimitConfig.Burst))
	utils.WriteError(ctx, fasthttp.StatusTooManyRequests, types.ErrRateLimitExceeded.Error())
}

func (rl *RateLimitMiddleware) Stop() error {
	if !rl.shutdown.CompareAndSwap(false, true) {
		return nil
	}

	close(rl.stopCleanup)

	done := make(chan struct{})
	go func() {
		rl.workerGroup.Wait()
		close(done)
	}()

	select {
	case <-done:
		rl.logger.Info("Rate limit middleware stopped")
		return nil
	case <-time.After(5 * time.Second):
		return types.Errorf(types.ErrInvalidState, "timeout waiting for rate limit cleanup to stop")
	}
}
