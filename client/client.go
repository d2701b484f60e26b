package client

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/saiset-co/sai-travel/types"
)

const maxRedirects = 10

// Upstream is one provider's view of the shared connection pool. It adds
// the provider's timeout, retry budget, rate limit and circuit breaker.
type Upstream struct {
	name      string
	client    *fasthttp.Client
	config    *types.ProviderConfig
	timeout   time.Duration
	retries   int
	userAgent string
	backoff   time.Duration
	breaker   *CircuitBreaker
	limiter   *rate.Limiter
	logger    types.Logger
	metrics   types.MetricsManager
}

func newUpstream(name string, client *fasthttp.Client, config *types.ProviderConfig, defaults *types.ClientConfig, logger types.Logger, metrics types.MetricsManager) *Upstream {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaults.DefaultTimeout
	}

	retries := config.Retries
	if retries <= 0 {
		retries = defaults.DefaultRetries
	}

	u := &Upstream{
		name:      name,
		client:    client,
		config:    config,
		timeout:   timeout,
		retries:   retries,
		userAgent: defaults.UserAgent,
		backoff:   time.Second,
		breaker:   NewCircuitBreaker(defaults.CircuitBreaker, logger, name),
		logger:    logger,
		metrics:   metrics,
	}

	if config.RateLimit > 0 {
		burst := config.RateBurst
		if burst <= 0 {
			burst = 1
		}
		u.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), burst)
	}

	return u
}

func (u *Upstream) Name() string {
	return u.name
}

func (u *Upstream) Config() *types.ProviderConfig {
	return u.config
}

// Do performs the request. A 404 is reported as types.ErrNotFound, every
// other failure as types.ErrUpstreamUnavailable.
func (u *Upstream) Do(ctx context.Context, r *types.UpstreamRequest) (*types.UpstreamResponse, error) {
	timeout := u.timeout
	if r.Timeout > 0 {
		timeout = r.Timeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if u.limiter != nil {
		if err := u.limiter.Wait(ctx); err != nil {
			return nil, types.Errorf(types.ErrUpstreamUnavailable, "%s: rate limiter: %v", u.name, err)
		}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	u.buildRequest(req, r)

	start := time.Now()
	result, err := u.executeWithRetries(ctx, req, resp)
	u.recordMetrics(req, result, err, time.Since(start))

	return result, err
}

func (u *Upstream) buildRequest(req *fasthttp.Request, r *types.UpstreamRequest) {
	method := r.Method
	if method == "" {
		method = fasthttp.MethodGet
	}

	req.SetRequestURI(r.URL)
	req.Header.SetMethod(method)

	if len(r.Query) > 0 {
		keys := make([]string, 0, len(r.Query))
		for k := range r.Query {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		args := req.URI().QueryArgs()
		for _, k := range keys {
			args.Set(k, r.Query[k])
		}
	}

	if u.userAgent != "" {
		req.Header.SetUserAgent(u.userAgent)
	}

	for key, value := range r.Headers {
		req.Header.Set(key, value)
	}

	if len(r.Body) > 0 {
		req.SetBody(r.Body)
		if len(req.Header.ContentType()) == 0 {
			req.Header.SetContentType("application/json")
		}
	}
}

func (u *Upstream) executeWithRetries(ctx context.Context, req *fasthttp.Request, resp *fasthttp.Response) (*types.UpstreamResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= u.retries; attempt++ {
		if !u.breaker.Allow() {
			return nil, types.Errorf(types.ErrUpstreamUnavailable, "%s: %v", u.name, types.ErrCircuitBreakerOpen)
		}

		deadline, _ := ctx.Deadline()
		err := u.send(req, resp, deadline)
		statusCode := resp.StatusCode()

		if succeeded(statusCode, err) {
			u.breaker.Success()

			body := make([]byte, len(resp.Body()))
			copy(body, resp.Body())

			return &types.UpstreamResponse{
				StatusCode:  statusCode,
				ContentType: string(resp.Header.ContentType()),
				Body:        body,
			}, nil
		}

		if err == nil && statusCode == fasthttp.StatusNotFound {
			u.breaker.Success()
			return nil, types.Errorf(types.ErrNotFound, "%s: %s", u.name, req.URI().String())
		}

		if tripsBreaker(statusCode, err) {
			u.breaker.Failure()
		}

		lastErr = err
		if err == nil {
			lastErr = types.Errorf(types.ErrClientResponseInvalid, "HTTP %d", statusCode)
		} else if errors.Is(err, fasthttp.ErrTimeout) {
			lastErr = types.WrapError(types.ErrClientTimeout, err.Error())
		}

		if attempt == u.retries || !retryable(statusCode, err) {
			break
		}

		backoff := time.Duration(attempt+1) * u.backoff

		select {
		case <-time.After(backoff):
			u.logger.Debug("Retrying upstream request",
				zap.String("provider", u.name),
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr))
		case <-ctx.Done():
			return nil, types.Errorf(types.ErrUpstreamUnavailable, "%s: %v", u.name, ctx.Err())
		}
	}

	return nil, fmt.Errorf("%w: %s: %w", types.ErrUpstreamUnavailable, u.name, lastErr)
}

// send performs one attempt. With FollowRedirects every hop shares the
// attempt's deadline and the chain stops after maxRedirects. A 3xx without
// a Location header is returned as is.
func (u *Upstream) send(req *fasthttp.Request, resp *fasthttp.Response, deadline time.Time) error {
	if !u.config.FollowRedirects {
		return u.client.DoDeadline(req, resp, deadline)
	}

	hop := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(hop)
	req.CopyTo(hop)

	for redirects := 0; ; redirects++ {
		if err := u.client.DoDeadline(hop, resp, deadline); err != nil {
			return err
		}

		statusCode := resp.StatusCode()
		if !fasthttp.StatusCodeIsRedirect(statusCode) {
			return nil
		}

		location := resp.Header.Peek(fasthttp.HeaderLocation)
		if len(location) == 0 {
			return nil
		}
		if redirects == maxRedirects {
			return types.Errorf(types.ErrClientRedirectLimit, "%s: more than %d redirects", u.name, maxRedirects)
		}

		hop.URI().UpdateBytes(location)
		if statusCode == fasthttp.StatusSeeOther {
			hop.Header.SetMethod(fasthttp.MethodGet)
			hop.ResetBody()
		}
	}
}

func (u *Upstream) recordMetrics(req *fasthttp.Request, resp *types.UpstreamResponse, err error, duration time.Duration) {
	status := "error"
	switch {
	case resp != nil:
		status = strconv.Itoa(resp.StatusCode)
	case types.IsError(err, types.ErrNotFound):
		status = "404"
	}

	u.metrics.Counter("upstream_requests_total", map[string]string{
		"provider": u.name,
		"method":   string(req.Header.Method()),
		"status":   status,
	}).Inc()

	u.metrics.Histogram("upstream_request_duration_seconds",
		[]float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		map[string]string{"provider": u.name},
	).Observe(duration.Seconds())
}
