package client

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/saiset-co/sai-travel/logger"
	"github.com/saiset-co/sai-travel/metrics"
	"github.com/saiset-co/sai-travel/types"
)

func newTestManager(t *testing.T, breaker *types.CircuitBreakerConfig, handler fasthttp.RequestHandler) *Manager {
	t.Helper()

	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })

	cfg := &types.ClientConfig{
		DefaultTimeout:  time.Second,
		MaxConnsPerHost: 4,
		DefaultRetries:  0,
		UserAgent:       "sai-travel-test",
		CircuitBreaker:  breaker,
	}

	m, err := NewManager(context.Background(), cfg, logger.NewNop(), metrics.NewNop(),
		WithDial(func(string) (net.Conn, error) { return ln.Dial() }))
	require.NoError(t, err)
	require.NoError(t, m.Start())
	t.Cleanup(func() { _ = m.Stop() })

	return m
}

func TestUpstream_Success(t *testing.T) {
	var gotUA, gotQuery, gotKey string
	m := newTestManager(t, nil, func(ctx *fasthttp.RequestCtx) {
		gotUA = string(ctx.UserAgent())
		gotQuery = string(ctx.QueryArgs().Peek("symbols"))
		gotKey = string(ctx.Request.Header.Peek("x-api-key"))
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"ok":true}`)
	})

	u := m.Upstream("exchange", &types.ProviderConfig{BaseURL: "http://upstream.test"})
	resp, err := u.Do(context.Background(), &types.UpstreamRequest{
		URL:     "http://upstream.test/latest",
		Query:   map[string]string{"symbols": "EUR,USD"},
		Headers: map[string]string{"x-api-key": "k"},
	})
	require.NoError(t, err)

	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, `{"ok":true}`, string(resp.Body))
	assert.Equal(t, "application/json", resp.ContentType)
	assert.Equal(t, "sai-travel-test", gotUA)
	assert.Equal(t, "EUR,USD", gotQuery)
	assert.Equal(t, "k", gotKey)
}

func TestUpstream_NotFound(t *testing.T) {
	var calls int32
	m := newTestManager(t, nil, func(ctx *fasthttp.RequestCtx) {
		atomic.AddInt32(&calls, 1)
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	})

	u := m.Upstream("country", &types.ProviderConfig{Retries: 2})
	_, err := u.Do(context.Background(), &types.UpstreamRequest{URL: "http://upstream.test/alpha/XX"})

	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestUpstream_RetriesServerErrors(t *testing.T) {
	var calls int32
	m := newTestManager(t, nil, func(ctx *fasthttp.RequestCtx) {
		atomic.AddInt32(&calls, 1)
		ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
	})

	u := m.Upstream("climate", &types.ProviderConfig{Retries: 1}).(*Upstream)
	u.backoff = time.Millisecond

	_, err := u.Do(context.Background(), &types.UpstreamRequest{URL: "http://upstream.test/archive"})

	assert.ErrorIs(t, err, types.ErrUpstreamUnavailable)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestUpstream_BreakerOpens(t *testing.T) {
	var calls int32
	m := newTestManager(t, &types.CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 2,
		RecoveryTimeout:  time.Hour,
		HalfOpenRequests: 1,
	}, func(ctx *fasthttp.RequestCtx) {
		atomic.AddInt32(&calls, 1)
		ctx.SetStatusCode(fasthttp.StatusBadGateway)
	})

	u := m.Upstream("news", &types.ProviderConfig{})
	for i := 0; i < 3; i++ {
		_, err := u.Do(context.Background(), &types.UpstreamRequest{URL: "http://upstream.test/search"})
		assert.ErrorIs(t, err, types.ErrUpstreamUnavailable)
	}

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, "open", m.BreakerStates()["news"])
}

func TestUpstream_Timeout(t *testing.T) {
	m := newTestManager(t, nil, func(ctx *fasthttp.RequestCtx) {
		time.Sleep(300 * time.Millisecond)
		ctx.SetBodyString("late")
	})

	u := m.Upstream("poi", &types.ProviderConfig{Timeout: 50 * time.Millisecond})

	start := time.Now()
	_, err := u.Do(context.Background(), &types.UpstreamRequest{URL: "http://upstream.test/places"})

	assert.ErrorIs(t, err, types.ErrUpstreamUnavailable)
	assert.Less(t, time.Since(start), 250*time.Millisecond)
}

func TestUpstream_RateLimited(t *testing.T) {
	m := newTestManager(t, nil, func(ctx *fasthttp.RequestCtx) {
		ctx.SetBodyString("ok")
	})

	u := m.Upstream("safety_a", &types.ProviderConfig{RateLimit: 0.001, RateBurst: 1})

	_, err := u.Do(context.Background(), &types.UpstreamRequest{URL: "http://upstream.test/a"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = u.Do(ctx, &types.UpstreamRequest{URL: "http://upstream.test/b"})
	assert.ErrorIs(t, err, types.ErrUpstreamUnavailable)
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(&types.CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 2,
		RecoveryTimeout:  30 * time.Second,
		HalfOpenRequests: 1,
	}, logger.NewNop(), "test")
	cb.now = func() time.Time { return now }

	cb.Failure()
	assert.Equal(t, "closed", cb.State())
	cb.Failure()
	assert.Equal(t, "open", cb.State())
	assert.False(t, cb.Allow())

	now = now.Add(31 * time.Second)
	assert.True(t, cb.Allow())
	assert.Equal(t, "half-open", cb.State())

	cb.Failure()
	assert.Equal(t, "open", cb.State())

	now = now.Add(31 * time.Second)
	require.True(t, cb.Allow())
	cb.Success()
	assert.Equal(t, "closed", cb.State())
}

func TestCircuitBreaker_Disabled(t *testing.T) {
	cb := NewCircuitBreaker(nil, logger.NewNop(), "test")
	for i := 0; i < 10; i++ {
		cb.Failure()
	}
	assert.True(t, cb.Allow())
	assert.Equal(t, "disabled", cb.State())
}

func TestClassification(t *testing.T) {
	assert.True(t, succeeded(204, nil))
	assert.False(t, succeeded(200, fasthttp.ErrTimeout))

	assert.True(t, tripsBreaker(503, nil))
	assert.True(t, tripsBreaker(429, nil))
	assert.False(t, tripsBreaker(400, nil))
	assert.False(t, tripsBreaker(0, context.Canceled))

	assert.True(t, retryable(0, fasthttp.ErrTimeout))
	assert.True(t, retryable(502, nil))
	assert.False(t, retryable(500, nil))
	assert.False(t, retryable(0, context.Canceled))
}

func TestUpstream_FollowsRedirects(t *testing.T) {
	m := newTestManager(t, nil, func(ctx *fasthttp.RequestCtx) {
		switch string(ctx.Path()) {
		case "/opendata/country/9007.xml":
			ctx.Redirect("/opendata/moved/9007.xml", fasthttp.StatusFound)
		case "/opendata/moved/9007.xml":
			ctx.SetContentType("application/xml")
			ctx.SetBodyString(`<opendata><riskLevel3>1</riskLevel3></opendata>`)
		default:
			ctx.SetStatusCode(fasthttp.StatusNotFound)
		}
	})

	req := &types.UpstreamRequest{URL: "http://upstream.test/opendata/country/9007.xml"}

	u := m.Upstream("mofa", &types.ProviderConfig{FollowRedirects: true})
	resp, err := u.Do(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, string(resp.Body), "<riskLevel3>1</riskLevel3>")

	strict := m.Upstream("mofa_strict", &types.ProviderConfig{})
	_, err = strict.Do(context.Background(), req)
	assert.ErrorIs(t, err, types.ErrUpstreamUnavailable)
}

func TestUpstream_RedirectLimit(t *testing.T) {
	var calls int32
	m := newTestManager(t, nil, func(ctx *fasthttp.RequestCtx) {
		atomic.AddInt32(&calls, 1)
		ctx.Redirect("/loop", fasthttp.StatusFound)
	})

	u := m.Upstream("news_rss", &types.ProviderConfig{FollowRedirects: true, Retries: 2})
	_, err := u.Do(context.Background(), &types.UpstreamRequest{URL: "http://upstream.test/loop"})

	assert.ErrorIs(t, err, types.ErrClientRedirectLimit)
	assert.Equal(t, int32(maxRedirects+1), atomic.LoadInt32(&calls))
}
