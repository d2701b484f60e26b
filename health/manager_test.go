package health

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/saiset-co/sai-travel/catalog"
	"github.com/saiset-co/sai-travel/config"
	"github.com/saiset-co/sai-travel/logger"
	"github.com/saiset-co/sai-travel/server"
	"github.com/saiset-co/sai-travel/types"
	"github.com/saiset-co/sai-travel/utils"
)

type stubCatalog struct {
	state catalog.State
	snap  *catalog.Snapshot
}

func (s stubCatalog) State() catalog.State        { return s.state }
func (s stubCatalog) Snapshot() *catalog.Snapshot { return s.snap }

type stubCaches []types.CacheStats

func (s stubCaches) Stats() []types.CacheStats { return s }

type stubBreakers map[string]string

func (s stubBreakers) BreakerStates() map[string]string { return s }

func newTestManager(t *testing.T) (*Manager, *server.Router) {
	t.Helper()

	cm, err := config.NewStaticManager(context.Background(), config.NewLoader().Defaults())
	require.NoError(t, err)

	router := server.NewRouter()
	hm, err := NewManager(context.Background(), cm, logger.NewNop(), router)
	require.NoError(t, err)
	return hm, router
}

func TestCatalogChecker(t *testing.T) {
	cold := CatalogChecker(stubCatalog{state: catalog.StateCold})(context.Background())
	assert.Equal(t, types.StatusUnknown, cold.Status)
	assert.Equal(t, "cold", cold.Details["state"])

	zero := 0
	warm := CatalogChecker(stubCatalog{
		state: catalog.StateWarm,
		snap: &catalog.Snapshot{
			Levels:      map[string]*int{"JP": &zero, "XX": nil},
			RefreshedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		},
	})(context.Background())
	assert.Equal(t, types.StatusHealthy, warm.Status)
	assert.Equal(t, 2, warm.Details["countries"])
	assert.Equal(t, 1, warm.Details["known_levels"])
}

func TestUpstreamChecker_OpenBreaker(t *testing.T) {
	check := UpstreamChecker(stubBreakers{"mofa": "closed", "gnews": "open"})(context.Background())

	assert.Equal(t, types.StatusUnknown, check.Status)
	assert.Equal(t, "1 of 2 upstream breakers open", check.Message)
}

func TestManager_Report(t *testing.T) {
	hm, _ := newTestManager(t)
	hm.RegisterChecker("catalog", CatalogChecker(stubCatalog{state: catalog.StateCold}))
	hm.RegisterChecker("cache", CacheChecker(stubCaches{{Name: "safety", TTL: time.Hour, Entries: 3}}))
	hm.RegisterChecker("panics", func(context.Context) types.HealthCheck { panic("boom") })

	report := hm.Check(context.Background())

	assert.Equal(t, types.StatusUnhealthy, report.Status)
	assert.Equal(t, 3, report.Summary.Total)
	assert.Equal(t, 1, report.Summary.Healthy)
	assert.Equal(t, 1, report.Summary.Unknown)
	assert.Equal(t, 1, report.Summary.Unhealthy)
	assert.Equal(t, "sai-travel", report.Service.Name)
	assert.Equal(t, 8080, report.Service.Port)
}

// serveRouter answers requests from router over an in-memory listener.
func serveRouter(t *testing.T, router *server.Router) *fasthttp.Client {
	t.Helper()

	srv, err := server.NewHTTPServer(context.Background(), &types.HTTPConfig{Port: 8080}, logger.NewNop(), nil, router)
	require.NoError(t, err)

	ln := fasthttputil.NewInmemoryListener()
	go func() { _ = (&fasthttp.Server{Handler: srv.Handler}).Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })

	return &fasthttp.Client{Dial: func(string) (net.Conn, error) { return ln.Dial() }}
}

func get(t *testing.T, client *fasthttp.Client, path string) (int, []byte) {
	t.Helper()

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI("http://health.test" + path)
	require.NoError(t, client.DoTimeout(req, resp, 5*time.Second))

	return resp.StatusCode(), append([]byte(nil), resp.Body()...)
}

func TestManager_Routes(t *testing.T) {
	hm, router := newTestManager(t)
	hm.RegisterChecker("cache", CacheChecker(stubCaches{}))

	handler, _, _ := router.Lookup("GET", "/health")
	assert.Nil(t, handler)

	require.NoError(t, hm.Start())
	defer hm.Stop()

	client := serveRouter(t, router)

	status, body := get(t, client, "/health")
	require.Equal(t, fasthttp.StatusOK, status)

	var report types.HealthReport
	require.NoError(t, utils.Unmarshal(body, &report))
	assert.Equal(t, types.StatusHealthy, report.Status)
	assert.Contains(t, report.Checks, "cache")

	status, body = get(t, client, "/version")
	require.Equal(t, fasthttp.StatusOK, status)

	var version types.VersionInfo
	require.NoError(t, utils.Unmarshal(body, &version))
	assert.Equal(t, "0.1.0", version.Version)
}

func TestManager_HealthOutsideServer(t *testing.T) {
	hm, router := newTestManager(t)
	require.NoError(t, hm.Start())
	defer hm.Stop()

	handler, _, _ := router.Lookup("GET", "/health")
	require.NotNil(t, handler)

	ctx := &fasthttp.RequestCtx{}
	assert.NotPanics(t, func() { handler(ctx) })
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
}

func TestParseBuildInfoFile(t *testing.T) {
	info := parseBuildInfoFile("# build\nVERSION=1.2.3\nGIT_COMMIT=abcdef1234\nBUILD_TIME=2024-03-01T00:00:00Z\n")

	assert.Equal(t, "1.2.3", info.Version)
	assert.Equal(t, "abcdef1234", info.Commit)
	assert.Equal(t, 2024, info.BuildTime.Year())
}

func TestBuildInfo_String(t *testing.T) {
	info := &BuildInfo{Version: "0.1.0", Commit: "unknown"}
	info.merge(&BuildInfo{Commit: "abcdef1234", BuildTime: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)})

	s := info.String()
	assert.Contains(t, s, "0.1.0-abcdef1 ")
	assert.Contains(t, s, "(2024-03-01)")
	assert.NotContains(t, s, "dirty")
}
