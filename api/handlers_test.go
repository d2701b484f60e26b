package api

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/saiset-co/sai-travel/logger"
	"github.com/saiset-co/sai-travel/server"
	"github.com/saiset-co/sai-travel/types"
	"github.com/saiset-co/sai-travel/utils"
)

type stubAggregator struct {
	countries map[string]types.Country
	levels    map[string]int

	gotLevel    *int
	gotUsername string
	gotLimit    int
}

func newStub() *stubAggregator {
	return &stubAggregator{
		countries: map[string]types.Country{
			"JP": {Code: "JP", Name: "Japan", NameJa: "日本", Region: "Asia"},
			"US": {Code: "US", Name: "United States", NameJa: "アメリカ", Region: "Americas"},
			"FR": {Code: "FR", Name: "France", NameJa: "フランス", Region: "Europe"},
		},
		levels: map[string]int{"JP": 0, "US": 1, "FR": 2},
	}
}

func (s *stubAggregator) country(code string) (*types.Country, error) {
	c, ok := s.countries[utils.NormalizeCode(code)]
	if !ok {
		return nil, types.Errorf(types.ErrNotFound, "country %s", code)
	}
	return &c, nil
}

func (s *stubAggregator) ListCountries(_ context.Context, _, _ string, level *int) []types.CountryListItem {
	s.gotLevel = level

	items := []types.CountryListItem{}
	for _, code := range []string{"FR", "JP", "US"} {
		l := s.levels[code]
		if level != nil && *level != l {
			continue
		}
		items = append(items, types.CountryListItem{Country: s.countries[code], SafetyLevel: &l})
	}
	return items
}

func (s *stubAggregator) Search(ctx context.Context, query string) []types.CountryListItem {
	return s.ListCountries(ctx, query, "", nil)
}

func (s *stubAggregator) GetCountry(_ context.Context, code string) (*types.Country, error) {
	return s.country(code)
}

// GetSafety mimics a failed second source: the first source stands alone.
func (s *stubAggregator) GetSafety(_ context.Context, code string) types.SafetyInfo {
	return types.SafetyInfo{CountryCode: code, Level: 1, LevelLabel: "十分注意", Details: []types.SafetyDetail{}}
}

func (s *stubAggregator) GetEntry(code string) types.EntryRequirement {
	return types.EntryRequirement{CountryCode: code}
}

// GetAttractions mimics a POI timeout: empty POI list, narrative present.
func (s *stubAggregator) GetAttractions(_ context.Context, code string) (types.EnrichedAttractionsResponse, error) {
	c, err := s.country(code)
	if err != nil {
		return types.EnrichedAttractionsResponse{}, err
	}
	return types.EnrichedAttractionsResponse{
		CountryCode:    c.Code,
		CountryName:    c.Name,
		OTMAttractions: []types.POI{},
		AISummary:      []types.NarrativeAttraction{{Name: "Kyoto", Highlights: []string{}}},
		HeritageSites:  []types.HeritageSite{},
		TravelTips:     []string{},
	}, nil
}

func (s *stubAggregator) GetBasicAttractions(_ context.Context, code string) (types.AttractionsResponse, error) {
	c, err := s.country(code)
	if err != nil {
		return types.AttractionsResponse{}, err
	}
	return types.AttractionsResponse{CountryCode: c.Code, CountryName: c.Name}, nil
}

func (s *stubAggregator) GetOverview(_ context.Context, code string) (types.CountryOverview, error) {
	c, err := s.country(code)
	if err != nil {
		return types.CountryOverview{}, err
	}
	return types.CountryOverview{CountryCode: c.Code, Country: *c}, nil
}

func (s *stubAggregator) GetNews(_ context.Context, code string) (types.NewsResponse, error) {
	c, err := s.country(code)
	if err != nil {
		return types.NewsResponse{}, err
	}
	return types.NewsResponse{CountryCode: c.Code}, nil
}

func (s *stubAggregator) GetExchange(_ context.Context, code string) (types.ExchangeInfo, error) {
	c, err := s.country(code)
	if err != nil {
		return types.ExchangeInfo{}, err
	}
	return types.ExchangeInfo{CountryCode: c.Code}, nil
}

func (s *stubAggregator) GetClimate(_ context.Context, code string) (types.ClimateInfo, error) {
	c, err := s.country(code)
	if err != nil {
		return types.ClimateInfo{}, err
	}
	return types.ClimateInfo{CountryCode: c.Code}, nil
}

func (s *stubAggregator) GetEconomic(_ context.Context, code string) (types.EconomicInfo, error) {
	c, err := s.country(code)
	if err != nil {
		return types.EconomicInfo{}, err
	}
	return types.EconomicInfo{CountryCode: c.Code}, nil
}

func (s *stubAggregator) GetWiki(_ context.Context, code string) (types.WikiSummary, error) {
	c, err := s.country(code)
	if err != nil {
		return types.WikiSummary{}, err
	}
	return types.WikiSummary{CountryCode: c.Code}, nil
}

func (s *stubAggregator) GetPosts(_ context.Context, username string, limit int) []types.Post {
	s.gotUsername = username
	s.gotLimit = limit
	return []types.Post{}
}

func newTestServer(t *testing.T, stub *stubAggregator) *server.FastHTTPServer {
	t.Helper()

	router := server.NewRouter()
	NewHandlers(stub, logger.NewNop()).RegisterRoutes(router)
	require.NoError(t, router.FinalizePendingRoutes())

	srv, err := server.NewHTTPServer(context.Background(), &types.HTTPConfig{Port: 8080}, logger.NewNop(), nil, router)
	require.NoError(t, err)
	return srv
}

func get(srv *server.FastHTTPServer, uri string) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(fasthttp.MethodGet)
	ctx.Request.SetRequestURI(uri)
	srv.Handler(ctx)
	return ctx
}

func decode[T any](t *testing.T, ctx *fasthttp.RequestCtx) T {
	t.Helper()

	var out T
	require.NoError(t, utils.Unmarshal(ctx.Response.Body(), &out))
	return out
}

func TestListCountries_SafetyLevelFilter(t *testing.T) {
	stub := newStub()
	srv := newTestServer(t, stub)

	ctx := get(srv, "/api/countries?safety_level=1")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	items := decode[[]types.CountryListItem](t, ctx)
	require.Len(t, items, 1)
	assert.Equal(t, "US", items[0].Code)
	require.NotNil(t, stub.gotLevel)
	assert.Equal(t, 1, *stub.gotLevel)
}

func TestListCountries_InvalidSafetyLevel(t *testing.T) {
	srv := newTestServer(t, newStub())

	for _, raw := range []string{"5", "-1", "high", ""} {
		t.Run(raw, func(t *testing.T) {
			ctx := get(srv, "/api/countries?safety_level="+raw)
			assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
		})
	}
}

func TestListCountries_NoFilter(t *testing.T) {
	stub := newStub()
	srv := newTestServer(t, stub)

	ctx := get(srv, "/api/countries")
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Len(t, decode[[]types.CountryListItem](t, ctx), 3)
	assert.Nil(t, stub.gotLevel)
}

func TestGetCountry_NotFound(t *testing.T) {
	srv := newTestServer(t, newStub())

	ctx := get(srv, "/api/countries/ZZ")
	require.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())

	body := decode[map[string]string](t, ctx)
	assert.Equal(t, "国コード 'ZZ' は見つかりませんでした", body["message"])
}

func TestCountrySections_NotFound(t *testing.T) {
	srv := newTestServer(t, newStub())

	for _, section := range []string{"attractions", "attractions/basic", "overview", "news", "exchange", "climate", "economic", "wiki"} {
		t.Run(section, func(t *testing.T) {
			ctx := get(srv, "/api/countries/ZZ/"+section)
			assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
		})
	}
}

func TestGetSafety_DegradedIs200(t *testing.T) {
	srv := newTestServer(t, newStub())

	ctx := get(srv, "/api/countries/JP/safety")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	info := decode[types.SafetyInfo](t, ctx)
	assert.Equal(t, 1, info.Level)
	assert.Empty(t, info.Details)
}

func TestGetAttractions_PartialIs200(t *testing.T) {
	srv := newTestServer(t, newStub())

	ctx := get(srv, "/api/countries/jp/attractions")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), `"otm_attractions":[]`)

	resp := decode[types.EnrichedAttractionsResponse](t, ctx)
	assert.NotEmpty(t, resp.AISummary)
}

func TestGetPosts(t *testing.T) {
	stub := newStub()
	srv := newTestServer(t, stub)

	ctx := get(srv, "/api/x/posts?username=someone&limit=3")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, "[]", string(ctx.Response.Body()))
	assert.Equal(t, "someone", stub.gotUsername)
	assert.Equal(t, 3, stub.gotLimit)

	ctx = get(srv, "/api/x/posts?limit=zero")
	assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
}

func TestSearch(t *testing.T) {
	srv := newTestServer(t, newStub())

	ctx := get(srv, "/api/search?q=ja")
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
}
