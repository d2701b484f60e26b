package aggregator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saiset-co/sai-travel/safety"
	"github.com/saiset-co/sai-travel/types"
	"github.com/saiset-co/sai-travel/utils"
)

func TestService_AttractionsSurvivePOITimeout(t *testing.T) {
	w := newWorld()
	w.poi.delay = 2 * time.Second
	w.poi.stubborn = true

	svc := w.service(50*time.Millisecond, nil)

	start := time.Now()
	resp, err := svc.GetAttractions(context.Background(), "jp")
	require.NoError(t, err)

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, "JP", resp.CountryCode)
	assert.Equal(t, "Japan", resp.CountryName)
	require.NotNil(t, resp.OTMAttractions)
	assert.Empty(t, resp.OTMAttractions)
	assert.NotEmpty(t, resp.AISummary)
	assert.Len(t, resp.HeritageSites, 1)

	data, err := utils.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"otm_attractions":[]`)
}

func TestService_AttractionsUseGeneratedNarrative(t *testing.T) {
	w := newWorld()
	season := "春"
	w.narrative.unavailable = false
	w.narrative.value = types.Narrative{
		Attractions: []types.NarrativeAttraction{{Name: "Fuji"}},
		BestSeason:  &season,
	}

	resp, err := w.service(time.Second, nil).GetAttractions(context.Background(), "JP")
	require.NoError(t, err)

	require.Len(t, resp.AISummary, 1)
	assert.Equal(t, "Fuji", resp.AISummary[0].Name)
	assert.Equal(t, &season, resp.BestSeason)
	assert.NotNil(t, resp.TravelTips)
}

func TestService_FailedNarrativeFallsBackToCanned(t *testing.T) {
	w := newWorld()
	w.narrative.unavailable = false
	w.narrative.err = types.ErrParseFailure

	resp, err := w.service(time.Second, nil).GetBasicAttractions(context.Background(), "FR")
	require.NoError(t, err)

	assert.Equal(t, int32(1), w.narrative.calls.Load())
	require.NotEmpty(t, resp.Attractions)
	assert.Contains(t, resp.Attractions[0].Name, "France")
}

func TestService_UnknownCountry(t *testing.T) {
	w := newWorld()
	svc := w.service(time.Second, nil)

	_, err := svc.GetAttractions(context.Background(), "ZZ")
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = svc.GetNews(context.Background(), "ZZ")
	assert.ErrorIs(t, err, types.ErrNotFound)

	w.countries.err = types.ErrUpstreamUnavailable
	_, err = svc.GetCountry(context.Background(), "JP")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestService_SafetyTakesHigherLevel(t *testing.T) {
	w := newWorld()
	w.safetyB.value = types.SecondaryAdvisory{Level: 3, Message: "Reconsider Travel"}

	info := w.service(time.Second, nil).GetSafety(context.Background(), "JP")

	assert.Equal(t, 3, info.Level)
	assert.Equal(t, safety.Label(3), info.LevelLabel)
	require.Len(t, info.Details, 1)
	assert.Equal(t, safety.CategorySecondary, info.Details[0].Category)
	assert.Equal(t, types.SeverityHigh, info.Details[0].Severity)
}

func TestService_SafetyWithoutSecondary(t *testing.T) {
	w := newWorld()
	w.safetyB.err = types.ErrUpstreamUnavailable

	info := w.service(time.Second, nil).GetSafety(context.Background(), "JP")

	assert.Equal(t, 0, info.Level)
	assert.Equal(t, "安全", info.LevelLabel)
	assert.Empty(t, info.Details)
}

func TestService_SafetyPrimaryFailureUsesDefault(t *testing.T) {
	w := newWorld()
	w.safetyA.err = types.ErrUpstreamUnavailable
	w.safetyB.err = types.ErrUpstreamUnavailable

	info := w.service(time.Second, nil).GetSafety(context.Background(), "JP")

	assert.Equal(t, safety.Default("JP"), info)
}

func TestService_ListFiltersByCachedLevel(t *testing.T) {
	w := newWorld()
	level := 1

	items := w.service(time.Second, levels(map[string]int{"JP": 0, "US": 1, "FR": 2})).
		ListCountries(context.Background(), "", "", &level)

	require.Len(t, items, 1)
	assert.Equal(t, "US", items[0].Code)
	require.NotNil(t, items[0].SafetyLevel)
	assert.Equal(t, 1, *items[0].SafetyLevel)
}

func TestService_ListWhileIndexCold(t *testing.T) {
	w := newWorld()
	svc := w.service(time.Second, nil)

	all := svc.ListCountries(context.Background(), "", "", nil)
	assert.Len(t, all, 3)
	for _, item := range all {
		assert.Nil(t, item.SafetyLevel)
	}

	level := 0
	assert.Empty(t, svc.ListCountries(context.Background(), "", "", &level))
}

func TestService_ListCatalogOutage(t *testing.T) {
	w := newWorld()
	w.countries.err = types.ErrUpstreamUnavailable

	items := w.service(time.Second, nil).Search(context.Background(), "jap")

	require.NotNil(t, items)
	assert.Empty(t, items)
}

func TestService_NewsFallsBackToFeed(t *testing.T) {
	w := newWorld()
	w.rss.value = []types.NewsArticle{
		{Title: "Japan travel warning issued", URL: "a"},
		{Title: "Festival season", URL: "b"},
	}

	resp, err := w.service(time.Second, nil).GetNews(context.Background(), "JP")
	require.NoError(t, err)

	assert.Equal(t, int32(0), w.news.calls.Load())
	assert.Equal(t, "JP", resp.CountryCode)
	require.Len(t, resp.Articles, 1)
	assert.Equal(t, "a", resp.Articles[0].URL)
	assert.Equal(t, 1, resp.Total)
}

func TestService_NewsAllSourcesDown(t *testing.T) {
	w := newWorld()
	w.rss.err = types.ErrUpstreamUnavailable

	resp, err := w.service(time.Second, nil).GetNews(context.Background(), "JP")
	require.NoError(t, err)

	assert.NotNil(t, resp.Articles)
	assert.Equal(t, 0, resp.Total)
}

func TestService_WikiFallsBackToEnglish(t *testing.T) {
	w := newWorld()
	w.wikiJA.err = types.ErrEmptyResult

	summary, err := w.service(time.Second, nil).GetWiki(context.Background(), "JP")
	require.NoError(t, err)

	assert.Equal(t, "en", summary.Lang)
	assert.Equal(t, []string{"日本"}, w.wikiJA.titles)
	assert.Equal(t, []string{"Japan"}, w.wikiEN.titles)
}

func TestService_WikiUnavailable(t *testing.T) {
	w := newWorld()
	w.wikiJA.err = types.ErrEmptyResult
	w.wikiEN.err = types.ErrUpstreamUnavailable

	summary, err := w.service(time.Second, nil).GetWiki(context.Background(), "JP")
	require.NoError(t, err)

	assert.False(t, summary.Available)
	assert.Equal(t, "JP", summary.CountryCode)
}

func TestService_DegradedSections(t *testing.T) {
	w := newWorld()
	w.exchange.err = types.ErrUpstreamUnavailable
	svc := w.service(time.Second, nil)

	exchange, err := svc.GetExchange(context.Background(), "JP")
	require.NoError(t, err)
	assert.False(t, exchange.Available)
	assert.NotNil(t, exchange.Rates)

	climate, err := svc.GetClimate(context.Background(), "JP")
	require.NoError(t, err)
	assert.False(t, climate.Available)
	assert.NotNil(t, climate.Monthly)

	economic, err := svc.GetEconomic(context.Background(), "JP")
	require.NoError(t, err)
	assert.True(t, economic.Available)
}

func TestService_Overview(t *testing.T) {
	w := newWorld()
	w.safetyB.value = types.SecondaryAdvisory{Level: 2, Message: "Exercise Increased Caution"}

	overview, err := w.service(time.Second, nil).GetOverview(context.Background(), "jp")
	require.NoError(t, err)

	assert.Equal(t, "JP", overview.CountryCode)
	assert.Equal(t, "Japan", overview.CountryName)
	assert.Equal(t, 2, overview.Safety.Level)
	assert.Equal(t, "JP", overview.Entry.CountryCode)
	assert.True(t, overview.Exchange.Available)
	assert.False(t, overview.Climate.Available)
	assert.Equal(t, "ja", overview.Wiki.Lang)
}

func TestService_PostsDefaults(t *testing.T) {
	w := newWorld()
	svc := w.service(time.Second, nil)

	posts := svc.GetPosts(context.Background(), "", 0)
	assert.Len(t, posts, 1)
	assert.Equal(t, "anta_kaoi", w.social.username)
	assert.Equal(t, 10, w.social.limit)

	w.social.unavailable = true
	posts = svc.GetPosts(context.Background(), "someone", 5)
	require.NotNil(t, posts)
	assert.Empty(t, posts)
}

func TestLevelFunc(t *testing.T) {
	w := newWorld()
	level := LevelFunc(w.set())

	got, err := level(context.Background(), "JP")
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	w.safetyB.err = types.ErrUpstreamUnavailable
	got, err = level(context.Background(), "JP")
	require.NoError(t, err)
	assert.Equal(t, 0, got)

	w.safetyA.err = types.ErrUpstreamUnavailable
	_, err = level(context.Background(), "JP")
	assert.ErrorIs(t, err, types.ErrUpstreamUnavailable)
}
