package aggregator

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/saiset-co/sai-travel/catalog"
	"github.com/saiset-co/sai-travel/logger"
	"github.com/saiset-co/sai-travel/providers"
	"github.com/saiset-co/sai-travel/types"
)

var nop = logger.NewNop()

// fake answers with a fixed value or error, optionally after a delay that
// ignores cancellation when stubborn is set.
type fake[T any] struct {
	name        string
	unavailable bool
	value       T
	err         error
	delay       time.Duration
	stubborn    bool
	calls       atomic.Int32
}

func (f *fake[T]) Name() string    { return f.name }
func (f *fake[T]) Available() bool { return !f.unavailable }

func (f *fake[T]) get(ctx context.Context) (T, error) {
	f.calls.Add(1)

	var zero T
	if f.delay > 0 {
		if f.stubborn {
			time.Sleep(f.delay)
		} else {
			select {
			case <-time.After(f.delay):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}
	}
	if f.err != nil {
		return zero, f.err
	}
	return f.value, nil
}

type fakeCountries struct {
	fake[[]types.Country]
}

func (f *fakeCountries) ListCountries(ctx context.Context) ([]types.Country, error) {
	return f.get(ctx)
}

func (f *fakeCountries) GetCountry(ctx context.Context, code string) (*types.Country, error) {
	all, err := f.get(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range all {
		if c.Code == code {
			return &c, nil
		}
	}
	return nil, types.ErrNotFound
}

type fakeSafety struct{ fake[types.SafetyInfo] }

func (f *fakeSafety) GetSafetyInfo(ctx context.Context, _ string) (types.SafetyInfo, error) {
	return f.get(ctx)
}

type fakeAdvisory struct{ fake[types.SecondaryAdvisory] }

func (f *fakeAdvisory) GetAdvisory(ctx context.Context, _ string) (types.SecondaryAdvisory, error) {
	return f.get(ctx)
}

type fakeExchange struct{ fake[types.ExchangeInfo] }

func (f *fakeExchange) GetExchangeInfo(ctx context.Context, _ string, _ []string) (types.ExchangeInfo, error) {
	return f.get(ctx)
}

type fakeClimate struct{ fake[types.ClimateInfo] }

func (f *fakeClimate) GetClimate(ctx context.Context, _ string, _, _ *float64) (types.ClimateInfo, error) {
	return f.get(ctx)
}

type fakeEconomic struct{ fake[types.EconomicInfo] }

func (f *fakeEconomic) GetEconomicInfo(ctx context.Context, _ string) (types.EconomicInfo, error) {
	return f.get(ctx)
}

type fakeWiki struct {
	fake[types.WikiSummary]
	titles []string
}

func (f *fakeWiki) GetSummary(ctx context.Context, _, title string) (types.WikiSummary, error) {
	f.titles = append(f.titles, title)
	return f.get(ctx)
}

type fakePOI struct{ fake[[]types.POI] }

func (f *fakePOI) GetAttractions(ctx context.Context, _, _ *float64, _ string) ([]types.POI, error) {
	return f.get(ctx)
}

type fakeHeritage struct{ fake[[]types.HeritageSite] }

func (f *fakeHeritage) GetHeritageSites(ctx context.Context, _, _ string) ([]types.HeritageSite, error) {
	return f.get(ctx)
}

type fakeNews struct{ fake[[]types.NewsArticle] }

func (f *fakeNews) SearchNews(ctx context.Context, _, _ string) ([]types.NewsArticle, error) {
	return f.get(ctx)
}

type fakeSocial struct {
	fake[[]types.Post]
	username string
	limit    int
}

func (f *fakeSocial) GetPosts(ctx context.Context, username string, limit int) ([]types.Post, error) {
	f.username, f.limit = username, limit
	return f.get(ctx)
}

type fakeNarrative struct{ fake[types.Narrative] }

func (f *fakeNarrative) Generate(ctx context.Context, _, _ string) (types.Narrative, error) {
	return f.get(ctx)
}

type staticIndex struct {
	snap *catalog.Snapshot
}

func (s staticIndex) Levels() *catalog.Snapshot { return s.snap }

// world holds the fakes behind one Set so tests can reconfigure any of them.
type world struct {
	countries *fakeCountries
	safetyA   *fakeSafety
	safetyB   *fakeAdvisory
	exchange  *fakeExchange
	climate   *fakeClimate
	economic  *fakeEconomic
	wikiJA    *fakeWiki
	wikiEN    *fakeWiki
	poi       *fakePOI
	heritage  *fakeHeritage
	news      *fakeNews
	rss       *fakeNews
	social    *fakeSocial
	narrative *fakeNarrative
}

func newWorld() *world {
	lat, lon := 36.0, 138.0
	return &world{
		countries: &fakeCountries{fake[[]types.Country]{name: "countries", value: []types.Country{
			{Code: "JP", Name: "Japan", NameJa: "日本", Latitude: &lat, Longitude: &lon, Currencies: []types.Currency{{Code: "JPY"}}},
			{Code: "US", Name: "United States", NameJa: "アメリカ合衆国", Region: "Americas"},
			{Code: "FR", Name: "France", NameJa: "フランス", Region: "Europe"},
		}}},
		safetyA:   &fakeSafety{fake[types.SafetyInfo]{name: "mofa", value: types.SafetyInfo{CountryCode: "JP", Level: 0, LevelLabel: "安全", Details: []types.SafetyDetail{}}}},
		safetyB:   &fakeAdvisory{fake[types.SecondaryAdvisory]{name: "state_dept", value: types.SecondaryAdvisory{Level: 1, Message: "Exercise Normal Precautions"}}},
		exchange:  &fakeExchange{fake[types.ExchangeInfo]{name: "frankfurter", value: types.ExchangeInfo{Base: "USD", Available: true, Rates: []types.ExchangeRate{{CurrencyCode: "JPY", Rate: 150}}}}},
		climate:   &fakeClimate{fake[types.ClimateInfo]{name: "open_meteo", err: types.ErrUpstreamUnavailable}},
		economic:  &fakeEconomic{fake[types.EconomicInfo]{name: "world_bank", value: types.EconomicInfo{Available: true}}},
		wikiJA:    &fakeWiki{fake: fake[types.WikiSummary]{name: "wikipedia", value: types.WikiSummary{Lang: "ja", Extract: "日本は", Available: true}}},
		wikiEN:    &fakeWiki{fake: fake[types.WikiSummary]{name: "wikipedia", value: types.WikiSummary{Lang: "en", Extract: "Japan is", Available: true}}},
		poi:       &fakePOI{fake[[]types.POI]{name: "opentripmap", value: []types.POI{{Name: "Kinkaku-ji"}}}},
		heritage:  &fakeHeritage{fake[[]types.HeritageSite]{name: "heritage", value: []types.HeritageSite{{Name: "Himeji Castle"}}}},
		news:      &fakeNews{fake[[]types.NewsArticle]{name: "gnews", unavailable: true}},
		rss:       &fakeNews{fake[[]types.NewsArticle]{name: "news_rss"}},
		social:    &fakeSocial{fake: fake[[]types.Post]{name: "x", value: []types.Post{{ID: "1"}}}},
		narrative: &fakeNarrative{fake[types.Narrative]{name: "anthropic", unavailable: true}},
	}
}

func (w *world) set() *providers.Set {
	return &providers.Set{
		Country:   w.countries,
		SafetyA:   providers.NewPrimarySafety(w.safetyA, nop),
		Advisory:  w.safetyA,
		SafetyB:   w.safetyB,
		Entry:     providers.NewStaticEntry(),
		Exchange:  w.exchange,
		Climate:   w.climate,
		Economic:  w.economic,
		WikiJA:    w.wikiJA,
		WikiEN:    w.wikiEN,
		POI:       w.poi,
		Heritage:  w.heritage,
		News:      w.news,
		NewsRSS:   w.rss,
		Social:    w.social,
		Narrative: w.narrative,
		Canned:    providers.NewCannedNarrative(),
	}
}

func (w *world) service(timeout time.Duration, snap *catalog.Snapshot) *Service {
	svc, err := NewService(w.set(), staticIndex{snap: snap}, &types.AggregatorConfig{
		SlotTimeout:   timeout,
		PostsUsername: "anta_kaoi",
		PostsLimit:    10,
	}, nop, nil)
	if err != nil {
		panic(err)
	}
	return svc
}

func levels(values map[string]int) *catalog.Snapshot {
	snap := &catalog.Snapshot{Levels: map[string]*int{}, RefreshedAt: time.Now()}
	for code, v := range values {
		v := v
		snap.Levels[code] = &v
	}
	return snap
}
