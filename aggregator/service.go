package aggregator

import (
	"context"

	"go.uber.org/zap"

	"github.com/saiset-co/sai-travel/assembler"
	"github.com/saiset-co/sai-travel/catalog"
	"github.com/saiset-co/sai-travel/providers"
	"github.com/saiset-co/sai-travel/safety"
	"github.com/saiset-co/sai-travel/types"
	"github.com/saiset-co/sai-travel/utils"
)

// LevelIndex serves the catalog's safety levels without blocking.
type LevelIndex interface {
	Levels() *catalog.Snapshot
}

// Service answers every read operation. Only a failed country lookup is
// reported as an error (types.ErrNotFound); any other failure degrades to
// the field's default.
type Service struct {
	providers *providers.Set
	index     LevelIndex
	config    *types.AggregatorConfig
	logger    types.Logger
	metrics   types.MetricsManager
}

func NewService(set *providers.Set, index LevelIndex, config *types.AggregatorConfig, logger types.Logger, metrics types.MetricsManager) (*Service, error) {
	if set == nil || index == nil {
		return nil, types.Errorf(types.ErrInvalidParameter, "service needs providers and a level index")
	}
	if config == nil {
		config = &types.AggregatorConfig{}
	}

	return &Service{
		providers: set,
		index:     index,
		config:    config,
		logger:    logger,
		metrics:   metrics,
	}, nil
}

func (s *Service) fanout(ctx context.Context) *Fanout {
	return NewFanout(ctx, s.config.SlotTimeout, s.logger, s.metrics)
}

// one runs a single provider call with the same protection as a fan-out
// slot.
func one[T any](s *Service, ctx context.Context, name string, fallback T, fetch func(ctx context.Context) (T, error)) T {
	f := s.fanout(ctx)
	res := Go(f, name, fetch)
	f.Wait()
	return res.Or(fallback)
}

// ListCountries filters the catalog by free text and region, annotates it
// with the cached levels and, when level is set, keeps only countries at
// that level. A catalog outage answers with an empty list.
func (s *Service) ListCountries(ctx context.Context, query, region string, level *int) []types.CountryListItem {
	countries, err := s.providers.Country.ListCountries(ctx)
	if err != nil {
		s.logger.Warn("Country catalog unavailable", zap.Error(err))
		countries = nil
	}

	items := catalog.Annotate(providers.FilterCountries(countries, query, region), s.index.Levels())
	if level != nil {
		items = catalog.FilterLevel(items, *level)
	}

	return assembler.Countries(items)
}

func (s *Service) Search(ctx context.Context, query string) []types.CountryListItem {
	return s.ListCountries(ctx, query, "", nil)
}

// GetCountry reports types.ErrNotFound for an unknown code and for a
// registry outage alike.
func (s *Service) GetCountry(ctx context.Context, code string) (*types.Country, error) {
	code = utils.NormalizeCode(code)

	country, err := s.providers.Country.GetCountry(ctx, code)
	if err != nil {
		if !types.IsError(err, types.ErrNotFound) {
			s.logger.Warn("Country lookup failed",
				zap.String("country", code),
				zap.Error(err))
		}
		return nil, types.Errorf(types.ErrNotFound, "country %s", code)
	}
	if country == nil {
		return nil, types.Errorf(types.ErrNotFound, "country %s", code)
	}

	return country, nil
}

// GetSafety reads both advisory sources concurrently and merges them.
func (s *Service) GetSafety(ctx context.Context, code string) types.SafetyInfo {
	code = utils.NormalizeCode(code)

	f := s.fanout(ctx)
	primary := Go(f, "safety_a", func(ctx context.Context) (types.SafetyInfo, error) {
		return s.providers.SafetyA.GetSafetyInfo(ctx, code)
	})
	secondary := Go(f, "safety_b", func(ctx context.Context) (types.SecondaryAdvisory, error) {
		if !s.providers.SafetyB.Available() {
			return types.SecondaryAdvisory{}, types.Errorf(types.ErrConfigurationMissing, "%s", s.providers.SafetyB.Name())
		}
		return s.providers.SafetyB.GetAdvisory(ctx, code)
	})
	f.Wait()

	var advisory *types.SecondaryAdvisory
	if secondary.OK() {
		advisory = &secondary.Value
	}

	return safety.Merge(primary.Or(safety.Default(code)), advisory)
}

// LevelFunc resolves the merged level the catalog index stores. Unlike
// GetSafety it reports a failed primary source instead of falling back to
// the default, so the index can record the country as unknown.
func LevelFunc(set *providers.Set) catalog.LevelFunc {
	return func(ctx context.Context, code string) (int, error) {
		if !set.Advisory.Available() {
			return 0, types.Errorf(types.ErrConfigurationMissing, "%s", set.Advisory.Name())
		}

		primary, err := set.Advisory.GetSafetyInfo(ctx, code)
		if err != nil {
			return 0, err
		}

		var advisory *types.SecondaryAdvisory
		if set.SafetyB.Available() {
			if b, err := set.SafetyB.GetAdvisory(ctx, code); err == nil {
				advisory = &b
			}
		}

		return safety.Merge(primary, advisory).Level, nil
	}
}

func (s *Service) GetEntry(code string) types.EntryRequirement {
	return s.providers.Entry.GetEntryRequirement(utils.NormalizeCode(code))
}

func (s *Service) GetExchange(ctx context.Context, code string) (types.ExchangeInfo, error) {
	country, err := s.GetCountry(ctx, code)
	if err != nil {
		return types.ExchangeInfo{}, err
	}

	return s.exchange(ctx, country), nil
}

func (s *Service) exchange(ctx context.Context, country *types.Country) types.ExchangeInfo {
	currencies := make([]string, 0, len(country.Currencies))
	for _, c := range country.Currencies {
		currencies = append(currencies, c.Code)
	}

	info := one(s, ctx, "exchange", providers.EmptyExchange(country.Code), func(ctx context.Context) (types.ExchangeInfo, error) {
		return s.providers.Exchange.GetExchangeInfo(ctx, country.Code, currencies)
	})
	info.Rates = nonNil(info.Rates)
	return info
}

func (s *Service) GetClimate(ctx context.Context, code string) (types.ClimateInfo, error) {
	country, err := s.GetCountry(ctx, code)
	if err != nil {
		return types.ClimateInfo{}, err
	}

	return s.climate(ctx, country), nil
}

func (s *Service) climate(ctx context.Context, country *types.Country) types.ClimateInfo {
	info := one(s, ctx, "climate", providers.EmptyClimate(country.Code, country.Latitude, country.Longitude), func(ctx context.Context) (types.ClimateInfo, error) {
		return s.providers.Climate.GetClimate(ctx, country.Code, country.Latitude, country.Longitude)
	})
	info.Monthly = nonNil(info.Monthly)
	return info
}

func (s *Service) GetEconomic(ctx context.Context, code string) (types.EconomicInfo, error) {
	country, err := s.GetCountry(ctx, code)
	if err != nil {
		return types.EconomicInfo{}, err
	}

	return s.economic(ctx, country), nil
}

func (s *Service) economic(ctx context.Context, country *types.Country) types.EconomicInfo {
	return one(s, ctx, "economic", providers.EmptyEconomic(country.Code), func(ctx context.Context) (types.EconomicInfo, error) {
		return s.providers.Economic.GetEconomicInfo(ctx, country.Code)
	})
}

func (s *Service) GetWiki(ctx context.Context, code string) (types.WikiSummary, error) {
	country, err := s.GetCountry(ctx, code)
	if err != nil {
		return types.WikiSummary{}, err
	}

	return s.wiki(ctx, country), nil
}

// wiki asks the Japanese edition with the Japanese name first, then the
// English edition with the English name.
func (s *Service) wiki(ctx context.Context, country *types.Country) types.WikiSummary {
	ja, en := s.providers.WikiJA, s.providers.WikiEN

	chain := NewChain(s.logger, func(w types.WikiSummary) bool { return !w.Available || w.Extract == "" },
		Candidate[types.WikiSummary]{
			Name:      "wiki_ja",
			Available: func() bool { return ja.Available() && country.NameJa != "" },
			Fetch: func(ctx context.Context) (types.WikiSummary, error) {
				return ja.GetSummary(ctx, country.Code, country.NameJa)
			},
		},
		Candidate[types.WikiSummary]{
			Name:      "wiki_en",
			Available: func() bool { return en.Available() && country.Name != "" },
			Fetch: func(ctx context.Context) (types.WikiSummary, error) {
				return en.GetSummary(ctx, country.Code, country.Name)
			},
		},
	)

	return one(s, ctx, "wiki", providers.EmptyWiki(country.Code), func(ctx context.Context) (types.WikiSummary, error) {
		summary, _, err := chain.Run(ctx)
		return summary, err
	})
}

// GetNews prefers the keyed news API and falls back to the keyless feed.
// The result is narrowed to safety-related articles when any match.
func (s *Service) GetNews(ctx context.Context, code string) (types.NewsResponse, error) {
	country, err := s.GetCountry(ctx, code)
	if err != nil {
		return types.NewsResponse{}, err
	}

	keyed, feed := s.providers.News, s.providers.NewsRSS

	chain := NewChain(s.logger, func(a []types.NewsArticle) bool { return len(a) == 0 },
		Candidate[[]types.NewsArticle]{
			Name:      keyed.Name(),
			Available: keyed.Available,
			Fetch: func(ctx context.Context) ([]types.NewsArticle, error) {
				return keyed.SearchNews(ctx, country.Code, country.Name)
			},
		},
		Candidate[[]types.NewsArticle]{
			Name:      feed.Name(),
			Available: feed.Available,
			Fetch: func(ctx context.Context) ([]types.NewsArticle, error) {
				return feed.SearchNews(ctx, country.Code, country.Name)
			},
		},
	)

	articles := one(s, ctx, "news", []types.NewsArticle(nil), func(ctx context.Context) ([]types.NewsArticle, error) {
		articles, _, err := chain.Run(ctx)
		return articles, err
	})

	return assembler.News(country.Code, providers.FilterSafetyRelated(articles)), nil
}

func (s *Service) narrativeChain(country *types.Country) *Chain[types.Narrative] {
	generated, canned := s.providers.Narrative, s.providers.Canned

	return NewChain(s.logger, func(n types.Narrative) bool { return len(n.Attractions) == 0 },
		Candidate[types.Narrative]{
			Name:      generated.Name(),
			Available: generated.Available,
			Fetch: func(ctx context.Context) (types.Narrative, error) {
				return generated.Generate(ctx, country.Code, country.Name)
			},
		},
		Candidate[types.Narrative]{
			Name:      canned.Name(),
			Available: canned.Available,
			Fetch: func(ctx context.Context) (types.Narrative, error) {
				return canned.Generate(ctx, country.Code, country.Name)
			},
		},
	)
}

func (s *Service) narrative(ctx context.Context, country *types.Country) types.Narrative {
	chain := s.narrativeChain(country)

	narrative, source, err := chain.Run(ctx)
	if err != nil {
		return providers.DefaultNarrative(country.Name)
	}

	s.logger.Debug("Narrative served",
		zap.String("country", country.Code),
		zap.String("source", source))
	return narrative
}

func (s *Service) GetBasicAttractions(ctx context.Context, code string) (types.AttractionsResponse, error) {
	country, err := s.GetCountry(ctx, code)
	if err != nil {
		return types.AttractionsResponse{}, err
	}

	narrative := one(s, ctx, "narrative", providers.DefaultNarrative(country.Name), func(ctx context.Context) (types.Narrative, error) {
		return s.narrative(ctx, country), nil
	})

	return assembler.Attractions(country.Code, country.Name, narrative), nil
}

// GetAttractions fans out to the narrative chain, points of interest and
// heritage sites. Each degrades on its own.
func (s *Service) GetAttractions(ctx context.Context, code string) (types.EnrichedAttractionsResponse, error) {
	country, err := s.GetCountry(ctx, code)
	if err != nil {
		return types.EnrichedAttractionsResponse{}, err
	}

	f := s.fanout(ctx)
	narrative := Go(f, "narrative", func(ctx context.Context) (types.Narrative, error) {
		return s.narrative(ctx, country), nil
	})
	pois := Go(f, "poi", func(ctx context.Context) ([]types.POI, error) {
		return s.providers.POI.GetAttractions(ctx, country.Latitude, country.Longitude, country.Code)
	})
	sites := Go(f, "heritage", func(ctx context.Context) ([]types.HeritageSite, error) {
		return s.providers.Heritage.GetHeritageSites(ctx, country.Code, country.Name)
	})
	f.Wait()

	return assembler.EnrichedAttractions(
		country.Code,
		country.Name,
		narrative.Or(providers.DefaultNarrative(country.Name)),
		pois.Or(nil),
		sites.Or(nil),
	), nil
}

// GetOverview collects every per-country section in one fan-out.
func (s *Service) GetOverview(ctx context.Context, code string) (types.CountryOverview, error) {
	country, err := s.GetCountry(ctx, code)
	if err != nil {
		return types.CountryOverview{}, err
	}

	var parts assembler.OverviewParts

	f := s.fanout(ctx)
	safetyInfo := Go(f, "overview_safety", func(ctx context.Context) (types.SafetyInfo, error) {
		return s.GetSafety(ctx, country.Code), nil
	})
	exchange := Go(f, "overview_exchange", func(ctx context.Context) (types.ExchangeInfo, error) {
		return s.exchange(ctx, country), nil
	})
	climate := Go(f, "overview_climate", func(ctx context.Context) (types.ClimateInfo, error) {
		return s.climate(ctx, country), nil
	})
	economic := Go(f, "overview_economic", func(ctx context.Context) (types.EconomicInfo, error) {
		return s.economic(ctx, country), nil
	})
	wiki := Go(f, "overview_wiki", func(ctx context.Context) (types.WikiSummary, error) {
		return s.wiki(ctx, country), nil
	})
	f.Wait()

	parts.Safety = safetyInfo.Or(safety.Default(country.Code))
	parts.Entry = s.GetEntry(country.Code)
	parts.Exchange = exchange.Or(providers.EmptyExchange(country.Code))
	parts.Climate = climate.Or(providers.EmptyClimate(country.Code, country.Latitude, country.Longitude))
	parts.Economic = economic.Or(providers.EmptyEconomic(country.Code))
	parts.Wiki = wiki.Or(providers.EmptyWiki(country.Code))

	return assembler.Overview(*country, parts), nil
}

// GetPosts reads the social feed. Empty username and non-positive limit
// take the configured defaults.
func (s *Service) GetPosts(ctx context.Context, username string, limit int) []types.Post {
	if username == "" {
		username = s.config.PostsUsername
	}
	if limit <= 0 {
		limit = s.config.PostsLimit
	}

	social := s.providers.Social
	if !social.Available() {
		return assembler.Posts(nil)
	}

	posts := one(s, ctx, "social", []types.Post(nil), func(ctx context.Context) ([]types.Post, error) {
		return social.GetPosts(ctx, username, limit)
	})
	return assembler.Posts(posts)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
