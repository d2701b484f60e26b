package providers

import (
	"github.com/saiset-co/sai-travel/types"
)

// Cache family names. Each provider gets the cache of its family.
const (
	CacheCountry   = "country"
	CacheSafetyA   = "safety_a"
	CacheSafetyB   = "safety_b"
	CacheExchange  = "exchange"
	CacheClimate   = "climate"
	CacheEconomic  = "economic"
	CacheWiki      = "wiki"
	CachePOI       = "poi"
	CacheHeritage  = "heritage"
	CacheNews      = "news"
	CacheSocial    = "social"
	CacheNarrative = "narrative"
)

// Set holds one instance of every provider, wired to the shared client
// pool and the cache registry. SafetyA never fails; Advisory is the same
// source without the default, for callers that must tell a failure apart.
type Set struct {
	Country   types.CountryProvider
	SafetyA   types.SafetyProvider
	Advisory  types.SafetyProvider
	SafetyB   types.AdvisoryProvider
	Entry     types.EntryProvider
	Exchange  types.ExchangeProvider
	Climate   types.ClimateProvider
	Economic  types.EconomicProvider
	WikiJA    types.WikiProvider
	WikiEN    types.WikiProvider
	POI       types.POIProvider
	Heritage  types.HeritageProvider
	News      types.NewsProvider
	NewsRSS   types.NewsProvider
	Social    types.SocialProvider
	Narrative types.NarrativeProvider
	Canned    types.NarrativeProvider
}

func NewSet(config *types.ProvidersConfig, clients types.ClientManager, caches types.CacheManager, logger types.Logger) (*Set, error) {
	if config == nil {
		return nil, types.ErrConfigIsNil
	}

	upstream := func(name string, cfg *types.ProviderConfig) types.UpstreamClient {
		if cfg == nil {
			return nil
		}
		return clients.Upstream(name, cfg)
	}

	mofa := NewMofa(upstream("mofa", config.SafetyA), caches.Cache(CacheSafetyA), config.SafetyA, logger)

	return &Set{
		Country:   NewRestCountries(upstream("restcountries", config.Country), caches.Cache(CacheCountry), config.Country, logger),
		SafetyA:   NewPrimarySafety(mofa, logger),
		Advisory:  mofa,
		SafetyB:   NewStateDept(upstream("state_dept", config.SafetyB), caches.Cache(CacheSafetyB), config.SafetyB, logger),
		Entry:     NewStaticEntry(),
		Exchange:  NewFrankfurter(upstream("frankfurter", config.Exchange), caches.Cache(CacheExchange), config.Exchange, logger),
		Climate:   NewOpenMeteo(upstream("open_meteo", config.Climate), caches.Cache(CacheClimate), config.Climate, logger),
		Economic:  NewWorldBank(upstream("world_bank", config.Economic), caches.Cache(CacheEconomic), config.Economic, logger),
		WikiJA:    NewWikipedia("ja", upstream("wikipedia", config.Wiki), caches.Cache(CacheWiki), config.Wiki, logger),
		WikiEN:    NewWikipedia("en", upstream("wikipedia", config.Wiki), caches.Cache(CacheWiki), config.Wiki, logger),
		POI:       NewOpenTripMap(upstream("opentripmap", config.POI), caches.Cache(CachePOI), config.POI, logger),
		Heritage:  NewHeritage(upstream("heritage", config.Heritage), caches.Cache(CacheHeritage), config.Heritage, logger),
		News:      NewGNews(upstream("gnews", config.News), caches.Cache(CacheNews), config.News, logger),
		NewsRSS:   NewNewsRSS(upstream("news_rss", config.NewsRSS), caches.Cache(CacheNews), config.NewsRSS, logger),
		Social:    NewX(upstream("x", config.Social), caches.Cache(CacheSocial), config.Social, logger),
		Narrative: NewAnthropic(upstream("anthropic", config.Narrative), caches.Cache(CacheNarrative), config.Narrative, logger),
		Canned:    NewCannedNarrative(),
	}, nil
}
