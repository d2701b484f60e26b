package types

import (
	"context"
)

// Provider is implemented by every upstream adapter. Available reports
// false when a required credential is missing; such providers are never
// called.
type Provider interface {
	Name() string
	Available() bool
}

// Each contract returns an error instead of a default value. Defaults
// are applied by the aggregator so a failure stays visible to it.

type CountryProvider interface {
	Provider
	ListCountries(ctx context.Context) ([]Country, error)
	GetCountry(ctx context.Context, code string) (*Country, error)
}

type SafetyProvider interface {
	Provider
	GetSafetyInfo(ctx context.Context, code string) (SafetyInfo, error)
}

type AdvisoryProvider interface {
	Provider
	GetAdvisory(ctx context.Context, code string) (SecondaryAdvisory, error)
}

type ExchangeProvider interface {
	Provider
	GetExchangeInfo(ctx context.Context, code string, currencies []string) (ExchangeInfo, error)
}

type ClimateProvider interface {
	Provider
	GetClimate(ctx context.Context, code string, lat, lon *float64) (ClimateInfo, error)
}

type EconomicProvider interface {
	Provider
	GetEconomicInfo(ctx context.Context, code string) (EconomicInfo, error)
}

// WikiProvider serves one language edition; title is looked up as given.
type WikiProvider interface {
	Provider
	GetSummary(ctx context.Context, code, title string) (WikiSummary, error)
}

type POIProvider interface {
	Provider
	GetAttractions(ctx context.Context, lat, lon *float64, code string) ([]POI, error)
}

type HeritageProvider interface {
	Provider
	GetHeritageSites(ctx context.Context, code, name string) ([]HeritageSite, error)
}

type NewsProvider interface {
	Provider
	SearchNews(ctx context.Context, code, name string) ([]NewsArticle, error)
}

type SocialProvider interface {
	Provider
	GetPosts(ctx context.Context, username string, limit int) ([]Post, error)
}

type NarrativeProvider interface {
	Provider
	Generate(ctx context.Context, code, name string) (Narrative, error)
}

type EntryProvider interface {
	GetEntryRequirement(code string) EntryRequirement
}
