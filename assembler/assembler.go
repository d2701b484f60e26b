// Package assembler shapes collected provider output into response
// records. Every function is pure: list fields are never nil and text is
// passed through as given.
package assembler

import (
	"github.com/saiset-co/sai-travel/types"
)

func Attractions(code, name string, narrative types.Narrative) types.AttractionsResponse {
	return types.AttractionsResponse{
		CountryCode: code,
		CountryName: name,
		Attractions: narrativeAttractions(narrative.Attractions),
		BestSeason:  narrative.BestSeason,
		TravelTips:  list(narrative.TravelTips),
	}
}

// EnrichedAttractions places the three sources side by side. Nothing is
// deduplicated across them.
func EnrichedAttractions(code, name string, narrative types.Narrative, pois []types.POI, sites []types.HeritageSite) types.EnrichedAttractionsResponse {
	return types.EnrichedAttractionsResponse{
		CountryCode:    code,
		CountryName:    name,
		OTMAttractions: list(pois),
		AISummary:      narrativeAttractions(narrative.Attractions),
		HeritageSites:  list(sites),
		BestSeason:     narrative.BestSeason,
		TravelTips:     list(narrative.TravelTips),
	}
}

type OverviewParts struct {
	Safety   types.SafetyInfo
	Entry    types.EntryRequirement
	Exchange types.ExchangeInfo
	Climate  types.ClimateInfo
	Economic types.EconomicInfo
	Wiki     types.WikiSummary
}

func Overview(country types.Country, parts OverviewParts) types.CountryOverview {
	country.Languages = list(country.Languages)
	country.Currencies = list(country.Currencies)
	country.Borders = list(country.Borders)
	country.Timezones = list(country.Timezones)

	parts.Safety.Details = list(parts.Safety.Details)
	parts.Exchange.Rates = list(parts.Exchange.Rates)
	parts.Climate.Monthly = list(parts.Climate.Monthly)

	return types.CountryOverview{
		CountryCode: country.Code,
		CountryName: country.Name,
		Country:     country,
		Safety:      parts.Safety,
		Entry:       parts.Entry,
		Exchange:    parts.Exchange,
		Climate:     parts.Climate,
		Economic:    parts.Economic,
		Wiki:        parts.Wiki,
	}
}

func News(code string, articles []types.NewsArticle) types.NewsResponse {
	articles = list(articles)
	return types.NewsResponse{
		CountryCode: code,
		Articles:    articles,
		Total:       len(articles),
	}
}

func Posts(posts []types.Post) []types.Post {
	return list(posts)
}

func Countries(items []types.CountryListItem) []types.CountryListItem {
	return list(items)
}

func narrativeAttractions(in []types.NarrativeAttraction) []types.NarrativeAttraction {
	out := make([]types.NarrativeAttraction, 0, len(in))
	for _, a := range in {
		a.Highlights = list(a.Highlights)
		out = append(out, a)
	}
	return out
}

func list[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
