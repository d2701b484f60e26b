package types

import (
	"time"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type Currency struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

type Country struct {
	Code       string     `json:"code"`
	Name       string     `json:"name"`
	NameJa     string     `json:"name_ja"`
	Capital    string     `json:"capital"`
	Region     string     `json:"region"`
	Subregion  string     `json:"subregion"`
	Population int64      `json:"population"`
	Languages  []string   `json:"languages"`
	Currencies []Currency `json:"currencies"`
	FlagURL    string     `json:"flag_url"`
	FlagEmoji  string     `json:"flag_emoji"`
	Latitude   *float64   `json:"latitude"`
	Longitude  *float64   `json:"longitude"`
	Borders    []string   `json:"borders"`
	Timezones  []string   `json:"timezones"`
}

// CountryListItem is a catalog row enriched with the cached safety level.
// SafetyLevel is nil when the index has no value for the country.
type CountryListItem struct {
	Country
	SafetyLevel *int `json:"safety_level"`
}

type SafetyDetail struct {
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

type SafetyInfo struct {
	CountryCode string         `json:"country_code"`
	Level       int            `json:"level"`
	LevelLabel  string         `json:"level_label"`
	Summary     string         `json:"summary"`
	Details     []SafetyDetail `json:"details"`
	Source      string         `json:"source"`
	LastUpdated *time.Time     `json:"last_updated"`
}

// SecondaryAdvisory is what the second government source contributes.
type SecondaryAdvisory struct {
	Level   int    `json:"level"`
	Message string `json:"message"`
}

// Bulletin is a titled notice published alongside the main advisory.
type Bulletin struct {
	Title string `json:"title"`
	Lead  string `json:"lead"`
}

type EntryRequirement struct {
	CountryCode            string `json:"country_code"`
	VisaRequired           bool   `json:"visa_required"`
	VisaOnArrival          bool   `json:"visa_on_arrival"`
	VisaFreeDays           *int   `json:"visa_free_days"`
	PassportValidityMonths *int   `json:"passport_validity_months"`
	Notes                  string `json:"notes"`
}

type ExchangeRate struct {
	CurrencyCode string  `json:"currency_code"`
	Rate         float64 `json:"rate"`
}

type ExchangeInfo struct {
	CountryCode string         `json:"country_code"`
	Base        string         `json:"base"`
	Rates       []ExchangeRate `json:"rates"`
	Date        *string        `json:"date"`
	Available   bool           `json:"available"`
}

type MonthlyClimate struct {
	Month              int      `json:"month"`
	AvgTempMax         *float64 `json:"avg_temp_max"`
	AvgTempMin         *float64 `json:"avg_temp_min"`
	TotalPrecipitation *float64 `json:"total_precipitation"`
}

type ClimateInfo struct {
	CountryCode string           `json:"country_code"`
	Latitude    *float64         `json:"latitude"`
	Longitude   *float64         `json:"longitude"`
	Monthly     []MonthlyClimate `json:"monthly"`
	Available   bool             `json:"available"`
}

type EconomicInfo struct {
	CountryCode  string   `json:"country_code"`
	GDPPerCapita *float64 `json:"gdp_per_capita"`
	Year         *int     `json:"year"`
	Available    bool     `json:"available"`
}

type WikiSummary struct {
	CountryCode string `json:"country_code"`
	Title       string `json:"title"`
	Extract     string `json:"extract"`
	URL         string `json:"url"`
	Lang        string `json:"lang"`
	Available   bool   `json:"available"`
}

type POI struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Category     string   `json:"category"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	Rating       *float64 `json:"rating"`
	WikipediaURL string   `json:"wikipedia_url"`
}

type HeritageSite struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	RegisteredYear *int     `json:"registered_year"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	ImageURL       string   `json:"image_url"`
	WikipediaURL   string   `json:"wikipedia_url"`
}

type NewsArticle struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	PublishedAt string `json:"published_at"`
}

type NewsResponse struct {
	CountryCode string        `json:"country_code"`
	Articles    []NewsArticle `json:"articles"`
	Total       int           `json:"total"`
}

type Post struct {
	ID           string `json:"id"`
	Text         string `json:"text"`
	CreatedAt    string `json:"created_at"`
	URL          string `json:"url"`
	MediaURL     string `json:"media_url"`
	LikeCount    int    `json:"like_count"`
	RetweetCount int    `json:"retweet_count"`
}

type NarrativeAttraction struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Highlights  []string `json:"highlights"`
}

// Narrative is the descriptive travel content for one country.
type Narrative struct {
	Attractions []NarrativeAttraction `json:"attractions"`
	BestSeason  *string               `json:"best_season"`
	TravelTips  []string              `json:"travel_tips"`
}

type AttractionsResponse struct {
	CountryCode string                `json:"country_code"`
	CountryName string                `json:"country_name"`
	Attractions []NarrativeAttraction `json:"attractions"`
	BestSeason  *string               `json:"best_season"`
	TravelTips  []string              `json:"travel_tips"`
}

type EnrichedAttractionsResponse struct {
	CountryCode    string                `json:"country_code"`
	CountryName    string                `json:"country_name"`
	OTMAttractions []POI                 `json:"otm_attractions"`
	AISummary      []NarrativeAttraction `json:"ai_summary"`
	HeritageSites  []HeritageSite        `json:"heritage_sites"`
	BestSeason     *string               `json:"best_season"`
	TravelTips     []string              `json:"travel_tips"`
}

type CountryOverview struct {
	CountryCode string           `json:"country_code"`
	CountryName string           `json:"country_name"`
	Country     Country          `json:"country"`
	Safety      SafetyInfo       `json:"safety"`
	Entry       EntryRequirement `json:"entry"`
	Exchange    ExchangeInfo     `json:"exchange"`
	Climate     ClimateInfo      `json:"climate"`
	Economic    EconomicInfo     `json:"economic"`
	Wiki        WikiSummary      `json:"wiki"`
}
