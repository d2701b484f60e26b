package providers

import (
	"context"
	"strconv"

	"github.com/saiset-co/sai-travel/cache"
	"github.com/saiset-co/sai-travel/types"
	"github.com/saiset-co/sai-travel/utils"
)

const (
	climateStart = "2023-01-01"
	climateEnd   = "2023-12-31"
)

type openMeteoArchive struct {
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
	Daily  struct {
		Time             []string   `json:"time"`
		TemperatureMax   []*float64 `json:"temperature_2m_max"`
		TemperatureMin   []*float64 `json:"temperature_2m_min"`
		PrecipitationSum []*float64 `json:"precipitation_sum"`
	} `json:"daily"`
}

// OpenMeteo condenses one year of daily archive data into monthly normals.
type OpenMeteo struct {
	base
}

func NewOpenMeteo(client types.UpstreamClient, c types.Cache, config *types.ProviderConfig, logger types.Logger) *OpenMeteo {
	return &OpenMeteo{base: newBase("open_meteo", client, c, config, logger)}
}

func (p *OpenMeteo) GetClimate(ctx context.Context, code string, lat, lon *float64) (types.ClimateInfo, error) {
	code = utils.NormalizeCode(code)

	if lat == nil || lon == nil {
		return EmptyClimate(code, lat, lon), nil
	}

	return cache.GetOrFetch(ctx, p.cache, "climate_"+code, p.ttl(), func(ctx context.Context) (types.ClimateInfo, error) {
		return p.fetch(ctx, code, *lat, *lon)
	})
}

func (p *OpenMeteo) fetch(ctx context.Context, code string, lat, lon float64) (types.ClimateInfo, error) {
	raw, err := getJSON[openMeteoArchive](ctx, &p.base, p.config.BaseURL, map[string]string{
		"latitude":   strconv.FormatFloat(lat, 'f', -1, 64),
		"longitude":  strconv.FormatFloat(lon, 'f', -1, 64),
		"start_date": climateStart,
		"end_date":   climateEnd,
		"daily":      "temperature_2m_max,temperature_2m_min,precipitation_sum",
		"timezone":   "auto",
	}, nil)
	if err != nil {
		return types.ClimateInfo{}, err
	}

	if raw.Error {
		return types.ClimateInfo{}, types.Errorf(types.ErrUpstreamUnavailable, "%s: %s", p.name, raw.Reason)
	}
	if len(raw.Daily.Time) == 0 {
		return types.ClimateInfo{}, types.Errorf(types.ErrEmptyResult, "%s: no daily data", p.name)
	}

	return types.ClimateInfo{
		CountryCode: code,
		Latitude:    utils.Ptr(lat),
		Longitude:   utils.Ptr(lon),
		Monthly:     aggregateMonthly(raw),
		Available:   true,
	}, nil
}

type monthAccumulator struct {
	maxSum, minSum, precipitation float64
	maxN, minN, precipitationN    int
}

// aggregateMonthly averages the daily extremes and sums precipitation per
// calendar month. Months without samples report nil values.
func aggregateMonthly(raw openMeteoArchive) []types.MonthlyClimate {
	var months [12]monthAccumulator

	for i, day := range raw.Daily.Time {
		if len(day) < 7 {
			continue
		}
		m, err := strconv.Atoi(day[5:7])
		if err != nil || m < 1 || m > 12 {
			continue
		}
		acc := &months[m-1]

		if v := sample(raw.Daily.TemperatureMax, i); v != nil {
			acc.maxSum += *v
			acc.maxN++
		}
		if v := sample(raw.Daily.TemperatureMin, i); v != nil {
			acc.minSum += *v
			acc.minN++
		}
		if v := sample(raw.Daily.PrecipitationSum, i); v != nil {
			acc.precipitation += *v
			acc.precipitationN++
		}
	}

	monthly := make([]types.MonthlyClimate, 0, 12)
	for i, acc := range months {
		mc := types.MonthlyClimate{Month: i + 1}
		if acc.maxN > 0 {
			mc.AvgTempMax = utils.Ptr(utils.Round1(acc.maxSum / float64(acc.maxN)))
		}
		if acc.minN > 0 {
			mc.AvgTempMin = utils.Ptr(utils.Round1(acc.minSum / float64(acc.minN)))
		}
		if acc.precipitationN > 0 {
			mc.TotalPrecipitation = utils.Ptr(utils.Round1(acc.precipitation))
		}
		monthly = append(monthly, mc)
	}

	return monthly
}

func sample(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}

func EmptyClimate(code string, lat, lon *float64) types.ClimateInfo {
	return types.ClimateInfo{
		CountryCode: code,
		Latitude:    lat,
		Longitude:   lon,
		Monthly:     []types.MonthlyClimate{},
		Available:   false,
	}
}
