package providers

import (
	"context"
	"strconv"
	"strings"

	"github.com/saiset-co/sai-travel/cache"
	"github.com/saiset-co/sai-travel/types"
	"github.com/saiset-co/sai-travel/utils"
)

const (
	poiRadiusMeters = "50000"
	poiKinds        = "cultural,natural,architecture"
	poiLimit        = "10"
)

type otmPlace struct {
	Name  string      `json:"name"`
	Kinds string      `json:"kinds"`
	Rate  interface{} `json:"rate"`
	Point struct {
		Lat *float64 `json:"lat"`
		Lon *float64 `json:"lon"`
	} `json:"point"`
	Wikipedia         string `json:"wikipedia"`
	WikipediaExtracts struct {
		Text string `json:"text"`
	} `json:"wikipedia_extracts"`
}

// OpenTripMap lists notable places within 50 km of the country's
// reference point. It needs an API key.
type OpenTripMap struct {
	base
}

func NewOpenTripMap(client types.UpstreamClient, c types.Cache, config *types.ProviderConfig, logger types.Logger) *OpenTripMap {
	return &OpenTripMap{base: newBase("opentripmap", client, c, config, logger)}
}

func (p *OpenTripMap) Available() bool {
	return p.hasKey()
}

func (p *OpenTripMap) GetAttractions(ctx context.Context, lat, lon *float64, code string) ([]types.POI, error) {
	if !p.Available() {
		return nil, types.Errorf(types.ErrConfigurationMissing, "%s: api key", p.name)
	}
	if lat == nil || lon == nil {
		return []types.POI{}, nil
	}

	code = utils.NormalizeCode(code)
	return cache.GetOrFetch(ctx, p.cache, "poi_"+code, p.ttl(), func(ctx context.Context) ([]types.POI, error) {
		return p.fetch(ctx, *lat, *lon)
	})
}

func (p *OpenTripMap) fetch(ctx context.Context, lat, lon float64) ([]types.POI, error) {
	places, err := getJSON[[]otmPlace](ctx, &p.base, p.baseURL()+"/en/places/radius", map[string]string{
		"radius": poiRadiusMeters,
		"lon":    strconv.FormatFloat(lon, 'f', -1, 64),
		"lat":    strconv.FormatFloat(lat, 'f', -1, 64),
		"kinds":  poiKinds,
		"format": "json",
		"limit":  poiLimit,
		"apikey": p.config.APIKey,
	}, nil)
	if err != nil {
		return nil, err
	}

	pois := make([]types.POI, 0, len(places))
	for _, place := range places {
		name := strings.TrimSpace(place.Name)
		if name == "" {
			continue
		}

		category, _, _ := strings.Cut(place.Kinds, ",")
		pois = append(pois, types.POI{
			Name:         name,
			Description:  place.WikipediaExtracts.Text,
			Category:     category,
			Latitude:     place.Point.Lat,
			Longitude:    place.Point.Lon,
			Rating:       parseRate(place.Rate),
			WikipediaURL: place.Wikipedia,
		})
	}

	return pois, nil
}

// parseRate accepts both the numeric rating and the "3h" form used for
// heritage-flagged places.
func parseRate(v interface{}) *float64 {
	switch r := v.(type) {
	case float64:
		return utils.Ptr(r)
	case int64:
		return utils.Ptr(float64(r))
	case string:
		if f, err := strconv.ParseFloat(strings.TrimRight(r, "h"), 64); err == nil {
			return utils.Ptr(f)
		}
	}
	return nil
}
