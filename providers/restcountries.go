package providers

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/saiset-co/sai-travel/cache"
	"github.com/saiset-co/sai-travel/types"
	"github.com/saiset-co/sai-travel/utils"
)

const (
	listFields   = "name,cca2,flags,capital,region,subregion,population,languages,currencies,latlng"
	detailFields = "name,cca2,flags,flag,capital,region,subregion,population,languages,currencies,latlng,borders,timezones"

	allCountriesKey = "all_countries"
)

type restCountry struct {
	CCA2 string `json:"cca2"`
	Name struct {
		Common string `json:"common"`
	} `json:"name"`
	Flags struct {
		SVG string `json:"svg"`
		PNG string `json:"png"`
	} `json:"flags"`
	Flag       string            `json:"flag"`
	Capital    []string          `json:"capital"`
	Region     string            `json:"region"`
	Subregion  string            `json:"subregion"`
	Population int64             `json:"population"`
	Languages  map[string]string `json:"languages"`
	Currencies map[string]struct {
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
	} `json:"currencies"`
	Latlng    []float64 `json:"latlng"`
	Borders   []string  `json:"borders"`
	Timezones []string  `json:"timezones"`
}

// RestCountries is the country registry. Concurrent misses on the full
// list share one upstream call.
type RestCountries struct {
	base
	group singleflight.Group
}

func NewRestCountries(client types.UpstreamClient, c types.Cache, config *types.ProviderConfig, logger types.Logger) *RestCountries {
	return &RestCountries{base: newBase("restcountries", client, c, config, logger)}
}

func (p *RestCountries) ListCountries(ctx context.Context) ([]types.Country, error) {
	return shared(ctx, &p.group, allCountriesKey, func(ctx context.Context) ([]types.Country, error) {
		return cache.GetOrFetch(ctx, p.cache, allCountriesKey, p.ttl(), p.fetchAll)
	})
}

// GetCountry returns types.ErrNotFound for codes the registry does not know.
func (p *RestCountries) GetCountry(ctx context.Context, code string) (*types.Country, error) {
	code = utils.NormalizeCode(code)
	if code == "" {
		return nil, types.ErrNotFound
	}

	country, err := cache.GetOrFetch(ctx, p.cache, "country_"+code, p.ttl(), func(ctx context.Context) (types.Country, error) {
		return p.fetchOne(ctx, code)
	})
	if err != nil {
		return nil, err
	}
	return &country, nil
}

func (p *RestCountries) fetchAll(ctx context.Context) ([]types.Country, error) {
	raw, err := getJSON[[]restCountry](ctx, &p.base, p.baseURL()+"/all", map[string]string{"fields": listFields}, nil)
	if err != nil {
		return nil, err
	}

	countries := make([]types.Country, 0, len(raw))
	for _, r := range raw {
		if r.CCA2 == "" {
			continue
		}
		countries = append(countries, toCountry(r))
	}

	sort.Slice(countries, func(i, j int) bool { return countries[i].Code < countries[j].Code })

	if len(countries) == 0 {
		return nil, types.Errorf(types.ErrEmptyResult, "%s: empty country list", p.name)
	}
	return countries, nil
}

func (p *RestCountries) fetchOne(ctx context.Context, code string) (types.Country, error) {
	resp, err := p.get(ctx, p.baseURL()+"/alpha/"+code, map[string]string{"fields": detailFields}, nil)
	if err != nil {
		return types.Country{}, err
	}

	// The alpha endpoint answers with either one object or a list.
	var raw restCountry
	if firstByte(resp.Body) == '[' {
		var list []restCountry
		if err := utils.Unmarshal(resp.Body, &list); err != nil {
			return types.Country{}, err
		}
		if len(list) == 0 {
			return types.Country{}, types.Errorf(types.ErrNotFound, "country %s", code)
		}
		raw = list[0]
	} else if err := utils.Unmarshal(resp.Body, &raw); err != nil {
		return types.Country{}, err
	}

	if raw.CCA2 == "" {
		return types.Country{}, types.Errorf(types.ErrNotFound, "country %s", code)
	}

	return toCountry(raw), nil
}

func toCountry(r restCountry) types.Country {
	code := strings.ToUpper(r.CCA2)

	c := types.Country{
		Code:       code,
		Name:       r.Name.Common,
		NameJa:     japaneseNames[code],
		Region:     r.Region,
		Subregion:  r.Subregion,
		Population: r.Population,
		Languages:  make([]string, 0, len(r.Languages)),
		Currencies: make([]types.Currency, 0, len(r.Currencies)),
		FlagURL:    r.Flags.SVG,
		FlagEmoji:  r.Flag,
		Borders:    nonNil(r.Borders),
		Timezones:  nonNil(r.Timezones),
	}

	if c.FlagURL == "" {
		c.FlagURL = r.Flags.PNG
	}
	if len(r.Capital) > 0 {
		c.Capital = r.Capital[0]
	}
	if len(r.Latlng) > 0 {
		c.Latitude = utils.Ptr(r.Latlng[0])
	}
	if len(r.Latlng) > 1 {
		c.Longitude = utils.Ptr(r.Latlng[1])
	}

	langKeys := make([]string, 0, len(r.Languages))
	for k := range r.Languages {
		langKeys = append(langKeys, k)
	}
	sort.Strings(langKeys)
	for _, k := range langKeys {
		c.Languages = append(c.Languages, r.Languages[k])
	}

	for cur, info := range r.Currencies {
		c.Currencies = append(c.Currencies, types.Currency{Code: cur, Name: info.Name, Symbol: info.Symbol})
	}
	sort.Slice(c.Currencies, func(i, j int) bool { return c.Currencies[i].Code < c.Currencies[j].Code })

	return c
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// FilterCountries keeps countries whose name, Japanese name or code contains
// query (case-insensitive) and whose region equals region. Empty arguments
// do not filter.
func FilterCountries(countries []types.Country, query, region string) []types.Country {
	q := strings.ToLower(strings.TrimSpace(query))
	region = strings.TrimSpace(region)

	out := make([]types.Country, 0, len(countries))
	for _, c := range countries {
		if q != "" &&
			!strings.Contains(strings.ToLower(c.Name), q) &&
			!strings.Contains(strings.ToLower(c.NameJa), q) &&
			!strings.Contains(strings.ToLower(c.Code), q) {
			continue
		}
		if region != "" && !strings.EqualFold(c.Region, region) {
			continue
		}
		out = append(out, c)
	}
	return out
}
