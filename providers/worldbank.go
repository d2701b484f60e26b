package providers

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/saiset-co/sai-travel/cache"
	"github.com/saiset-co/sai-travel/types"
	"github.com/saiset-co/sai-travel/utils"
)

const gdpPerCapitaIndicator = "NY.GDP.PCAP.CD"

type worldBankPoint struct {
	Date  string   `json:"date"`
	Value *float64 `json:"value"`
}

// WorldBank reports the most recent GDP per capita published in the last
// five years.
type WorldBank struct {
	base
}

func NewWorldBank(client types.UpstreamClient, c types.Cache, config *types.ProviderConfig, logger types.Logger) *WorldBank {
	return &WorldBank{base: newBase("world_bank", client, c, config, logger)}
}

func (p *WorldBank) GetEconomicInfo(ctx context.Context, code string) (types.EconomicInfo, error) {
	code = utils.NormalizeCode(code)

	return cache.GetOrFetch(ctx, p.cache, "economic_"+code, p.ttl(), func(ctx context.Context) (types.EconomicInfo, error) {
		return p.fetch(ctx, code)
	})
}

func (p *WorldBank) fetch(ctx context.Context, code string) (types.EconomicInfo, error) {
	// The response is [pagination, points]; an unknown country yields only
	// the first element with an error message.
	pages, err := getJSON[[]json.RawMessage](ctx, &p.base, p.baseURL()+"/country/"+code+"/indicator/"+gdpPerCapitaIndicator, map[string]string{
		"format":   "json",
		"mrv":      "5",
		"per_page": "5",
	}, nil)
	if err != nil {
		return types.EconomicInfo{}, err
	}

	if len(pages) < 2 {
		return EmptyEconomic(code), nil
	}

	var points []worldBankPoint
	if err := utils.Unmarshal(pages[1], &points); err != nil {
		return types.EconomicInfo{}, err
	}

	for _, point := range points {
		if point.Value == nil {
			continue
		}

		info := types.EconomicInfo{
			CountryCode:  code,
			GDPPerCapita: utils.Ptr(*point.Value),
			Available:    true,
		}
		if year, err := strconv.Atoi(point.Date); err == nil {
			info.Year = utils.Ptr(year)
		}
		return info, nil
	}

	return EmptyEconomic(code), nil
}

func EmptyEconomic(code string) types.EconomicInfo {
	return types.EconomicInfo{CountryCode: code, Available: false}
}
