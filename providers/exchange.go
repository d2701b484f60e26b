package providers

import (
	"context"
	"sort"
	"strings"

	"github.com/saiset-co/sai-travel/cache"
	"github.com/saiset-co/sai-travel/types"
	"github.com/saiset-co/sai-travel/utils"
)

const homeCurrency = "JPY"

type frankfurterLatest struct {
	Base  string             `json:"base"`
	Date  string             `json:"date"`
	Rates map[string]float64 `json:"rates"`
}

// Frankfurter quotes the country's currencies against the yen. A country
// that already uses the yen gets the dollar rate instead.
type Frankfurter struct {
	base
}

func NewFrankfurter(client types.UpstreamClient, c types.Cache, config *types.ProviderConfig, logger types.Logger) *Frankfurter {
	return &Frankfurter{base: newBase("frankfurter", client, c, config, logger)}
}

func (p *Frankfurter) GetExchangeInfo(ctx context.Context, code string, currencies []string) (types.ExchangeInfo, error) {
	code = utils.NormalizeCode(code)

	if len(currencies) == 0 {
		return EmptyExchange(code), nil
	}

	symbols := make([]string, 0, len(currencies))
	for _, c := range currencies {
		c = utils.NormalizeCode(c)
		if c != "" && c != homeCurrency {
			symbols = append(symbols, c)
		}
	}
	sort.Strings(symbols)

	baseCurrency := homeCurrency
	if len(symbols) == 0 {
		baseCurrency = "USD"
		symbols = []string{homeCurrency}
	}

	key := "exchange_" + strings.Join(symbols, ",")
	if baseCurrency != homeCurrency {
		key = "exchange_" + baseCurrency + "_to_" + homeCurrency
	}

	info, err := cache.GetOrFetch(ctx, p.cache, key, p.ttl(), func(ctx context.Context) (types.ExchangeInfo, error) {
		return p.fetch(ctx, baseCurrency, symbols)
	})
	if err != nil {
		return types.ExchangeInfo{}, err
	}

	// The cached record is shared by every country with the same currencies.
	info.CountryCode = code
	return info, nil
}

func (p *Frankfurter) fetch(ctx context.Context, baseCurrency string, symbols []string) (types.ExchangeInfo, error) {
	raw, err := getJSON[frankfurterLatest](ctx, &p.base, p.baseURL()+"/latest", map[string]string{
		"base":    baseCurrency,
		"symbols": strings.Join(symbols, ","),
	}, nil)
	if err != nil {
		return types.ExchangeInfo{}, err
	}

	info := types.ExchangeInfo{
		Base:  baseCurrency,
		Rates: make([]types.ExchangeRate, 0, len(raw.Rates)),
	}
	if raw.Date != "" {
		info.Date = utils.Ptr(raw.Date)
	}

	for _, symbol := range symbols {
		if rate, ok := raw.Rates[symbol]; ok {
			info.Rates = append(info.Rates, types.ExchangeRate{CurrencyCode: symbol, Rate: rate})
		}
	}
	info.Available = len(info.Rates) > 0

	return info, nil
}

func EmptyExchange(code string) types.ExchangeInfo {
	return types.ExchangeInfo{
		CountryCode: code,
		Base:        homeCurrency,
		Rates:       []types.ExchangeRate{},
		Available:   false,
	}
}
