package providers

import (
	"context"
	"strings"

	"github.com/saiset-co/sai-travel/cache"
	"github.com/saiset-co/sai-travel/types"
	"github.com/saiset-co/sai-travel/utils"
)

const langPlaceholder = "{lang}"

type wikiPage struct {
	PageID  int     `json:"pageid"`
	Title   string  `json:"title"`
	Extract string  `json:"extract"`
	Missing *string `json:"missing"`
}

type wikiQuery struct {
	Query struct {
		Pages map[string]wikiPage `json:"pages"`
	} `json:"query"`
}

// Wikipedia serves introductions from one language edition. The base URL
// may contain {lang}, replaced by the edition's code.
type Wikipedia struct {
	base
	lang string
}

func NewWikipedia(lang string, client types.UpstreamClient, c types.Cache, config *types.ProviderConfig, logger types.Logger) *Wikipedia {
	return &Wikipedia{
		base: newBase("wikipedia_"+lang, client, c, config, logger),
		lang: lang,
	}
}

func (p *Wikipedia) Lang() string {
	return p.lang
}

// GetSummary returns types.ErrEmptyResult when the edition has no article
// or no introduction for title.
func (p *Wikipedia) GetSummary(ctx context.Context, code, title string) (types.WikiSummary, error) {
	code = utils.NormalizeCode(code)
	title = strings.TrimSpace(title)
	if title == "" {
		return types.WikiSummary{}, types.Errorf(types.ErrEmptyResult, "%s: empty title", p.name)
	}

	return cache.GetOrFetch(ctx, p.cache, "wiki_"+p.lang+"_"+title, p.ttl(), func(ctx context.Context) (types.WikiSummary, error) {
		return p.fetch(ctx, code, title)
	})
}

func (p *Wikipedia) fetch(ctx context.Context, code, title string) (types.WikiSummary, error) {
	raw, err := getJSON[wikiQuery](ctx, &p.base, p.endpoint(), map[string]string{
		"action":      "query",
		"titles":      title,
		"prop":        "extracts",
		"exintro":     "1",
		"explaintext": "1",
		"exchars":     "600",
		"format":      "json",
		"redirects":   "1",
	}, nil)
	if err != nil {
		return types.WikiSummary{}, err
	}

	for id, page := range raw.Query.Pages {
		if id == "-1" || page.PageID < 0 || page.Missing != nil {
			continue
		}

		extract := strings.TrimSpace(page.Extract)
		if extract == "" {
			continue
		}

		resolved := page.Title
		if resolved == "" {
			resolved = title
		}

		return types.WikiSummary{
			CountryCode: code,
			Title:       resolved,
			Extract:     extract,
			URL:         p.articleURL(resolved),
			Lang:        p.lang,
			Available:   true,
		}, nil
	}

	return types.WikiSummary{}, types.Errorf(types.ErrEmptyResult, "%s: no article for %q", p.name, title)
}

func (p *Wikipedia) endpoint() string {
	return strings.ReplaceAll(p.config.BaseURL, langPlaceholder, p.lang)
}

func (p *Wikipedia) articleURL(title string) string {
	return "https://" + p.lang + ".wikipedia.org/wiki/" + strings.ReplaceAll(title, " ", "_")
}

func EmptyWiki(code string) types.WikiSummary {
	return types.WikiSummary{CountryCode: code, Available: false}
}
