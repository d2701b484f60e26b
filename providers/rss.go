package providers

import (
	"bytes"
	"context"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/rss"

	"github.com/saiset-co/sai-travel/cache"
	"github.com/saiset-co/sai-travel/types"
	"github.com/saiset-co/sai-travel/utils"
)

const (
	defaultNewsSource = "Google News"
	customSource      = "source"
)

// sourceTranslator keeps the RSS <source> publisher, which the universal
// item drops, in Item.Custom.
type sourceTranslator struct {
	gofeed.DefaultRSSTranslator
}

func (t *sourceTranslator) Translate(feed interface{}) (*gofeed.Feed, error) {
	out, err := t.DefaultRSSTranslator.Translate(feed)
	if err != nil {
		return nil, err
	}

	raw, ok := feed.(*rss.Feed)
	if !ok || len(raw.Items) != len(out.Items) {
		return out, nil
	}

	for i, item := range raw.Items {
		if item.Source == nil || strings.TrimSpace(item.Source.Title) == "" {
			continue
		}
		if out.Items[i].Custom == nil {
			out.Items[i].Custom = make(map[string]string, 1)
		}
		out.Items[i].Custom[customSource] = strings.TrimSpace(item.Source.Title)
	}

	return out, nil
}

// NewsRSS reads the keyless news search feed. It is the fallback when no
// keyed news source is configured or it returns nothing.
type NewsRSS struct {
	base
}

func NewNewsRSS(client types.UpstreamClient, c types.Cache, config *types.ProviderConfig, logger types.Logger) *NewsRSS {
	return &NewsRSS{base: newBase("news_rss", client, c, config, logger)}
}

func (p *NewsRSS) SearchNews(ctx context.Context, code, name string) ([]types.NewsArticle, error) {
	code = utils.NormalizeCode(code)
	return cache.GetOrFetch(ctx, p.cache, "rss_"+code, p.ttl(), func(ctx context.Context) ([]types.NewsArticle, error) {
		return p.fetch(ctx, name)
	})
}

func (p *NewsRSS) fetch(ctx context.Context, name string) ([]types.NewsArticle, error) {
	resp, err := p.get(ctx, p.config.BaseURL, map[string]string{
		"q":    safetyQuery(name, 8),
		"hl":   "en",
		"gl":   "US",
		"ceid": "US:en",
	}, nil)
	if err != nil {
		return nil, err
	}

	return parseRSS(resp.Body, maxArticles)
}

// parseRSS reads RSS or Atom. Feed titles read "headline - publisher"; the
// suffix names the source when the item carries none.
func parseRSS(body []byte, limit int) ([]types.NewsArticle, error) {
	parser := gofeed.NewParser()
	parser.RSSTranslator = &sourceTranslator{}

	feed, err := parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, types.WrapError(types.ErrParseFailure, err.Error())
	}

	items := feed.Items
	if len(items) > limit {
		items = items[:limit]
	}

	articles := make([]types.NewsArticle, 0, len(items))
	for _, item := range items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}

		source := item.Custom[customSource]
		if i := strings.LastIndex(title, " - "); i > 0 {
			if source == "" {
				source = strings.TrimSpace(title[i+3:])
			}
			title = strings.TrimSpace(title[:i])
		}
		if source == "" {
			source = defaultNewsSource
		}

		articles = append(articles, types.NewsArticle{
			Title:       title,
			Description: utils.StripHTML(item.Description),
			URL:         strings.TrimSpace(item.Link),
			Source:      source,
			PublishedAt: strings.TrimSpace(item.Published),
		})
	}

	return articles, nil
}
