package providers

import (
	"context"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/saiset-co/sai-travel/cache"
	"github.com/saiset-co/sai-travel/types"
	"github.com/saiset-co/sai-travel/utils"
)

const removedTitle = "[removed]"

type gnewsSearch struct {
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

// GNews searches English and Japanese coverage in parallel and merges the
// two. It needs an API key.
type GNews struct {
	base
}

func NewGNews(client types.UpstreamClient, c types.Cache, config *types.ProviderConfig, logger types.Logger) *GNews {
	return &GNews{base: newBase("gnews", client, c, config, logger)}
}

func (p *GNews) Available() bool {
	return p.hasKey()
}

func (p *GNews) SearchNews(ctx context.Context, code, name string) ([]types.NewsArticle, error) {
	if !p.Available() {
		return nil, types.Errorf(types.ErrConfigurationMissing, "%s: api key", p.name)
	}

	code = utils.NormalizeCode(code)
	return cache.GetOrFetch(ctx, p.cache, "gnews_"+code, p.ttl(), func(ctx context.Context) ([]types.NewsArticle, error) {
		return p.fetch(ctx, name)
	})
}

func (p *GNews) fetch(ctx context.Context, name string) ([]types.NewsArticle, error) {
	var en, ja []types.NewsArticle

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		en, err = p.search(gctx, name, "en")
		return err
	})
	g.Go(func() error {
		var err error
		ja, err = p.search(gctx, name, "ja")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return dedupByURL(append(en, ja...), maxArticles), nil
}

func (p *GNews) search(ctx context.Context, name, lang string) ([]types.NewsArticle, error) {
	raw, err := getJSON[gnewsSearch](ctx, &p.base, p.config.BaseURL, map[string]string{
		"q":      safetyQuery(name, 12),
		"lang":   lang,
		"max":    strconv.Itoa(maxArticles),
		"apikey": p.config.APIKey,
	}, nil)
	if err != nil {
		return nil, err
	}

	articles := make([]types.NewsArticle, 0, len(raw.Articles))
	for _, a := range raw.Articles {
		if a.Title == "" || a.Title == removedTitle {
			continue
		}
		articles = append(articles, types.NewsArticle{
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			Source:      a.Source.Name,
			PublishedAt: a.PublishedAt,
		})
	}
	return articles, nil
}
