package providers

import (
	"context"
	"strings"

	"github.com/saiset-co/sai-travel/cache"
	"github.com/saiset-co/sai-travel/types"
	"github.com/saiset-co/sai-travel/utils"
)

const heritageBatch = 50

var heritageSkipPrefixes = []string{"List of", "UNESCO", "World Heritage"}

type categoryMembersQuery struct {
	Query struct {
		CategoryMembers []struct {
			Title string `json:"title"`
		} `json:"categorymembers"`
	} `json:"query"`
}

type heritagePage struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	FullURL     string `json:"fullurl"`
	Coordinates []struct {
		Lat *float64 `json:"lat"`
		Lon *float64 `json:"lon"`
	} `json:"coordinates"`
	Thumbnail struct {
		Source string `json:"source"`
	} `json:"thumbnail"`
}

type heritagePagesQuery struct {
	Query struct {
		Redirects []struct {
			From string `json:"from"`
			To   string `json:"to"`
		} `json:"redirects"`
		Pages map[string]heritagePage `json:"pages"`
	} `json:"query"`
}

// Heritage finds World Heritage Sites through the English encyclopedia's
// per-country categories.
type Heritage struct {
	base
}

func NewHeritage(client types.UpstreamClient, c types.Cache, config *types.ProviderConfig, logger types.Logger) *Heritage {
	return &Heritage{base: newBase("heritage", client, c, config, logger)}
}

func (p *Heritage) GetHeritageSites(ctx context.Context, code, name string) ([]types.HeritageSite, error) {
	code = utils.NormalizeCode(code)
	name = strings.TrimSpace(name)
	if name == "" {
		return []types.HeritageSite{}, nil
	}

	return cache.GetOrFetch(ctx, p.cache, "heritage_"+code, p.ttl(), func(ctx context.Context) ([]types.HeritageSite, error) {
		return p.fetch(ctx, name)
	})
}

func (p *Heritage) fetch(ctx context.Context, name string) ([]types.HeritageSite, error) {
	var titles []string
	for _, category := range []string{
		"World Heritage Sites in " + name,
		"World Heritage Sites in the " + name,
	} {
		members, err := p.categoryMembers(ctx, category)
		if err != nil {
			return nil, err
		}
		if len(members) > 0 {
			titles = members
			break
		}
	}

	if len(titles) == 0 {
		return []types.HeritageSite{}, nil
	}

	return p.pageDetails(ctx, titles)
}

func (p *Heritage) categoryMembers(ctx context.Context, category string) ([]string, error) {
	raw, err := getJSON[categoryMembersQuery](ctx, &p.base, p.config.BaseURL, map[string]string{
		"action":      "query",
		"list":        "categorymembers",
		"cmtitle":     "Category:" + category,
		"cmlimit":     "50",
		"cmtype":      "page",
		"cmnamespace": "0",
		"format":      "json",
	}, nil)
	if err != nil {
		return nil, err
	}

	titles := make([]string, 0, len(raw.Query.CategoryMembers))
	for _, m := range raw.Query.CategoryMembers {
		if m.Title == "" || hasAnyPrefix(m.Title, heritageSkipPrefixes) {
			continue
		}
		titles = append(titles, m.Title)
	}
	return titles, nil
}

// pageDetails keeps the category's order. Pages reached through a redirect
// are matched by their original title.
func (p *Heritage) pageDetails(ctx context.Context, titles []string) ([]types.HeritageSite, error) {
	if len(titles) > heritageBatch {
		titles = titles[:heritageBatch]
	}

	raw, err := getJSON[heritagePagesQuery](ctx, &p.base, p.config.BaseURL, map[string]string{
		"action":      "query",
		"titles":      strings.Join(titles, "|"),
		"prop":        "coordinates|description|info|pageimages",
		"inprop":      "url",
		"pithumbsize": "400",
		"piprop":      "thumbnail",
		"format":      "json",
		"redirects":   "1",
	}, nil)
	if err != nil {
		return nil, err
	}

	byTitle := make(map[string]heritagePage, len(raw.Query.Pages))
	for id, page := range raw.Query.Pages {
		if id == "-1" || page.Title == "" {
			continue
		}
		byTitle[page.Title] = page
	}

	redirects := make(map[string]string, len(raw.Query.Redirects))
	for _, r := range raw.Query.Redirects {
		redirects[r.From] = r.To
	}

	sites := make([]types.HeritageSite, 0, len(byTitle))
	used := make(map[string]bool, len(byTitle))
	for _, title := range titles {
		resolved := title
		if to, ok := redirects[title]; ok {
			resolved = to
		}

		page, ok := byTitle[resolved]
		if !ok || used[resolved] {
			continue
		}
		used[resolved] = true

		site := types.HeritageSite{
			Name:         page.Title,
			Description:  page.Description,
			ImageURL:     page.Thumbnail.Source,
			WikipediaURL: page.FullURL,
		}
		if len(page.Coordinates) > 0 {
			site.Latitude = page.Coordinates[0].Lat
			site.Longitude = page.Coordinates[0].Lon
		}
		sites = append(sites, site)
	}

	return sites, nil
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
