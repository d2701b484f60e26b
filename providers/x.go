package providers

import (
	"context"
	"strconv"
	"strings"

	"github.com/saiset-co/sai-travel/cache"
	"github.com/saiset-co/sai-travel/types"
)

const (
	DefaultPostsUsername = "anta_kaoi"
	DefaultPostsLimit    = 10
	maxPostsLimit        = 100
)

type xUserLookup struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

type xTimeline struct {
	Data []struct {
		ID            string `json:"id"`
		Text          string `json:"text"`
		CreatedAt     string `json:"created_at"`
		PublicMetrics struct {
			LikeCount    int `json:"like_count"`
			RetweetCount int `json:"retweet_count"`
		} `json:"public_metrics"`
		Attachments struct {
			MediaKeys []string `json:"media_keys"`
		} `json:"attachments"`
	} `json:"data"`
	Includes struct {
		Media []struct {
			MediaKey        string `json:"media_key"`
			URL             string `json:"url"`
			PreviewImageURL string `json:"preview_image_url"`
		} `json:"media"`
	} `json:"includes"`
}

// X reads a user's recent original posts. It needs a bearer token.
type X struct {
	base
}

func NewX(client types.UpstreamClient, c types.Cache, config *types.ProviderConfig, logger types.Logger) *X {
	return &X{base: newBase("x", client, c, config, logger)}
}

func (p *X) Available() bool {
	return p.hasKey()
}

func (p *X) GetPosts(ctx context.Context, username string, limit int) ([]types.Post, error) {
	if !p.Available() {
		return nil, types.Errorf(types.ErrConfigurationMissing, "%s: bearer token", p.name)
	}

	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		username = DefaultPostsUsername
	}
	if limit <= 0 {
		limit = DefaultPostsLimit
	}
	if limit > maxPostsLimit {
		limit = maxPostsLimit
	}

	key := "x_posts_" + username + "_" + strconv.Itoa(limit)
	return cache.GetOrFetch(ctx, p.cache, key, p.ttl(), func(ctx context.Context) ([]types.Post, error) {
		return p.fetch(ctx, username, limit)
	})
}

func (p *X) fetch(ctx context.Context, username string, limit int) ([]types.Post, error) {
	headers := map[string]string{"Authorization": "Bearer " + p.config.APIKey}

	user, err := getJSON[xUserLookup](ctx, &p.base, p.baseURL()+"/users/by/username/"+username, nil, headers)
	if err != nil {
		return nil, err
	}
	if user.Data.ID == "" {
		return nil, types.Errorf(types.ErrNotFound, "%s: user %s", p.name, username)
	}

	// The timeline endpoint rejects max_results below 5.
	maxResults := limit
	if maxResults < 5 {
		maxResults = 5
	}

	timeline, err := getJSON[xTimeline](ctx, &p.base, p.baseURL()+"/users/"+user.Data.ID+"/tweets", map[string]string{
		"max_results":  strconv.Itoa(maxResults),
		"tweet.fields": "id,text,created_at,public_metrics,attachments",
		"expansions":   "attachments.media_keys",
		"media.fields": "url,preview_image_url,type",
		"exclude":      "retweets,replies",
	}, headers)
	if err != nil {
		return nil, err
	}

	media := make(map[string]string, len(timeline.Includes.Media))
	for _, m := range timeline.Includes.Media {
		url := m.URL
		if url == "" {
			url = m.PreviewImageURL
		}
		if m.MediaKey != "" && url != "" {
			media[m.MediaKey] = url
		}
	}

	posts := make([]types.Post, 0, len(timeline.Data))
	for _, t := range timeline.Data {
		post := types.Post{
			ID:           t.ID,
			Text:         t.Text,
			CreatedAt:    t.CreatedAt,
			URL:          "https://x.com/" + username + "/status/" + t.ID,
			LikeCount:    t.PublicMetrics.LikeCount,
			RetweetCount: t.PublicMetrics.RetweetCount,
		}
		if len(t.Attachments.MediaKeys) > 0 {
			post.MediaURL = media[t.Attachments.MediaKeys[0]]
		}
		posts = append(posts, post)
		if len(posts) == limit {
			break
		}
	}

	return posts, nil
}
