package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/saiset-co/sai-travel/types"
	"github.com/saiset-co/sai-travel/utils"
)

// base carries what every upstream adapter needs. The cache may be nil,
// in which case every call reaches the upstream.
type base struct {
	name   string
	client types.UpstreamClient
	cache  types.Cache
	config *types.ProviderConfig
	logger types.Logger
}

func newBase(name string, client types.UpstreamClient, cache types.Cache, config *types.ProviderConfig, logger types.Logger) base {
	if config == nil {
		config = &types.ProviderConfig{}
	}
	return base{
		name:   name,
		client: client,
		cache:  cache,
		config: config,
		logger: logger,
	}
}

func (b *base) Name() string {
	return b.name
}

// Available is true for keyless providers. Keyed ones override it.
func (b *base) Available() bool {
	return b.client != nil
}

func (b *base) hasKey() bool {
	return b.client != nil && strings.TrimSpace(b.config.APIKey) != ""
}

func (b *base) ttl() time.Duration {
	if b.cache == nil {
		return 0
	}
	return b.cache.TTL()
}

func (b *base) baseURL() string {
	return strings.TrimRight(b.config.BaseURL, "/")
}

func (b *base) get(ctx context.Context, url string, query, headers map[string]string) (*types.UpstreamResponse, error) {
	if b.client == nil {
		return nil, types.Errorf(types.ErrConfigurationMissing, "%s: no upstream client", b.name)
	}

	return b.client.Do(ctx, &types.UpstreamRequest{
		Method:  fasthttp.MethodGet,
		URL:     url,
		Query:   query,
		Headers: headers,
	})
}

func getJSON[T any](ctx context.Context, b *base, url string, query, headers map[string]string) (T, error) {
	var target T

	resp, err := b.get(ctx, url, query, headers)
	if err != nil {
		return target, err
	}

	if err := utils.Unmarshal(resp.Body, &target); err != nil {
		b.logger.Debug("Upstream payload rejected",
			zap.String("provider", b.name),
			zap.Error(err))
		return target, types.WrapError(err, b.name)
	}

	return target, nil
}

// firstByte returns the first non-space byte of body, used to tell a JSON
// list from an object.
func firstByte(body []byte) byte {
	for _, c := range body {
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		default:
			return c
		}
	}
	return 0
}

// shared runs fetch once for every concurrent caller of key. The fetch is
// detached from the caller that started it and bounded by the upstream
// timeout; each caller stops waiting when its own ctx ends.
func shared[T any](ctx context.Context, group *singleflight.Group, key string, fetch func(context.Context) (T, error)) (T, error) {
	var zero T

	ch := group.DoChan(key, func() (interface{}, error) {
		return fetch(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		return zero, fmt.Errorf("%w: %s: %w", types.ErrUpstreamUnavailable, key, ctx.Err())
	}
}
