package providers

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/saiset-co/sai-travel/cache"
	"github.com/saiset-co/sai-travel/logger"
	"github.com/saiset-co/sai-travel/types"
)

type fakeUpstream struct {
	mu       sync.Mutex
	requests []*types.UpstreamRequest
	contexts []context.Context
	respond  func(req *types.UpstreamRequest) (*types.UpstreamResponse, error)
}

func newFakeUpstream(respond func(req *types.UpstreamRequest) (*types.UpstreamResponse, error)) *fakeUpstream {
	return &fakeUpstream{respond: respond}
}

func (f *fakeUpstream) Name() string {
	return "fake"
}

func (f *fakeUpstream) Do(ctx context.Context, req *types.UpstreamRequest) (*types.UpstreamResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.contexts = append(f.contexts, ctx)
	f.mu.Unlock()

	return f.respond(req)
}

func (f *fakeUpstream) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeUpstream) lastContext() context.Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.contexts) == 0 {
		return nil
	}
	return f.contexts[len(f.contexts)-1]
}

func (f *fakeUpstream) last() *types.UpstreamRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1]
}

func body(payload string) func(*types.UpstreamRequest) (*types.UpstreamResponse, error) {
	return func(*types.UpstreamRequest) (*types.UpstreamResponse, error) {
		return &types.UpstreamResponse{StatusCode: 200, ContentType: "application/json", Body: []byte(payload)}, nil
	}
}

func xmlBody(payload string) func(*types.UpstreamRequest) (*types.UpstreamResponse, error) {
	return func(*types.UpstreamRequest) (*types.UpstreamResponse, error) {
		return &types.UpstreamResponse{StatusCode: 200, ContentType: "application/xml", Body: []byte(payload)}, nil
	}
}

func failing(err error) func(*types.UpstreamRequest) (*types.UpstreamResponse, error) {
	return func(*types.UpstreamRequest) (*types.UpstreamResponse, error) {
		return nil, err
	}
}

// byPath routes on the first registered fragment contained in the URL.
func byPath(routes map[string]string) func(*types.UpstreamRequest) (*types.UpstreamResponse, error) {
	return func(req *types.UpstreamRequest) (*types.UpstreamResponse, error) {
		for fragment, payload := range routes {
			if strings.Contains(req.URL, fragment) {
				return &types.UpstreamResponse{StatusCode: 200, Body: []byte(payload)}, nil
			}
		}
		return nil, types.ErrNotFound
	}
}

func testCache(name string) types.Cache {
	return cache.NewMemoryCache(name, time.Hour, cache.SystemClock{})
}

func keyed(baseURL string) *types.ProviderConfig {
	return &types.ProviderConfig{BaseURL: baseURL, APIKey: "secret"}
}

func plain(baseURL string) *types.ProviderConfig {
	return &types.ProviderConfig{BaseURL: baseURL}
}

var nop = logger.NewNop()
