package types

import (
	"context"
	"time"
)

type ClientManager interface {
	LifecycleManager
	Upstream(name string, config *ProviderConfig) UpstreamClient
	BreakerStates() map[string]string
}

// UpstreamClient issues requests against one provider through the shared
// connection pool.
type UpstreamClient interface {
	Name() string
	Do(ctx context.Context, req *UpstreamRequest) (*UpstreamResponse, error)
}

type UpstreamRequest struct {
	Method  string
	URL     string
	Query   map[string]string
	Headers map[string]string
	Body    []byte
	Timeout time.Duration
}

type UpstreamResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}
