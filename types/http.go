package types

import (
	"time"
)

type HTTPRouter interface {
	Add(method, path string, handler FastHTTPHandler, config *RouteConfig)
	Group(prefix string) GroupBuilder
	GET(path string, handler FastHTTPHandler) RouteBuilder
	GetAllRoutes() map[string]*RouteInfo
}

type RouteBuilder interface {
	WithMiddlewares(names ...string) RouteBuilder
	WithoutMiddlewares(names ...string) RouteBuilder
	WithTimeout(duration time.Duration) RouteBuilder
	Finalize() error
}

type GroupBuilder interface {
	WithMiddlewares(names ...string) GroupBuilder
	WithoutMiddlewares(names ...string) GroupBuilder
	WithTimeout(duration time.Duration) GroupBuilder
	Route(method, path string, handler FastHTTPHandler) RouteBuilder
	GET(path string, handler FastHTTPHandler) RouteBuilder
	Group(prefix string) GroupBuilder
}

type RouteConfig struct {
	Middlewares         []string
	DisabledMiddlewares []string
	Timeout             time.Duration
}

type RouteInfo struct {
	Handler FastHTTPHandler
	Config  *RouteConfig
}

// RequestContextKey holds the per-route deadline context in the request's
// user values.
const RequestContextKey = "request_context"
