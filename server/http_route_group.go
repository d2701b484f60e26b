package server

import (
	"time"

	"github.com/saiset-co/sai-travel/types"
)

// GroupBuilder prefixes every route and hands its settings down to them.
type GroupBuilder struct {
	router *Router
	prefix string
	config *types.RouteConfig
}

func (gb *GroupBuilder) WithMiddlewares(names ...string) types.GroupBuilder {
	gb.config.Middlewares = append(gb.config.Middlewares, names...)
	return gb
}

func (gb *GroupBuilder) WithoutMiddlewares(names ...string) types.GroupBuilder {
	gb.config.DisabledMiddlewares = append(gb.config.DisabledMiddlewares, names...)
	return gb
}

func (gb *GroupBuilder) WithTimeout(duration time.Duration) types.GroupBuilder {
	gb.config.Timeout = duration
	return gb
}

func (gb *GroupBuilder) Route(method, path string, handler types.FastHTTPHandler) types.RouteBuilder {
	rb := gb.router.Route(method, gb.prefix+path, handler).(*RouteBuilder)

	if gb.config.Timeout > 0 {
		rb.config.Timeout = gb.config.Timeout
	}
	rb.config.Middlewares = append(rb.config.Middlewares, gb.config.Middlewares...)
	rb.config.DisabledMiddlewares = append(rb.config.DisabledMiddlewares, gb.config.DisabledMiddlewares...)

	return rb
}

func (gb *GroupBuilder) GET(path string, handler types.FastHTTPHandler) types.RouteBuilder {
	return gb.Route("GET", path, handler)
}

func (gb *GroupBuilder) Group(prefix string) types.GroupBuilder {
	return &GroupBuilder{
		router: gb.router,
		prefix: gb.prefix + prefix,
		config: &types.RouteConfig{
			Middlewares:         append([]string(nil), gb.config.Middlewares...),
			DisabledMiddlewares: append([]string(nil), gb.config.DisabledMiddlewares...),
			Timeout:             gb.config.Timeout,
		},
	}
}
