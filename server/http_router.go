package server

import (
	"strings"
	"sync"

	"github.com/valyala/fasthttp"

	"github.com/saiset-co/sai-travel/types"
)

var methodIndex = map[string]uint8{
	"GET":     0,
	"POST":    1,
	"PUT":     2,
	"DELETE":  3,
	"PATCH":   4,
	"HEAD":    5,
	"OPTIONS": 6,
	"TRACE":   7,
}

var methodNames = [8]string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS", "TRACE"}

// Router matches static paths through a map and paths with {param}
// segments through a trie. Routes are collected by builders and only
// become visible after FinalizePendingRoutes.
type Router struct {
	mu            sync.RWMutex
	root          *RouteNode
	staticRoutes  map[string]*types.RouteInfo
	pendingRoutes []types.RouteBuilder
	segmentsPool  sync.Pool
}

type RouteNode struct {
	staticChildren map[string]*RouteNode
	paramChild     *RouteNode
	paramName      string
	methodMask     uint8
	handlers       [8]types.FastHTTPHandler
	configs        [8]*types.RouteConfig
}

func newNode() *RouteNode {
	return &RouteNode{staticChildren: make(map[string]*RouteNode)}
}

func NewRouter() *Router {
	return &Router{
		root:         newNode(),
		staticRoutes: make(map[string]*types.RouteInfo),
		segmentsPool: sync.Pool{
			New: func() interface{} {
				s := make([]string, 0, 8)
				return &s
			},
		},
	}
}

func (r *Router) Add(method, path string, handler types.FastHTTPHandler, config *types.RouteConfig) {
	methodIdx, exists := methodIndex[method]
	if !exists {
		return
	}
	if config == nil {
		config = &types.RouteConfig{}
	}

	path = normalizePath(path)

	r.mu.Lock()
	defer r.mu.Unlock()

	if !strings.Contains(path, "{") {
		r.staticRoutes[method+":"+path] = &types.RouteInfo{Handler: handler, Config: config}
		return
	}

	node := r.root
	for _, segment := range splitPath(path, nil) {
		if isParam(segment) {
			if node.paramChild == nil {
				node.paramChild = newNode()
				node.paramChild.paramName = segment[1 : len(segment)-1]
			}
			node = node.paramChild
			continue
		}

		child, ok := node.staticChildren[segment]
		if !ok {
			child = newNode()
			node.staticChildren[segment] = child
		}
		node = child
	}

	node.handlers[methodIdx] = handler
	node.configs[methodIdx] = config
	node.methodMask |= 1 << methodIdx
}

// Lookup returns the handler for method and path with the captured path
// parameters. A nil handler means no route matched.
func (r *Router) Lookup(method, path string) (types.FastHTTPHandler, *types.RouteConfig, map[string]string) {
	methodIdx, exists := methodIndex[method]
	if !exists {
		return nil, nil, nil
	}

	path = normalizePath(path)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if info := r.staticRoutes[method+":"+path]; info != nil {
		return info.Handler, info.Config, nil
	}

	segmentsPtr := r.segmentsPool.Get().(*[]string)
	segments := splitPath(path, (*segmentsPtr)[:0])
	defer func() {
		*segmentsPtr = segments[:0]
		r.segmentsPool.Put(segmentsPtr)
	}()

	var params map[string]string
	node := r.match(r.root, segments, methodIdx, &params)
	if node == nil {
		return nil, nil, nil
	}

	return node.handlers[methodIdx], node.configs[methodIdx], params
}

// match prefers static children over the parameter child at every level.
func (r *Router) match(node *RouteNode, segments []string, methodIdx uint8, params *map[string]string) *RouteNode {
	if len(segments) == 0 {
		if node.methodMask&(1<<methodIdx) != 0 {
			return node
		}
		return nil
	}

	segment := segments[0]

	if child, ok := node.staticChildren[segment]; ok {
		if found := r.match(child, segments[1:], methodIdx, params); found != nil {
			return found
		}
	}

	if node.paramChild != nil {
		if found := r.match(node.paramChild, segments[1:], methodIdx, params); found != nil {
			if *params == nil {
				*params = make(map[string]string, 2)
			}
			(*params)[node.paramChild.paramName] = segment
			return found
		}
	}

	return nil
}

func (r *Router) Route(method, path string, handler types.FastHTTPHandler) types.RouteBuilder {
	rb := &RouteBuilder{
		router:  r,
		method:  method,
		path:    path,
		handler: handler,
		config:  &types.RouteConfig{},
	}

	r.mu.Lock()
	r.pendingRoutes = append(r.pendingRoutes, rb)
	r.mu.Unlock()

	return rb
}

func (r *Router) GET(path string, handler types.FastHTTPHandler) types.RouteBuilder {
	return r.Route("GET", path, handler)
}

func (r *Router) Group(prefix string) types.GroupBuilder {
	return &GroupBuilder{
		router: r,
		prefix: prefix,
		config: &types.RouteConfig{},
	}
}

func (r *Router) FinalizePendingRoutes() error {
	r.mu.Lock()
	routes := r.pendingRoutes
	r.pendingRoutes = nil
	r.mu.Unlock()

	failed := 0
	for _, route := range routes {
		if err := route.Finalize(); err != nil {
			failed++
		}
	}

	if failed > 0 {
		return types.Errorf(types.ErrRouteFinalizationFailed, "%d errors occurred", failed)
	}
	return nil
}

func (r *Router) GetAllRoutes() map[string]*types.RouteInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	routes := make(map[string]*types.RouteInfo, len(r.staticRoutes))
	for key, info := range r.staticRoutes {
		routes[key] = info
	}
	collectRoutes(r.root, "", routes)

	return routes
}

func collectRoutes(node *RouteNode, path string, routes map[string]*types.RouteInfo) {
	for idx, name := range methodNames {
		if node.methodMask&(1<<uint8(idx)) != 0 {
			routes[name+":"+path] = &types.RouteInfo{
				Handler: node.handlers[idx],
				Config:  node.configs[idx],
			}
		}
	}

	for segment, child := range node.staticChildren {
		collectRoutes(child, path+"/"+segment, routes)
	}
	if node.paramChild != nil {
		collectRoutes(node.paramChild, path+"/{"+node.paramChild.paramName+"}", routes)
	}
}

// Param returns a path parameter captured by the router.
func Param(ctx *fasthttp.RequestCtx, name string) string {
	if value, ok := ctx.UserValue(name).(string); ok {
		return value
	}
	return ""
}

func isParam(segment string) bool {
	return len(segment) > 2 && segment[0] == '{' && segment[len(segment)-1] == '}'
}

func normalizePath(path string) string {
	if path == "" {
		return "/"
	}
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		return strings.TrimRight(path, "/")
	}
	return path
}

func splitPath(path string, into []string) []string {
	start := 1
	for i := 1; i <= len(path); i++ {
		if i == len(path) || path[i] == '/' {
			if i > start {
				into = append(into, path[start:i])
			}
			start = i + 1
		}
	}
	return into
}
