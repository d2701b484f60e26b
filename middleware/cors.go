package middleware

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-travel/types"
	"github.com/saiset-co/sai-travel/utils"
)

var (
	trueBytes        = []byte("true")
	asteriskBytes    = []byte("*")
	optionsBytes     = []byte("OPTIONS")
	varyOriginStr    = []byte("Origin")
	varyPreflightStr = []byte("Origin, Access-Control-Request-Method, Access-Control-Request-Headers")
)

// CORSMiddleware answers preflight requests itself and decorates the rest.
// Origins may be exact or "*.domain" wildcards.
type CORSMiddleware struct {
	logger            types.Logger
	corsConfig        *CORSConfig
	name              string
	weight            int
	allowsAll         bool
	allowedOrigins    map[string]bool
	wildcardDomains   []string
	allowedMethods    []byte
	allowedHeaders    []byte
	exposedHeaders    []byte
	maxAge            []byte
	allowCredentials  bool
	hasExposedHeaders bool
}

type CORSConfig struct {
	ExposedHeaders   []string `json:"exposed_headers"`
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	MaxAge           int      `json:"max_age"`
}

func NewCORSMiddleware(item *types.MiddlewareItemConfig, logger types.Logger) *CORSMiddleware {
	var corsConfig = &CORSConfig{
		AllowedOrigins: []string{"http://localhost:3000"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		MaxAge:         86400,
	}

	if item.Params != nil {
		if err := utils.UnmarshalConfig(item.Params, corsConfig); err != nil {
			logger.Error("Failed to unmarshal CORS middleware config", zap.Error(err))
		}
	}

	cm := &CORSMiddleware{
		name:              "cors",
		weight:            item.Weight,
		logger:            logger,
		corsConfig:        corsConfig,
		allowCredentials:  corsConfig.AllowCredentials,
		hasExposedHeaders: len(corsConfig.ExposedHeaders) > 0,
	}

	cm.precompile()

	return cm
}

func (c *CORSMiddleware) Name() string { return c.name }
func (c *CORSMiddleware) Weight() int  { return c.weight }

func (c *CORSMiddleware) Handle(ctx *fasthttp.RequestCtx, next func(*fasthttp.RequestCtx), _ *types.RouteConfig) {
	origin := ctx.Request.Header.Peek("Origin")
	if len(origin) == 0 {
		next(ctx)
		return
	}

	if !c.isOriginAllowed(origin) {
		c.logger.Warn("CORS request blocked",
			zap.ByteString("origin", origin),
			zap.ByteString("method", ctx.Method()),
			zap.ByteString("path", ctx.Path()))

		c.reject(ctx)
		return
	}

	if c.isOptionsMethod(ctx.Method()) {
		c.preflight(ctx, origin)
		return
	}

	c.decorate(ctx, origin)
	next(ctx)
}

func (c *CORSMiddleware) isOptionsMethod(method []byte) bool {
	return bytes.Equal(method, optionsBytes)
}

func (c *CORSMiddleware) isOriginAllowed(origin []byte) bool {
	if c.allowsAll {
		return true
	}

	originStr := string(origin)

	if c.allowedOrigins[originStr] {
		return true
	}

	for _, domain := range c.wildcardDomains {
		if c.matchesWildcardDomain(originStr, domain) {
			return true
		}
	}

	return false
}

func (c *CORSMiddleware) matchesWildcardDomain(origin, domain string) bool {
	if origin == domain {
		return true
	}

	suffix := "." + domain
	if strings.HasSuffix(origin, suffix) {
		prefixLen := len(origin) - len(suffix)
		if prefixLen > 0 {
			return origin[prefixLen-1] != '.'
		}
	}

	return false
}

func (c *CORSMiddleware) decorate(ctx *fasthttp.RequestCtx, origin []byte) {
	if c.allowsAll {
		ctx.Response.Header.SetBytesV("Access-Control-Allow-Origin", asteriskBytes)
	} else {
		ctx.Response.Header.SetBytesV("Access-Control-Allow-Origin", origin)
	}

	if c.hasExposedHeaders {
		ctx.Response.Header.SetBytesV("Access-Control-Expose-Headers", c.exposedHeaders)
	}

	if c.allowCredentials {
		ctx.Response.Header.SetBytesV("Access-Control-Allow-Credentials", trueBytes)
	}

	ctx.Response.Header.AddBytesV("Vary", varyOriginStr)
}

func (c *CORSMiddleware) preflight(ctx *fasthttp.RequestCtx, origin []byte) {
	ctx.SetStatusCode(fasthttp.StatusNoContent)

	if c.allowsAll {
		ctx.Response.Header.SetBytesV("Access-Control-Allow-Origin", asteriskBytes)
	} else {
		ctx.Response.Header.SetBytesV("Access-Control-Allow-Origin", origin)
	}

	ctx.Response.Header.SetBytesV("Access-Control-Allow-Methods", c.allowedMethods)
	ctx.Response.Header.SetBytesV("Access-Control-Allow-Headers", c.allowedHeaders)
	ctx.Response.Header.SetBytesV("Access-Control-Max-Age", c.maxAge)

	if c.allowCredentials {
		ctx.Response.Header.SetBytesV("Access-Control-Allow-Credentials", trueBytes)
	}

	ctx.Response.Header.SetBytesV("Vary", varyPreflightStr)
	ctx.SetBody(nil)
}

func (c *CORSMiddleware) reject(ctx *fasthttp.RequestCtx) {
	utils.WriteError(ctx, fasthttp.StatusForbidden, "origin not allowed")
}

func (c *CORSMiddleware) precompile() {
	c.allowsAll = len(c.corsConfig.AllowedOrigins) == 1 && c.corsConfig.AllowedOrigins[0] == "*"

	if !c.allowsAll {
		c.allowedOrigins = make(map[string]bool, len(c.corsConfig.AllowedOrigins))
		c.wildcardDomains = make([]string, 0)

		for _, origin := range c.corsConfig.AllowedOrigins {
			if strings.HasPrefix(origin, "*.") {
				domain := strings.TrimPrefix(origin, "*.")
				c.wildcardDomains = append(c.wildcardDomains, domain)
			} else {
				c.allowedOrigins[origin] = true
			}
		}
	}

	c.allowedMethods = []byte(strings.Join(c.corsConfig.AllowedMethods, ", "))
	c.allowedHeaders = []byte(strings.Join(c.corsConfig.AllowedHeaders, ", "))

	if c.hasExposedHeaders {
		c.exposedHeaders = []byte(strings.Join(c.corsConfig.ExposedHeaders, ", "))
	}

	c.maxAge = []byte(strconv.Itoa(c.corsConfig.MaxAge))
}
