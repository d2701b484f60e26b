package api

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-travel/server"
	"github.com/saiset-co/sai-travel/types"
	"github.com/saiset-co/sai-travel/utils"
)

const (
	minSafetyLevel = 0
	maxSafetyLevel = 4
)

// Aggregator is what the handlers need from the aggregation service.
type Aggregator interface {
	ListCountries(ctx context.Context, query, region string, level *int) []types.CountryListItem
	Search(ctx context.Context, query string) []types.CountryListItem
	GetCountry(ctx context.Context, code string) (*types.Country, error)
	GetSafety(ctx context.Context, code string) types.SafetyInfo
	GetEntry(code string) types.EntryRequirement
	GetAttractions(ctx context.Context, code string) (types.EnrichedAttractionsResponse, error)
	GetBasicAttractions(ctx context.Context, code string) (types.AttractionsResponse, error)
	GetOverview(ctx context.Context, code string) (types.CountryOverview, error)
	GetNews(ctx context.Context, code string) (types.NewsResponse, error)
	GetExchange(ctx context.Context, code string) (types.ExchangeInfo, error)
	GetClimate(ctx context.Context, code string) (types.ClimateInfo, error)
	GetEconomic(ctx context.Context, code string) (types.EconomicInfo, error)
	GetWiki(ctx context.Context, code string) (types.WikiSummary, error)
	GetPosts(ctx context.Context, username string, limit int) []types.Post
}

type Handlers struct {
	service Aggregator
	logger  types.Logger
}

func NewHandlers(service Aggregator, logger types.Logger) *Handlers {
	return &Handlers{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes mounts every endpoint under the router.
func (h *Handlers) RegisterRoutes(router types.HTTPRouter) {
	api := router.Group("/api")

	countries := api.Group("/countries")
	countries.GET("", h.listCountries)
	countries.GET("/{code}", h.getCountry)
	countries.GET("/{code}/safety", h.getSafety)
	countries.GET("/{code}/entry", h.getEntry)
	countries.GET("/{code}/attractions", byCountry(h, h.service.GetAttractions))
	countries.GET("/{code}/attractions/basic", byCountry(h, h.service.GetBasicAttractions))
	countries.GET("/{code}/overview", byCountry(h, h.service.GetOverview))
	countries.GET("/{code}/news", byCountry(h, h.service.GetNews))
	countries.GET("/{code}/exchange", byCountry(h, h.service.GetExchange))
	countries.GET("/{code}/climate", byCountry(h, h.service.GetClimate))
	countries.GET("/{code}/economic", byCountry(h, h.service.GetEconomic))
	countries.GET("/{code}/wiki", byCountry(h, h.service.GetWiki))

	api.GET("/x/posts", h.getPosts)
	api.GET("/search", h.search)
}

func (h *Handlers) listCountries(ctx *fasthttp.RequestCtx) {
	args := ctx.QueryArgs()

	var level *int
	if args.Has("safety_level") {
		parsed, err := parseSafetyLevel(string(args.Peek("safety_level")))
		if err != nil {
			utils.WriteError(ctx, fasthttp.StatusBadRequest, err.Error())
			return
		}
		level = &parsed
	}

	items := h.service.ListCountries(utils.RequestContext(ctx),
		string(args.Peek("q")),
		string(args.Peek("region")),
		level)

	utils.WriteJSON(ctx, fasthttp.StatusOK, items)
}

func (h *Handlers) search(ctx *fasthttp.RequestCtx) {
	items := h.service.Search(utils.RequestContext(ctx), string(ctx.QueryArgs().Peek("q")))
	utils.WriteJSON(ctx, fasthttp.StatusOK, items)
}

func (h *Handlers) getCountry(ctx *fasthttp.RequestCtx) {
	code := server.Param(ctx, "code")

	country, err := h.service.GetCountry(utils.RequestContext(ctx), code)
	if err != nil {
		h.writeLookupError(ctx, code, err)
		return
	}

	utils.WriteJSON(ctx, fasthttp.StatusOK, country)
}

func (h *Handlers) getSafety(ctx *fasthttp.RequestCtx) {
	info := h.service.GetSafety(utils.RequestContext(ctx), server.Param(ctx, "code"))
	utils.WriteJSON(ctx, fasthttp.StatusOK, info)
}

func (h *Handlers) getEntry(ctx *fasthttp.RequestCtx) {
	utils.WriteJSON(ctx, fasthttp.StatusOK, h.service.GetEntry(server.Param(ctx, "code")))
}

func (h *Handlers) getPosts(ctx *fasthttp.RequestCtx) {
	args := ctx.QueryArgs()

	limit := 0
	if raw := string(args.Peek("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			utils.WriteError(ctx, fasthttp.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	posts := h.service.GetPosts(utils.RequestContext(ctx), string(args.Peek("username")), limit)
	utils.WriteJSON(ctx, fasthttp.StatusOK, posts)
}

// byCountry adapts an operation anchored on a country code. Only the lookup
// can fail; every section behind it degrades to defaults.
func byCountry[T any](h *Handlers, op func(ctx context.Context, code string) (T, error)) types.FastHTTPHandler {
	return func(ctx *fasthttp.RequestCtx) {
		code := server.Param(ctx, "code")

		result, err := op(utils.RequestContext(ctx), code)
		if err != nil {
			h.writeLookupError(ctx, code, err)
			return
		}

		utils.WriteJSON(ctx, fasthttp.StatusOK, result)
	}
}

func (h *Handlers) writeLookupError(ctx *fasthttp.RequestCtx, code string, err error) {
	if !types.IsError(err, types.ErrNotFound) {
		h.logger.Error("Country lookup failed", zap.String("code", code), zap.Error(err))
		utils.CreateErrorResponse(ctx)
		return
	}

	utils.WriteError(ctx, fasthttp.StatusNotFound, notFoundMessage(code))
}

func notFoundMessage(code string) string {
	return fmt.Sprintf("国コード '%s' は見つかりませんでした", code)
}

func parseSafetyLevel(raw string) (int, error) {
	level, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || level < minSafetyLevel || level > maxSafetyLevel {
		return 0, types.Errorf(types.ErrInvalidParameter, "safety_level must be an integer between %d and %d", minSafetyLevel, maxSafetyLevel)
	}
	return level, nil
}
