package middleware

import (
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-travel/types"
	"github.com/saiset-co/sai-travel/utils"
)

const (
	requestIDHeader = "X-Request-ID"
	RequestIDKey    = "request_id"
)

// MetadataMiddleware makes sure every request carries an id. A client
// supplied X-Request-ID is kept; otherwise one is generated. The id is
// echoed on the response and stored as a user value.
type MetadataMiddleware struct {
	logger         types.Logger
	metadataConfig *MetadataConfig
	name           string
	weight         int
}

type MetadataConfig struct {
	GenerateRequestID bool `json:"generate_request_id"`
}

func NewMetadataMiddleware(item *types.MiddlewareItemConfig, logger types.Logger) *MetadataMiddleware {
	var metadataConfig = &MetadataConfig{
		GenerateRequestID: true,
	}

	if item.Params != nil {
		if err := utils.UnmarshalConfig(item.Params, metadataConfig); err != nil {
			logger.Error("Failed to unmarshal Metadata middleware config", zap.Error(err))
		}
	}

	return &MetadataMiddleware{
		name:           "metadata",
		weight:         item.Weight,
		logger:         logger,
		metadataConfig: metadataConfig,
	}
}

func (m *MetadataMiddleware) Name() string { return m.name }
func (m *MetadataMiddleware) Weight() int  { return m.weight }

func (m *MetadataMiddleware) Handle(ctx *fasthttp.RequestCtx, next func(*fasthttp.RequestCtx), _ *types.RouteConfig) {
	requestID := string(ctx.Request.Header.Peek(requestIDHeader))
	if requestID == "" && m.metadataConfig.GenerateRequestID {
		requestID = uuid.NewString()
		ctx.Request.Header.Set(requestIDHeader, requestID)
	}

	if requestID != "" {
		ctx.SetUserValue(RequestIDKey, requestID)
	}

	next(ctx)

	if requestID != "" {
		ctx.Response.Header.Set(requestIDHeader, requestID)
	}
}
