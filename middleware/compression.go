package middleware

import (
	"bytes"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-travel/types"
	"github.com/saiset-co/sai-travel/utils"
)

const (
	AlgorithmGzip    = "gzip"
	AlgorithmDeflate = "deflate"
	AlgorithmBrotli  = "br"
	DefaultLevel     = 6
	DefaultThreshold = 1024
)

// CompressionMiddleware encodes response bodies above the threshold with
// the configured algorithm when the client accepts it.
type CompressionMiddleware struct {
	logger            types.Logger
	compressionConfig *CompressionConfig
	name              string
	weight            int
	bufferPool        sync.Pool
	brotliPool        sync.Pool
	compress          func(dst *bytes.Buffer, body []byte) error
}

type CompressionConfig struct {
	Algorithm    string   `json:"algorithm"`
	Level        int      `json:"level"`
	Threshold    int      `json:"threshold"`
	AllowedTypes []string `json:"allowed_types"`
}

func defaultCompressionConfig() *CompressionConfig {
	return &CompressionConfig{
		Algorithm: AlgorithmBrotli,
		Level:     DefaultLevel,
		Threshold: DefaultThreshold,
		AllowedTypes: []string{
			"application/json",
			"text/*",
		},
	}
}

func NewCompressionMiddleware(item *types.MiddlewareItemConfig, logger types.Logger) *CompressionMiddleware {
	compressionConfig := defaultCompressionConfig()

	if item.Params != nil {
		if err := utils.UnmarshalConfig(item.Params, compressionConfig); err != nil {
			logger.Error("Failed to unmarshal Compression middleware config", zap.Error(err))
		}
	}

	if err := validateCompressionConfig(compressionConfig); err != nil {
		logger.Warn("Invalid compression config, using defaults", zap.Error(err))
		compressionConfig = defaultCompressionConfig()
	}

	cm := &CompressionMiddleware{
		name:              "compression",
		weight:            item.Weight,
		logger:            logger,
		compressionConfig: compressionConfig,
		bufferPool: sync.Pool{
			New: func() interface{} {
				return new(bytes.Buffer)
			},
		},
	}

	level := compressionConfig.Level
	cm.brotliPool.New = func() interface{} {
		return brotli.NewWriterLevel(nil, level)
	}

	switch compressionConfig.Algorithm {
	case AlgorithmGzip:
		cm.compress = func(dst *bytes.Buffer, body []byte) error {
			dst.Write(fasthttp.AppendGzipBytesLevel(nil, body, level))
			return nil
		}
	case AlgorithmDeflate:
		cm.compress = func(dst *bytes.Buffer, body []byte) error {
			dst.Write(fasthttp.AppendDeflateBytesLevel(nil, body, level))
			return nil
		}
	default:
		cm.compress = cm.compressBrotli
	}

	return cm
}

func validateCompressionConfig(config *CompressionConfig) error {
	switch config.Algorithm {
	case AlgorithmGzip, AlgorithmDeflate:
		if config.Level < 1 || config.Level > 9 {
			return types.Errorf(types.ErrInvalidParameter, "compression level %d must be between 1 and 9", config.Level)
		}
	case AlgorithmBrotli:
		if config.Level < 0 || config.Level > 11 {
			return types.Errorf(types.ErrInvalidParameter, "brotli level %d must be between 0 and 11", config.Level)
		}
	default:
		return types.Errorf(types.ErrInvalidParameter, "unsupported algorithm: %s", config.Algorithm)
	}

	if config.Threshold < 0 {
		return types.Errorf(types.ErrInvalidParameter, "threshold %d must be >= 0", config.Threshold)
	}

	return nil
}

func (c *CompressionMiddleware) Name() string { return c.name }
func (c *CompressionMiddleware) Weight() int  { return c.weight }

func (c *CompressionMiddleware) Handle(ctx *fasthttp.RequestCtx, next func(*fasthttp.RequestCtx), _ *types.RouteConfig) {
	next(ctx)

	if !acceptsEncoding(ctx.Request.Header.Peek(fasthttp.HeaderAcceptEncoding), c.compressionConfig.Algorithm) {
		return
	}
	if len(ctx.Response.Header.Peek(fasthttp.HeaderContentEncoding)) > 0 {
		return
	}

	body := ctx.Response.Body()
	if len(body) < c.compressionConfig.Threshold || !c.allowedType(ctx.Response.Header.ContentType()) {
		return
	}

	buf := c.bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer c.bufferPool.Put(buf)

	if err := c.compress(buf, body); err != nil {
		c.logger.Warn("Response compression failed", zap.Error(err), zap.ByteString("path", ctx.Path()))
		return
	}

	if buf.Len() >= len(body) {
		return
	}

	ctx.Response.SetBody(buf.Bytes())
	ctx.Response.Header.Set(fasthttp.HeaderContentEncoding, c.compressionConfig.Algorithm)
	ctx.Response.Header.Add(fasthttp.HeaderVary, fasthttp.HeaderAcceptEncoding)
}

func (c *CompressionMiddleware) compressBrotli(dst *bytes.Buffer, body []byte) error {
	writer := c.brotliPool.Get().(*brotli.Writer)
	defer c.brotliPool.Put(writer)

	writer.Reset(dst)
	if _, err := writer.Write(body); err != nil {
		return err
	}
	return writer.Close()
}

func (c *CompressionMiddleware) allowedType(contentType []byte) bool {
	ct := string(contentType)
	if semicolon := strings.IndexByte(ct, ';'); semicolon != -1 {
		ct = ct[:semicolon]
	}
	ct = strings.TrimSpace(strings.ToLower(ct))

	for _, allowed := range c.compressionConfig.AllowedTypes {
		if allowed == ct {
			return true
		}
		if prefix, ok := strings.CutSuffix(allowed, "*"); ok && strings.HasPrefix(ct, prefix) {
			return true
		}
	}
	return false
}

func acceptsEncoding(header []byte, algorithm string) bool {
	for _, part := range strings.Split(string(header), ",") {
		token := strings.TrimSpace(part)
		if semicolon := strings.IndexByte(token, ';'); semicolon != -1 {
			token = strings.TrimSpace(token[:semicolon])
		}
		if token == algorithm {
			return true
		}
	}
	return false
}
