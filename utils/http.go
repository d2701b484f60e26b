package utils

import (
	"context"

	"github.com/valyala/fasthttp"

	"github.com/saiset-co/sai-travel/types"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func WriteJSON(ctx *fasthttp.RequestCtx, status int, payload interface{}) {
	body, err := Marshal(payload)
	if err != nil {
		CreateErrorResponse(ctx)
		return
	}

	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json; charset=utf-8")
	ctx.SetBody(body)
}

func WriteError(ctx *fasthttp.RequestCtx, status int, message string) {
	WriteJSON(ctx, status, errorBody{
		Error:   fasthttp.StatusMessage(status),
		Message: message,
	})
}

func CreateErrorResponse(ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(fasthttp.StatusInternalServerError)
	ctx.SetContentType("application/json")

	ctx.Response.Header.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	ctx.Response.Header.Set("Pragma", "no-cache")
	ctx.Response.Header.Set("Expires", "0")

	if requestID := string(ctx.Request.Header.Peek("X-Request-ID")); requestID != "" {
		ctx.Response.Header.Set("X-Request-ID", requestID)
	}

	ctx.SetBodyString(`{"error":"Internal Server Error","message":"An unexpected error occurred"}`)
}

// RequestContext returns the context the server attached to the request.
// The RequestCtx itself is pooled and must not outlive the handler, so a
// request served outside the server gets a background context instead.
func RequestContext(ctx *fasthttp.RequestCtx) context.Context {
	if c, ok := ctx.UserValue(types.RequestContextKey).(context.Context); ok {
		return c
	}
	return context.Background()
}
