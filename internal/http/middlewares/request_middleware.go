package middlewares

import (
	"log/slog"
	"time"

	"github.com/geocoder89/farmhub/internal/actorctx"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-Id"

func RequestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := ctx.GetHeader(requestIDHeader)

		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		ctx.Writer.Header().Set(requestIDHeader, id)

		ctx.Set(CtxRequestID, id)

		ctx.Next()
	}
}

func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		route := ctx.FullPath()
		if route == "" {
			route = ctx.Request.URL.Path // 404s have no route
		}

		method := ctx.Request.Method

		ctx.Next()

		logAttrs := []any{
			"method", method,
			"route", route,
			"status", ctx.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"request_id", ctx.GetString(CtxRequestID),
		}

		if userID, ok := actorctx.UserIDFrom(ctx.Request.Context()); ok {
			logAttrs = append(logAttrs, "user_id", userID)
		}

		if len(ctx.Errors) > 0 {
			logAttrs = append(logAttrs, "err", ctx.Errors.String())
		}

		level := slog.LevelInfo
		if ctx.Writer.Status() >= 500 {
			level = slog.LevelError
		}

		log.Log(ctx.Request.Context(), level, "http_request", logAttrs...)
	}
}
