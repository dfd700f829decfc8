package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/farmhub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

// error codes carried in every failure body
const (
	CodeValidation        = "ValidationError"
	CodeNotFound          = "NotFound"
	CodeParentNotFound    = "ParentNotFound"
	CodeInvalidParent     = "InvalidParent"
	CodeUnauthenticated   = "Unauthenticated"
	CodeForbidden         = "Forbidden"
	CodeConflict          = "Conflict"
	CodeVersionMismatch   = "VersionMismatch"
	CodePayloadTooLarge   = "PayloadTooLarge"
	CodeStorage           = "StorageError"
	CodeUnknownCategory   = "UnknownCategory"
	CodeSelfDeletion      = "SelfDeletion"
	CodeInvalidCredential = "InvalidCredentials"
)

type APIError struct {
	Message   string `json:"message"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
	Details   any    `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	if id := ctx.GetString(middlewares.CtxRequestID); id != "" {
		return id
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, details any) {
	ctx.AbortWithStatusJSON(status, APIError{
		Message:   message,
		Code:      code,
		RequestID: requestIDFrom(ctx),
		Details:   details,
	})
}

func RespondBadRequest(ctx *gin.Context, code, message string, details any) {
	RespondError(ctx, http.StatusBadRequest, code, message, details)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, CodeNotFound, message, nil)
}

func RespondUnauthorized(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusUnauthorized, code, message, nil)
}

func RespondForbidden(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusForbidden, CodeForbidden, message, nil)
}

func RespondConflict(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusConflict, CodeConflict, message, nil)
}

// RespondInternal logs the cause and answers with a generic message; storage
// details never reach the caller.
func RespondInternal(ctx *gin.Context, message string, err error) {
	if err != nil {
		_ = ctx.Error(err)
		slog.ErrorContext(ctx.Request.Context(), message,
			"err", err,
			"request_id", requestIDFrom(ctx),
			"route", ctx.FullPath(),
		)
	}
	RespondError(ctx, http.StatusInternalServerError, CodeStorage, message, nil)
}

// opCtx bounds a handler's storage work by the request context and d.
func opCtx(ctx *gin.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Request.Context(), d)
}
