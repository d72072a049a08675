// Package middleware provides HTTP middleware components.
package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"adminnext/internal/core/apperror"
	appctx "adminnext/internal/core/context"
	"adminnext/pkg/logger"
)

// Recovery turns a panic into a 500 response. The stack goes to the log and the
// request span, never to the client. It must run after Trace.
//
// The response is written here because middleware between this one and the
// handler, ErrorHandler included, is unwound by the panic.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			ctx := c.Request.Context()
			err := apperror.NewInternal(fmt.Errorf("panic: %v", rec))

			logger.Error(ctx, "panic recovered",
				"error", rec,
				"route", c.FullPath(),
				"model", c.Param("model"),
				"stack", string(debug.Stack()),
			)

			span := trace.SpanFromContext(ctx)
			span.RecordError(err, trace.WithStackTrace(true))
			span.SetStatus(codes.Error, "panic")

			_ = c.Error(err)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"code":    apperror.CodeInternal,
				"message": "Internal server error",
				"details": gin.H{"request_id": appctx.RequestID(ctx)},
			})
		}()
		c.Next()
	}
}
