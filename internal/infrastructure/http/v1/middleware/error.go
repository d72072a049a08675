package middleware

import (
	"maps"
	"net/http"

	"github.com/gin-gonic/gin"

	"adminnext/internal/core/apperror"
	appctx "adminnext/internal/core/context"
	"adminnext/internal/infrastructure/http/v1/dto"
	"adminnext/pkg/logger"
)

// ErrorHandler renders the last error recorded by a handler as a dto.ErrorResponse.
// Causes of server errors are logged and never sent to the client.
// A response already written by the handler is left alone.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		ctx := c.Request.Context()
		err := c.Errors.Last().Err

		appErr, ok := apperror.AsAppError(err)
		if !ok {
			appErr = apperror.NewInternal(err)
		}

		if appErr.HTTPStatus >= http.StatusInternalServerError {
			logger.Error(ctx, "request failed", "code", appErr.Code, "error", err)
		} else {
			logger.Debug(ctx, "request rejected", "code", appErr.Code, "message", appErr.Message)
		}

		body := dto.ErrorResponse{Code: appErr.Code, Message: appErr.Message, Details: maps.Clone(appErr.Details)}
		if appErr.Code == apperror.CodeInternal {
			body.Message = "Internal server error"
			body.Details = nil
		}
		if id := appctx.RequestID(ctx); id != "" {
			if body.Details == nil {
				body.Details = map[string]any{}
			}
			body.Details["request_id"] = id
		}
		c.JSON(appErr.HTTPStatus, body)
	}
}
