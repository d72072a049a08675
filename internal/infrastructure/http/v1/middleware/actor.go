package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	appctx "adminnext/internal/core/context"
)

// HeaderActor names the operator for audit entries. It is not authenticated.
const HeaderActor = "X-Admin-Actor"

// Actor adds the calling operator to the request context.
//
// The domain layer reads it via appctx.GetActorName(ctx) when writing audit entries.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := &appctx.Actor{
			Name:      strings.TrimSpace(c.GetHeader(HeaderActor)),
			ClientIP:  c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}
		ctx := appctx.WithActor(c.Request.Context(), actor)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
