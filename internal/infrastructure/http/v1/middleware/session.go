package middleware

import (
	"github.com/gin-gonic/gin"

	"adminnext/internal/infrastructure/storage/sqldb"
	"adminnext/pkg/logger"
)

const sessionKey = "db_session"

// DBSession opens one database session per request and injects it into the context.
// This middleware MUST run before any handler that touches the database.
//
// The session is closed when the handler chain returns; a transaction the handler
// did not commit is rolled back.
func DBSession(db *sqldb.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := db.NewSession()
		defer func() {
			if err := sess.Close(); err != nil {
				logger.Warn(c.Request.Context(), "session close failed", "error", err)
			}
		}()

		ctx := sqldb.WithSession(c.Request.Context(), sess)
		c.Request = c.Request.WithContext(ctx)

		// Also set in Gin context for handlers that use c.Get()
		c.Set(sessionKey, sess)

		c.Next()
	}
}

// GetSession retrieves the request session from Gin context.
// Returns nil if DBSession did not run.
func GetSession(c *gin.Context) *sqldb.Session {
	if v, exists := c.Get(sessionKey); exists {
		if sess, ok := v.(*sqldb.Session); ok {
			return sess
		}
	}
	if sess, ok := sqldb.SessionFromContext(c.Request.Context()); ok {
		return sess
	}
	return nil
}
