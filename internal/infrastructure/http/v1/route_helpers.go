package v1

import (
	"github.com/gin-gonic/gin"
)

// AdminRouteHandler defines the interface for the admin handler.
type AdminRouteHandler interface {
	Index(c *gin.Context)
	List(c *gin.Context)
	New(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	FilterOptions(c *gin.Context)
	Schema(c *gin.Context)
	History(c *gin.Context)
}

// RegisterAdminRoutes registers the generated admin routes. The model is addressed by
// name or table name in the first path segment.
//
// Usage:
//
//	handler := handlers.NewAdminHandler(baseHandler, service)
//	RegisterAdminRoutes(router.Group("/admin"), handler)
func RegisterAdminRoutes(group *gin.RouterGroup, handler AdminRouteHandler) {
	group.GET("/", handler.Index)
	group.GET("/:model", handler.List)
	group.POST("/:model", handler.Create)
	group.GET("/:model/new", handler.New)
	group.GET("/:model/schema", handler.Schema)
	group.GET("/:model/filters/:field", handler.FilterOptions)
	group.GET("/:model/:id/history", handler.History)
	group.GET("/:model/:id", handler.Get)
	group.PUT("/:model/:id", handler.Update)
	group.PATCH("/:model/:id", handler.Update)
}
