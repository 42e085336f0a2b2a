package routes

import (
	"log/slog"
	"net/http"

	"table-cache-api/internal/auth"
	"table-cache-api/internal/handlers"
	"table-cache-api/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupRoutes builds the gin engine for the table API.
func SetupRoutes(h *handlers.Handler, signer *auth.Signer, log *slog.Logger) *gin.Engine {
	ginRouter := gin.New()
	ginRouter.Use(gin.Recovery(), middleware.RequestLogger(log))

	// CORS middleware (for frontend integration)
	ginRouter.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Table cache API is running",
		})
	})

	// Public routes (no authentication required)
	api := ginRouter.Group("/api")
	{
		api.POST("/login", h.Login)
	}

	// Protected routes (authentication required)
	protectedRoutes := api.Group("")
	protectedRoutes.Use(middleware.JWTAuthMiddleware(signer))
	{
		protectedRoutes.GET("/tables", h.ListTables)
		protectedRoutes.GET("/tables/:table/records", h.ListRecords)
		protectedRoutes.GET("/tables/:table/records/:key", h.GetRecord)
		protectedRoutes.PUT("/tables/:table/records/:key", h.PutRecord)
		protectedRoutes.DELETE("/tables/:table/records/:key", h.DeleteRecord)
		protectedRoutes.POST("/tables/:table/sync", h.SyncTable)
		// Handle cache endpoints
		protectedRoutes.GET("/cache", h.CacheStats)
		protectedRoutes.DELETE("/tables/:table/cache", h.EvictTable)
		// Event stream
		protectedRoutes.GET("/ws", h.WebSocket)
	}

	return ginRouter
}
