package router

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/theb0imanuu/PharmaCheck/internal/server/handlers"
)

// New wires the Gin engine with required routes and middlewares. Every /api
// route sits behind the bearer-token gate; /healthz does not.
func New(inv *handlers.InventoryHandler, sales *handlers.SaleHandler, ai *handlers.AIHandler, authToken string, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api", bearerAuthMiddleware(authToken))

	api.GET("/inventory", inv.List)
	api.POST("/inventory", inv.Create)
	api.PUT("/inventory/:id", inv.Update)
	api.POST("/inventory/:id/restock", inv.Restock)
	api.DELETE("/inventory/:id", inv.Delete)

	api.POST("/inventory/sale", sales.Submit)
	api.POST("/inventory/sync", sales.Sync)

	api.GET("/ai/predict", ai.Predict)

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

// bearerAuthMiddleware is the opaque request-authorization gate. Real
// identity handling lives outside this service.
func bearerAuthMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		provided, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authorized"})
			return
		}
		c.Next()
	}
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
