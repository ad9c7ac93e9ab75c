// Package api assembles the HTTP surface: routing, middleware and
// request handlers.
package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/use-agent/glimpse/api/handler"
	"github.com/use-agent/glimpse/config"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain: Recovery → Logger → CORS (allow-all, the service is
// meant to sit behind a private gateway).
func NewRouter(p handler.ContentExtractor, pool handler.PoolReporter, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(cors.Default())

	r.POST("/extract-content", handler.ExtractContent(p))

	v1 := r.Group("/api/v1")
	v1.GET("/health", handler.Health(pool, startTime))

	return r
}
