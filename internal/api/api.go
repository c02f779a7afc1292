package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/recipebox/internal/backup"
	"github.com/pageza/recipebox/internal/middleware"
	"github.com/pageza/recipebox/internal/service"
)

// Deps are the services the HTTP API exposes. Backup, Health and
// ExtractLimiter are optional.
type Deps struct {
	Collection     *service.Collection
	Extractor      *service.Extractor
	Backup         backup.Target
	Health         func(ctx context.Context) error
	ExtractLimiter *middleware.RateLimiter
}

// SetupAPI registers every route under /api/v1.
func SetupAPI(router *gin.Engine, deps Deps) {
	router.GET("/health", healthHandler(deps.Health))

	v1 := router.Group("/api/v1")
	{
		NewRecipeHandler(deps.Collection).RegisterRoutes(v1)
		var limits []gin.HandlerFunc
		if deps.ExtractLimiter != nil {
			limits = append(limits, deps.ExtractLimiter.Middleware())
		}
		NewExtractionHandler(deps.Extractor).RegisterRoutes(v1, limits...)
		NewBackupHandler(deps.Collection, deps.Backup).RegisterRoutes(v1)
	}
}

func healthHandler(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			if err := check(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
