package api

import (
	"sync"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/verdantlabs/cropsight/api/dataset"
	"github.com/verdantlabs/cropsight/api/health"
	"github.com/verdantlabs/cropsight/api/mlmodels"
	"github.com/verdantlabs/cropsight/api/performance"
	"github.com/verdantlabs/cropsight/api/training"
	"github.com/verdantlabs/cropsight/api/types"
	"github.com/verdantlabs/cropsight/api/version"
	_ "github.com/verdantlabs/cropsight/docs/swagger"
)

// RegisterRoutes registers all API routes
func RegisterRoutes(engine *gin.Engine, deps *types.Dependencies, rateLimiters *sync.Map, cleanupStop chan struct{}, cleanupInitialized *sync.Once) error {
	if deps == nil {
		deps = &types.Dependencies{}
	}

	// Register public routes (no rate limiting)
	health.RegisterRoutes(engine, deps)
	version.RegisterRoutes(engine, deps)

	// Register Swagger documentation route
	engine.GET("/docs", func(c *gin.Context) {
		c.Redirect(301, "/docs/index.html")
	})
	docsGroup := engine.Group("/docs")
	docsGroup.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Setup 404 handler
	engine.NoRoute(NotFoundHandler())

	// API v1 routes
	v1 := engine.Group("/api/v1")

	if deps.DatasetStore != nil && deps.StagingArea != nil {
		// Uploads move image batches; keep the limit low (2 req/s, burst of 5)
		datasetGroup := v1.Group("/dataset")
		datasetGroup.Use(PerClientRateLimit(rateLimiters, cleanupStop, cleanupInitialized, 2, 5))
		dataset.RegisterRoutes(datasetGroup, deps)
	}

	if deps.ExperimentService != nil {
		// Training orchestration is admin traffic (10 req/s, burst of 20)
		trainingGroup := v1.Group("/training")
		trainingGroup.Use(PerClientRateLimit(rateLimiters, cleanupStop, cleanupInitialized, 10, 20))
		training.RegisterRoutes(trainingGroup, deps)
	}

	if deps.Tracker != nil {
		// Prediction logging is the hot path (50 req/s, burst of 100)
		performanceGroup := v1.Group("/performance")
		performanceGroup.Use(PerClientRateLimit(rateLimiters, cleanupStop, cleanupInitialized, 50, 100))
		performance.RegisterRoutes(performanceGroup, deps)
	}

	if deps.ModelRegistry != nil {
		modelsGroup := v1.Group("/models")
		modelsGroup.Use(PerClientRateLimit(rateLimiters, cleanupStop, cleanupInitialized, 10, 20))
		mlmodels.RegisterRoutes(modelsGroup, deps)
	}

	return nil
}

// NotFoundHandler handles 404 errors
func NotFoundHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(404, gin.H{
			"status":  "error",
			"message": "The requested endpoint was not found",
			"path":    c.Request.URL.Path,
		})
	}
}
