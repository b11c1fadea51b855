package performance

import (
	"github.com/gin-gonic/gin"

	"github.com/verdantlabs/cropsight/api/types"
)

// RegisterRoutes registers performance tracking routes
func RegisterRoutes(group *gin.RouterGroup, deps *types.Dependencies) {
	group.POST("/predictions", LogPrediction(deps))
	group.GET("/metrics/overall", GetOverallMetrics(deps))
	group.GET("/metrics/classes", GetClassMetrics(deps))
	group.GET("/metrics/models", GetModelMetrics(deps))
	group.GET("/trends", GetDailyTrends(deps))
	group.POST("/confusion-matrix", GetConfusionMatrix(deps))
	group.GET("/low-confidence", GetLowConfidence(deps))
	group.GET("/drift", GetDrift(deps))
}
