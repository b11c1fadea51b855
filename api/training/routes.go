package training

import (
	"github.com/gin-gonic/gin"

	"github.com/verdantlabs/cropsight/api/types"
)

// RegisterRoutes registers training orchestration routes
func RegisterRoutes(group *gin.RouterGroup, deps *types.Dependencies) {
	group.POST("/configs", CreateConfig(deps))
	group.GET("/configs", ListConfigs(deps))
	group.GET("/configs/:name", GetConfig(deps))

	group.POST("/experiments", ScheduleExperiment(deps))
	group.POST("/experiments/quick", QuickExperiment(deps))
	group.GET("/experiments", ListExperiments(deps))
	group.GET("/experiments/compare", CompareExperiments(deps))
	group.GET("/experiments/best", BestExperiment(deps))
	group.GET("/experiments/:id", GetExperiment(deps))
	group.POST("/experiments/:id/start", StartExperiment(deps))
	group.POST("/experiments/:id/cancel", CancelExperiment(deps))

	group.POST("/retrain-check", RetrainCheck(deps))
}
