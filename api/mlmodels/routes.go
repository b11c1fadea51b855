package mlmodels

import (
	"github.com/gin-gonic/gin"

	"github.com/verdantlabs/cropsight/api/types"
)

// RegisterRoutes registers model registry routes
func RegisterRoutes(group *gin.RouterGroup, deps *types.Dependencies) {
	group.POST("", Register(deps))
	group.GET("", List(deps))
	group.GET("/active", GetActive(deps))
	group.GET("/:id", Get(deps))
	group.POST("/:id/activate", Activate(deps))
}
