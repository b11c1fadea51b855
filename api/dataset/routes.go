package dataset

import (
	"github.com/gin-gonic/gin"

	"github.com/verdantlabs/cropsight/api/types"
)

// RegisterRoutes registers dataset lifecycle routes
func RegisterRoutes(group *gin.RouterGroup, deps *types.Dependencies) {
	group.POST("/upload", Upload(deps))
	group.GET("/staging", GetStaging(deps))
	group.POST("/commit", Commit(deps))
	group.GET("/versions", ListVersions(deps))
	group.GET("/versions/:name", GetVersion(deps))
	group.POST("/manifest", ExportManifest(deps))
	group.GET("/classes", GetClasses(deps))
	group.GET("/statistics", GetStatistics(deps))
}
