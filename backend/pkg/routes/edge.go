package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/vpkilab/vpki/backend/pkg/controllers"
	"github.com/vpkilab/vpki/core/pkg/services"
)

func NewEdgeHTTPLayer(parentRouterGroup *gin.RouterGroup, nodes []services.EdgeService) {
	routes := controllers.NewEdgeHttpRoutes(nodes)

	rv1 := parentRouterGroup.Group("/v1/edge/:node")
	rv1.GET("/certificates/:sn", routes.Lookup)
	rv1.GET("/stats", routes.GetStats)
	rv1.PUT("/degraded", routes.SetDegraded)
}
