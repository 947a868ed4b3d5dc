package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vpkilab/vpki/backend/pkg/controllers"
	"github.com/vpkilab/vpki/core/pkg/services"
)

func NewLedgerHTTPLayer(parentRouterGroup *gin.RouterGroup, svc services.LedgerService) {
	routes := controllers.NewLedgerHttpRoutes(svc)

	rv1 := parentRouterGroup.Group("/v1/ledger")
	rv1.GET("/stats", routes.GetStats)
	rv1.POST("/mine", routes.Mine)
	rv1.POST("/prune", routes.Prune)
	rv1.GET("/verify", routes.VerifyIntegrity)
	rv1.GET("/blocks/:index", routes.GetBlock)
	rv1.GET("/transactions/:id", routes.FindTransaction)
}

// NewMetricsHTTPLayer exposes a prometheus scrape endpoint.
func NewMetricsHTTPLayer(parentRouterGroup *gin.RouterGroup, handler http.Handler) {
	parentRouterGroup.GET("/metrics", gin.WrapH(handler))
}
