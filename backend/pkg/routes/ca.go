package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/vpkilab/vpki/backend/pkg/controllers"
	"github.com/vpkilab/vpki/core/pkg/services"
)

func NewCAHTTPLayer(parentRouterGroup *gin.RouterGroup, svc services.CAService) {
	routes := controllers.NewCAHttpRoutes(svc)

	rv1 := parentRouterGroup.Group("/v1")

	rv1.GET("/stats", routes.GetStats)

	rv1.POST("/certificates", routes.IssueCertificate)
	rv1.POST("/certificates/archive", routes.ArchiveCertificates)
	rv1.GET("/certificates/:sn", routes.GetCertificateBySerialNumber)
	rv1.GET("/certificates/:sn/status", routes.ValidateCertificate)
	rv1.POST("/certificates/:sn/revoke", routes.RevokeCertificate)
	rv1.POST("/certificates/:sn/renew", routes.RenewCertificate)
}
