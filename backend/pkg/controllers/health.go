package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/vpkilab/vpki/core/pkg/models"
	"github.com/vpkilab/vpki/core/pkg/services"
)

type hcheckRoute struct {
	info   models.APIServiceInfo
	ledger services.LedgerService
}

// NewHealthCheckRoute reports unhealthy once the ledger has halted mining
// after an integrity violation. ledger may be nil.
func NewHealthCheckRoute(info models.APIServiceInfo, ledger services.LedgerService) *hcheckRoute {
	return &hcheckRoute{
		info:   info,
		ledger: ledger,
	}
}

func (r *hcheckRoute) HealthCheck(ctx *gin.Context) {
	healthy := true
	if r.ledger != nil {
		stats, err := r.ledger.GetStats(ctx)
		healthy = err == nil && !stats.Halted
	}

	code := 200
	if !healthy {
		code = 503
	}

	ctx.JSON(code, gin.H{
		"health":     healthy,
		"version":    r.info.Version,
		"build":      r.info.BuildSHA,
		"build_time": r.info.BuildTime,
	})
}
