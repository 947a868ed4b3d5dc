package controllers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/vpkilab/vpki/core/pkg/errs"
	"github.com/vpkilab/vpki/core/pkg/resources"
	"github.com/vpkilab/vpki/core/pkg/services"
)

type ledgerHttpRoutes struct {
	svc services.LedgerService
}

func NewLedgerHttpRoutes(svc services.LedgerService) *ledgerHttpRoutes {
	return &ledgerHttpRoutes{
		svc: svc,
	}
}

func (r *ledgerHttpRoutes) GetStats(ctx *gin.Context) {
	stats, err := r.svc.GetStats(ctx)
	if err != nil {
		ctx.JSON(500, gin.H{"err": err.Error()})
		return
	}

	ctx.JSON(200, stats)
}

// @Summary Mine
// @Description Seal every pending transaction into a new block
// @Produce json
// @Success 201 {object} models.Block
// @Success 204 "Nothing pending"
// @Failure 409 {string} string "Chain integrity violation"
// @Router /ledger/mine [post]
func (r *ledgerHttpRoutes) Mine(ctx *gin.Context) {
	block, err := r.svc.Mine(ctx)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrChainIntegrityViolation):
			ctx.JSON(409, gin.H{"err": err.Error()})
		default:
			ctx.JSON(500, gin.H{"err": err.Error()})
		}
		return
	}

	if block == nil {
		ctx.Status(204)
		return
	}

	ctx.JSON(201, block)
}

func (r *ledgerHttpRoutes) Prune(ctx *gin.Context) {
	pruned, err := r.svc.Prune(ctx)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrChainIntegrityViolation):
			ctx.JSON(409, gin.H{"err": err.Error()})
		default:
			ctx.JSON(500, gin.H{"err": err.Error()})
		}
		return
	}

	ctx.JSON(200, resources.PruneResponse{Pruned: pruned})
}

func (r *ledgerHttpRoutes) VerifyIntegrity(ctx *gin.Context) {
	err := r.svc.VerifyIntegrity(ctx)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrChainIntegrityViolation):
			ctx.JSON(409, resources.VerifyLedgerResponse{Valid: false, Error: err.Error()})
		default:
			ctx.JSON(500, gin.H{"err": err.Error()})
		}
		return
	}

	ctx.JSON(200, resources.VerifyLedgerResponse{Valid: true})
}

// GetBlock serves active blocks and falls back to the archive for pruned ones.
func (r *ledgerHttpRoutes) GetBlock(ctx *gin.Context) {
	type uriParams struct {
		Index uint64 `uri:"index"`
	}

	var params uriParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		ctx.JSON(400, gin.H{"err": err.Error()})
		return
	}

	block, err := r.svc.GetBlock(ctx, params.Index)
	if err == nil {
		ctx.JSON(200, block)
		return
	}

	if !errors.Is(err, errs.ErrBlockNotFound) {
		ctx.JSON(500, gin.H{"err": err.Error()})
		return
	}

	archived, err := r.svc.GetArchivedBlock(ctx, params.Index)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrArchivedBlockNotFound):
			ctx.JSON(404, gin.H{"err": errs.ErrBlockNotFound.Error()})
		default:
			ctx.JSON(500, gin.H{"err": err.Error()})
		}
		return
	}

	ctx.JSON(200, archived)
}

func (r *ledgerHttpRoutes) FindTransaction(ctx *gin.Context) {
	type uriParams struct {
		ID string `uri:"id" binding:"required"`
	}

	var params uriParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		ctx.JSON(400, gin.H{"err": err.Error()})
		return
	}

	location, err := r.svc.FindTransaction(ctx, params.ID)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrTransactionNotFound):
			ctx.JSON(404, gin.H{"err": err.Error()})
		default:
			ctx.JSON(500, gin.H{"err": err.Error()})
		}
		return
	}

	ctx.JSON(200, location)
}
