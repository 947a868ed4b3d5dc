package controllers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/vpkilab/vpki/core/pkg/errs"
	"github.com/vpkilab/vpki/core/pkg/helpers"
	"github.com/vpkilab/vpki/core/pkg/resources"
	"github.com/vpkilab/vpki/core/pkg/services"
)

type edgeHttpRoutes struct {
	nodes map[string]services.EdgeService
}

func NewEdgeHttpRoutes(nodes []services.EdgeService) *edgeHttpRoutes {
	indexed := make(map[string]services.EdgeService, len(nodes))
	for _, node := range nodes {
		indexed[node.NodeID()] = node
	}

	return &edgeHttpRoutes{
		nodes: indexed,
	}
}

type nodeUriParams struct {
	NodeID string `uri:"node" binding:"required"`
}

// node resolves the :node path parameter and tags the request with it.
func (r *edgeHttpRoutes) node(ctx *gin.Context) (services.EdgeService, bool) {
	var params nodeUriParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		ctx.JSON(400, gin.H{"err": err.Error()})
		return nil, false
	}

	edge, ok := r.nodes[params.NodeID]
	if !ok {
		ctx.JSON(404, gin.H{"err": errs.ErrEdgeNodeNotFound.Error()})
		return nil, false
	}

	ctx.Set(helpers.CtxNodeID, params.NodeID)
	return edge, true
}

// @Summary Edge Lookup
// @Description Validity of a certificate as seen by an edge node
// @Produce json
// @Param node path string true "Edge node ID"
// @Param sn path string true "Serial number"
// @Success 200 {object} models.Validity
// @Failure 404 {string} string "Edge node not found || Certificate not found"
// @Failure 503 {string} string "Edge backend unavailable"
// @Router /edge/{node}/certificates/{sn} [get]
func (r *edgeHttpRoutes) Lookup(ctx *gin.Context) {
	edge, ok := r.node(ctx)
	if !ok {
		return
	}

	validity, err := edge.Lookup(ctx, services.LookupInput{
		SerialNumber: ctx.Param("sn"),
	})
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrValidateBadRequest):
			ctx.JSON(400, gin.H{"err": err.Error()})
		case errors.Is(err, errs.ErrCertificateNotFound):
			ctx.JSON(404, gin.H{"err": err.Error()})
		case errors.Is(err, errs.ErrEdgeBackendUnavailable):
			ctx.JSON(503, gin.H{"err": err.Error()})
		default:
			ctx.JSON(500, gin.H{"err": err.Error()})
		}
		return
	}

	ctx.JSON(200, validity)
}

func (r *edgeHttpRoutes) GetStats(ctx *gin.Context) {
	edge, ok := r.node(ctx)
	if !ok {
		return
	}

	ctx.JSON(200, edge.GetStats(ctx))
}

func (r *edgeHttpRoutes) SetDegraded(ctx *gin.Context) {
	edge, ok := r.node(ctx)
	if !ok {
		return
	}

	var requestBody resources.SetDegradedBody
	if err := ctx.ShouldBindJSON(&requestBody); err != nil {
		ctx.JSON(400, gin.H{"err": err.Error()})
		return
	}

	edge.SetDegraded(ctx, *requestBody.Degraded)
	ctx.JSON(200, resources.SetDegradedResponse{
		NodeID:   edge.NodeID(),
		Degraded: *requestBody.Degraded,
	})
}
