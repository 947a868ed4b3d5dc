package controllers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/vpkilab/vpki/core/pkg/errs"
	"github.com/vpkilab/vpki/core/pkg/resources"
	"github.com/vpkilab/vpki/core/pkg/services"
)

type caHttpRoutes struct {
	svc services.CAService
}

func NewCAHttpRoutes(svc services.CAService) *caHttpRoutes {
	return &caHttpRoutes{
		svc: svc,
	}
}

type serialNumberUriParams struct {
	SerialNumber string `uri:"sn" binding:"required"`
}

// caErrorStatus maps CA and ledger sentinels to response codes.
func caErrorStatus(err error) int {
	switch {
	case errors.Is(err, errs.ErrValidateBadRequest):
		return 400
	case errors.Is(err, errs.ErrCertificateNotFound):
		return 404
	case errors.Is(err, errs.ErrCertificateAlreadyRevoked),
		errors.Is(err, errs.ErrCertificateExpired),
		errors.Is(err, errs.ErrCertificateStatusTransitionNotAllowed),
		errors.Is(err, errs.ErrDuplicateSerial):
		return 409
	case errors.Is(err, errs.ErrPoolSaturated):
		return 503
	default:
		return 500
	}
}

func (r *caHttpRoutes) GetStats(ctx *gin.Context) {
	stats, err := r.svc.GetStats(ctx)
	if err != nil {
		ctx.JSON(500, gin.H{"err": err.Error()})
		return
	}

	ctx.JSON(200, stats)
}

// @Summary Issue Certificate
// @Description Issue a short lived certificate for a vehicle public key
// @Accept json
// @Produce json
// @Param message body resources.IssueCertificateBody true "Certificate request"
// @Success 201 {object} models.Certificate
// @Failure 400 {string} string "Struct Validation error"
// @Failure 503 {string} string "Pending transaction pool saturated"
// @Failure 500
// @Router /certificates [post]
func (r *caHttpRoutes) IssueCertificate(ctx *gin.Context) {
	var requestBody resources.IssueCertificateBody
	if err := ctx.BindJSON(&requestBody); err != nil {
		ctx.JSON(400, gin.H{"err": err.Error()})
		return
	}

	validity, err := resources.ParseValidity(requestBody.Validity)
	if err != nil {
		ctx.JSON(400, gin.H{"err": err.Error()})
		return
	}

	cert, err := r.svc.IssueCertificate(ctx, services.IssueCertificateInput{
		Subject:   requestBody.Subject,
		PublicKey: requestBody.PublicKey,
		Validity:  validity,
	})
	if err != nil {
		ctx.JSON(caErrorStatus(err), gin.H{"err": err.Error()})
		return
	}

	ctx.JSON(201, cert)
}

func (r *caHttpRoutes) GetCertificateBySerialNumber(ctx *gin.Context) {
	var params serialNumberUriParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		ctx.JSON(400, gin.H{"err": err.Error()})
		return
	}

	cert, err := r.svc.GetCertificateBySerialNumber(ctx, services.GetCertificateBySerialNumberInput{
		SerialNumber: params.SerialNumber,
	})
	if err != nil {
		ctx.JSON(caErrorStatus(err), gin.H{"err": err.Error()})
		return
	}

	ctx.JSON(200, cert)
}

// @Summary Validate Certificate
// @Description Current status of a certificate, expiry derived from the clock
// @Produce json
// @Param sn path string true "Serial number"
// @Success 200 {object} resources.ValidateCertificateResponse
// @Failure 404 {string} string "Certificate not found"
// @Router /certificates/{sn}/status [get]
func (r *caHttpRoutes) ValidateCertificate(ctx *gin.Context) {
	var params serialNumberUriParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		ctx.JSON(400, gin.H{"err": err.Error()})
		return
	}

	status, err := r.svc.ValidateCertificate(ctx, services.ValidateCertificateInput{
		SerialNumber: params.SerialNumber,
	})
	if err != nil {
		ctx.JSON(caErrorStatus(err), gin.H{"err": err.Error()})
		return
	}

	ctx.JSON(200, resources.ValidateCertificateResponse{
		SerialNumber: params.SerialNumber,
		Status:       status,
	})
}

// @Summary Revoke Certificate
// @Description Revoke an active certificate. Edge caches are invalidated before the response is sent
// @Produce json
// @Param sn path string true "Serial number"
// @Success 200 {object} models.Certificate
// @Failure 404 {string} string "Certificate not found"
// @Failure 409 {string} string "Certificate already revoked || Certificate is expired"
// @Router /certificates/{sn}/revoke [post]
func (r *caHttpRoutes) RevokeCertificate(ctx *gin.Context) {
	var params serialNumberUriParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		ctx.JSON(400, gin.H{"err": err.Error()})
		return
	}

	cert, err := r.svc.RevokeCertificate(ctx, services.RevokeCertificateInput{
		SerialNumber: params.SerialNumber,
	})
	if err != nil {
		ctx.JSON(caErrorStatus(err), gin.H{"err": err.Error()})
		return
	}

	ctx.JSON(200, cert)
}

func (r *caHttpRoutes) RenewCertificate(ctx *gin.Context) {
	var params serialNumberUriParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		ctx.JSON(400, gin.H{"err": err.Error()})
		return
	}

	var requestBody resources.RenewCertificateBody
	if ctx.Request.ContentLength > 0 {
		if err := ctx.BindJSON(&requestBody); err != nil {
			ctx.JSON(400, gin.H{"err": err.Error()})
			return
		}
	}

	validity, err := resources.ParseValidity(requestBody.Validity)
	if err != nil {
		ctx.JSON(400, gin.H{"err": err.Error()})
		return
	}

	cert, err := r.svc.RenewCertificate(ctx, services.RenewCertificateInput{
		SerialNumber: params.SerialNumber,
		PublicKey:    requestBody.PublicKey,
		Validity:     validity,
	})
	if err != nil {
		// the replacement exists even when revoking the old certificate failed
		if cert != nil {
			ctx.JSON(207, gin.H{"certificate": cert, "err": err.Error()})
			return
		}

		ctx.JSON(caErrorStatus(err), gin.H{"err": err.Error()})
		return
	}

	ctx.JSON(201, cert)
}

func (r *caHttpRoutes) ArchiveCertificates(ctx *gin.Context) {
	var requestBody resources.ArchiveCertificatesBody
	if ctx.Request.ContentLength > 0 {
		if err := ctx.BindJSON(&requestBody); err != nil {
			ctx.JSON(400, gin.H{"err": err.Error()})
			return
		}
	}

	window, err := resources.ParseValidity(requestBody.RetentionWindow)
	if err != nil {
		ctx.JSON(400, gin.H{"err": err.Error()})
		return
	}

	archived, err := r.svc.ArchiveCertificates(ctx, services.ArchiveCertificatesInput{
		RetentionWindow: window,
	})
	if err != nil {
		ctx.JSON(caErrorStatus(err), gin.H{"err": err.Error()})
		return
	}

	ctx.JSON(200, resources.ArchiveCertificatesResponse{Archived: archived})
}
