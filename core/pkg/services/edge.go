package services

import (
	"context"

	"github.com/vpkilab/vpki/core/pkg/models"
)

// CacheInvalidator is notified synchronously by the CA when a certificate
// stops being valid.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, serialNumber string)
}

type EdgeService interface {
	CacheInvalidator

	NodeID() string
	Lookup(ctx context.Context, input LookupInput) (*models.Validity, error)
	SetDegraded(ctx context.Context, degraded bool)
	GetStats(ctx context.Context) *models.EdgeStats
}

type LookupInput struct {
	SerialNumber string `validate:"required"`
}
