package storage

import (
	"context"

	"github.com/vpkilab/vpki/core/pkg/models"
)

type CertificatesRepo interface {
	Count(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context, status models.CertificateStatus) (int, error)
	SelectExistsBySerialNumber(ctx context.Context, serialNumber string) (bool, *models.Certificate, error)
	SelectByStatus(ctx context.Context, status models.CertificateStatus, applyFunc func(models.Certificate)) error
	Insert(ctx context.Context, certificate *models.Certificate) (*models.Certificate, error)
	Update(ctx context.Context, certificate *models.Certificate) (*models.Certificate, error)
	Delete(ctx context.Context, serialNumber string) error
}
