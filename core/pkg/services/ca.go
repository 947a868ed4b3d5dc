package services

import (
	"context"
	"time"

	"github.com/vpkilab/vpki/core/pkg/models"
)

type CAService interface {
	GetStats(ctx context.Context) (*models.CAStats, error)

	IssueCertificate(ctx context.Context, input IssueCertificateInput) (*models.Certificate, error)
	RevokeCertificate(ctx context.Context, input RevokeCertificateInput) (*models.Certificate, error)
	RenewCertificate(ctx context.Context, input RenewCertificateInput) (*models.Certificate, error)
	ValidateCertificate(ctx context.Context, input ValidateCertificateInput) (models.CertificateStatus, error)
	GetCertificateBySerialNumber(ctx context.Context, input GetCertificateBySerialNumberInput) (*models.Certificate, error)
	ArchiveCertificates(ctx context.Context, input ArchiveCertificatesInput) ([]*models.Certificate, error)
}

type IssueCertificateInput struct {
	Subject   string `validate:"required"`
	PublicKey []byte `validate:"required"`
	// Validity falls back to the CA default when zero.
	Validity time.Duration `validate:"gte=0"`
}

type RevokeCertificateInput struct {
	SerialNumber string `validate:"required"`
}

type RenewCertificateInput struct {
	SerialNumber string `validate:"required"`
	// PublicKey falls back to the key of the renewed certificate when empty.
	PublicKey []byte
	Validity  time.Duration `validate:"gte=0"`
}

type ValidateCertificateInput struct {
	SerialNumber string `validate:"required"`
}

type GetCertificateBySerialNumberInput struct {
	SerialNumber string `validate:"required"`
}

type ArchiveCertificatesInput struct {
	// RetentionWindow is how long a revoked or expired certificate is kept
	// before being archived.
	RetentionWindow time.Duration `validate:"gte=0"`
}
