package auditpub

import (
	"context"

	"github.com/vpkilab/vpki/backend/pkg/middlewares/eventpub"
	lservices "github.com/vpkilab/vpki/backend/pkg/services"
	"github.com/vpkilab/vpki/core/pkg/models"
	"github.com/vpkilab/vpki/core/pkg/services"
)

// CAAuditEventPublisher records every state changing CA call, including
// the rejected ones. Reads are not audited.
type CAAuditEventPublisher struct {
	next     services.CAService
	auditPub AuditPublisher
}

func NewCAAuditEventBusPublisher(audit AuditPublisher) lservices.CAMiddleware {
	return func(next services.CAService) services.CAService {
		return &CAAuditEventPublisher{
			next: next,
			auditPub: AuditPublisher{
				ICloudEventPublisher: eventpub.NewEventPublisherWithSourceMiddleware(audit, models.CASource),
			},
		}
	}
}

func (mw CAAuditEventPublisher) GetStats(ctx context.Context) (*models.CAStats, error) {
	return mw.next.GetStats(ctx)
}

func (mw CAAuditEventPublisher) IssueCertificate(ctx context.Context, input services.IssueCertificateInput) (output *models.Certificate, err error) {
	defer func() {
		mw.auditPub.HandleServiceOutputAndPublishAuditRecord(ctx, models.EventIssueCertificateKey, input, err, output)
	}()

	return mw.next.IssueCertificate(ctx, input)
}

func (mw CAAuditEventPublisher) RevokeCertificate(ctx context.Context, input services.RevokeCertificateInput) (output *models.Certificate, err error) {
	defer func() {
		mw.auditPub.HandleServiceOutputAndPublishAuditRecord(ctx, models.EventRevokeCertificateKey, input, err, output)
	}()

	return mw.next.RevokeCertificate(ctx, input)
}

func (mw CAAuditEventPublisher) RenewCertificate(ctx context.Context, input services.RenewCertificateInput) (output *models.Certificate, err error) {
	defer func() {
		mw.auditPub.HandleServiceOutputAndPublishAuditRecord(ctx, models.EventRenewCertificateKey, input, err, output)
	}()

	return mw.next.RenewCertificate(ctx, input)
}

func (mw CAAuditEventPublisher) ValidateCertificate(ctx context.Context, input services.ValidateCertificateInput) (models.CertificateStatus, error) {
	return mw.next.ValidateCertificate(ctx, input)
}

func (mw CAAuditEventPublisher) GetCertificateBySerialNumber(ctx context.Context, input services.GetCertificateBySerialNumberInput) (*models.Certificate, error) {
	return mw.next.GetCertificateBySerialNumber(ctx, input)
}

func (mw CAAuditEventPublisher) ArchiveCertificates(ctx context.Context, input services.ArchiveCertificatesInput) (output []*models.Certificate, err error) {
	defer func() {
		mw.auditPub.HandleServiceOutputAndPublishAuditRecord(ctx, models.EventArchiveCertificateKey, input, err, output)
	}()

	return mw.next.ArchiveCertificates(ctx, input)
}
