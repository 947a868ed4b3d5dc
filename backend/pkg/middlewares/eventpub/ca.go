package eventpub

import (
	"context"
	"fmt"

	lservices "github.com/vpkilab/vpki/backend/pkg/services"
	"github.com/vpkilab/vpki/core"
	"github.com/vpkilab/vpki/core/pkg/models"
	"github.com/vpkilab/vpki/core/pkg/services"
)

type CAEventPublisher struct {
	Next       services.CAService
	eventMWPub ICloudEventPublisher
}

func NewCAEventBusPublisher(eventMWPub ICloudEventPublisher) lservices.CAMiddleware {
	return func(next services.CAService) services.CAService {
		return &CAEventPublisher{
			Next:       next,
			eventMWPub: NewEventPublisherWithSourceMiddleware(eventMWPub, models.CASource),
		}
	}
}

func (mw CAEventPublisher) GetStats(ctx context.Context) (*models.CAStats, error) {
	return mw.Next.GetStats(ctx)
}

func (mw CAEventPublisher) IssueCertificate(ctx context.Context, input services.IssueCertificateInput) (output *models.Certificate, err error) {
	ctx = context.WithValue(ctx, core.VPKIContextKeyEventType, models.EventIssueCertificateKey)

	defer func() {
		if err == nil {
			ctx = context.WithValue(ctx, core.VPKIContextKeyEventSubject, fmt.Sprintf("certificate/%s", output.SerialNumber))
			mw.eventMWPub.PublishCloudEvent(ctx, output)
		}
	}()
	return mw.Next.IssueCertificate(ctx, input)
}

func (mw CAEventPublisher) RevokeCertificate(ctx context.Context, input services.RevokeCertificateInput) (output *models.Certificate, err error) {
	ctx = context.WithValue(ctx, core.VPKIContextKeyEventType, models.EventRevokeCertificateKey)
	ctx = context.WithValue(ctx, core.VPKIContextKeyEventSubject, fmt.Sprintf("certificate/%s", input.SerialNumber))

	defer func() {
		if err == nil {
			mw.eventMWPub.PublishCloudEvent(ctx, output)
		}
	}()
	return mw.Next.RevokeCertificate(ctx, input)
}

// RenewCertificate publishes the replacement certificate. Subscribers find
// the revoked serial in PreviousSerialNumber.
func (mw CAEventPublisher) RenewCertificate(ctx context.Context, input services.RenewCertificateInput) (output *models.Certificate, err error) {
	ctx = context.WithValue(ctx, core.VPKIContextKeyEventType, models.EventRenewCertificateKey)
	ctx = context.WithValue(ctx, core.VPKIContextKeyEventSubject, fmt.Sprintf("certificate/%s", input.SerialNumber))

	defer func() {
		if err == nil {
			mw.eventMWPub.PublishCloudEvent(ctx, output)
		}
	}()
	return mw.Next.RenewCertificate(ctx, input)
}

func (mw CAEventPublisher) ValidateCertificate(ctx context.Context, input services.ValidateCertificateInput) (models.CertificateStatus, error) {
	return mw.Next.ValidateCertificate(ctx, input)
}

func (mw CAEventPublisher) GetCertificateBySerialNumber(ctx context.Context, input services.GetCertificateBySerialNumberInput) (*models.Certificate, error) {
	return mw.Next.GetCertificateBySerialNumber(ctx, input)
}

// ArchiveCertificates publishes one event per archived certificate, including
// the ones archived before a failure.
func (mw CAEventPublisher) ArchiveCertificates(ctx context.Context, input services.ArchiveCertificatesInput) ([]*models.Certificate, error) {
	output, err := mw.Next.ArchiveCertificates(ctx, input)

	ctx = context.WithValue(ctx, core.VPKIContextKeyEventType, models.EventArchiveCertificateKey)
	for _, cert := range output {
		certCtx := context.WithValue(ctx, core.VPKIContextKeyEventSubject, fmt.Sprintf("certificate/%s", cert.SerialNumber))
		mw.eventMWPub.PublishCloudEvent(certCtx, cert)
	}

	return output, err
}
