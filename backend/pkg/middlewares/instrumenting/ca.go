package instrumenting

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kit/kit/metrics"
	lservices "github.com/vpkilab/vpki/backend/pkg/services"
	"github.com/vpkilab/vpki/core/pkg/models"
	"github.com/vpkilab/vpki/core/pkg/services"
)

type caInstrumentingMiddleware struct {
	requestCount   metrics.Counter
	requestLatency metrics.Histogram
	next           services.CAService
}

func NewCAInstrumentingMiddleware(counter metrics.Counter, latency metrics.Histogram) lservices.CAMiddleware {
	return func(next services.CAService) services.CAService {
		return &caInstrumentingMiddleware{
			requestCount:   counter,
			requestLatency: latency,
			next:           next,
		}
	}
}

func (mw *caInstrumentingMiddleware) observe(method string, begin time.Time, err error) {
	lvs := []string{"method", method, "error", fmt.Sprint(err != nil)}
	mw.requestCount.With(lvs...).Add(1)
	mw.requestLatency.With(lvs...).Observe(float64(time.Since(begin)) / float64(time.Millisecond))
}

func (mw *caInstrumentingMiddleware) GetStats(ctx context.Context) (output *models.CAStats, err error) {
	defer func(begin time.Time) {
		mw.observe("GetStats", begin, err)
	}(time.Now())

	return mw.next.GetStats(ctx)
}

func (mw *caInstrumentingMiddleware) IssueCertificate(ctx context.Context, input services.IssueCertificateInput) (output *models.Certificate, err error) {
	defer func(begin time.Time) {
		mw.observe("IssueCertificate", begin, err)
	}(time.Now())

	return mw.next.IssueCertificate(ctx, input)
}

func (mw *caInstrumentingMiddleware) RevokeCertificate(ctx context.Context, input services.RevokeCertificateInput) (output *models.Certificate, err error) {
	defer func(begin time.Time) {
		mw.observe("RevokeCertificate", begin, err)
	}(time.Now())

	return mw.next.RevokeCertificate(ctx, input)
}

func (mw *caInstrumentingMiddleware) RenewCertificate(ctx context.Context, input services.RenewCertificateInput) (output *models.Certificate, err error) {
	defer func(begin time.Time) {
		mw.observe("RenewCertificate", begin, err)
	}(time.Now())

	return mw.next.RenewCertificate(ctx, input)
}

func (mw *caInstrumentingMiddleware) ValidateCertificate(ctx context.Context, input services.ValidateCertificateInput) (output models.CertificateStatus, err error) {
	defer func(begin time.Time) {
		mw.observe("ValidateCertificate", begin, err)
	}(time.Now())

	return mw.next.ValidateCertificate(ctx, input)
}

func (mw *caInstrumentingMiddleware) GetCertificateBySerialNumber(ctx context.Context, input services.GetCertificateBySerialNumberInput) (output *models.Certificate, err error) {
	defer func(begin time.Time) {
		mw.observe("GetCertificateBySerialNumber", begin, err)
	}(time.Now())

	return mw.next.GetCertificateBySerialNumber(ctx, input)
}

func (mw *caInstrumentingMiddleware) ArchiveCertificates(ctx context.Context, input services.ArchiveCertificatesInput) (output []*models.Certificate, err error) {
	defer func(begin time.Time) {
		mw.observe("ArchiveCertificates", begin, err)
	}(time.Now())

	return mw.next.ArchiveCertificates(ctx, input)
}
