package otelmw

import (
	"context"

	lservices "github.com/vpkilab/vpki/backend/pkg/services"
	"github.com/vpkilab/vpki/core/pkg/models"
	"github.com/vpkilab/vpki/core/pkg/services"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

type CAOTelTracer struct {
	next        services.CAService
	tracerName  string
	serviceName string
}

func NewCAOTelTracer() lservices.CAMiddleware {
	return func(next services.CAService) services.CAService {
		return &CAOTelTracer{
			next:        next,
			tracerName:  "ca-svc",
			serviceName: "CA",
		}
	}
}

func (mw CAOTelTracer) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, semconv.ServiceName(mw.serviceName))
	return otel.GetTracerProvider().Tracer(mw.tracerName).Start(ctx, op, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (mw CAOTelTracer) GetStats(ctx context.Context) (output *models.CAStats, err error) {
	ctx, span := mw.start(ctx, "GetStats")
	defer func() { endSpan(span, err) }()

	return mw.next.GetStats(ctx)
}

func (mw CAOTelTracer) IssueCertificate(ctx context.Context, input services.IssueCertificateInput) (output *models.Certificate, err error) {
	ctx, span := mw.start(ctx, "IssueCertificate", attribute.String("vpki.subject", input.Subject))
	defer func() { endSpan(span, err) }()

	return mw.next.IssueCertificate(ctx, input)
}

func (mw CAOTelTracer) RevokeCertificate(ctx context.Context, input services.RevokeCertificateInput) (output *models.Certificate, err error) {
	ctx, span := mw.start(ctx, "RevokeCertificate", attribute.String("vpki.serial_number", input.SerialNumber))
	defer func() { endSpan(span, err) }()

	return mw.next.RevokeCertificate(ctx, input)
}

func (mw CAOTelTracer) RenewCertificate(ctx context.Context, input services.RenewCertificateInput) (output *models.Certificate, err error) {
	ctx, span := mw.start(ctx, "RenewCertificate", attribute.String("vpki.serial_number", input.SerialNumber))
	defer func() { endSpan(span, err) }()

	return mw.next.RenewCertificate(ctx, input)
}

func (mw CAOTelTracer) ValidateCertificate(ctx context.Context, input services.ValidateCertificateInput) (output models.CertificateStatus, err error) {
	ctx, span := mw.start(ctx, "ValidateCertificate", attribute.String("vpki.serial_number", input.SerialNumber))
	defer func() { endSpan(span, err) }()

	return mw.next.ValidateCertificate(ctx, input)
}

func (mw CAOTelTracer) GetCertificateBySerialNumber(ctx context.Context, input services.GetCertificateBySerialNumberInput) (output *models.Certificate, err error) {
	ctx, span := mw.start(ctx, "GetCertificateBySerialNumber", attribute.String("vpki.serial_number", input.SerialNumber))
	defer func() { endSpan(span, err) }()

	return mw.next.GetCertificateBySerialNumber(ctx, input)
}

func (mw CAOTelTracer) ArchiveCertificates(ctx context.Context, input services.ArchiveCertificatesInput) (output []*models.Certificate, err error) {
	ctx, span := mw.start(ctx, "ArchiveCertificates", attribute.String("vpki.retention_window", input.RetentionWindow.String()))
	defer func() {
		span.SetAttributes(attribute.Int("vpki.archived", len(output)))
		endSpan(span, err)
	}()

	return mw.next.ArchiveCertificates(ctx, input)
}
