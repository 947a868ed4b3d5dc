package otelmw

import (
	"context"
	"time"

	"github.com/vpkilab/vpki/core/pkg/models"
	"github.com/vpkilab/vpki/core/pkg/services"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

// LedgerOTelTracer traces the operations that mutate the chain. Read-only
// reporting calls are passed through untraced.
type LedgerOTelTracer struct {
	next        services.LedgerService
	tracerName  string
	serviceName string
}

func NewLedgerOTelTracer() func(services.LedgerService) services.LedgerService {
	return func(next services.LedgerService) services.LedgerService {
		return &LedgerOTelTracer{
			next:        next,
			tracerName:  "ledger-svc",
			serviceName: "Ledger",
		}
	}
}

func (mw LedgerOTelTracer) start(ctx context.Context, op string) (context.Context, trace.Span) {
	return otel.GetTracerProvider().Tracer(mw.tracerName).Start(ctx, op, trace.WithAttributes(semconv.ServiceName(mw.serviceName)))
}

func (mw LedgerOTelTracer) Submit(ctx context.Context, tx *models.Transaction) (err error) {
	ctx, span := mw.start(ctx, "Submit")
	if tx != nil {
		span.SetAttributes(attribute.String("vpki.tx.kind", string(tx.Kind)), attribute.String("vpki.tx.id", tx.ID))
	}
	defer func() { endSpan(span, err) }()

	return mw.next.Submit(ctx, tx)
}

func (mw LedgerOTelTracer) Mine(ctx context.Context) (output *models.Block, err error) {
	ctx, span := mw.start(ctx, "Mine")
	defer func() {
		if output != nil {
			span.SetAttributes(attribute.Int64("vpki.block.index", int64(output.Index)), attribute.Int("vpki.block.transactions", len(output.Transactions)))
		}
		endSpan(span, err)
	}()

	return mw.next.Mine(ctx)
}

func (mw LedgerOTelTracer) Prune(ctx context.Context) (output int, err error) {
	ctx, span := mw.start(ctx, "Prune")
	defer func() {
		span.SetAttributes(attribute.Int("vpki.pruned", output))
		endSpan(span, err)
	}()

	return mw.next.Prune(ctx)
}

func (mw LedgerOTelTracer) VerifyIntegrity(ctx context.Context) (err error) {
	ctx, span := mw.start(ctx, "VerifyIntegrity")
	defer func() { endSpan(span, err) }()

	return mw.next.VerifyIntegrity(ctx)
}

func (mw LedgerOTelTracer) TPS(window time.Duration) float64 {
	return mw.next.TPS(window)
}

func (mw LedgerOTelTracer) SerializedSize() (int, error) {
	return mw.next.SerializedSize()
}

func (mw LedgerOTelTracer) GetStats(ctx context.Context) (*models.LedgerStats, error) {
	return mw.next.GetStats(ctx)
}

func (mw LedgerOTelTracer) GetBlock(ctx context.Context, index uint64) (*models.Block, error) {
	return mw.next.GetBlock(ctx, index)
}

func (mw LedgerOTelTracer) GetArchivedBlock(ctx context.Context, index uint64) (*models.ArchivedBlock, error) {
	return mw.next.GetArchivedBlock(ctx, index)
}

func (mw LedgerOTelTracer) FindTransaction(ctx context.Context, txID string) (*models.TransactionLocation, error) {
	return mw.next.FindTransaction(ctx, txID)
}
