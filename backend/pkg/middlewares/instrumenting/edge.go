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

type edgeInstrumentingMiddleware struct {
	requestCount   metrics.Counter
	requestLatency metrics.Histogram
	next           services.EdgeService
}

func NewEdgeInstrumentingMiddleware(counter metrics.Counter, latency metrics.Histogram) lservices.EdgeMiddleware {
	return func(next services.EdgeService) services.EdgeService {
		return &edgeInstrumentingMiddleware{
			requestCount:   counter,
			requestLatency: latency,
			next:           next,
		}
	}
}

func (mw *edgeInstrumentingMiddleware) NodeID() string {
	return mw.next.NodeID()
}

func (mw *edgeInstrumentingMiddleware) Lookup(ctx context.Context, input services.LookupInput) (output *models.Validity, err error) {
	defer func(begin time.Time) {
		lvs := []string{"method", "Lookup", "error", fmt.Sprint(err != nil)}
		mw.requestCount.With(lvs...).Add(1)
		mw.requestLatency.With(lvs...).Observe(float64(time.Since(begin)) / float64(time.Millisecond))
	}(time.Now())

	return mw.next.Lookup(ctx, input)
}

func (mw *edgeInstrumentingMiddleware) Invalidate(ctx context.Context, serialNumber string) {
	defer func(begin time.Time) {
		lvs := []string{"method", "Invalidate", "error", "false"}
		mw.requestCount.With(lvs...).Add(1)
		mw.requestLatency.With(lvs...).Observe(float64(time.Since(begin)) / float64(time.Millisecond))
	}(time.Now())

	mw.next.Invalidate(ctx, serialNumber)
}

func (mw *edgeInstrumentingMiddleware) SetDegraded(ctx context.Context, degraded bool) {
	mw.next.SetDegraded(ctx, degraded)
}

func (mw *edgeInstrumentingMiddleware) GetStats(ctx context.Context) *models.EdgeStats {
	return mw.next.GetStats(ctx)
}
