package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vpkilab/vpki/backend/pkg/cache"
	"github.com/vpkilab/vpki/backend/pkg/metrics"
	"github.com/vpkilab/vpki/core/pkg/errs"
	chelpers "github.com/vpkilab/vpki/core/pkg/helpers"
	"github.com/vpkilab/vpki/core/pkg/models"
	"github.com/vpkilab/vpki/core/pkg/services"
)

type EdgeMiddleware func(services.EdgeService) services.EdgeService

type EdgeServiceBackend struct {
	nodeID  string
	cache   *cache.ValidityCache
	ca      services.CAService
	metrics *metrics.Sink
	now     func() time.Time
	logger  *logrus.Entry

	degraded         atomic.Bool
	backendAvailable atomic.Bool
}

type EdgeServiceBuilder struct {
	Logger   *logrus.Entry
	NodeID   string
	Capacity int
	CA       services.CAService
	Metrics  *metrics.Sink
	Clock    func() time.Time
}

func NewEdgeService(builder EdgeServiceBuilder) (*EdgeServiceBackend, error) {
	if builder.CA == nil {
		return nil, fmt.Errorf("%w: edge node requires a CA backend", errs.ErrValidateBadRequest)
	}

	validityCache, err := cache.NewValidityCache(builder.Capacity)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrValidateBadRequest, err)
	}

	svc := &EdgeServiceBackend{
		nodeID:  builder.NodeID,
		cache:   validityCache,
		ca:      builder.CA,
		metrics: builder.Metrics,
		now:     builder.Clock,
		logger:  builder.Logger,
	}

	if svc.logger == nil {
		svc.logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if svc.metrics == nil {
		svc.metrics = metrics.NewDiscardSink()
	}
	if svc.now == nil {
		svc.now = time.Now
	}

	svc.backendAvailable.Store(true)
	return svc, nil
}

func (svc *EdgeServiceBackend) NodeID() string {
	return svc.nodeID
}

// Cache exposes the underlying LRU, mainly for inspection in tests and stats.
func (svc *EdgeServiceBackend) Cache() *cache.ValidityCache {
	return svc.cache
}

// Returned Error Codes:
//   - ErrValidateBadRequest
//     The required variables of the data structure are not valid.
//   - ErrCertificateNotFound
//     The CA does not know the certificate.
//   - ErrEdgeBackendUnavailable
//     The CA is marked unreachable. The cache is bypassed in that case.
func (svc *EdgeServiceBackend) Lookup(ctx context.Context, input services.LookupInput) (*models.Validity, error) {
	lFunc := chelpers.ConfigureLogger(ctx, svc.logger)
	begin := time.Now()

	err := validate.Struct(input)
	if err != nil {
		lFunc.Errorf("Lookup struct validation error: %s", err)
		return nil, errs.ErrValidateBadRequest
	}

	// an unreachable backend forces the direct path so cache state is left untouched
	if svc.degraded.Load() || !svc.backendAvailable.Load() {
		lFunc.Debugf("node %s degraded, querying CA directly for %s", svc.nodeID, input.SerialNumber)
		v, err := svc.fetch(ctx, lFunc, input.SerialNumber)
		if err != nil {
			return nil, err
		}

		v.Source = models.ValiditySourceDirect
		metrics.ObserveSince(svc.metrics.AuthenticationLatency, begin)
		return v, nil
	}

	if v, ok := svc.cache.Get(input.SerialNumber, svc.now()); ok {
		svc.metrics.CacheHit.Add(1)
		metrics.ObserveSince(svc.metrics.AuthenticationLatency, begin)

		v.Source = models.ValiditySourceCache
		lFunc.Tracef("cache hit for %s on node %s", input.SerialNumber, svc.nodeID)
		return &v, nil
	}
	svc.metrics.CacheMiss.Add(1)

	epoch := svc.cache.Epoch()
	v, err := svc.fetch(ctx, lFunc, input.SerialNumber)
	if err != nil {
		return nil, err
	}

	if !svc.cache.AddIfCurrent(*v, epoch) {
		lFunc.Debugf("validity of %s changed while being fetched, not caching it", input.SerialNumber)
	}

	metrics.ObserveSince(svc.metrics.AuthenticationLatency, begin)
	v.Source = models.ValiditySourceOrigin
	return v, nil
}

func (svc *EdgeServiceBackend) fetch(ctx context.Context, lFunc *logrus.Entry, serial string) (*models.Validity, error) {
	if !svc.backendAvailable.Load() {
		lFunc.Warnf("node %s can not reach the CA to validate %s", svc.nodeID, serial)
		return nil, errs.ErrEdgeBackendUnavailable
	}

	cert, err := svc.ca.GetCertificateBySerialNumber(ctx, services.GetCertificateBySerialNumberInput{SerialNumber: serial})
	if err != nil {
		lFunc.Errorf("CA validation of %s failed: %s", serial, err)
		return nil, err
	}

	return &models.Validity{
		SerialNumber: cert.SerialNumber,
		Status:       cert.Status,
		ExpiresAt:    cert.ExpiresAt,
		Source:       models.ValiditySourceOrigin,
	}, nil
}

func (svc *EdgeServiceBackend) Invalidate(ctx context.Context, serialNumber string) {
	lFunc := chelpers.ConfigureLogger(ctx, svc.logger)

	if svc.cache.Remove(serialNumber) {
		lFunc.Debugf("certificate %s evicted from node %s", serialNumber, svc.nodeID)
	}
}

func (svc *EdgeServiceBackend) SetDegraded(ctx context.Context, degraded bool) {
	lFunc := chelpers.ConfigureLogger(ctx, svc.logger)

	if svc.degraded.Swap(degraded) != degraded {
		lFunc.Warnf("node %s degraded mode set to %t", svc.nodeID, degraded)
	}
}

func (svc *EdgeServiceBackend) IsDegraded() bool {
	return svc.degraded.Load()
}

// SetBackendAvailable simulates losing or regaining connectivity to the CA.
// While unavailable, lookups bypass the cache and fail fast.
func (svc *EdgeServiceBackend) SetBackendAvailable(available bool) {
	svc.backendAvailable.Store(available)
}

func (svc *EdgeServiceBackend) GetStats(ctx context.Context) *models.EdgeStats {
	return &models.EdgeStats{
		NodeID:   svc.nodeID,
		Hits:     svc.cache.Hits(),
		Misses:   svc.cache.Misses(),
		HitRate:  svc.cache.HitRate(),
		Size:     svc.cache.Len(),
		Capacity: svc.cache.Capacity(),
		Degraded: svc.degraded.Load(),
	}
}
