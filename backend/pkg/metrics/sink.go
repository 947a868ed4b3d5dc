package metrics

import (
	"net/http"
	"time"

	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/generic"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sink groups every measurement the testbed records. Latencies are observed
// in milliseconds.
type Sink struct {
	CacheHit         metrics.Counter
	CacheMiss        metrics.Counter
	GatewayForwarded metrics.Counter
	GatewayFailed    metrics.Counter
	GatewayDropped   metrics.Counter

	IssuanceLatency       metrics.Histogram
	RevocationLatency     metrics.Histogram
	AuthenticationLatency metrics.Histogram
	SigningTime           metrics.Histogram
	VerificationTime      metrics.Histogram
	ConsensusLatency      metrics.Histogram

	ChainSizeBytes           metrics.Gauge
	PrunedBlockCount         metrics.Gauge
	ArchivedCertificateCount metrics.Gauge
	PendingPoolSize          metrics.Gauge

	registry  *prometheus.Registry
	namespace string
}

var latencyBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000}

// NewPrometheusSink registers every metric on a dedicated registry so that
// several sinks can live in the same process.
func NewPrometheusSink(namespace string) *Sink {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	counter := func(name, help string) metrics.Counter {
		cv := prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name + "_total",
			Help:      help,
		}, []string{})
		registry.MustRegister(cv)
		return kitprometheus.NewCounter(cv)
	}

	histogram := func(name, help string) metrics.Histogram {
		hv := prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      name + "_milliseconds",
			Help:      help,
			Buckets:   latencyBuckets,
		}, []string{})
		registry.MustRegister(hv)
		return kitprometheus.NewHistogram(hv)
	}

	gauge := func(name, help string) metrics.Gauge {
		gv := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, []string{})
		registry.MustRegister(gv)
		return kitprometheus.NewGauge(gv)
	}

	return &Sink{
		CacheHit:         counter("cache_hit", "Edge cache lookups served from the cache."),
		CacheMiss:        counter("cache_miss", "Edge cache lookups that queried the CA."),
		GatewayForwarded: counter("gateway_forwarded", "Transactions acknowledged by the external ledger."),
		GatewayFailed:    counter("gateway_failed", "Transactions the external ledger failed to acknowledge."),
		GatewayDropped:   counter("gateway_dropped", "Transactions dropped because the forwarding queue was full."),

		IssuanceLatency:       histogram("issuance_latency", "Time to issue and commit a certificate."),
		RevocationLatency:     histogram("revocation_latency", "Time to revoke a certificate up to local commit."),
		AuthenticationLatency: histogram("authentication_latency", "Time to answer an edge validity lookup."),
		SigningTime:           histogram("signing_time", "Time spent producing signatures."),
		VerificationTime:      histogram("verification_time", "Time spent verifying signatures."),
		ConsensusLatency:      histogram("consensus_latency", "Time between transaction submission and block inclusion."),

		ChainSizeBytes:           gauge("chain_size_bytes", "Serialized size of the active chain."),
		PrunedBlockCount:         gauge("pruned_block_count", "Blocks moved to the archive."),
		ArchivedCertificateCount: gauge("archived_certificate_count", "Certificates in the ARCHIVED state."),
		PendingPoolSize:          gauge("pending_pool_size", "Transactions waiting to be mined."),

		registry:  registry,
		namespace: namespace,
	}
}

// NewGenericSink keeps values in memory so they can be read back.
func NewGenericSink() *Sink {
	return &Sink{
		CacheHit:         generic.NewCounter("cache_hit"),
		CacheMiss:        generic.NewCounter("cache_miss"),
		GatewayForwarded: generic.NewCounter("gateway_forwarded"),
		GatewayFailed:    generic.NewCounter("gateway_failed"),
		GatewayDropped:   generic.NewCounter("gateway_dropped"),

		IssuanceLatency:       generic.NewHistogram("issuance_latency", 50),
		RevocationLatency:     generic.NewHistogram("revocation_latency", 50),
		AuthenticationLatency: generic.NewHistogram("authentication_latency", 50),
		SigningTime:           generic.NewHistogram("signing_time", 50),
		VerificationTime:      generic.NewHistogram("verification_time", 50),
		ConsensusLatency:      generic.NewHistogram("consensus_latency", 50),

		ChainSizeBytes:           generic.NewGauge("chain_size_bytes"),
		PrunedBlockCount:         generic.NewGauge("pruned_block_count"),
		ArchivedCertificateCount: generic.NewGauge("archived_certificate_count"),
		PendingPoolSize:          generic.NewGauge("pending_pool_size"),
	}
}

func NewDiscardSink() *Sink {
	return &Sink{
		CacheHit:         discard.NewCounter(),
		CacheMiss:        discard.NewCounter(),
		GatewayForwarded: discard.NewCounter(),
		GatewayFailed:    discard.NewCounter(),
		GatewayDropped:   discard.NewCounter(),

		IssuanceLatency:       discard.NewHistogram(),
		RevocationLatency:     discard.NewHistogram(),
		AuthenticationLatency: discard.NewHistogram(),
		SigningTime:           discard.NewHistogram(),
		VerificationTime:      discard.NewHistogram(),
		ConsensusLatency:      discard.NewHistogram(),

		ChainSizeBytes:           discard.NewGauge(),
		PrunedBlockCount:         discard.NewGauge(),
		ArchivedCertificateCount: discard.NewGauge(),
		PendingPoolSize:          discard.NewGauge(),
	}
}

// RequestInstruments builds a request counter and a latency summary labelled
// by "method" and "error" for a service middleware. Sinks not backed by
// prometheus return discarding instruments.
func (s *Sink) RequestInstruments(subsystem string) (metrics.Counter, metrics.Histogram) {
	if s.registry == nil {
		return discard.NewCounter(), discard.NewHistogram()
	}

	fieldKeys := []string{"method", "error"}
	cv := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: s.namespace,
		Subsystem: subsystem,
		Name:      "request_count",
		Help:      "Number of requests received.",
	}, fieldKeys)
	sv := prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: s.namespace,
		Subsystem: subsystem,
		Name:      "request_latency_milliseconds",
		Help:      "Total duration of requests in milliseconds.",
	}, fieldKeys)
	s.registry.MustRegister(cv, sv)

	return kitprometheus.NewCounter(cv), kitprometheus.NewSummary(sv)
}

// Registry is nil unless the sink is backed by prometheus.
func (s *Sink) Registry() *prometheus.Registry {
	return s.registry
}

// Handler exposes the sink in the prometheus text format.
func (s *Sink) Handler() http.Handler {
	if s.registry == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}

	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

func ObserveSince(h metrics.Histogram, begin time.Time) {
	ObserveDuration(h, time.Since(begin))
}

func ObserveDuration(h metrics.Histogram, d time.Duration) {
	h.Observe(float64(d) / float64(time.Millisecond))
}
