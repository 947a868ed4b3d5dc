package config

import (
	"fmt"
	"time"

	cconfig "github.com/vpkilab/vpki/core/pkg/config"
)

type TestbedConfig struct {
	Logs              cconfig.Logging                `mapstructure:"logs"`
	Server            cconfig.HttpServer             `mapstructure:"server"`
	Storage           cconfig.PluggableStorageEngine `mapstructure:"storage"`
	CryptoEngine      cconfig.CryptoEngineConfig     `mapstructure:"crypto_engine"`
	EventBus          cconfig.EventBusEngine         `mapstructure:"event_bus"`
	Gateway           cconfig.GatewayEngine          `mapstructure:"gateway"`
	GatewayForwarding cconfig.GatewayForwarding      `mapstructure:"gateway_forwarding"`
	Metrics           Metrics                        `mapstructure:"metrics"`
	Tracing           Tracing                        `mapstructure:"tracing"`
	CA                CAConfig                       `mapstructure:"ca"`
	Ledger            LedgerConfig                   `mapstructure:"ledger"`
	EdgeNodes         []EdgeNodeConfig               `mapstructure:"edge_nodes"`
}

type CAConfig struct {
	LogLevel        cconfig.LogLevel `mapstructure:"log_level"`
	ID              string           `mapstructure:"id"`
	DefaultValidity time.Duration    `mapstructure:"default_validity"`
	// ArchivalRetention is the time a revoked or expired certificate stays
	// visible before the archival job moves it to ARCHIVED.
	ArchivalRetention time.Duration         `mapstructure:"archival_retention"`
	ArchivalJob       cconfig.MonitoringJob `mapstructure:"archival_job"`
}

type LedgerConfig struct {
	LogLevel        cconfig.LogLevel      `mapstructure:"log_level"`
	PoolCapacity    int                   `mapstructure:"pool_capacity"`
	RetentionBlocks int                   `mapstructure:"retention_blocks"`
	Difficulty      int                   `mapstructure:"difficulty"`
	LatencyWindow   int                   `mapstructure:"latency_window"`
	MiningJob       cconfig.MonitoringJob `mapstructure:"mining_job"`
	PruningJob      cconfig.MonitoringJob `mapstructure:"pruning_job"`
}

type InvalidationMode string

const (
	// SyncInvalidation registers the node directly on the CA. The entry is
	// gone before RevokeCertificate returns.
	SyncInvalidation InvalidationMode = "sync"
	// EventInvalidation subscribes the node to certificate events on the bus.
	// Invalidation is asynchronous, so a lookup right after a revocation may
	// still see the cached entry until the event is delivered.
	EventInvalidation InvalidationMode = "event"
)

type EdgeNodeConfig struct {
	ID           string           `mapstructure:"id"`
	Capacity     int              `mapstructure:"capacity"`
	Invalidation InvalidationMode `mapstructure:"invalidation"`
}

type MetricsProvider string

const (
	PrometheusMetrics MetricsProvider = "prometheus"
	GenericMetrics    MetricsProvider = "generic"
	DiscardMetrics    MetricsProvider = "discard"
)

type Metrics struct {
	Provider  MetricsProvider `mapstructure:"provider"`
	Namespace string          `mapstructure:"namespace"`
}

type Tracing struct {
	Enabled bool `mapstructure:"enabled"`
	// Endpoint of an OTLP/HTTP collector. Spans are recorded but not exported when empty.
	Endpoint    string `mapstructure:"endpoint"`
	Insecure    bool   `mapstructure:"insecure"`
	ServiceName string `mapstructure:"service_name"`
}

func DefaultTestbedConfig() TestbedConfig {
	return TestbedConfig{
		Logs: cconfig.Logging{
			Level: cconfig.Info,
		},
		Server: cconfig.HttpServer{
			LogLevel:      cconfig.Info,
			Enabled:       true,
			ListenAddress: "0.0.0.0",
			Port:          8085,
		},
		Storage: cconfig.PluggableStorageEngine{
			LogLevel: cconfig.Info,
			Provider: cconfig.InMemory,
		},
		CryptoEngine: cconfig.CryptoEngineConfig{
			LogLevel: cconfig.Info,
			Provider: cconfig.SoftwareCryptoEngine,
		},
		EventBus: cconfig.EventBusEngine{
			LogLevel: cconfig.Info,
			Enabled:  false,
			Provider: cconfig.Channel,
		},
		Gateway: cconfig.GatewayEngine{
			LogLevel: cconfig.Info,
			Enabled:  false,
			Provider: cconfig.NoopGateway,
		},
		GatewayForwarding: cconfig.GatewayForwarding{
			Timeout:   5 * time.Second,
			QueueSize: 256,
			Workers:   2,
			CircuitBreaker: cconfig.CircuitBreaker{
				Enabled:             true,
				ConsecutiveFailures: 5,
				OpenTimeout:         30 * time.Second,
			},
		},
		Metrics: Metrics{
			Provider:  PrometheusMetrics,
			Namespace: "vpki",
		},
		Tracing: Tracing{
			Enabled:     false,
			ServiceName: "vpki-testbed",
		},
		CA: CAConfig{
			LogLevel:          cconfig.Info,
			DefaultValidity:   24 * time.Hour,
			ArchivalRetention: 7 * 24 * time.Hour,
			ArchivalJob: cconfig.MonitoringJob{
				Enabled:   true,
				Frequency: "@every 1h",
			},
		},
		Ledger: LedgerConfig{
			LogLevel:        cconfig.Info,
			PoolCapacity:    10000,
			RetentionBlocks: 1000,
			Difficulty:      0,
			LatencyWindow:   1000,
			MiningJob: cconfig.MonitoringJob{
				Enabled:   true,
				Frequency: "*/5 * * * * *",
			},
			PruningJob: cconfig.MonitoringJob{
				Enabled:   true,
				Frequency: "@every 1m",
			},
		},
		EdgeNodes: []EdgeNodeConfig{
			{
				ID:           "rsu-1",
				Capacity:     1024,
				Invalidation: SyncInvalidation,
			},
		},
	}
}

// Validate checks the cross field constraints viper can not express.
func (c TestbedConfig) Validate() error {
	if len(c.EdgeNodes) == 0 {
		return fmt.Errorf("at least one edge node is required")
	}

	seen := map[string]bool{}
	for _, node := range c.EdgeNodes {
		if node.ID == "" {
			return fmt.Errorf("edge node id must not be empty")
		}
		if seen[node.ID] {
			return fmt.Errorf("duplicate edge node id '%s'", node.ID)
		}
		seen[node.ID] = true

		if node.Capacity <= 0 {
			return fmt.Errorf("edge node '%s' capacity must be positive", node.ID)
		}

		switch node.Invalidation {
		case SyncInvalidation, "":
		case EventInvalidation:
			if !c.EventBus.Enabled {
				return fmt.Errorf("edge node '%s' uses event invalidation but the event bus is disabled", node.ID)
			}
		default:
			return fmt.Errorf("edge node '%s' has unknown invalidation mode '%s'", node.ID, node.Invalidation)
		}
	}

	if c.Ledger.PoolCapacity < 0 || c.Ledger.RetentionBlocks < 0 {
		return fmt.Errorf("ledger pool capacity and retention must not be negative")
	}

	switch c.Metrics.Provider {
	case PrometheusMetrics, GenericMetrics, DiscardMetrics, "":
	default:
		return fmt.Errorf("unknown metrics provider '%s'", c.Metrics.Provider)
	}

	return nil
}
