package config

import "time"

type GatewayProvider string

const (
	NoopGateway      GatewayProvider = "noop"
	SimulatedGateway GatewayProvider = "simulated"
	HTTPGateway      GatewayProvider = "http"
)

type GatewayEngine struct {
	LogLevel LogLevel               `mapstructure:"log_level"`
	Enabled  bool                   `mapstructure:"enabled"`
	Provider GatewayProvider        `mapstructure:"provider"`
	Config   map[string]interface{} `mapstructure:",remain"`
}

// GatewayForwarding bounds the asynchronous mirroring of committed
// transactions to the external ledger.
type GatewayForwarding struct {
	Timeout        time.Duration  `mapstructure:"timeout"`
	QueueSize      int            `mapstructure:"queue_size"`
	Workers        int            `mapstructure:"workers"`
	RateLimit      float64        `mapstructure:"rate_limit"`
	RateBurst      int            `mapstructure:"rate_burst"`
	CircuitBreaker CircuitBreaker `mapstructure:"circuit_breaker"`
}

type CircuitBreaker struct {
	Enabled             bool          `mapstructure:"enabled"`
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"`
	OpenTimeout         time.Duration `mapstructure:"open_timeout"`
}
