package config

type CryptoEngineProvider string

const (
	SoftwareCryptoEngine CryptoEngineProvider = "software"
)

type CryptoEngineConfig struct {
	LogLevel LogLevel             `mapstructure:"log_level"`
	Provider CryptoEngineProvider `mapstructure:"provider"`
}
