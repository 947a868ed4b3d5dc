package config

type HttpServer struct {
	LogLevel           LogLevel `mapstructure:"log_level"`
	Enabled            bool     `mapstructure:"enabled"`
	HealthCheckLogging bool     `mapstructure:"health_check"`
	ListenAddress      string   `mapstructure:"listen_address"`
	Port               int      `mapstructure:"port"`
}
