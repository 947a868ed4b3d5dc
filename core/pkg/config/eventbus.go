package config

type EventBusEngine struct {
	LogLevel LogLevel               `mapstructure:"log_level"`
	Enabled  bool                   `mapstructure:"enabled"`
	Provider EventBusProvider       `mapstructure:"provider"`
	Config   map[string]interface{} `mapstructure:",remain"`
}

type EventBusProvider string

const (
	Channel EventBusProvider = "channel"
)
