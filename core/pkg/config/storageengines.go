package config

type StorageProvider string

const (
	InMemory StorageProvider = "memory"
	Badger   StorageProvider = "badger"
)

type PluggableStorageEngine struct {
	LogLevel LogLevel        `mapstructure:"log_level"`
	Provider StorageProvider `mapstructure:"provider"`

	Config map[string]interface{} `mapstructure:",remain"`
}
