package config

// MonitoringJob describes a periodic background task. Frequency is a cron
// expression; six fields enable second level scheduling.
type MonitoringJob struct {
	Enabled   bool   `mapstructure:"enabled"`
	Frequency string `mapstructure:"frequency"`
}
