package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

type TestServiceConfig struct {
	Logs       Logging       `mapstructure:"logs"`
	HttpServer HttpServer    `mapstructure:"http_server"`
	Job        MonitoringJob `mapstructure:"job"`
}

func TestReadConfigWithDefaults(t *testing.T) {
	configFilePath := "testdata/test-config.yml"

	var defaults = TestServiceConfig{
		HttpServer: HttpServer{
			Port: 8080,
		},
		Job: MonitoringJob{
			Enabled:   true,
			Frequency: "@every 1s",
		},
	}

	config, err := readConfig[TestServiceConfig](configFilePath, &defaults)
	assert.NoError(t, err)
	assert.NotEqual(t, defaults.HttpServer.Port, config.HttpServer.Port)
	assert.Equal(t, 7777, config.HttpServer.Port) //Make sure config file has precedence
	assert.Equal(t, "0.0.0.0", config.HttpServer.ListenAddress)
	assert.Equal(t, defaults.Job, config.Job) //Make sure default value is used
}

func TestReadConfig(t *testing.T) {
	configFilePath := "testdata/test-config.yml"

	config, err := readConfig[TestServiceConfig](configFilePath, nil)
	assert.NoError(t, err)
	assert.Equal(t, Info, config.Logs.Level)
}

func TestReadConfigMissing(t *testing.T) {
	configFilePath := "testdata/config-missing.yml"
	config, err := readConfig[TestServiceConfig](configFilePath, nil)
	assert.Error(t, err)
	assert.Nil(t, config)
}

func TestReadConfigWrong(t *testing.T) {
	configFilePath := "testdata/wrong-config.yml"
	config, err := readConfig[TestServiceConfig](configFilePath, nil)
	assert.Error(t, err)
	assert.Nil(t, config)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Cleanup(func() {
		os.Unsetenv(ConfigFileEnvVar)
	})

	os.Setenv(ConfigFileEnvVar, "testdata/test-config.yml")

	config, err := LoadConfig[TestServiceConfig](nil)
	assert.NoError(t, err)
	assert.Equal(t, Info, config.Logs.Level)
}

func TestLoadConfigFromEnvMissingFile(t *testing.T) {
	t.Cleanup(func() {
		os.Unsetenv(ConfigFileEnvVar)
	})

	os.Setenv(ConfigFileEnvVar, "testdata/test-config-missing.yml")

	config, err := LoadConfig[TestServiceConfig](nil)
	assert.Error(t, err)
	assert.Nil(t, config)
}

func TestEncodeDecodeStruct(t *testing.T) {
	job := MonitoringJob{Enabled: true, Frequency: "0 * * * *"}

	encoded, err := EncodeStruct(job)
	assert.NoError(t, err)
	assert.Equal(t, true, encoded["enabled"])

	decoded, err := DecodeStruct[MonitoringJob](encoded)
	assert.NoError(t, err)
	assert.Equal(t, job, decoded)
}
