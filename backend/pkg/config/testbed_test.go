package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cconfig "github.com/vpkilab/vpki/core/pkg/config"
)

func TestLoadTestbedConfigWithDefaults(t *testing.T) {
	t.Cleanup(func() {
		os.Unsetenv(cconfig.ConfigFileEnvVar)
	})
	os.Setenv(cconfig.ConfigFileEnvVar, "testdata/testbed.yml")

	defaults := DefaultTestbedConfig()
	conf, err := cconfig.LoadConfig[TestbedConfig](&defaults)
	require.NoError(t, err)

	assert.Equal(t, cconfig.Debug, conf.Logs.Level)
	assert.Equal(t, 9090, conf.Server.Port)
	assert.Equal(t, "0.0.0.0", conf.Server.ListenAddress)
	assert.Equal(t, 2*time.Hour, conf.CA.DefaultValidity)
	assert.Equal(t, 64, conf.Ledger.PoolCapacity)
	assert.Equal(t, 2, conf.Ledger.Difficulty)
	assert.Equal(t, 1000, conf.Ledger.RetentionBlocks)
	assert.Equal(t, cconfig.SimulatedGateway, conf.Gateway.Provider)
	assert.Contains(t, conf.Gateway.Config, "failure_rate")

	require.Len(t, conf.EdgeNodes, 2)
	assert.Equal(t, "rsu-2", conf.EdgeNodes[1].ID)
	assert.Equal(t, EventInvalidation, conf.EdgeNodes[1].Invalidation)

	assert.NoError(t, conf.Validate())
}

func TestValidateTestbedConfig(t *testing.T) {
	var testcases = []struct {
		name        string
		mutate      func(c *TestbedConfig)
		expectedErr bool
	}{
		{
			name:   "OK/Defaults",
			mutate: func(c *TestbedConfig) {},
		},
		{
			name: "ERR/NoEdgeNodes",
			mutate: func(c *TestbedConfig) {
				c.EdgeNodes = nil
			},
			expectedErr: true,
		},
		{
			name: "ERR/DuplicateNode",
			mutate: func(c *TestbedConfig) {
				c.EdgeNodes = append(c.EdgeNodes, c.EdgeNodes[0])
			},
			expectedErr: true,
		},
		{
			name: "ERR/ZeroCapacity",
			mutate: func(c *TestbedConfig) {
				c.EdgeNodes[0].Capacity = 0
			},
			expectedErr: true,
		},
		{
			name: "ERR/EventModeWithoutBus",
			mutate: func(c *TestbedConfig) {
				c.EdgeNodes[0].Invalidation = EventInvalidation
			},
			expectedErr: true,
		},
		{
			name: "OK/EventModeWithBus",
			mutate: func(c *TestbedConfig) {
				c.EventBus.Enabled = true
				c.EdgeNodes[0].Invalidation = EventInvalidation
			},
		},
		{
			name: "ERR/UnknownMetricsProvider",
			mutate: func(c *TestbedConfig) {
				c.Metrics.Provider = "statsd"
			},
			expectedErr: true,
		},
	}

	for _, tc := range testcases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			conf := DefaultTestbedConfig()
			tc.mutate(&conf)

			err := conf.Validate()
			if tc.expectedErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
