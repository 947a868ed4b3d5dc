package builder

import (
	"context"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vpkilab/vpki/core/pkg/config"
)

func TestBuildStorageEngine(t *testing.T) {
	var testcases = []struct {
		name     string
		conf     config.PluggableStorageEngine
		provider config.StorageProvider
	}{
		{
			name:     "OK/InMemory",
			conf:     config.PluggableStorageEngine{Provider: config.InMemory},
			provider: config.InMemory,
		},
		{
			name: "OK/BadgerInMemory",
			conf: config.PluggableStorageEngine{
				Provider: config.Badger,
				Config:   map[string]interface{}{"in_memory": true},
			},
			provider: config.Badger,
		},
	}

	for _, tc := range testcases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			logger := log.WithField("test", tc.name)

			engine, err := BuildStorageEngine(logger, tc.conf)
			require.NoError(t, err)
			t.Cleanup(func() { engine.Close() })

			assert.Equal(t, tc.provider, engine.GetProvider())

			certs, err := engine.GetCertificateStorage()
			require.NoError(t, err)

			count, err := certs.Count(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 0, count)

			_, err = engine.GetArchiveStorage()
			assert.NoError(t, err)
		})
	}
}

func TestBuildStorageEngineInvalidProvider(t *testing.T) {
	logger := log.WithField("test", "BuildStorageEngine_InvalidProvider")
	conf := config.PluggableStorageEngine{
		Provider: "invalid_provider",
	}

	_, err := BuildStorageEngine(logger, conf)
	assert.Error(t, err)
}
