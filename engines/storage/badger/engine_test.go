package badger

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vpkilab/vpki/core/pkg/config"
	"github.com/vpkilab/vpki/core/pkg/engines/storage"
	"github.com/vpkilab/vpki/engines/storage/storagetest"
)

func newEngine(t *testing.T) storage.StorageEngine {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	engine, err := NewStorageEngine(logrus.NewEntry(logger), BadgerConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })

	return engine
}

func TestCertificateRepository(t *testing.T) {
	storagetest.RunCertificateRepoSuite(t, func(t *testing.T) storage.CertificatesRepo {
		repo, err := newEngine(t).GetCertificateStorage()
		require.NoError(t, err)
		return repo
	})
}

func TestArchiveRepository(t *testing.T) {
	storagetest.RunArchiveRepoSuite(t, func(t *testing.T) storage.ArchiveRepo {
		repo, err := newEngine(t).GetArchiveStorage()
		require.NoError(t, err)
		return repo
	})
}

func TestRegister(t *testing.T) {
	Register()

	builder := storage.GetEngineBuilder(config.Badger)
	require.NotNil(t, builder)

	engine, err := builder(logrus.NewEntry(logrus.New()), config.PluggableStorageEngine{
		Provider: config.Badger,
		Config:   map[string]interface{}{"in_memory": true},
	})
	require.NoError(t, err)
	defer engine.Close()

	assert.Equal(t, config.Badger, engine.GetProvider())
}
