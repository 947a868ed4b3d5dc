package storage

import (
	"github.com/sirupsen/logrus"
	"github.com/vpkilab/vpki/core/pkg/config"
)

type StorageEngine interface {
	GetProvider() config.StorageProvider
	GetCertificateStorage() (CertificatesRepo, error)
	GetArchiveStorage() (ArchiveRepo, error)
	Close() error
}

// CommonStorageEngine caches the repositories built by a provider.
type CommonStorageEngine struct {
	Certificates CertificatesRepo
	Archive      ArchiveRepo
}

// map of available storage engines with config.StorageProvider as key and function to build the storage engine as value
var storageEngineBuilders = make(map[config.StorageProvider]func(*logrus.Entry, config.PluggableStorageEngine) (StorageEngine, error))

// RegisterStorageEngine registers a new storage engine
func RegisterStorageEngine(name config.StorageProvider, builder func(*logrus.Entry, config.PluggableStorageEngine) (StorageEngine, error)) {
	storageEngineBuilders[name] = builder
}

func GetEngineBuilder(name config.StorageProvider) func(*logrus.Entry, config.PluggableStorageEngine) (StorageEngine, error) {
	return storageEngineBuilders[name]
}
