package inmemory

import (
	"github.com/sirupsen/logrus"
	"github.com/vpkilab/vpki/core/pkg/config"
	"github.com/vpkilab/vpki/core/pkg/engines/storage"
)

func Register() {
	storage.RegisterStorageEngine(config.InMemory, func(logger *logrus.Entry, conf config.PluggableStorageEngine) (storage.StorageEngine, error) {
		return NewStorageEngine(logger), nil
	})
}

type InMemoryStorageEngine struct {
	storage.CommonStorageEngine
	logger *logrus.Entry
}

func NewStorageEngine(logger *logrus.Entry) storage.StorageEngine {
	return &InMemoryStorageEngine{
		logger: logger,
	}
}

func (s *InMemoryStorageEngine) GetProvider() config.StorageProvider {
	return config.InMemory
}

func (s *InMemoryStorageEngine) GetCertificateStorage() (storage.CertificatesRepo, error) {
	if s.Certificates == nil {
		s.Certificates = NewCertificateRepository(s.logger)
	}

	return s.Certificates, nil
}

func (s *InMemoryStorageEngine) GetArchiveStorage() (storage.ArchiveRepo, error) {
	if s.Archive == nil {
		s.Archive = NewArchiveRepository(s.logger)
	}

	return s.Archive, nil
}

func (s *InMemoryStorageEngine) Close() error {
	return nil
}
