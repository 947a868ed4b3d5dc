package badger

import (
	"fmt"

	badger "github.com/dgraph-io/badger/v3"
	"github.com/sirupsen/logrus"
	"github.com/vpkilab/vpki/core/pkg/config"
	"github.com/vpkilab/vpki/core/pkg/engines/storage"
)

type BadgerConfig struct {
	// Path is ignored when InMemory is set.
	Path     string `mapstructure:"path"`
	InMemory bool   `mapstructure:"in_memory"`
}

func Register() {
	storage.RegisterStorageEngine(config.Badger, func(logger *logrus.Entry, conf config.PluggableStorageEngine) (storage.StorageEngine, error) {
		bConf := BadgerConfig{InMemory: true}
		if conf.Config != nil {
			var err error
			bConf, err = config.DecodeStruct[BadgerConfig](conf.Config)
			if err != nil {
				return nil, fmt.Errorf("could not decode badger config: %s", err)
			}
		}

		return NewStorageEngine(logger, bConf)
	})
}

type BadgerStorageEngine struct {
	storage.CommonStorageEngine
	db     *badger.DB
	logger *logrus.Entry
}

func NewStorageEngine(logger *logrus.Entry, conf BadgerConfig) (storage.StorageEngine, error) {
	opts := badger.DefaultOptions(conf.Path).WithLogger(logger)
	if conf.InMemory || conf.Path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(logger)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("could not open badger database: %w", err)
	}

	return &BadgerStorageEngine{
		db:     db,
		logger: logger,
	}, nil
}

func (s *BadgerStorageEngine) GetProvider() config.StorageProvider {
	return config.Badger
}

func (s *BadgerStorageEngine) GetCertificateStorage() (storage.CertificatesRepo, error) {
	if s.Certificates == nil {
		s.Certificates = NewCertificateRepository(s.logger, s.db)
	}

	return s.Certificates, nil
}

func (s *BadgerStorageEngine) GetArchiveStorage() (storage.ArchiveRepo, error) {
	if s.Archive == nil {
		s.Archive = NewArchiveRepository(s.logger, s.db)
	}

	return s.Archive, nil
}

func (s *BadgerStorageEngine) Close() error {
	return s.db.Close()
}
