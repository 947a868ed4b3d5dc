package builder

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/vpkilab/vpki/core/pkg/config"
	"github.com/vpkilab/vpki/core/pkg/engines/storage"
	"github.com/vpkilab/vpki/engines/storage/badger"
	"github.com/vpkilab/vpki/engines/storage/inmemory"
)

func init() {
	inmemory.Register()
	badger.Register()
}

func BuildStorageEngine(logger *log.Entry, conf config.PluggableStorageEngine) (storage.StorageEngine, error) {
	builder := storage.GetEngineBuilder(conf.Provider)
	if builder == nil {
		return nil, fmt.Errorf("no storage engine of type %s", conf.Provider)
	}

	return builder(logger, conf)
}
