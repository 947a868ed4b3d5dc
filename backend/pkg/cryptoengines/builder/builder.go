package builder

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	cconfig "github.com/vpkilab/vpki/core/pkg/config"
	"github.com/vpkilab/vpki/core/pkg/engines/cryptoengines"
	"github.com/vpkilab/vpki/engines/crypto/software"
)

func BuildCryptoEngine(logger *log.Entry, conf cconfig.CryptoEngineConfig) (cryptoengines.SigningEngine, error) {
	provider := conf.Provider
	if provider == "" {
		provider = cconfig.SoftwareCryptoEngine
	}

	builder := cryptoengines.GetEngineBuilder(provider)
	if builder == nil {
		return nil, fmt.Errorf("no crypto engine of type %s", provider)
	}
	return builder(logger, conf)
}

func init() {
	software.Register()
}
