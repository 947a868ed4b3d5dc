package software

import (
	"github.com/sirupsen/logrus"
	"github.com/vpkilab/vpki/core/pkg/config"
	"github.com/vpkilab/vpki/core/pkg/engines/cryptoengines"
)

func Register() {
	cryptoengines.RegisterCryptoEngine(config.SoftwareCryptoEngine, func(logger *logrus.Entry, conf config.CryptoEngineConfig) (cryptoengines.SigningEngine, error) {
		return NewSoftwareCryptoEngine(logger.WithField("subsystem-provider", "Ed25519")), nil
	})
}
