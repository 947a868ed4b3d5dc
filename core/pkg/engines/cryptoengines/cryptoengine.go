package cryptoengines

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/vpkilab/vpki/core/pkg/config"
)

// SigningEngine is the abstract signing capability shared by the CA and the
// vehicle OBUs. Private keys never leave the engine.
type SigningEngine interface {
	GetProvider() config.CryptoEngineProvider

	CreateKey(ctx context.Context) (keyID string, publicKey []byte, err error)
	GetPublicKey(ctx context.Context, keyID string) ([]byte, error)
	ListKeyIDs(ctx context.Context) ([]string, error)
	DeleteKey(ctx context.Context, keyID string) error

	Sign(ctx context.Context, keyID string, message []byte) ([]byte, error)
	Verify(ctx context.Context, message []byte, signature []byte, publicKey []byte) (bool, error)
}

var cryptoEngineBuilders = make(map[config.CryptoEngineProvider]func(*logrus.Entry, config.CryptoEngineConfig) (SigningEngine, error))

func RegisterCryptoEngine(name config.CryptoEngineProvider, builder func(*logrus.Entry, config.CryptoEngineConfig) (SigningEngine, error)) {
	cryptoEngineBuilders[name] = builder
}

func GetEngineBuilder(name config.CryptoEngineProvider) func(*logrus.Entry, config.CryptoEngineConfig) (SigningEngine, error) {
	return cryptoEngineBuilders[name]
}
