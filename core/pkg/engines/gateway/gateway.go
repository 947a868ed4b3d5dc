package gateway

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/vpkilab/vpki/core/pkg/config"
	"github.com/vpkilab/vpki/core/pkg/models"
)

// LedgerGateway mirrors committed transactions to an external ledger.
// Submit must honour ctx cancellation.
type LedgerGateway interface {
	GetProvider() config.GatewayProvider
	Connect(ctx context.Context) error
	Submit(ctx context.Context, tx *models.Transaction) (*models.GatewayAck, error)
	Close() error
}

type GatewayBuilder func(logger *logrus.Entry, conf config.GatewayEngine) (LedgerGateway, error)

var gatewayBuilders = map[config.GatewayProvider]GatewayBuilder{}

func RegisterGateway(provider config.GatewayProvider, builder GatewayBuilder) {
	gatewayBuilders[provider] = builder
}

func GetGatewayBuilder(provider config.GatewayProvider) GatewayBuilder {
	return gatewayBuilders[provider]
}
