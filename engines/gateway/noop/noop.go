package noop

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vpkilab/vpki/core/pkg/config"
	"github.com/vpkilab/vpki/core/pkg/engines/gateway"
	"github.com/vpkilab/vpki/core/pkg/models"
)

// NoopGateway accepts every transaction without contacting anything.
type NoopGateway struct {
	logger *logrus.Entry
}

func NewNoopGateway(logger *logrus.Entry) *NoopGateway {
	return &NoopGateway{logger: logger}
}

func Register() {
	gateway.RegisterGateway(config.NoopGateway, func(logger *logrus.Entry, conf config.GatewayEngine) (gateway.LedgerGateway, error) {
		return NewNoopGateway(logger), nil
	})
}

func (g *NoopGateway) GetProvider() config.GatewayProvider {
	return config.NoopGateway
}

func (g *NoopGateway) Connect(ctx context.Context) error {
	return nil
}

func (g *NoopGateway) Submit(ctx context.Context, tx *models.Transaction) (*models.GatewayAck, error) {
	g.logger.Tracef("discarding transaction %s", tx.ID)
	return &models.GatewayAck{
		TransactionID: tx.ID,
		Reference:     "noop",
		AcceptedAt:    time.Now(),
	}, nil
}

func (g *NoopGateway) Close() error {
	return nil
}
