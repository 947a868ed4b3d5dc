package builder

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	cconfig "github.com/vpkilab/vpki/core/pkg/config"
	"github.com/vpkilab/vpki/core/pkg/engines/gateway"
	"github.com/vpkilab/vpki/engines/gateway/httpclient"
	"github.com/vpkilab/vpki/engines/gateway/noop"
	"github.com/vpkilab/vpki/engines/gateway/simulated"
)

func init() {
	noop.Register()
	simulated.Register()
	httpclient.Register()
}

func BuildGateway(logger *log.Entry, conf cconfig.GatewayEngine) (gateway.LedgerGateway, error) {
	provider := conf.Provider
	if provider == "" {
		provider = cconfig.NoopGateway
	}

	builder := gateway.GetGatewayBuilder(provider)
	if builder == nil {
		return nil, fmt.Errorf("no ledger gateway of type %s", provider)
	}

	return builder(logger, conf)
}
