package simulated

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vpkilab/vpki/core/pkg/config"
	"github.com/vpkilab/vpki/core/pkg/engines/gateway"
	"github.com/vpkilab/vpki/core/pkg/errs"
	"github.com/vpkilab/vpki/core/pkg/models"
)

type SimulatedGatewayConfig struct {
	ConnectLatency time.Duration `mapstructure:"connect_latency"`
	SubmitLatency  time.Duration `mapstructure:"submit_latency"`
	Jitter         time.Duration `mapstructure:"jitter"`
	FailureRate    float64       `mapstructure:"failure_rate"`
	Seed           int64         `mapstructure:"seed"`
}

// SimulatedGateway emulates a remote permissioned ledger with configurable
// latency and failure injection.
type SimulatedGateway struct {
	logger    *logrus.Entry
	conf      SimulatedGatewayConfig
	connected atomic.Bool
	submitted atomic.Uint64

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func Register() {
	gateway.RegisterGateway(config.SimulatedGateway, func(logger *logrus.Entry, conf config.GatewayEngine) (gateway.LedgerGateway, error) {
		simConf, err := config.DecodeStruct[SimulatedGatewayConfig](conf.Config)
		if err != nil {
			return nil, err
		}

		return NewSimulatedGateway(logger, simConf)
	})
}

func NewSimulatedGateway(logger *logrus.Entry, conf SimulatedGatewayConfig) (*SimulatedGateway, error) {
	if conf.FailureRate < 0 || conf.FailureRate > 1 {
		return nil, fmt.Errorf("failure rate must be within [0, 1], got %f", conf.FailureRate)
	}

	seed := conf.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &SimulatedGateway{
		logger: logger,
		conf:   conf,
		rnd:    rand.New(rand.NewSource(seed)),
	}, nil
}

func (g *SimulatedGateway) GetProvider() config.GatewayProvider {
	return config.SimulatedGateway
}

func (g *SimulatedGateway) Connect(ctx context.Context) error {
	if err := g.wait(ctx, g.conf.ConnectLatency); err != nil {
		return err
	}

	g.connected.Store(true)
	g.logger.Infof("connected to simulated ledger")
	return nil
}

func (g *SimulatedGateway) Submit(ctx context.Context, tx *models.Transaction) (*models.GatewayAck, error) {
	if !g.connected.Load() {
		return nil, fmt.Errorf("%w: not connected", errs.ErrGatewayError)
	}

	if err := g.wait(ctx, g.conf.SubmitLatency+g.jitter()); err != nil {
		return nil, err
	}

	if g.fail() {
		g.logger.Debugf("injected failure for transaction %s", tx.ID)
		return nil, fmt.Errorf("%w: injected failure", errs.ErrGatewayError)
	}

	n := g.submitted.Add(1)
	return &models.GatewayAck{
		TransactionID: tx.ID,
		Reference:     fmt.Sprintf("sim-%d", n),
		AcceptedAt:    time.Now(),
	}, nil
}

func (g *SimulatedGateway) Close() error {
	g.connected.Store(false)
	return nil
}

// Submitted returns how many transactions were acknowledged.
func (g *SimulatedGateway) Submitted() uint64 {
	return g.submitted.Load()
}

func (g *SimulatedGateway) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %s", errs.ErrGatewayTimeout, ctx.Err())
		}
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %s", errs.ErrGatewayTimeout, ctx.Err())
	}
}

func (g *SimulatedGateway) jitter() time.Duration {
	if g.conf.Jitter <= 0 {
		return 0
	}

	g.rndMu.Lock()
	defer g.rndMu.Unlock()
	return time.Duration(g.rnd.Int63n(int64(g.conf.Jitter)))
}

func (g *SimulatedGateway) fail() bool {
	if g.conf.FailureRate <= 0 {
		return false
	}

	g.rndMu.Lock()
	defer g.rndMu.Unlock()
	return g.rnd.Float64() < g.conf.FailureRate
}
