package gateway

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/vpkilab/vpki/backend/pkg/metrics"
	"github.com/vpkilab/vpki/core/pkg/config"
	"github.com/vpkilab/vpki/core/pkg/engines/gateway"
	"github.com/vpkilab/vpki/core/pkg/errs"
	chelpers "github.com/vpkilab/vpki/core/pkg/helpers"
	"github.com/vpkilab/vpki/core/pkg/models"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	DefaultQueueSize = 256
	DefaultWorkers   = 2
	DefaultTimeout   = 5 * time.Second
)

type ForwarderBuilder struct {
	Logger  *logrus.Entry
	Gateway gateway.LedgerGateway
	Metrics *metrics.Sink
	Config  config.GatewayForwarding
	// OnAck is called from a worker goroutine for every acknowledged transaction.
	OnAck func(tx *models.Transaction, ack *models.GatewayAck, elapsed time.Duration)
}

type ForwarderStats struct {
	Forwarded uint64 `json:"forwarded"`
	Failed    uint64 `json:"failed"`
	Dropped   uint64 `json:"dropped"`
	Queued    int    `json:"queued"`
}

type queuedTx struct {
	tx         *models.Transaction
	enqueuedAt time.Time
}

// Forwarder mirrors committed transactions to an external ledger without
// blocking the caller. Failures are logged and counted, never retried.
type Forwarder struct {
	logger   *logrus.Entry
	gw       gateway.LedgerGateway
	metrics  *metrics.Sink
	timeout  time.Duration
	workers  int
	breaker  *gobreaker.CircuitBreaker
	limiter  *rate.Limiter
	onAck    func(tx *models.Transaction, ack *models.GatewayAck, elapsed time.Duration)
	queue    chan queuedTx
	mu       sync.RWMutex
	running  bool
	stopped  bool
	group    *errgroup.Group
	cancel   context.CancelFunc
	forwards atomic.Uint64
	failures atomic.Uint64
	drops    atomic.Uint64
}

func NewForwarder(builder ForwarderBuilder) (*Forwarder, error) {
	if builder.Gateway == nil {
		return nil, fmt.Errorf("%w: gateway is required", errs.ErrValidateBadRequest)
	}

	conf := builder.Config
	if conf.QueueSize <= 0 {
		conf.QueueSize = DefaultQueueSize
	}
	if conf.Workers <= 0 {
		conf.Workers = DefaultWorkers
	}
	if conf.Timeout <= 0 {
		conf.Timeout = DefaultTimeout
	}

	f := &Forwarder{
		logger:  builder.Logger,
		gw:      builder.Gateway,
		metrics: builder.Metrics,
		timeout: conf.Timeout,
		workers: conf.Workers,
		onAck:   builder.OnAck,
		queue:   make(chan queuedTx, conf.QueueSize),
	}

	if f.logger == nil {
		f.logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if f.metrics == nil {
		f.metrics = metrics.NewDiscardSink()
	}

	if conf.RateLimit > 0 {
		burst := conf.RateBurst
		if burst <= 0 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(conf.RateLimit), burst)
	}

	if conf.CircuitBreaker.Enabled {
		threshold := conf.CircuitBreaker.ConsecutiveFailures
		if threshold == 0 {
			threshold = 5
		}

		f.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    string(builder.Gateway.GetProvider()),
			Timeout: conf.CircuitBreaker.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				f.logger.Warnf("gateway %s circuit breaker: %s -> %s", name, from, to)
			},
		})
	}

	return f, nil
}

// Start connects the gateway and launches the workers.
func (f *Forwarder) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.running {
		return nil
	}
	if f.stopped {
		return errs.ErrGatewayNotRunning
	}

	if err := f.gw.Connect(ctx); err != nil {
		f.logger.Errorf("could not connect to %s gateway: %s", f.gw.GetProvider(), err)
		return err
	}

	wCtx, cancel := context.WithCancel(context.Background())
	group, wCtx := errgroup.WithContext(wCtx)
	for i := 0; i < f.workers; i++ {
		group.Go(func() error {
			return f.work(wCtx)
		})
	}

	f.group = group
	f.cancel = cancel
	f.running = true

	f.logger.Infof("forwarding to %s gateway with %d workers", f.gw.GetProvider(), f.workers)
	return nil
}

// Enqueue never blocks.
// Returned Error Codes:
//   - ErrGatewayNotRunning
//     Start was not called or Stop already ran.
//   - ErrGatewayQueueFull
//     The transaction was dropped.
func (f *Forwarder) Enqueue(tx *models.Transaction) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if !f.running {
		return errs.ErrGatewayNotRunning
	}

	select {
	case f.queue <- queuedTx{tx: tx, enqueuedAt: time.Now()}:
		return nil
	default:
		f.drops.Add(1)
		f.metrics.GatewayDropped.Add(1)
		f.logger.Warnf("forwarding queue full. dropping transaction %s", tx.ID)
		return errs.ErrGatewayQueueFull
	}
}

// Stop stops accepting transactions, lets the workers drain the queue and
// closes the gateway. Queued transactions are abandoned when ctx ends first.
func (f *Forwarder) Stop(ctx context.Context) error {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return nil
	}
	f.running = false
	f.stopped = true
	close(f.queue)
	f.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- f.group.Wait()
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		f.cancel()
		err = <-done
	}
	f.cancel()

	if cErr := f.gw.Close(); cErr != nil && err == nil {
		err = cErr
	}

	f.logger.Infof("forwarder stopped")
	return err
}

func (f *Forwarder) Stats() ForwarderStats {
	return ForwarderStats{
		Forwarded: f.forwards.Load(),
		Failed:    f.failures.Load(),
		Dropped:   f.drops.Load(),
		Queued:    len(f.queue),
	}
}

func (f *Forwarder) work(ctx context.Context) error {
	for item := range f.queue {
		if ctx.Err() != nil {
			continue
		}

		f.forward(ctx, item)
	}

	return nil
}

func (f *Forwarder) forward(ctx context.Context, item queuedTx) {
	lFunc := chelpers.ConfigureLogger(chelpers.InitContext(), f.logger)

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			f.fail(lFunc, item.tx, err)
			return
		}
	}

	subCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	submit := func() (interface{}, error) {
		return f.gw.Submit(subCtx, item.tx)
	}

	var res interface{}
	var err error
	if f.breaker != nil {
		res, err = f.breaker.Execute(submit)
	} else {
		res, err = submit()
	}

	if err != nil {
		f.fail(lFunc, item.tx, err)
		return
	}

	ack, _ := res.(*models.GatewayAck)
	if ack == nil {
		ack = &models.GatewayAck{TransactionID: item.tx.ID, AcceptedAt: time.Now()}
	}
	elapsed := time.Since(item.enqueuedAt)
	f.forwards.Add(1)
	f.metrics.GatewayForwarded.Add(1)
	lFunc.Debugf("transaction %s acknowledged by gateway as %s after %s", item.tx.ID, ack.Reference, elapsed)

	if f.onAck != nil {
		f.onAck(item.tx, ack, elapsed)
	}
}

func (f *Forwarder) fail(lFunc *logrus.Entry, tx *models.Transaction, err error) {
	f.failures.Add(1)
	f.metrics.GatewayFailed.Add(1)
	lFunc.Errorf("could not forward transaction %s: %s", tx.ID, err)
}
