package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-kit/kit/metrics/generic"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vpkilab/vpki/backend/pkg/metrics"
	"github.com/vpkilab/vpki/core/pkg/config"
	"github.com/vpkilab/vpki/core/pkg/errs"
	"github.com/vpkilab/vpki/core/pkg/models"
	"github.com/vpkilab/vpki/engines/gateway/noop"
	"github.com/vpkilab/vpki/engines/gateway/simulated"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) GetProvider() config.GatewayProvider {
	return config.GatewayProvider("mock")
}

func (m *mockGateway) Connect(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockGateway) Submit(ctx context.Context, tx *models.Transaction) (*models.GatewayAck, error) {
	args := m.Called(ctx, tx)
	ack, _ := args.Get(0).(*models.GatewayAck)
	return ack, args.Error(1)
}

func (m *mockGateway) Close() error {
	return nil
}

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logrus.NewEntry(logger)
}

func newTx(id string) *models.Transaction {
	return &models.Transaction{ID: id, Kind: models.TxIssuance, SerialNumber: "sn-" + id}
}

func TestForwardDoesNotBlockCaller(t *testing.T) {
	gw, err := simulated.NewSimulatedGateway(testLogger(), simulated.SimulatedGatewayConfig{SubmitLatency: 50 * time.Millisecond})
	require.NoError(t, err)

	acks := make(chan time.Duration, 1)
	f, err := NewForwarder(ForwarderBuilder{
		Logger:  testLogger(),
		Gateway: gw,
		Config:  config.GatewayForwarding{Timeout: time.Second},
		OnAck: func(tx *models.Transaction, ack *models.GatewayAck, elapsed time.Duration) {
			acks <- elapsed
		},
	})
	require.NoError(t, err)
	require.NoError(t, f.Start(context.Background()))
	defer f.Stop(context.Background())

	begin := time.Now()
	require.NoError(t, f.Enqueue(newTx("tx-1")))
	assert.Less(t, time.Since(begin), 10*time.Millisecond)

	select {
	case elapsed := <-acks:
		assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	case <-time.After(2 * time.Second):
		t.Fatal("no acknowledgment received")
	}

	assert.Equal(t, uint64(1), f.Stats().Forwarded)
	assert.Equal(t, uint64(1), gw.Submitted())
}

func TestQueueFull(t *testing.T) {
	gw := &mockGateway{}
	started := make(chan struct{}, 1)
	release := make(chan struct{})

	gw.On("Connect", mock.Anything).Return(nil)
	gw.On("Submit", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
	}).Return(&models.GatewayAck{Reference: "ok"}, nil)

	sink := metrics.NewGenericSink()
	f, err := NewForwarder(ForwarderBuilder{
		Logger:  testLogger(),
		Gateway: gw,
		Metrics: sink,
		Config:  config.GatewayForwarding{QueueSize: 1, Workers: 1, Timeout: time.Second},
	})
	require.NoError(t, err)
	require.NoError(t, f.Start(context.Background()))

	require.NoError(t, f.Enqueue(newTx("tx-1")))
	<-started
	require.NoError(t, f.Enqueue(newTx("tx-2")))

	err = f.Enqueue(newTx("tx-3"))
	assert.ErrorIs(t, err, errs.ErrGatewayQueueFull)
	assert.Equal(t, uint64(1), f.Stats().Dropped)
	assert.Equal(t, 1.0, sink.GatewayDropped.(*generic.Counter).Value())

	close(release)
	require.NoError(t, f.Stop(context.Background()))
	assert.Equal(t, uint64(2), f.Stats().Forwarded)
	gw.AssertNumberOfCalls(t, "Submit", 2)
}

func TestSubmitTimeoutIsCounted(t *testing.T) {
	gw, err := simulated.NewSimulatedGateway(testLogger(), simulated.SimulatedGatewayConfig{SubmitLatency: 500 * time.Millisecond})
	require.NoError(t, err)

	sink := metrics.NewGenericSink()
	f, err := NewForwarder(ForwarderBuilder{
		Logger:  testLogger(),
		Gateway: gw,
		Metrics: sink,
		Config:  config.GatewayForwarding{Timeout: 20 * time.Millisecond},
	})
	require.NoError(t, err)
	require.NoError(t, f.Start(context.Background()))
	defer f.Stop(context.Background())

	require.NoError(t, f.Enqueue(newTx("tx-1")))

	assert.Eventually(t, func() bool {
		return f.Stats().Failed == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1.0, sink.GatewayFailed.(*generic.Counter).Value())
	assert.Equal(t, uint64(0), f.Stats().Forwarded)
}

func TestCircuitBreakerOpens(t *testing.T) {
	gw := &mockGateway{}
	gw.On("Connect", mock.Anything).Return(nil)
	gw.On("Submit", mock.Anything, mock.Anything).Return(nil, errs.ErrGatewayError)

	f, err := NewForwarder(ForwarderBuilder{
		Logger:  testLogger(),
		Gateway: gw,
		Config: config.GatewayForwarding{
			Workers: 1,
			Timeout: time.Second,
			CircuitBreaker: config.CircuitBreaker{
				Enabled:             true,
				ConsecutiveFailures: 2,
				OpenTimeout:         time.Minute,
			},
		},
	})
	require.NoError(t, err)
	require.NoError(t, f.Start(context.Background()))

	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, f.Enqueue(newTx(id)))
	}
	require.NoError(t, f.Stop(context.Background()))

	assert.Equal(t, uint64(4), f.Stats().Failed)
	gw.AssertNumberOfCalls(t, "Submit", 2)
}

func TestRateLimit(t *testing.T) {
	f, err := NewForwarder(ForwarderBuilder{
		Logger:  testLogger(),
		Gateway: noop.NewNoopGateway(testLogger()),
		Config:  config.GatewayForwarding{Workers: 1, RateLimit: 20, RateBurst: 1},
	})
	require.NoError(t, err)
	require.NoError(t, f.Start(context.Background()))

	begin := time.Now()
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, f.Enqueue(newTx(id)))
	}
	require.NoError(t, f.Stop(context.Background()))

	assert.GreaterOrEqual(t, time.Since(begin), 150*time.Millisecond)
	assert.Equal(t, uint64(5), f.Stats().Forwarded)
}

func TestLifecycle(t *testing.T) {
	var testcases = []struct {
		name        string
		run         func(f *Forwarder) error
		resultCheck func(t *testing.T, err error)
	}{
		{
			name: "ERR/EnqueueBeforeStart",
			run: func(f *Forwarder) error {
				return f.Enqueue(newTx("a"))
			},
			resultCheck: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, errs.ErrGatewayNotRunning)
			},
		},
		{
			name: "ERR/EnqueueAfterStop",
			run: func(f *Forwarder) error {
				f.Start(context.Background())
				f.Stop(context.Background())
				return f.Enqueue(newTx("a"))
			},
			resultCheck: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, errs.ErrGatewayNotRunning)
			},
		},
		{
			name: "ERR/RestartAfterStop",
			run: func(f *Forwarder) error {
				f.Start(context.Background())
				f.Stop(context.Background())
				return f.Start(context.Background())
			},
			resultCheck: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, errs.ErrGatewayNotRunning)
			},
		},
		{
			name: "OK/StopTwice",
			run: func(f *Forwarder) error {
				f.Start(context.Background())
				f.Stop(context.Background())
				return f.Stop(context.Background())
			},
			resultCheck: func(t *testing.T, err error) {
				assert.NoError(t, err)
			},
		},
	}

	for _, tc := range testcases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			f, err := NewForwarder(ForwarderBuilder{Logger: testLogger(), Gateway: noop.NewNoopGateway(testLogger())})
			require.NoError(t, err)

			tc.resultCheck(t, tc.run(f))
		})
	}
}

func TestStartConnectFailure(t *testing.T) {
	gw := &mockGateway{}
	gw.On("Connect", mock.Anything).Return(errors.New("unreachable"))

	f, err := NewForwarder(ForwarderBuilder{Logger: testLogger(), Gateway: gw})
	require.NoError(t, err)

	assert.Error(t, f.Start(context.Background()))
	assert.ErrorIs(t, f.Enqueue(newTx("a")), errs.ErrGatewayNotRunning)
}

func TestNewForwarderRequiresGateway(t *testing.T) {
	_, err := NewForwarder(ForwarderBuilder{Logger: testLogger()})
	assert.ErrorIs(t, err, errs.ErrValidateBadRequest)
}
