package eventpub

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vpkilab/vpki/core"
	"github.com/vpkilab/vpki/core/pkg/helpers"
	"github.com/vpkilab/vpki/core/pkg/models"
	"github.com/vpkilab/vpki/core/pkg/services"
	svcmock "github.com/vpkilab/vpki/core/pkg/services/mock"
)

type CloudEventPublisherMock struct {
	mock.Mock
}

func (m *CloudEventPublisherMock) PublishCloudEvent(ctx context.Context, payload interface{}) {
	m.Called(ctx, payload)
}

func eventTypeIs(expected models.EventType) interface{} {
	return mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Value(core.VPKIContextKeyEventType) == expected &&
			ctx.Value(core.VPKIContextKeySource) != nil
	})
}

func TestCAEventPublisher(t *testing.T) {
	cert := &models.Certificate{SerialNumber: "sn-1", Status: models.StatusActive}
	someErr := errors.New("some error")

	var testcases = []struct {
		name        string
		event       models.EventType
		before      func(ca *svcmock.MockCAService)
		run         func(svc services.CAService) error
		expectEvent bool
	}{
		{
			name:  "OK/IssueCertificate",
			event: models.EventIssueCertificateKey,
			before: func(ca *svcmock.MockCAService) {
				ca.On("IssueCertificate", mock.Anything, mock.Anything).Return(cert, nil)
			},
			run: func(svc services.CAService) error {
				_, err := svc.IssueCertificate(context.Background(), services.IssueCertificateInput{})
				return err
			},
			expectEvent: true,
		},
		{
			name:  "ERR/IssueCertificate",
			event: models.EventIssueCertificateKey,
			before: func(ca *svcmock.MockCAService) {
				ca.On("IssueCertificate", mock.Anything, mock.Anything).Return((*models.Certificate)(nil), someErr)
			},
			run: func(svc services.CAService) error {
				_, err := svc.IssueCertificate(context.Background(), services.IssueCertificateInput{})
				return err
			},
		},
		{
			name:  "OK/RevokeCertificate",
			event: models.EventRevokeCertificateKey,
			before: func(ca *svcmock.MockCAService) {
				ca.On("RevokeCertificate", mock.Anything, mock.Anything).Return(cert, nil)
			},
			run: func(svc services.CAService) error {
				_, err := svc.RevokeCertificate(context.Background(), services.RevokeCertificateInput{SerialNumber: "sn-1"})
				return err
			},
			expectEvent: true,
		},
		{
			name:  "ERR/RevokeCertificate",
			event: models.EventRevokeCertificateKey,
			before: func(ca *svcmock.MockCAService) {
				ca.On("RevokeCertificate", mock.Anything, mock.Anything).Return((*models.Certificate)(nil), someErr)
			},
			run: func(svc services.CAService) error {
				_, err := svc.RevokeCertificate(context.Background(), services.RevokeCertificateInput{SerialNumber: "sn-1"})
				return err
			},
		},
		{
			name:  "OK/RenewCertificate",
			event: models.EventRenewCertificateKey,
			before: func(ca *svcmock.MockCAService) {
				ca.On("RenewCertificate", mock.Anything, mock.Anything).Return(cert, nil)
			},
			run: func(svc services.CAService) error {
				_, err := svc.RenewCertificate(context.Background(), services.RenewCertificateInput{SerialNumber: "sn-0"})
				return err
			},
			expectEvent: true,
		},
		{
			name:  "ERR/RenewCertificate",
			event: models.EventRenewCertificateKey,
			before: func(ca *svcmock.MockCAService) {
				ca.On("RenewCertificate", mock.Anything, mock.Anything).Return((*models.Certificate)(nil), someErr)
			},
			run: func(svc services.CAService) error {
				_, err := svc.RenewCertificate(context.Background(), services.RenewCertificateInput{SerialNumber: "sn-0"})
				return err
			},
		},
		{
			name:  "OK/ArchiveCertificates",
			event: models.EventArchiveCertificateKey,
			before: func(ca *svcmock.MockCAService) {
				ca.On("ArchiveCertificates", mock.Anything, mock.Anything).Return([]*models.Certificate{cert}, nil)
			},
			run: func(svc services.CAService) error {
				_, err := svc.ArchiveCertificates(context.Background(), services.ArchiveCertificatesInput{})
				return err
			},
			expectEvent: true,
		},
		{
			name:  "OK/ValidateCertificateNoEvent",
			event: models.EventAnyKey,
			before: func(ca *svcmock.MockCAService) {
				ca.On("ValidateCertificate", mock.Anything, mock.Anything).Return(models.StatusActive, nil)
			},
			run: func(svc services.CAService) error {
				_, err := svc.ValidateCertificate(context.Background(), services.ValidateCertificateInput{SerialNumber: "sn-1"})
				return err
			},
		},
	}

	for _, tc := range testcases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			ca := new(svcmock.MockCAService)
			pub := new(CloudEventPublisherMock)
			pub.On("PublishCloudEvent", eventTypeIs(tc.event), mock.Anything).Return()

			tc.before(ca)
			svc := NewCAEventBusPublisher(pub)(ca)

			err := tc.run(svc)
			ca.AssertExpectations(t)

			if tc.expectEvent {
				assert.NoError(t, err)
				pub.AssertNumberOfCalls(t, "PublishCloudEvent", 1)
			} else {
				pub.AssertNotCalled(t, "PublishCloudEvent", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestLedgerEventPublisher(t *testing.T) {
	t.Run("OK/BlockMined", func(t *testing.T) {
		l := new(svcmock.MockLedgerService)
		pub := new(CloudEventPublisherMock)
		block := &models.Block{Index: 3}
		l.On("Mine", mock.Anything).Return(block, nil)
		pub.On("PublishCloudEvent", eventTypeIs(models.EventBlockMinedKey), block).Return()

		out, err := NewLedgerEventBusPublisher(pub)(l).Mine(context.Background())
		require.NoError(t, err)
		assert.Equal(t, block, out)
		pub.AssertExpectations(t)
	})

	t.Run("OK/EmptyRoundNoEvent", func(t *testing.T) {
		l := new(svcmock.MockLedgerService)
		pub := new(CloudEventPublisherMock)
		l.On("Mine", mock.Anything).Return((*models.Block)(nil), nil)

		_, err := NewLedgerEventBusPublisher(pub)(l).Mine(context.Background())
		require.NoError(t, err)
		pub.AssertNotCalled(t, "PublishCloudEvent", mock.Anything, mock.Anything)
	})

	t.Run("OK/PassThrough", func(t *testing.T) {
		l := new(svcmock.MockLedgerService)
		pub := new(CloudEventPublisherMock)
		l.On("Prune", mock.Anything).Return(2, nil)
		l.On("TPS", time.Minute).Return(1.5)

		svc := NewLedgerEventBusPublisher(pub)(l)
		pruned, err := svc.Prune(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, pruned)
		assert.Equal(t, 1.5, svc.TPS(time.Minute))
		pub.AssertNotCalled(t, "PublishCloudEvent", mock.Anything, mock.Anything)
	})
}

func TestCloudEventPublisherOverGoChannel(t *testing.T) {
	logger := logrus.NewEntry(logrus.New())
	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { pubsub.Close() })

	msgs, err := pubsub.Subscribe(context.Background(), string(models.EventRevokeCertificateKey))
	require.NoError(t, err)

	publisher := NewEventPublisherWithSourceMiddleware(&CloudEventPublisher{
		Publisher: pubsub,
		ServiceID: "test",
		Logger:    logger,
	}, models.CASource)

	ctx := context.WithValue(context.Background(), core.VPKIContextKeyEventType, models.EventRevokeCertificateKey)
	ctx = context.WithValue(ctx, core.VPKIContextKeyEventSubject, "certificate/sn-1")
	publisher.PublishCloudEvent(ctx, &models.Certificate{SerialNumber: "sn-1", Status: models.StatusRevoked})

	select {
	case msg := <-msgs:
		msg.Ack()
		assert.Equal(t, models.CASource, msg.Metadata.Get(core.VPKIContextKeySource))

		var ev *event.Event
		ev, err = helpers.ParseCloudEvent(msg.Payload)
		require.NoError(t, err)
		assert.Equal(t, string(models.EventRevokeCertificateKey), ev.Type())
		assert.Equal(t, models.CASource, ev.Source())
		assert.Equal(t, "certificate/sn-1", ev.Subject())

		cert, err := helpers.GetEventBody[models.Certificate](ev)
		require.NoError(t, err)
		assert.Equal(t, "sn-1", cert.SerialNumber)
		assert.Equal(t, models.StatusRevoked, cert.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}
