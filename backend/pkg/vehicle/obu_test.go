package vehicle

import (
	"context"
	"testing"
	"time"

	"github.com/go-kit/kit/metrics/generic"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vpkilab/vpki/backend/pkg/metrics"
	"github.com/vpkilab/vpki/core/pkg/errs"
	"github.com/vpkilab/vpki/core/pkg/models"
	"github.com/vpkilab/vpki/core/pkg/services"
	svcmock "github.com/vpkilab/vpki/core/pkg/services/mock"
	"github.com/vpkilab/vpki/engines/crypto/software"
)

type stubEdge struct {
	validity *models.Validity
	err      error
}

func (s *stubEdge) Invalidate(ctx context.Context, serialNumber string) {}
func (s *stubEdge) NodeID() string                                      { return "edge-stub" }
func (s *stubEdge) SetDegraded(ctx context.Context, degraded bool)      {}
func (s *stubEdge) GetStats(ctx context.Context) *models.EdgeStats      { return &models.EdgeStats{} }
func (s *stubEdge) Lookup(ctx context.Context, input services.LookupInput) (*models.Validity, error) {
	return s.validity, s.err
}

func newEnrolledOBU(t *testing.T, id string, sink *metrics.Sink) *OBU {
	t.Helper()
	ctx := context.Background()
	lgr := logrus.NewEntry(logrus.New())

	obu, err := NewOBU(ctx, OBUBuilder{
		Logger:        lgr,
		VehicleID:     id,
		SigningEngine: software.NewSoftwareCryptoEngine(lgr),
		Metrics:       sink,
	})
	require.NoError(t, err)

	ca := new(svcmock.MockCAService)
	ca.On("IssueCertificate", mock.Anything, mock.MatchedBy(func(in services.IssueCertificateInput) bool {
		return in.Subject == id && len(in.PublicKey) == 32
	})).Return(&models.Certificate{
		SerialNumber: "sn-" + id,
		Subject:      id,
		Status:       models.StatusActive,
		ExpiresAt:    time.Now().Add(time.Hour),
	}, nil)

	_, err = obu.Enroll(ctx, ca, time.Hour)
	require.NoError(t, err)
	return obu
}

func TestNewOBUValidation(t *testing.T) {
	_, err := NewOBU(context.Background(), OBUBuilder{VehicleID: "V1"})
	assert.ErrorIs(t, err, errs.ErrValidateBadRequest)
}

func TestSignWithoutCertificate(t *testing.T) {
	lgr := logrus.NewEntry(logrus.New())
	obu, err := NewOBU(context.Background(), OBUBuilder{VehicleID: "V1", SigningEngine: software.NewSoftwareCryptoEngine(lgr)})
	require.NoError(t, err)

	_, err = obu.SignMessage(context.Background(), []byte("hello"))
	assert.ErrorIs(t, err, ErrNotEnrolled)

	_, err = obu.Renew(context.Background(), new(svcmock.MockCAService), time.Hour)
	assert.ErrorIs(t, err, ErrNotEnrolled)
}

func TestSignAndVerifyV2VMessage(t *testing.T) {
	sink := metrics.NewGenericSink()
	sender := newEnrolledOBU(t, "V1", sink)
	receiver := newEnrolledOBU(t, "V2", sink)
	ctx := context.Background()

	msg, err := sender.SignMessage(ctx, []byte("brake warning"))
	require.NoError(t, err)
	assert.Equal(t, "V1", msg.SenderID)
	assert.Equal(t, "sn-V1", msg.SerialNumber)

	ok, err := receiver.VerifyMessage(ctx, msg, sender.PublicKey())
	require.NoError(t, err)
	assert.True(t, ok)

	tampered := *msg
	tampered.Payload = []byte("all clear")
	ok, err = receiver.VerifyMessage(ctx, &tampered, sender.PublicKey())
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = receiver.VerifyMessage(ctx, msg, receiver.PublicKey())
	require.NoError(t, err)
	assert.False(t, ok, "wrong sender key")

	signing := sink.SigningTime.(*generic.Histogram)
	verification := sink.VerificationTime.(*generic.Histogram)
	assert.GreaterOrEqual(t, signing.Quantile(0.5), 0.0)
	assert.GreaterOrEqual(t, verification.Quantile(0.5), 0.0)
}

func TestAuthenticate(t *testing.T) {
	sender := newEnrolledOBU(t, "V1", nil)
	receiver := newEnrolledOBU(t, "V2", nil)
	ctx := context.Background()

	msg, err := sender.SignMessage(ctx, []byte("position"))
	require.NoError(t, err)

	var testcases = []struct {
		name     string
		edge     *stubEdge
		expected bool
		err      error
	}{
		{
			name:     "OK/ActiveSender",
			edge:     &stubEdge{validity: &models.Validity{SerialNumber: msg.SerialNumber, Status: models.StatusActive, ExpiresAt: time.Now().Add(time.Hour)}},
			expected: true,
		},
		{
			name:     "OK/RevokedSender",
			edge:     &stubEdge{validity: &models.Validity{SerialNumber: msg.SerialNumber, Status: models.StatusRevoked, ExpiresAt: time.Now().Add(time.Hour)}},
			expected: false,
		},
		{
			name: "ERR/EdgeUnavailable",
			edge: &stubEdge{err: errs.ErrEdgeBackendUnavailable},
			err:  errs.ErrEdgeBackendUnavailable,
		},
	}

	for _, tc := range testcases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			ok, err := receiver.Authenticate(ctx, tc.edge, msg, sender.PublicKey())
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, ok)
		})
	}
}

func TestRenewKeepsKey(t *testing.T) {
	obu := newEnrolledOBU(t, "V1", nil)

	ca := new(svcmock.MockCAService)
	ca.On("RenewCertificate", mock.Anything, services.RenewCertificateInput{SerialNumber: "sn-V1", Validity: time.Hour}).
		Return(&models.Certificate{SerialNumber: "sn-V1b", PreviousSerialNumber: "sn-V1"}, nil)

	cert, err := obu.Renew(context.Background(), ca, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "sn-V1b", cert.SerialNumber)
	assert.Equal(t, "sn-V1b", obu.Certificate().SerialNumber)

	msg, err := obu.SignMessage(context.Background(), []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "sn-V1b", msg.SerialNumber)
}
