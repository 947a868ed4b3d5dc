package vehicle

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vpkilab/vpki/backend/pkg/metrics"
	"github.com/vpkilab/vpki/core/pkg/engines/cryptoengines"
	"github.com/vpkilab/vpki/core/pkg/errs"
	chelpers "github.com/vpkilab/vpki/core/pkg/helpers"
	"github.com/vpkilab/vpki/core/pkg/models"
	"github.com/vpkilab/vpki/core/pkg/services"
)

var ErrNotEnrolled = errors.New("vehicle has no certificate")

// OBU is the on board unit of a simulated vehicle. It owns a key in the
// signing engine and the certificate the CA issued for it.
type OBU struct {
	id      string
	keyID   string
	pub     []byte
	signer  cryptoengines.SigningEngine
	metrics *metrics.Sink
	logger  *logrus.Entry
	now     func() time.Time
	cert    *models.Certificate
}

type OBUBuilder struct {
	Logger        *logrus.Entry
	VehicleID     string
	SigningEngine cryptoengines.SigningEngine
	Metrics       *metrics.Sink
	Clock         func() time.Time
}

func NewOBU(ctx context.Context, builder OBUBuilder) (*OBU, error) {
	if builder.VehicleID == "" || builder.SigningEngine == nil {
		return nil, fmt.Errorf("%w: vehicle id and signing engine are required", errs.ErrValidateBadRequest)
	}

	obu := &OBU{
		id:      builder.VehicleID,
		signer:  builder.SigningEngine,
		metrics: builder.Metrics,
		logger:  builder.Logger,
		now:     builder.Clock,
	}
	if obu.logger == nil {
		obu.logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if obu.metrics == nil {
		obu.metrics = metrics.NewDiscardSink()
	}
	if obu.now == nil {
		obu.now = time.Now
	}

	var err error
	obu.keyID, obu.pub, err = obu.signer.CreateKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not create key for vehicle %s: %w", builder.VehicleID, err)
	}

	return obu, nil
}

func (o *OBU) ID() string {
	return o.id
}

func (o *OBU) PublicKey() []byte {
	return append([]byte{}, o.pub...)
}

func (o *OBU) Certificate() *models.Certificate {
	return o.cert
}

// Enroll requests a certificate for the OBU key.
func (o *OBU) Enroll(ctx context.Context, ca services.CAService, validity time.Duration) (*models.Certificate, error) {
	cert, err := ca.IssueCertificate(ctx, services.IssueCertificateInput{
		Subject:   o.id,
		PublicKey: o.pub,
		Validity:  validity,
	})
	if err != nil {
		return nil, err
	}

	o.cert = cert
	chelpers.ConfigureLogger(ctx, o.logger).Debugf("vehicle %s enrolled with certificate %s", o.id, cert.SerialNumber)
	return cert, nil
}

// Renew replaces the current certificate, reusing the OBU key.
func (o *OBU) Renew(ctx context.Context, ca services.CAService, validity time.Duration) (*models.Certificate, error) {
	if o.cert == nil {
		return nil, ErrNotEnrolled
	}

	cert, err := ca.RenewCertificate(ctx, services.RenewCertificateInput{
		SerialNumber: o.cert.SerialNumber,
		Validity:     validity,
	})
	if cert != nil {
		o.cert = cert
	}
	return cert, err
}

// SignMessage builds a V2V message stamped with the current time and signed
// with the OBU key.
func (o *OBU) SignMessage(ctx context.Context, payload []byte) (*models.V2VMessage, error) {
	if o.cert == nil {
		return nil, ErrNotEnrolled
	}

	msg := &models.V2VMessage{
		SenderID:     o.id,
		SerialNumber: o.cert.SerialNumber,
		Payload:      append([]byte{}, payload...),
		Timestamp:    o.now(),
	}

	begin := time.Now()
	sig, err := o.signer.Sign(ctx, o.keyID, signedBytes(msg))
	metrics.ObserveSince(o.metrics.SigningTime, begin)
	if err != nil {
		return nil, err
	}

	msg.Signature = sig
	return msg, nil
}

// VerifyMessage checks the message signature against the sender public key.
// It does not check the sender certificate status, use an edge node for that.
func (o *OBU) VerifyMessage(ctx context.Context, msg *models.V2VMessage, senderPublicKey []byte) (bool, error) {
	begin := time.Now()
	defer metrics.ObserveSince(o.metrics.VerificationTime, begin)

	return o.signer.Verify(ctx, signedBytes(msg), msg.Signature, senderPublicKey)
}

// Authenticate verifies the message and then asks the edge node whether the
// sender certificate is currently valid.
func (o *OBU) Authenticate(ctx context.Context, edge services.EdgeService, msg *models.V2VMessage, senderPublicKey []byte) (bool, error) {
	ok, err := o.VerifyMessage(ctx, msg, senderPublicKey)
	if err != nil || !ok {
		return false, err
	}

	validity, err := edge.Lookup(ctx, services.LookupInput{SerialNumber: msg.SerialNumber})
	if err != nil {
		return false, err
	}

	return validity.IsValidAt(o.now()), nil
}

func signedBytes(msg *models.V2VMessage) []byte {
	b := make([]byte, 0, len(msg.SenderID)+len(msg.SerialNumber)+len(msg.Payload)+10)
	b = append(b, msg.SenderID...)
	b = append(b, 0)
	b = append(b, msg.SerialNumber...)
	b = append(b, 0)
	b = binary.BigEndian.AppendUint64(b, uint64(msg.Timestamp.UnixNano()))
	b = append(b, msg.Payload...)
	return b
}
