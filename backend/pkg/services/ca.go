package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vpkilab/vpki/backend/pkg/helpers"
	"github.com/vpkilab/vpki/backend/pkg/metrics"
	"github.com/vpkilab/vpki/core/pkg/engines/cryptoengines"
	"github.com/vpkilab/vpki/core/pkg/engines/storage"
	"github.com/vpkilab/vpki/core/pkg/errs"
	chelpers "github.com/vpkilab/vpki/core/pkg/helpers"
	"github.com/vpkilab/vpki/core/pkg/models"
	"github.com/vpkilab/vpki/core/pkg/services"
)

const DefaultCertificateValidity = 24 * time.Hour

type CAMiddleware func(services.CAService) services.CAService

var validate = validator.New()

// TransactionForwarder mirrors committed transactions to the external ledger.
// Enqueue must not block.
type TransactionForwarder interface {
	Enqueue(tx *models.Transaction) error
}

type CAServiceBackend struct {
	caID            string
	keyID           string
	publicKey       []byte
	signer          cryptoengines.SigningEngine
	certStorage     storage.CertificatesRepo
	ledger          services.TransactionSubmitter
	forwarder       TransactionForwarder
	metrics         *metrics.Sink
	defaultValidity time.Duration
	now             func() time.Time
	logger          *logrus.Entry
	locks           *helpers.KeyedMutex

	invMu        sync.RWMutex
	invalidators []services.CacheInvalidator
}

type CAServiceBuilder struct {
	Logger             *logrus.Entry
	CAID               string
	SigningEngine      cryptoengines.SigningEngine
	// KeyID selects an existing signing key. A new key is created when empty.
	KeyID              string
	CertificateStorage storage.CertificatesRepo
	Ledger             services.TransactionSubmitter
	Forwarder          TransactionForwarder
	Metrics            *metrics.Sink
	DefaultValidity    time.Duration
	Clock              func() time.Time
}

func NewCAService(builder CAServiceBuilder) (*CAServiceBackend, error) {
	if builder.SigningEngine == nil || builder.CertificateStorage == nil || builder.Ledger == nil {
		return nil, fmt.Errorf("%w: signing engine, certificate storage and ledger are required", errs.ErrValidateBadRequest)
	}

	svc := &CAServiceBackend{
		caID:            builder.CAID,
		keyID:           builder.KeyID,
		signer:          builder.SigningEngine,
		certStorage:     builder.CertificateStorage,
		ledger:          builder.Ledger,
		forwarder:       builder.Forwarder,
		metrics:         builder.Metrics,
		defaultValidity: builder.DefaultValidity,
		now:             builder.Clock,
		logger:          builder.Logger,
		locks:           helpers.NewKeyedMutex(),
	}

	if svc.logger == nil {
		svc.logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if svc.metrics == nil {
		svc.metrics = metrics.NewDiscardSink()
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	if svc.defaultValidity <= 0 {
		svc.defaultValidity = DefaultCertificateValidity
	}
	if svc.caID == "" {
		svc.caID = "ca-" + uuid.NewString()
	}

	ctx := chelpers.InitContext()
	var err error
	if svc.keyID == "" {
		svc.keyID, svc.publicKey, err = svc.signer.CreateKey(ctx)
	} else {
		svc.publicKey, err = svc.signer.GetPublicKey(ctx, svc.keyID)
	}
	if err != nil {
		svc.logger.Errorf("could not set up CA signing key: %s", err)
		return nil, err
	}

	svc.logger.Infof("CA %s ready with signing key %s", svc.caID, svc.keyID)
	return svc, nil
}

func (svc *CAServiceBackend) CAID() string {
	return svc.caID
}

func (svc *CAServiceBackend) PublicKey() []byte {
	return append([]byte{}, svc.publicKey...)
}

// RegisterInvalidator adds a cache notified synchronously on every revocation.
func (svc *CAServiceBackend) RegisterInvalidator(invalidator services.CacheInvalidator) {
	svc.invMu.Lock()
	defer svc.invMu.Unlock()

	svc.invalidators = append(svc.invalidators, invalidator)
}

func (svc *CAServiceBackend) GetStats(ctx context.Context) (*models.CAStats, error) {
	lFunc := chelpers.ConfigureLogger(ctx, svc.logger)

	certsStatus := map[models.CertificateStatus]int{}
	for _, status := range []models.CertificateStatus{models.StatusActive, models.StatusExpired, models.StatusRevoked, models.StatusArchived} {
		lFunc.Debugf("counting certificates in %s status", status)
		ctr, err := svc.certStorage.CountByStatus(ctx, status)
		if err != nil {
			lFunc.Errorf("could not count certificates in %s status: %s", status, err)
			return nil, err
		}

		certsStatus[status] = ctr
	}

	lFunc.Debugf("counting total number of certificates")
	total, err := svc.certStorage.Count(ctx)
	if err != nil {
		lFunc.Errorf("could not count total number of certificates: %s", err)
		return nil, err
	}

	return &models.CAStats{
		CAID:              svc.caID,
		TotalCertificates: total,
		CertificateStatus: certsStatus,
	}, nil
}

// Returned Error Codes:
//   - ErrValidateBadRequest
//     The required variables of the data structure are not valid.
//   - ErrSigningFailure
//     The signing engine could not sign the certificate.
//   - ErrPoolSaturated
//     The ledger rejected the ISSUANCE transaction. Nothing was stored.
func (svc *CAServiceBackend) IssueCertificate(ctx context.Context, input services.IssueCertificateInput) (*models.Certificate, error) {
	lFunc := chelpers.ConfigureLogger(ctx, svc.logger)
	begin := time.Now()

	err := validate.Struct(input)
	if err != nil {
		lFunc.Errorf("IssueCertificate struct validation error: %s", err)
		return nil, errs.ErrValidateBadRequest
	}

	cert, tx, err := svc.issue(ctx, lFunc, input.Subject, input.PublicKey, input.Validity, "", models.TxIssuance)
	if err != nil {
		return nil, err
	}

	svc.forward(lFunc, tx)
	metrics.ObserveSince(svc.metrics.IssuanceLatency, begin)

	lFunc.Infof("certificate %s issued to %s", cert.SerialNumber, cert.Subject)
	return cert, nil
}

// issue signs, commits and stores a new certificate under its serial lock.
func (svc *CAServiceBackend) issue(ctx context.Context, lFunc *logrus.Entry, subject string, pk []byte, validity time.Duration, previous string, kind models.TransactionKind) (*models.Certificate, *models.Transaction, error) {
	if validity <= 0 {
		validity = svc.defaultValidity
	}

	serial := uuid.NewString()
	unlock := svc.locks.Lock(serial)
	defer unlock()

	exists, _, err := svc.certStorage.SelectExistsBySerialNumber(ctx, serial)
	if err != nil {
		lFunc.Errorf("could not check if certificate %s exists: %s", serial, err)
		return nil, nil, err
	}
	if exists {
		lFunc.Errorf("serial number %s already in use", serial)
		return nil, nil, errs.ErrDuplicateSerial
	}

	now := svc.now()
	cert := &models.Certificate{
		SerialNumber:         serial,
		Subject:              subject,
		PublicKey:            append([]byte{}, pk...),
		IssuerCAID:           svc.caID,
		IssuedAt:             now,
		ExpiresAt:            now.Add(validity),
		Status:               models.StatusActive,
		PreviousSerialNumber: previous,
	}
	cert.Fingerprint = cert.ComputeFingerprint()

	signBegin := time.Now()
	cert.Signature, err = svc.signer.Sign(ctx, svc.keyID, cert.TBSBytes())
	metrics.ObserveSince(svc.metrics.SigningTime, signBegin)
	if err != nil {
		lFunc.Errorf("could not sign certificate %s: %s", serial, err)
		if errors.Is(err, errs.ErrSigningFailure) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("%w: %s", errs.ErrSigningFailure, err)
	}

	stored, err := svc.certStorage.Insert(ctx, cert)
	if err != nil {
		lFunc.Errorf("could not store certificate %s: %s", serial, err)
		return nil, nil, err
	}

	tx := svc.newTransaction(kind, stored)
	lFunc.Debugf("submitting %s transaction %s for certificate %s", kind, tx.ID, serial)
	if err := svc.ledger.Submit(ctx, tx); err != nil {
		lFunc.Errorf("ledger rejected %s transaction for certificate %s: %s", kind, serial, err)
		if delErr := svc.certStorage.Delete(ctx, serial); delErr != nil {
			lFunc.Errorf("could not remove uncommitted certificate %s: %s", serial, delErr)
			return nil, nil, errors.Join(err, delErr)
		}
		return nil, nil, err
	}

	return stored, tx, nil
}

// Returned Error Codes:
//   - ErrValidateBadRequest
//     The required variables of the data structure are not valid.
//   - ErrCertificateNotFound
//     The specified Certificate can not be found in the Database
//   - ErrCertificateAlreadyRevoked
//     The certificate was revoked before, possibly archived since.
//   - ErrCertificateExpired
//     Expired certificates can not be revoked.
//   - ErrPoolSaturated
//     The ledger rejected the REVOCATION transaction. The certificate is unchanged.
func (svc *CAServiceBackend) RevokeCertificate(ctx context.Context, input services.RevokeCertificateInput) (*models.Certificate, error) {
	lFunc := chelpers.ConfigureLogger(ctx, svc.logger)
	begin := time.Now()

	err := validate.Struct(input)
	if err != nil {
		lFunc.Errorf("RevokeCertificate struct validation error: %s", err)
		return nil, errs.ErrValidateBadRequest
	}

	unlock := svc.locks.Lock(input.SerialNumber)
	cert, tx, err := svc.revoke(ctx, lFunc, input.SerialNumber)
	unlock()
	if err != nil {
		return nil, err
	}

	// local commit is the revocation latency end point
	metrics.ObserveSince(svc.metrics.RevocationLatency, begin)

	svc.invalidate(ctx, lFunc, cert.SerialNumber)
	svc.forward(lFunc, tx)

	lFunc.Infof("certificate %s revoked", cert.SerialNumber)
	return cert, nil
}

// revoke expects the serial lock to be held.
func (svc *CAServiceBackend) revoke(ctx context.Context, lFunc *logrus.Entry, serial string) (*models.Certificate, *models.Transaction, error) {
	cert, err := svc.loadWithDerivedStatus(ctx, lFunc, serial)
	if err != nil {
		return nil, nil, err
	}

	switch cert.Status {
	case models.StatusRevoked:
		lFunc.Errorf("certificate %s is already revoked", serial)
		return nil, nil, errs.ErrCertificateAlreadyRevoked
	case models.StatusExpired:
		lFunc.Errorf("certificate %s is expired and can not be revoked", serial)
		return nil, nil, errs.ErrCertificateExpired
	case models.StatusArchived:
		if !cert.RevocationTimestamp.IsZero() {
			lFunc.Errorf("certificate %s was revoked and archived", serial)
			return nil, nil, errs.ErrCertificateAlreadyRevoked
		}
		lFunc.Errorf("certificate %s expired and was archived", serial)
		return nil, nil, errs.ErrCertificateExpired
	}

	prev := *cert
	cert.Status = models.StatusRevoked
	cert.RevocationTimestamp = svc.now()

	lFunc.Debugf("updating %s certificate status to %s", serial, cert.Status)
	cert, err = svc.certStorage.Update(ctx, cert)
	if err != nil {
		lFunc.Errorf("could not update certificate %s: %s", serial, err)
		return nil, nil, err
	}

	tx := svc.newTransaction(models.TxRevocation, cert)
	lFunc.Debugf("submitting REVOCATION transaction %s for certificate %s", tx.ID, serial)
	if err := svc.ledger.Submit(ctx, tx); err != nil {
		lFunc.Errorf("ledger rejected REVOCATION transaction for certificate %s: %s", serial, err)
		return nil, nil, svc.restore(ctx, lFunc, &prev, err)
	}

	return cert, tx, nil
}

// RenewCertificate issues a replacement for an ACTIVE certificate and revokes
// the original. When the revocation can not be committed the replacement is
// kept and the error is returned with it.
// Returned Error Codes:
//   - ErrValidateBadRequest
//     The required variables of the data structure are not valid.
//   - ErrCertificateNotFound
//     The specified Certificate can not be found in the Database
//   - ErrCertificateAlreadyRevoked
//     The certificate was revoked before.
//   - ErrCertificateExpired
//     Expired certificates can not be renewed.
func (svc *CAServiceBackend) RenewCertificate(ctx context.Context, input services.RenewCertificateInput) (*models.Certificate, error) {
	lFunc := chelpers.ConfigureLogger(ctx, svc.logger)
	begin := time.Now()

	err := validate.Struct(input)
	if err != nil {
		lFunc.Errorf("RenewCertificate struct validation error: %s", err)
		return nil, errs.ErrValidateBadRequest
	}

	unlock := svc.locks.Lock(input.SerialNumber)
	defer unlock()

	old, err := svc.loadWithDerivedStatus(ctx, lFunc, input.SerialNumber)
	if err != nil {
		return nil, err
	}

	switch old.Status {
	case models.StatusRevoked:
		return nil, errs.ErrCertificateAlreadyRevoked
	case models.StatusExpired:
		return nil, errs.ErrCertificateExpired
	case models.StatusArchived:
		if !old.RevocationTimestamp.IsZero() {
			return nil, errs.ErrCertificateAlreadyRevoked
		}
		return nil, errs.ErrCertificateExpired
	}

	pk := input.PublicKey
	if len(pk) == 0 {
		pk = old.PublicKey
	}

	renewed, renewalTx, err := svc.issue(ctx, lFunc, old.Subject, pk, input.Validity, old.SerialNumber, models.TxRenewal)
	if err != nil {
		return nil, err
	}
	svc.forward(lFunc, renewalTx)
	metrics.ObserveSince(svc.metrics.IssuanceLatency, begin)

	_, revocationTx, err := svc.revoke(ctx, lFunc, old.SerialNumber)
	if err != nil {
		lFunc.Errorf("certificate %s renewed as %s but could not be revoked: %s", old.SerialNumber, renewed.SerialNumber, err)
		return renewed, err
	}

	svc.invalidate(ctx, lFunc, old.SerialNumber)
	svc.forward(lFunc, revocationTx)

	lFunc.Infof("certificate %s renewed as %s", old.SerialNumber, renewed.SerialNumber)
	return renewed, nil
}

// ValidateCertificate returns the current status, persisting the ACTIVE to
// EXPIRED transition once the certificate is past its expiry.
// Returned Error Codes:
//   - ErrValidateBadRequest
//     The required variables of the data structure are not valid.
//   - ErrCertificateNotFound
//     The specified Certificate can not be found in the Database
func (svc *CAServiceBackend) ValidateCertificate(ctx context.Context, input services.ValidateCertificateInput) (models.CertificateStatus, error) {
	cert, err := svc.GetCertificateBySerialNumber(ctx, services.GetCertificateBySerialNumberInput{SerialNumber: input.SerialNumber})
	if err != nil {
		return "", err
	}

	return cert.Status, nil
}

// Returned Error Codes:
//   - ErrValidateBadRequest
//     The required variables of the data structure are not valid.
//   - ErrCertificateNotFound
//     The specified Certificate can not be found in the Database
func (svc *CAServiceBackend) GetCertificateBySerialNumber(ctx context.Context, input services.GetCertificateBySerialNumberInput) (*models.Certificate, error) {
	lFunc := chelpers.ConfigureLogger(ctx, svc.logger)

	err := validate.Struct(input)
	if err != nil {
		lFunc.Errorf("GetCertificateBySerialNumber struct validation error: %s", err)
		return nil, errs.ErrValidateBadRequest
	}

	unlock := svc.locks.Lock(input.SerialNumber)
	defer unlock()

	return svc.loadWithDerivedStatus(ctx, lFunc, input.SerialNumber)
}

// loadWithDerivedStatus expects the serial lock to be held.
func (svc *CAServiceBackend) loadWithDerivedStatus(ctx context.Context, lFunc *logrus.Entry, serial string) (*models.Certificate, error) {
	lFunc.Debugf("checking if certificate '%s' exists", serial)
	exists, cert, err := svc.certStorage.SelectExistsBySerialNumber(ctx, serial)
	if err != nil {
		lFunc.Errorf("something went wrong while checking if certificate '%s' exists in storage engine: %s", serial, err)
		return nil, err
	}

	if !exists {
		lFunc.Errorf("certificate %s can not be found in storage engine", serial)
		return nil, errs.ErrCertificateNotFound
	}

	if cert.Status == models.StatusActive && cert.IsExpiredAt(svc.now()) {
		lFunc.Infof("certificate %s expired at %s", serial, cert.ExpiresAt)
		cert.Status = models.StatusExpired
		cert, err = svc.certStorage.Update(ctx, cert)
		if err != nil {
			lFunc.Errorf("could not persist expiration of certificate %s: %s", serial, err)
			return nil, err
		}
	}

	return cert, nil
}

// ArchiveCertificates moves REVOKED and EXPIRED certificates whose revocation
// or expiry is older than the retention window to ARCHIVED. ACTIVE
// certificates past their expiry are marked EXPIRED on the way.
// Returned Error Codes:
//   - ErrValidateBadRequest
//     The required variables of the data structure are not valid.
//   - ErrPoolSaturated
//     The ledger rejected an ARCHIVAL transaction. The certificates archived
//     so far are returned with the error.
func (svc *CAServiceBackend) ArchiveCertificates(ctx context.Context, input services.ArchiveCertificatesInput) ([]*models.Certificate, error) {
	lFunc := chelpers.ConfigureLogger(ctx, svc.logger)

	err := validate.Struct(input)
	if err != nil {
		lFunc.Errorf("ArchiveCertificates struct validation error: %s", err)
		return nil, errs.ErrValidateBadRequest
	}

	now := svc.now()
	candidates := []string{}
	for _, status := range []models.CertificateStatus{models.StatusActive, models.StatusRevoked, models.StatusExpired} {
		err := svc.certStorage.SelectByStatus(ctx, status, func(c models.Certificate) {
			candidates = append(candidates, c.SerialNumber)
		})
		if err != nil {
			lFunc.Errorf("could not list %s certificates: %s", status, err)
			return nil, err
		}
	}

	archived := []*models.Certificate{}
	for _, serial := range candidates {
		cert, tx, err := svc.archiveOne(ctx, lFunc, serial, now, input.RetentionWindow)
		if err != nil {
			svc.refreshArchivedGauge(ctx)
			return archived, err
		}
		if cert == nil {
			continue
		}

		svc.forward(lFunc, tx)
		archived = append(archived, cert)
	}

	svc.refreshArchivedGauge(ctx)
	if len(archived) > 0 {
		lFunc.Infof("archived %d certificates", len(archived))
	}

	return archived, nil
}

func (svc *CAServiceBackend) archiveOne(ctx context.Context, lFunc *logrus.Entry, serial string, now time.Time, window time.Duration) (*models.Certificate, *models.Transaction, error) {
	unlock := svc.locks.Lock(serial)
	defer unlock()

	cert, err := svc.loadWithDerivedStatus(ctx, lFunc, serial)
	if err != nil {
		return nil, nil, err
	}

	var since time.Time
	switch cert.Status {
	case models.StatusRevoked:
		since = cert.RevocationTimestamp
	case models.StatusExpired:
		since = cert.ExpiresAt
	default:
		return nil, nil, nil
	}

	if now.Sub(since) < window {
		return nil, nil, nil
	}

	if !cert.Status.CanTransitionTo(models.StatusArchived) {
		return nil, nil, errs.ErrCertificateStatusTransitionNotAllowed
	}

	prev := *cert
	cert.Status = models.StatusArchived
	cert.ArchivedAt = now
	cert, err = svc.certStorage.Update(ctx, cert)
	if err != nil {
		lFunc.Errorf("could not update certificate %s: %s", serial, err)
		return nil, nil, err
	}

	tx := svc.newTransaction(models.TxArchival, cert)
	if err := svc.ledger.Submit(ctx, tx); err != nil {
		lFunc.Errorf("ledger rejected ARCHIVAL transaction for certificate %s: %s", serial, err)
		return nil, nil, svc.restore(ctx, lFunc, &prev, err)
	}

	return cert, tx, nil
}

// restore puts back a record whose transaction the ledger rejected. The
// serial lock must be held.
func (svc *CAServiceBackend) restore(ctx context.Context, lFunc *logrus.Entry, prev *models.Certificate, cause error) error {
	if _, err := svc.certStorage.Update(ctx, prev); err != nil {
		lFunc.Errorf("could not restore certificate %s to %s: %s", prev.SerialNumber, prev.Status, err)
		return errors.Join(cause, err)
	}

	return cause
}

func (svc *CAServiceBackend) refreshArchivedGauge(ctx context.Context) {
	if count, err := svc.certStorage.CountByStatus(ctx, models.StatusArchived); err == nil {
		svc.metrics.ArchivedCertificateCount.Set(float64(count))
	}
}

func (svc *CAServiceBackend) newTransaction(kind models.TransactionKind, cert *models.Certificate) *models.Transaction {
	h := sha256.New()
	h.Write(cert.TBSBytes())
	h.Write(cert.Signature)
	h.Write([]byte(kind))

	return &models.Transaction{
		ID:            uuid.NewString(),
		Kind:          kind,
		SerialNumber:  cert.SerialNumber,
		PayloadDigest: hex.EncodeToString(h.Sum(nil)),
		SubmittedAt:   svc.now(),
		OriginCAID:    svc.caID,
	}
}

func (svc *CAServiceBackend) invalidate(ctx context.Context, lFunc *logrus.Entry, serial string) {
	svc.invMu.RLock()
	defer svc.invMu.RUnlock()

	for _, inv := range svc.invalidators {
		inv.Invalidate(ctx, serial)
	}

	lFunc.Debugf("certificate %s invalidated on %d edge caches", serial, len(svc.invalidators))
}

// forward never fails the caller. The local commit already happened.
func (svc *CAServiceBackend) forward(lFunc *logrus.Entry, tx *models.Transaction) {
	if svc.forwarder == nil {
		return
	}

	if err := svc.forwarder.Enqueue(tx); err != nil {
		lFunc.Warnf("transaction %s not forwarded to gateway: %s", tx.ID, err)
	}
}
