package inmemory

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/vpkilab/vpki/core/pkg/errs"
	"github.com/vpkilab/vpki/core/pkg/models"
)

type CertificateRepository struct {
	logger *logrus.Entry
	mu     sync.RWMutex
	certs  map[string]models.Certificate
}

func NewCertificateRepository(logger *logrus.Entry) *CertificateRepository {
	return &CertificateRepository{
		logger: logger,
		certs:  map[string]models.Certificate{},
	}
}

func (db *CertificateRepository) Count(ctx context.Context) (int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return len(db.certs), nil
}

func (db *CertificateRepository) CountByStatus(ctx context.Context, status models.CertificateStatus) (int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	count := 0
	for _, c := range db.certs {
		if c.Status == status {
			count++
		}
	}

	return count, nil
}

func (db *CertificateRepository) SelectExistsBySerialNumber(ctx context.Context, serialNumber string) (bool, *models.Certificate, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	c, ok := db.certs[serialNumber]
	if !ok {
		return false, nil, nil
	}

	c = cloneCertificate(c)
	return true, &c, nil
}

// SelectByStatus walks matching certificates ordered by serial number. The
// callback runs without the repository lock held.
func (db *CertificateRepository) SelectByStatus(ctx context.Context, status models.CertificateStatus, applyFunc func(models.Certificate)) error {
	db.mu.RLock()
	matches := []models.Certificate{}
	for _, c := range db.certs {
		if c.Status == status {
			matches = append(matches, cloneCertificate(c))
		}
	}
	db.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].SerialNumber < matches[j].SerialNumber
	})

	for _, c := range matches {
		if err := ctx.Err(); err != nil {
			return err
		}
		applyFunc(c)
	}

	return nil
}

func (db *CertificateRepository) Insert(ctx context.Context, certificate *models.Certificate) (*models.Certificate, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.certs[certificate.SerialNumber]; ok {
		return nil, errs.ErrDuplicateSerial
	}

	db.certs[certificate.SerialNumber] = cloneCertificate(*certificate)
	c := cloneCertificate(*certificate)
	return &c, nil
}

func (db *CertificateRepository) Update(ctx context.Context, certificate *models.Certificate) (*models.Certificate, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.certs[certificate.SerialNumber]; !ok {
		return nil, errs.ErrCertificateNotFound
	}

	db.certs[certificate.SerialNumber] = cloneCertificate(*certificate)
	c := cloneCertificate(*certificate)
	return &c, nil
}

func (db *CertificateRepository) Delete(ctx context.Context, serialNumber string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.certs[serialNumber]; !ok {
		return errs.ErrCertificateNotFound
	}

	delete(db.certs, serialNumber)
	return nil
}

// stored records never share byte slices with callers
func cloneCertificate(c models.Certificate) models.Certificate {
	c.PublicKey = bytes.Clone(c.PublicKey)
	c.Signature = bytes.Clone(c.Signature)
	return c
}
