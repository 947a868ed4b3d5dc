package badger

import (
	"context"

	badger "github.com/dgraph-io/badger/v3"
	"github.com/sirupsen/logrus"
	"github.com/vpkilab/vpki/core/pkg/errs"
	"github.com/vpkilab/vpki/core/pkg/models"
)

const certificatePrefix = "cert/"

type CertificateRepository struct {
	logger *logrus.Entry
	db     *badger.DB
}

func NewCertificateRepository(logger *logrus.Entry, db *badger.DB) *CertificateRepository {
	return &CertificateRepository{
		logger: logger,
		db:     db,
	}
}

func certificateKey(serialNumber string) []byte {
	return []byte(certificatePrefix + serialNumber)
}

func (db *CertificateRepository) Count(ctx context.Context) (int, error) {
	count := 0
	err := db.db.View(func(txn *badger.Txn) error {
		count = countPrefix(txn, []byte(certificatePrefix))
		return nil
	})

	return count, err
}

func (db *CertificateRepository) CountByStatus(ctx context.Context, status models.CertificateStatus) (int, error) {
	count := 0
	err := db.SelectByStatus(ctx, status, func(models.Certificate) {
		count++
	})

	return count, err
}

func (db *CertificateRepository) SelectExistsBySerialNumber(ctx context.Context, serialNumber string) (bool, *models.Certificate, error) {
	var exists bool
	var cert *models.Certificate
	err := db.db.View(func(txn *badger.Txn) error {
		var err error
		exists, cert, err = getJSON[models.Certificate](txn, certificateKey(serialNumber))
		return err
	})
	if err != nil {
		return false, nil, err
	}

	return exists, cert, nil
}

func (db *CertificateRepository) SelectByStatus(ctx context.Context, status models.CertificateStatus, applyFunc func(models.Certificate)) error {
	matches := []models.Certificate{}
	err := db.db.View(func(txn *badger.Txn) error {
		return iterPrefix(txn, []byte(certificatePrefix), func(c models.Certificate) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if c.Status == status {
				matches = append(matches, c)
			}
			return nil
		})
	})
	if err != nil {
		return err
	}

	for _, c := range matches {
		applyFunc(c)
	}

	return nil
}

func (db *CertificateRepository) Insert(ctx context.Context, certificate *models.Certificate) (*models.Certificate, error) {
	err := db.db.Update(func(txn *badger.Txn) error {
		exists, _, err := getJSON[models.Certificate](txn, certificateKey(certificate.SerialNumber))
		if err != nil {
			return err
		}
		if exists {
			return errs.ErrDuplicateSerial
		}

		return setJSON(txn, certificateKey(certificate.SerialNumber), certificate)
	})
	if err != nil {
		return nil, err
	}

	c := *certificate
	return &c, nil
}

func (db *CertificateRepository) Update(ctx context.Context, certificate *models.Certificate) (*models.Certificate, error) {
	err := db.db.Update(func(txn *badger.Txn) error {
		exists, _, err := getJSON[models.Certificate](txn, certificateKey(certificate.SerialNumber))
		if err != nil {
			return err
		}
		if !exists {
			return errs.ErrCertificateNotFound
		}

		return setJSON(txn, certificateKey(certificate.SerialNumber), certificate)
	})
	if err != nil {
		return nil, err
	}

	c := *certificate
	return &c, nil
}

func (db *CertificateRepository) Delete(ctx context.Context, serialNumber string) error {
	return db.db.Update(func(txn *badger.Txn) error {
		exists, _, err := getJSON[models.Certificate](txn, certificateKey(serialNumber))
		if err != nil {
			return err
		}
		if !exists {
			return errs.ErrCertificateNotFound
		}

		return txn.Delete(certificateKey(serialNumber))
	})
}
