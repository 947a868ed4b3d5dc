package badger

import (
	"context"
	"fmt"

	badger "github.com/dgraph-io/badger/v3"
	"github.com/sirupsen/logrus"
	"github.com/vpkilab/vpki/core/pkg/models"
)

const (
	archivedBlockPrefix = "archive/block/"
	archivedTxPrefix    = "archive/tx/"
	archiveLastKey      = "archive/meta/last"
)

type ArchiveRepository struct {
	logger *logrus.Entry
	db     *badger.DB
}

func NewArchiveRepository(logger *logrus.Entry, db *badger.DB) *ArchiveRepository {
	return &ArchiveRepository{
		logger: logger,
		db:     db,
	}
}

// zero padded so that key order follows block order
func archivedBlockKey(index uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", archivedBlockPrefix, index))
}

func archivedTxKey(txID string) []byte {
	return []byte(archivedTxPrefix + txID)
}

func (db *ArchiveRepository) Insert(ctx context.Context, block *models.ArchivedBlock) error {
	return db.db.Update(func(txn *badger.Txn) error {
		exists, last, err := getJSON[uint64](txn, []byte(archiveLastKey))
		if err != nil {
			return err
		}
		if exists && *last+1 != block.Index {
			return fmt.Errorf("archived block %d does not follow %d", block.Index, *last)
		}

		if err := setJSON(txn, archivedBlockKey(block.Index), block); err != nil {
			return err
		}

		for _, tx := range block.Transactions {
			loc := models.TransactionLocation{
				BlockIndex: block.Index,
				Archived:   true,
				Summary:    tx,
			}
			if err := setJSON(txn, archivedTxKey(tx.ID), loc); err != nil {
				return err
			}
		}

		return setJSON(txn, []byte(archiveLastKey), block.Index)
	})
}

func (db *ArchiveRepository) Count(ctx context.Context) (int, error) {
	count := 0
	err := db.db.View(func(txn *badger.Txn) error {
		count = countPrefix(txn, []byte(archivedBlockPrefix))
		return nil
	})

	return count, err
}

func (db *ArchiveRepository) SelectByIndex(ctx context.Context, index uint64) (bool, *models.ArchivedBlock, error) {
	var exists bool
	var block *models.ArchivedBlock
	err := db.db.View(func(txn *badger.Txn) error {
		var err error
		exists, block, err = getJSON[models.ArchivedBlock](txn, archivedBlockKey(index))
		return err
	})

	return exists, block, err
}

func (db *ArchiveRepository) SelectLast(ctx context.Context) (bool, *models.ArchivedBlock, error) {
	var exists bool
	var block *models.ArchivedBlock
	err := db.db.View(func(txn *badger.Txn) error {
		found, last, err := getJSON[uint64](txn, []byte(archiveLastKey))
		if err != nil || !found {
			return err
		}

		exists, block, err = getJSON[models.ArchivedBlock](txn, archivedBlockKey(*last))
		return err
	})

	return exists, block, err
}

func (db *ArchiveRepository) SelectTransaction(ctx context.Context, txID string) (bool, *models.TransactionLocation, error) {
	var exists bool
	var loc *models.TransactionLocation
	err := db.db.View(func(txn *badger.Txn) error {
		var err error
		exists, loc, err = getJSON[models.TransactionLocation](txn, archivedTxKey(txID))
		return err
	})

	return exists, loc, err
}
