package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/vpkilab/vpki/core/pkg/models"
)

type ArchiveRepository struct {
	logger *logrus.Entry
	mu     sync.RWMutex
	blocks []models.ArchivedBlock
	byTx   map[string]models.TransactionLocation
}

func NewArchiveRepository(logger *logrus.Entry) *ArchiveRepository {
	return &ArchiveRepository{
		logger: logger,
		byTx:   map[string]models.TransactionLocation{},
	}
}

func (db *ArchiveRepository) Insert(ctx context.Context, block *models.ArchivedBlock) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if n := len(db.blocks); n > 0 && db.blocks[n-1].Index+1 != block.Index {
		return fmt.Errorf("archived block %d does not follow %d", block.Index, db.blocks[n-1].Index)
	}

	db.blocks = append(db.blocks, *block)
	for _, tx := range block.Transactions {
		db.byTx[tx.ID] = models.TransactionLocation{
			BlockIndex: block.Index,
			Archived:   true,
			Summary:    tx,
		}
	}

	return nil
}

func (db *ArchiveRepository) Count(ctx context.Context) (int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return len(db.blocks), nil
}

func (db *ArchiveRepository) SelectByIndex(ctx context.Context, index uint64) (bool, *models.ArchivedBlock, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if len(db.blocks) == 0 {
		return false, nil, nil
	}

	// archived indices are contiguous from the first entry
	first := db.blocks[0].Index
	if index < first || index-first >= uint64(len(db.blocks)) {
		return false, nil, nil
	}

	b := db.blocks[index-first]
	return true, &b, nil
}

func (db *ArchiveRepository) SelectLast(ctx context.Context) (bool, *models.ArchivedBlock, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if len(db.blocks) == 0 {
		return false, nil, nil
	}

	b := db.blocks[len(db.blocks)-1]
	return true, &b, nil
}

func (db *ArchiveRepository) SelectTransaction(ctx context.Context, txID string) (bool, *models.TransactionLocation, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	loc, ok := db.byTx[txID]
	if !ok {
		return false, nil, nil
	}

	return true, &loc, nil
}
