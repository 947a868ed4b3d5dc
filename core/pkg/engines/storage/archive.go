package storage

import (
	"context"

	"github.com/vpkilab/vpki/core/pkg/models"
)

// ArchiveRepo keeps pruned blocks in compacted form. Blocks are inserted in
// increasing index order.
type ArchiveRepo interface {
	Insert(ctx context.Context, block *models.ArchivedBlock) error
	Count(ctx context.Context) (int, error)
	SelectByIndex(ctx context.Context, index uint64) (bool, *models.ArchivedBlock, error)
	SelectLast(ctx context.Context) (bool, *models.ArchivedBlock, error)
	SelectTransaction(ctx context.Context, txID string) (bool, *models.TransactionLocation, error)
}
