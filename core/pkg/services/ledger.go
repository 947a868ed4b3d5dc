package services

import (
	"context"
	"time"

	"github.com/vpkilab/vpki/core/pkg/models"
)

// TransactionSubmitter is the part of the ledger a transaction producer needs.
type TransactionSubmitter interface {
	Submit(ctx context.Context, tx *models.Transaction) error
}

type LedgerService interface {
	TransactionSubmitter

	Mine(ctx context.Context) (*models.Block, error)
	Prune(ctx context.Context) (int, error)
	VerifyIntegrity(ctx context.Context) error

	TPS(window time.Duration) float64
	SerializedSize() (int, error)
	GetStats(ctx context.Context) (*models.LedgerStats, error)

	GetBlock(ctx context.Context, index uint64) (*models.Block, error)
	GetArchivedBlock(ctx context.Context, index uint64) (*models.ArchivedBlock, error)
	FindTransaction(ctx context.Context, txID string) (*models.TransactionLocation, error)
}
