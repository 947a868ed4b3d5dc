package mock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vpkilab/vpki/core/pkg/models"
)

type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) Submit(ctx context.Context, tx *models.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockLedgerService) Mine(ctx context.Context) (*models.Block, error) {
	args := m.Called(ctx)
	return args.Get(0).(*models.Block), args.Error(1)
}

func (m *MockLedgerService) Prune(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockLedgerService) VerifyIntegrity(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockLedgerService) TPS(window time.Duration) float64 {
	args := m.Called(window)
	return args.Get(0).(float64)
}

func (m *MockLedgerService) SerializedSize() (int, error) {
	args := m.Called()
	return args.Int(0), args.Error(1)
}

func (m *MockLedgerService) GetStats(ctx context.Context) (*models.LedgerStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(*models.LedgerStats), args.Error(1)
}

func (m *MockLedgerService) GetBlock(ctx context.Context, index uint64) (*models.Block, error) {
	args := m.Called(ctx, index)
	return args.Get(0).(*models.Block), args.Error(1)
}

func (m *MockLedgerService) GetArchivedBlock(ctx context.Context, index uint64) (*models.ArchivedBlock, error) {
	args := m.Called(ctx, index)
	return args.Get(0).(*models.ArchivedBlock), args.Error(1)
}

func (m *MockLedgerService) FindTransaction(ctx context.Context, txID string) (*models.TransactionLocation, error) {
	args := m.Called(ctx, txID)
	return args.Get(0).(*models.TransactionLocation), args.Error(1)
}
