package mock

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vpkilab/vpki/core/pkg/models"
	"github.com/vpkilab/vpki/core/pkg/services"
)

type MockEdgeService struct {
	mock.Mock
}

func (m *MockEdgeService) Invalidate(ctx context.Context, serialNumber string) {
	m.Called(ctx, serialNumber)
}

func (m *MockEdgeService) NodeID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockEdgeService) Lookup(ctx context.Context, input services.LookupInput) (*models.Validity, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(*models.Validity), args.Error(1)
}

func (m *MockEdgeService) SetDegraded(ctx context.Context, degraded bool) {
	m.Called(ctx, degraded)
}

func (m *MockEdgeService) GetStats(ctx context.Context) *models.EdgeStats {
	args := m.Called(ctx)
	return args.Get(0).(*models.EdgeStats)
}
