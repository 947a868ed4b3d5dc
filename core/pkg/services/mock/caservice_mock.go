package mock

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vpkilab/vpki/core/pkg/models"
	"github.com/vpkilab/vpki/core/pkg/services"
)

type MockCAService struct {
	mock.Mock
}

func (m *MockCAService) GetStats(ctx context.Context) (*models.CAStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(*models.CAStats), args.Error(1)
}

func (m *MockCAService) IssueCertificate(ctx context.Context, input services.IssueCertificateInput) (*models.Certificate, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(*models.Certificate), args.Error(1)
}

func (m *MockCAService) RevokeCertificate(ctx context.Context, input services.RevokeCertificateInput) (*models.Certificate, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(*models.Certificate), args.Error(1)
}

func (m *MockCAService) RenewCertificate(ctx context.Context, input services.RenewCertificateInput) (*models.Certificate, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(*models.Certificate), args.Error(1)
}

func (m *MockCAService) ValidateCertificate(ctx context.Context, input services.ValidateCertificateInput) (models.CertificateStatus, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(models.CertificateStatus), args.Error(1)
}

func (m *MockCAService) GetCertificateBySerialNumber(ctx context.Context, input services.GetCertificateBySerialNumberInput) (*models.Certificate, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(*models.Certificate), args.Error(1)
}

func (m *MockCAService) ArchiveCertificates(ctx context.Context, input services.ArchiveCertificatesInput) ([]*models.Certificate, error) {
	args := m.Called(ctx, input)
	return args.Get(0).([]*models.Certificate), args.Error(1)
}
