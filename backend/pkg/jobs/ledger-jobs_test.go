package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vpkilab/vpki/core/pkg/errs"
	"github.com/vpkilab/vpki/core/pkg/models"
	"github.com/vpkilab/vpki/core/pkg/services"
	cmock "github.com/vpkilab/vpki/core/pkg/services/mock"
)

func TestMiningJob(t *testing.T) {
	var testcases = []struct {
		name   string
		before func(l *cmock.MockLedgerService)
	}{
		{
			name: "OK/BlockMined",
			before: func(l *cmock.MockLedgerService) {
				l.On("Mine", mock.Anything).Return(&models.Block{Index: 1, Transactions: []*models.Transaction{{ID: "tx"}}}, nil).Once()
			},
		},
		{
			name: "OK/EmptyPool",
			before: func(l *cmock.MockLedgerService) {
				l.On("Mine", mock.Anything).Return((*models.Block)(nil), nil).Once()
			},
		},
		{
			name: "ERR/Halted",
			before: func(l *cmock.MockLedgerService) {
				l.On("Mine", mock.Anything).Return((*models.Block)(nil), errs.ErrChainIntegrityViolation).Once()
			},
		},
	}

	for _, tc := range testcases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			l := &cmock.MockLedgerService{}
			tc.before(l)

			NewMiningJob(l, testLogger()).Run()
			l.AssertExpectations(t)
		})
	}
}

func TestPruningJob(t *testing.T) {
	t.Run("OK/VerifiedThenPruned", func(t *testing.T) {
		l := &cmock.MockLedgerService{}
		l.On("VerifyIntegrity", mock.Anything).Return(nil).Once()
		l.On("Prune", mock.Anything).Return(3, nil).Once()

		NewPruningJob(l, testLogger()).Run()
		l.AssertExpectations(t)
	})

	t.Run("ERR/IntegrityViolationSkipsPrune", func(t *testing.T) {
		l := &cmock.MockLedgerService{}
		l.On("VerifyIntegrity", mock.Anything).Return(errs.ErrChainIntegrityViolation).Once()

		NewPruningJob(l, testLogger()).Run()
		l.AssertExpectations(t)
		l.AssertNotCalled(t, "Prune", mock.Anything)
	})
}

func TestCertificateArchivalJob(t *testing.T) {
	ca := &cmock.MockCAService{}
	ca.On("ArchiveCertificates", mock.Anything, services.ArchiveCertificatesInput{RetentionWindow: time.Hour}).
		Return([]*models.Certificate{{SerialNumber: "sn-1", Status: models.StatusArchived}}, nil).Once()
	ca.On("ArchiveCertificates", mock.Anything, services.ArchiveCertificatesInput{RetentionWindow: time.Hour}).
		Return([]*models.Certificate{}, errs.ErrPoolSaturated).Once()

	job := NewCertificateArchivalJob(ca, time.Hour, testLogger())
	job.Run()
	job.Run()

	ca.AssertNumberOfCalls(t, "ArchiveCertificates", 2)
}
