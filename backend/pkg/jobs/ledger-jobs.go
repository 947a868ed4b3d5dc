package jobs

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vpkilab/vpki/core/pkg/errs"
	"github.com/vpkilab/vpki/core/pkg/helpers"
	"github.com/vpkilab/vpki/core/pkg/services"
)

// MiningJob seals every pending transaction into a new block.
type MiningJob struct {
	logger *logrus.Entry
	ledger services.LedgerService
}

func NewMiningJob(ledger services.LedgerService, logger *logrus.Entry) *MiningJob {
	return &MiningJob{
		ledger: ledger,
		logger: logger,
	}
}

func (job *MiningJob) Run() {
	ctx := helpers.InitContext()
	lFunc := helpers.ConfigureLogger(ctx, job.logger)

	begin := time.Now()
	block, err := job.ledger.Mine(ctx)
	if err != nil {
		if errors.Is(err, errs.ErrChainIntegrityViolation) {
			lFunc.Errorf("mining halted, chain integrity is compromised")
			return
		}
		lFunc.Errorf("could not mine block: %s", err)
		return
	}

	if block == nil {
		lFunc.Trace("no pending transactions, skipping mining round")
		return
	}

	lFunc.Infof("mined block %d with %d transactions in %s", block.Index, len(block.Transactions), time.Since(begin))
}

// PruningJob verifies the chain and then moves blocks beyond the retention
// limit to the archive.
type PruningJob struct {
	logger *logrus.Entry
	ledger services.LedgerService
}

func NewPruningJob(ledger services.LedgerService, logger *logrus.Entry) *PruningJob {
	return &PruningJob{
		ledger: ledger,
		logger: logger,
	}
}

func (job *PruningJob) Run() {
	ctx := helpers.InitContext()
	lFunc := helpers.ConfigureLogger(ctx, job.logger)

	if err := job.ledger.VerifyIntegrity(ctx); err != nil {
		lFunc.Errorf("integrity check failed, skipping pruning: %s", err)
		return
	}

	pruned, err := job.ledger.Prune(ctx)
	if err != nil {
		lFunc.Errorf("could not prune ledger: %s", err)
		return
	}

	if pruned > 0 {
		lFunc.Infof("pruned %d blocks into the archive", pruned)
	}
}

// CertificateArchivalJob archives revoked and expired certificates older
// than the retention window.
type CertificateArchivalJob struct {
	logger    *logrus.Entry
	ca        services.CAService
	retention time.Duration
}

func NewCertificateArchivalJob(ca services.CAService, retention time.Duration, logger *logrus.Entry) *CertificateArchivalJob {
	return &CertificateArchivalJob{
		ca:        ca,
		retention: retention,
		logger:    logger,
	}
}

func (job *CertificateArchivalJob) Run() {
	ctx := helpers.InitContext()
	lFunc := helpers.ConfigureLogger(ctx, job.logger)

	lFunc.Debugf("archiving certificates revoked or expired more than %s ago", job.retention)
	archived, err := job.ca.ArchiveCertificates(ctx, services.ArchiveCertificatesInput{RetentionWindow: job.retention})
	if err != nil {
		lFunc.Warnf("archival round stopped after %d certificates: %s", len(archived), err)
		return
	}

	if len(archived) > 0 {
		lFunc.Infof("archived %d certificates", len(archived))
	}
}
