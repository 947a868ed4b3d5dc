package ledger

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vpkilab/vpki/backend/pkg/metrics"
	"github.com/vpkilab/vpki/core/pkg/engines/storage"
	"github.com/vpkilab/vpki/core/pkg/errs"
	chelpers "github.com/vpkilab/vpki/core/pkg/helpers"
	"github.com/vpkilab/vpki/core/pkg/models"
)

const (
	DefaultPoolCapacity    = 1024
	DefaultRetentionBlocks = 1000
	DefaultLatencyWindow   = 1000

	// blocks remembered for TPS, independently of pruning
	minedHistorySize = 4096
	// proof of work checks ctx every that many nonces
	nonceCheckInterval = 1024
)

type LedgerBuilder struct {
	Logger  *logrus.Entry
	Archive storage.ArchiveRepo
	Metrics *metrics.Sink

	// Zero values select the defaults.
	PoolCapacity    int
	RetentionBlocks int
	Difficulty      int
	LatencyWindow   int

	// Clock defaults to time.Now.
	Clock func() time.Time
}

type minedMark struct {
	at    time.Time
	count int
}

// Ledger is an in-memory hash-linked chain with a bounded pending pool.
// Blocks beyond the retention are moved to the archive repository.
type Ledger struct {
	logger  *logrus.Entry
	archive storage.ArchiveRepo
	metrics *metrics.Sink
	now     func() time.Time

	poolCapacity    int
	retentionBlocks int
	difficulty      int

	mu           sync.RWMutex
	chain        []*models.Block
	pending      []*models.Transaction
	activeTxs    map[string]uint64
	latencies    *latencySeries
	minedHistory []minedMark
	minedTxCount int
	prunedCount  int

	halted atomic.Bool
}

func NewLedger(builder LedgerBuilder) (*Ledger, error) {
	if builder.PoolCapacity < 0 || builder.RetentionBlocks < 0 || builder.LatencyWindow < 0 {
		return nil, fmt.Errorf("%w: pool capacity, retention and latency window must not be negative", errs.ErrValidateBadRequest)
	}

	if builder.Difficulty < 0 || builder.Difficulty > 64 {
		return nil, fmt.Errorf("%w: difficulty must be within [0, 64]", errs.ErrValidateBadRequest)
	}

	if builder.Archive == nil {
		return nil, fmt.Errorf("%w: archive repository is required", errs.ErrValidateBadRequest)
	}

	l := &Ledger{
		logger:          builder.Logger,
		archive:         builder.Archive,
		metrics:         builder.Metrics,
		now:             builder.Clock,
		poolCapacity:    builder.PoolCapacity,
		retentionBlocks: builder.RetentionBlocks,
		difficulty:      builder.Difficulty,
		activeTxs:       map[string]uint64{},
	}

	if l.logger == nil {
		l.logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if l.metrics == nil {
		l.metrics = metrics.NewDiscardSink()
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.poolCapacity == 0 {
		l.poolCapacity = DefaultPoolCapacity
	}
	if l.retentionBlocks == 0 {
		l.retentionBlocks = DefaultRetentionBlocks
	}

	window := builder.LatencyWindow
	if window == 0 {
		window = DefaultLatencyWindow
	}
	l.latencies = newLatencySeries(window)

	genesis := &models.Block{
		Index:        0,
		PreviousHash: models.GenesisPreviousHash,
		MinedAt:      l.now(),
		Transactions: []*models.Transaction{},
	}
	genesis.MerkleRoot = MerkleRoot(genesis.Transactions)
	if err := l.seal(context.Background(), genesis); err != nil {
		return nil, err
	}

	l.chain = []*models.Block{genesis}
	l.logger.Infof("ledger initialized. genesis block %s", genesis.Hash)

	return l, nil
}

// Submit places tx in the pending pool. The ledger keeps its own copy, with
// SubmittedAt stamped on acceptance when unset.
// Returned Error Codes:
//   - ErrValidateBadRequest
//     The transaction is nil or lacks an ID or kind.
//   - ErrPoolSaturated
//     The pending pool is at capacity.
func (l *Ledger) Submit(ctx context.Context, tx *models.Transaction) error {
	lFunc := chelpers.ConfigureLogger(ctx, l.logger)

	if tx == nil || tx.ID == "" || tx.Kind == "" {
		lFunc.Errorf("rejecting malformed transaction")
		return errs.ErrValidateBadRequest
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.pending) >= l.poolCapacity {
		lFunc.Warnf("pending pool saturated (%d). rejecting transaction %s", l.poolCapacity, tx.ID)
		return errs.ErrPoolSaturated
	}

	accepted := *tx
	if accepted.SubmittedAt.IsZero() {
		accepted.SubmittedAt = l.now()
	}

	l.pending = append(l.pending, &accepted)
	l.metrics.PendingPoolSize.Set(float64(len(l.pending)))

	lFunc.Debugf("transaction %s (%s) for %s accepted. pending: %d", accepted.ID, accepted.Kind, accepted.SerialNumber, len(l.pending))
	return nil
}

// Mine drains every pending transaction into one new block, in acceptance
// order. It returns nil without error when there is nothing to mine.
// Returned Error Codes:
//   - ErrChainIntegrityViolation
//     A previous integrity check failed and mining is halted.
func (l *Ledger) Mine(ctx context.Context) (*models.Block, error) {
	lFunc := chelpers.ConfigureLogger(ctx, l.logger)

	if l.halted.Load() {
		lFunc.Errorf("refusing to mine: ledger halted after integrity violation")
		return nil, errs.ErrChainIntegrityViolation
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.pending) == 0 {
		lFunc.Tracef("no pending transactions to mine")
		return nil, nil
	}

	last := l.chain[len(l.chain)-1]
	block := &models.Block{
		Index:        last.Index + 1,
		PreviousHash: last.Hash,
		MinedAt:      l.now(),
		Transactions: l.pending,
	}
	block.MerkleRoot = MerkleRoot(block.Transactions)

	if err := l.seal(ctx, block); err != nil {
		lFunc.Errorf("could not seal block %d: %s", block.Index, err)
		return nil, err
	}

	l.chain = append(l.chain, block)
	l.pending = nil

	for _, tx := range block.Transactions {
		latency := block.MinedAt.Sub(tx.SubmittedAt)
		if latency < 0 {
			latency = 0
		}
		l.latencies.Add(latency)
		metrics.ObserveDuration(l.metrics.ConsensusLatency, latency)
		l.activeTxs[tx.ID] = block.Index
	}

	l.minedTxCount += len(block.Transactions)
	l.minedHistory = append(l.minedHistory, minedMark{at: block.MinedAt, count: len(block.Transactions)})
	if len(l.minedHistory) > minedHistorySize {
		l.minedHistory = l.minedHistory[len(l.minedHistory)-minedHistorySize:]
	}

	l.metrics.PendingPoolSize.Set(0)
	if size, err := l.serializedSize(); err == nil {
		l.metrics.ChainSizeBytes.Set(float64(size))
	}

	lFunc.Infof("mined block %d with %d transactions: %s", block.Index, len(block.Transactions), block.Hash)
	return copyBlock(block), nil
}

// seal searches a nonce satisfying the difficulty and stores the block hash.
func (l *Ledger) seal(ctx context.Context, block *models.Block) error {
	for nonce := uint64(0); ; nonce++ {
		if nonce%nonceCheckInterval == nonceCheckInterval-1 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		block.Nonce = nonce
		hash := ComputeBlockHash(block)
		if meetsDifficulty(hash, l.difficulty) {
			block.Hash = hash
			return nil
		}
	}
}

// Prune moves the oldest blocks to the archive until the active chain holds
// at most the retention number of blocks, and returns how many were moved.
// Returned Error Codes:
//   - ErrChainIntegrityViolation
//     The ledger is halted.
func (l *Ledger) Prune(ctx context.Context) (int, error) {
	lFunc := chelpers.ConfigureLogger(ctx, l.logger)

	if l.halted.Load() {
		lFunc.Errorf("refusing to prune: ledger halted after integrity violation")
		return 0, errs.ErrChainIntegrityViolation
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	pruned := 0
	for len(l.chain) > l.retentionBlocks {
		oldest := l.chain[0]
		if err := l.archive.Insert(ctx, compactBlock(oldest, l.now())); err != nil {
			lFunc.Errorf("could not archive block %d: %s", oldest.Index, err)
			l.metrics.PrunedBlockCount.Set(float64(l.prunedCount))
			return pruned, err
		}

		for _, tx := range oldest.Transactions {
			delete(l.activeTxs, tx.ID)
		}

		l.chain[0] = nil
		l.chain = l.chain[1:]
		l.prunedCount++
		pruned++
	}

	if pruned > 0 {
		// release the backing array of the pruned prefix
		l.chain = append([]*models.Block(nil), l.chain...)
		lFunc.Infof("pruned %d blocks. first active block is now %d", pruned, l.chain[0].Index)
	}

	l.metrics.PrunedBlockCount.Set(float64(l.prunedCount))
	if size, err := l.serializedSize(); err == nil {
		l.metrics.ChainSizeBytes.Set(float64(size))
	}

	return pruned, nil
}

// VerifyIntegrity recomputes every active block hash and its linkage. The
// first active block links to the genesis sentinel or to the archive tail.
// Any mismatch halts mining for good.
// Returned Error Codes:
//   - ErrChainIntegrityViolation
//     A block hash, merkle root or link does not match.
func (l *Ledger) VerifyIntegrity(ctx context.Context) error {
	lFunc := chelpers.ConfigureLogger(ctx, l.logger)

	l.mu.RLock()
	err := l.verify(ctx)
	l.mu.RUnlock()

	if err != nil {
		l.halted.Store(true)
		lFunc.Errorf("chain integrity violation. mining halted: %s", err)
		return err
	}

	lFunc.Debugf("chain integrity verified")
	return nil
}

func (l *Ledger) verify(ctx context.Context) error {
	violation := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", errs.ErrChainIntegrityViolation, fmt.Sprintf(format, args...))
	}

	for i, block := range l.chain {
		if MerkleRoot(block.Transactions) != block.MerkleRoot {
			return violation("block %d merkle root mismatch", block.Index)
		}

		if ComputeBlockHash(block) != block.Hash {
			return violation("block %d hash mismatch", block.Index)
		}

		if !meetsDifficulty(block.Hash, l.difficulty) {
			return violation("block %d does not meet difficulty %d", block.Index, l.difficulty)
		}

		if i > 0 {
			prev := l.chain[i-1]
			if block.PreviousHash != prev.Hash || block.Index != prev.Index+1 {
				return violation("block %d is not linked to block %d", block.Index, prev.Index)
			}
			continue
		}

		if block.Index == 0 {
			if block.PreviousHash != models.GenesisPreviousHash {
				return violation("genesis block has previous hash %s", block.PreviousHash)
			}
			continue
		}

		exists, tail, err := l.archive.SelectLast(ctx)
		if err != nil {
			return violation("could not read archive tail: %s", err)
		}
		if !exists {
			return violation("block %d follows pruned blocks but the archive is empty", block.Index)
		}
		if tail.Hash != block.PreviousHash || tail.Index+1 != block.Index {
			return violation("block %d is not linked to archived block %d", block.Index, tail.Index)
		}
	}

	return nil
}

// GetBlock returns a copy of an active block.
// Returned Error Codes:
//   - ErrBlockNotFound
//     No active block has that index. It may have been archived.
func (l *Ledger) GetBlock(ctx context.Context, index uint64) (*models.Block, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	block := l.blockAt(index)
	if block == nil {
		return nil, errs.ErrBlockNotFound
	}

	return copyBlock(block), nil
}

func (l *Ledger) blockAt(index uint64) *models.Block {
	first := l.chain[0].Index
	if index < first || index-first >= uint64(len(l.chain)) {
		return nil
	}

	return l.chain[index-first]
}

// Returned Error Codes:
//   - ErrArchivedBlockNotFound
//     The block was never archived.
func (l *Ledger) GetArchivedBlock(ctx context.Context, index uint64) (*models.ArchivedBlock, error) {
	exists, block, err := l.archive.SelectByIndex(ctx, index)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errs.ErrArchivedBlockNotFound
	}

	return block, nil
}

// FindTransaction looks a committed transaction up in the active chain, then
// in the archive.
// Returned Error Codes:
//   - ErrTransactionNotFound
//     The transaction is unknown or still pending.
func (l *Ledger) FindTransaction(ctx context.Context, txID string) (*models.TransactionLocation, error) {
	l.mu.RLock()
	if index, ok := l.activeTxs[txID]; ok {
		defer l.mu.RUnlock()
		for _, tx := range l.blockAt(index).Transactions {
			if tx.ID == txID {
				return &models.TransactionLocation{
					BlockIndex: index,
					Archived:   false,
					Summary:    summarize(tx),
				}, nil
			}
		}
		return nil, errs.ErrTransactionNotFound
	}
	l.mu.RUnlock()

	exists, loc, err := l.archive.SelectTransaction(ctx, txID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errs.ErrTransactionNotFound
	}

	return loc, nil
}

func summarize(tx *models.Transaction) models.TransactionSummary {
	return models.TransactionSummary{
		ID:           tx.ID,
		Kind:         tx.Kind,
		SerialNumber: tx.SerialNumber,
		Digest:       tx.Digest(),
		SubmittedAt:  tx.SubmittedAt,
	}
}

func compactBlock(block *models.Block, archivedAt time.Time) *models.ArchivedBlock {
	txs := make([]models.TransactionSummary, 0, len(block.Transactions))
	for _, tx := range block.Transactions {
		txs = append(txs, summarize(tx))
	}

	return &models.ArchivedBlock{
		Index:        block.Index,
		Hash:         block.Hash,
		PreviousHash: block.PreviousHash,
		MerkleRoot:   block.MerkleRoot,
		MinedAt:      block.MinedAt,
		ArchivedAt:   archivedAt,
		Transactions: txs,
	}
}

func copyBlock(block *models.Block) *models.Block {
	b := *block
	b.Transactions = make([]*models.Transaction, 0, len(block.Transactions))
	for _, tx := range block.Transactions {
		t := *tx
		b.Transactions = append(b.Transactions, &t)
	}

	return &b
}
