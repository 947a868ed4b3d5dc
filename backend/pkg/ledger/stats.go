package ledger

import (
	"context"
	"encoding/json"
	"time"

	"github.com/vpkilab/vpki/core/pkg/models"
)

var reportedPercentiles = map[string]float64{
	"p50": 0.50,
	"p95": 0.95,
	"p99": 0.99,
}

// TPS is the number of transactions in blocks mined within the trailing
// window, divided by the window in seconds.
func (l *Ledger) TPS(window time.Duration) float64 {
	if window <= 0 {
		return 0
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.tps(window)
}

func (l *Ledger) tps(window time.Duration) float64 {
	since := l.now().Add(-window)
	count := 0
	for i := len(l.minedHistory) - 1; i >= 0; i-- {
		mark := l.minedHistory[i]
		if mark.at.Before(since) {
			break
		}
		count += mark.count
	}

	return float64(count) / window.Seconds()
}

// SerializedSize is the length of the JSON encoding of the active chain.
func (l *Ledger) SerializedSize() (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.serializedSize()
}

func (l *Ledger) serializedSize() (int, error) {
	b, err := json.Marshal(l.chain)
	if err != nil {
		return 0, err
	}

	return len(b), nil
}

func (l *Ledger) AverageConsensusLatency() time.Duration {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.latencies.Average()
}

// ConsensusLatencyPercentiles returns one nearest-rank percentile per q.
func (l *Ledger) ConsensusLatencyPercentiles(qs ...float64) []time.Duration {
	l.mu.RLock()
	values := l.latencies.Snapshot()
	l.mu.RUnlock()

	out := make([]time.Duration, 0, len(qs))
	for _, q := range qs {
		out = append(out, Percentile(values, q))
	}

	return out
}

func (l *Ledger) ConsensusLatencies() []time.Duration {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.latencies.Snapshot()
}

func (l *Ledger) PendingCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.pending)
}

// Length is the number of active blocks, genesis included until pruned.
func (l *Ledger) Length() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.chain)
}

func (l *Ledger) Blocks() []*models.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*models.Block, 0, len(l.chain))
	for _, b := range l.chain {
		out = append(out, copyBlock(b))
	}

	return out
}

func (l *Ledger) LastBlock() *models.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return copyBlock(l.chain[len(l.chain)-1])
}

func (l *Ledger) PrunedBlockCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.prunedCount
}

func (l *Ledger) IsHalted() bool {
	return l.halted.Load()
}

func (l *Ledger) GetStats(ctx context.Context) (*models.LedgerStats, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	size, err := l.serializedSize()
	if err != nil {
		return nil, err
	}

	values := l.latencies.Snapshot()
	percentiles := map[string]float64{}
	for name, q := range reportedPercentiles {
		percentiles[name] = float64(Percentile(values, q)) / float64(time.Millisecond)
	}

	return &models.LedgerStats{
		ChainLength:             len(l.chain),
		PendingTransactions:     len(l.pending),
		PrunedBlocks:            l.prunedCount,
		MinedTransactions:       l.minedTxCount,
		SerializedSizeBytes:     size,
		TPS:                     l.tps(time.Minute),
		AverageConsensusLatency: l.latencies.Average(),
		ConsensusPercentiles:    percentiles,
		Halted:                  l.halted.Load(),
	}, nil
}
