package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

type TransactionKind string

const (
	TxIssuance   TransactionKind = "ISSUANCE"
	TxRevocation TransactionKind = "REVOCATION"
	TxRenewal    TransactionKind = "RENEWAL"
	TxArchival   TransactionKind = "ARCHIVAL"
)

const GenesisPreviousHash = "0000000000000000000000000000000000000000000000000000000000000000"

type Transaction struct {
	ID            string          `json:"id"`
	Kind          TransactionKind `json:"kind"`
	SerialNumber  string          `json:"serial_number"`
	PayloadDigest string          `json:"payload_digest"`
	SubmittedAt   time.Time       `json:"submitted_at"`
	OriginCAID    string          `json:"origin_ca_id"`
}

// Digest is the hex sha256 over every field of the transaction. Blocks hash
// the ordered digests of their transactions.
func (tx *Transaction) Digest() string {
	h := sha256.New()
	h.Write([]byte(tx.ID))
	h.Write([]byte{0})
	h.Write([]byte(tx.Kind))
	h.Write([]byte{0})
	h.Write([]byte(tx.SerialNumber))
	h.Write([]byte{0})
	h.Write([]byte(tx.PayloadDigest))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(tx.SubmittedAt.UnixNano(), 10)))
	h.Write([]byte{0})
	h.Write([]byte(tx.OriginCAID))
	return hex.EncodeToString(h.Sum(nil))
}

type Block struct {
	Index        uint64         `json:"index"`
	PreviousHash string         `json:"previous_hash"`
	Hash         string         `json:"hash"`
	MerkleRoot   string         `json:"merkle_root"`
	Nonce        uint64         `json:"nonce"`
	MinedAt      time.Time      `json:"mined_at"`
	Transactions []*Transaction `json:"transactions"`
}

type TransactionSummary struct {
	ID           string          `json:"id"`
	Kind         TransactionKind `json:"kind"`
	SerialNumber string          `json:"serial_number"`
	Digest       string          `json:"digest"`
	SubmittedAt  time.Time       `json:"submitted_at"`
}

// ArchivedBlock is the compacted form of a pruned block kept for audit.
type ArchivedBlock struct {
	Index        uint64               `json:"index"`
	Hash         string               `json:"hash"`
	PreviousHash string               `json:"previous_hash"`
	MerkleRoot   string               `json:"merkle_root"`
	MinedAt      time.Time            `json:"mined_at"`
	ArchivedAt   time.Time            `json:"archived_at"`
	Transactions []TransactionSummary `json:"transactions"`
}

// TransactionLocation tells where a committed transaction lives.
type TransactionLocation struct {
	BlockIndex uint64             `json:"block_index"`
	Archived   bool               `json:"archived"`
	Summary    TransactionSummary `json:"summary"`
}

type LedgerStats struct {
	ChainLength             int                `json:"chain_length"`
	PendingTransactions     int                `json:"pending_transactions"`
	PrunedBlocks            int                `json:"pruned_blocks"`
	MinedTransactions       int                `json:"mined_transactions"`
	SerializedSizeBytes     int                `json:"serialized_size_bytes"`
	TPS                     float64            `json:"tps"`
	AverageConsensusLatency time.Duration      `json:"average_consensus_latency"`
	ConsensusPercentiles    map[string]float64 `json:"consensus_latency_percentiles_ms"`
	Halted                  bool               `json:"halted"`
}
