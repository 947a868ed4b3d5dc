package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/vpkilab/vpki/core/pkg/models"
)

// ComputeBlockHash hashes the block header together with the ordered
// transaction digests. The stored Hash field is ignored.
func ComputeBlockHash(b *models.Block) string {
	h := sha256.New()
	h.Write([]byte(strconv.FormatUint(b.Index, 10)))
	h.Write([]byte{0})
	h.Write([]byte(b.PreviousHash))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(b.MinedAt.UnixNano(), 10)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatUint(b.Nonce, 10)))
	h.Write([]byte{0})
	h.Write([]byte(b.MerkleRoot))
	for _, tx := range b.Transactions {
		h.Write([]byte{0})
		h.Write([]byte(tx.Digest()))
	}

	return hex.EncodeToString(h.Sum(nil))
}

// MerkleRoot folds the transaction digests pairwise, duplicating the last
// node of odd levels. An empty block hashes the empty string.
func MerkleRoot(txs []*models.Transaction) string {
	if len(txs) == 0 {
		sum := sha256.Sum256(nil)
		return hex.EncodeToString(sum[:])
	}

	level := make([][]byte, 0, len(txs))
	for _, tx := range txs {
		d, _ := hex.DecodeString(tx.Digest())
		level = append(level, d)
	}

	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}

		next := make([][]byte, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			sum := sha256.Sum256(append(append([]byte{}, level[i]...), level[i+1]...))
			next = append(next, sum[:])
		}
		level = next
	}

	return hex.EncodeToString(level[0])
}

func meetsDifficulty(hash string, difficulty int) bool {
	if difficulty <= 0 {
		return true
	}

	return strings.HasPrefix(hash, strings.Repeat("0", difficulty))
}
