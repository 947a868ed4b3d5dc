package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/vpkilab/vpki/core/pkg/models"
)

func TestComputeBlockHash(t *testing.T) {
	block := &models.Block{
		Index:        3,
		PreviousHash: models.GenesisPreviousHash,
		MinedAt:      time.Unix(1700000000, 0),
		Transactions: []*models.Transaction{{ID: "a", Kind: models.TxIssuance}},
	}
	block.MerkleRoot = MerkleRoot(block.Transactions)

	h1 := ComputeBlockHash(block)
	assert.Len(t, h1, 64)
	assert.Equal(t, h1, ComputeBlockHash(block))

	block.Nonce = 1
	assert.NotEqual(t, h1, ComputeBlockHash(block))
}

func TestMerkleRoot(t *testing.T) {
	a := &models.Transaction{ID: "a", Kind: models.TxIssuance}
	b := &models.Transaction{ID: "b", Kind: models.TxRevocation}
	c := &models.Transaction{ID: "c", Kind: models.TxRenewal}

	empty := MerkleRoot(nil)
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", empty)

	assert.Equal(t, a.Digest(), MerkleRoot([]*models.Transaction{a}))
	assert.NotEqual(t, MerkleRoot([]*models.Transaction{a, b}), MerkleRoot([]*models.Transaction{b, a}))
	assert.Equal(t, MerkleRoot([]*models.Transaction{a, b, c}), MerkleRoot([]*models.Transaction{a, b, c, c}))
}

func TestMeetsDifficulty(t *testing.T) {
	assert.True(t, meetsDifficulty("abc", 0))
	assert.True(t, meetsDifficulty("00abc", 2))
	assert.False(t, meetsDifficulty("0abc", 2))
}
