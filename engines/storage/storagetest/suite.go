// Package storagetest holds the behaviour every storage provider must honour.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vpkilab/vpki/core/pkg/engines/storage"
	"github.com/vpkilab/vpki/core/pkg/errs"
	"github.com/vpkilab/vpki/core/pkg/models"
)

func newCertificate(sn string, status models.CertificateStatus) *models.Certificate {
	now := time.Now()
	return &models.Certificate{
		SerialNumber: sn,
		Subject:      "vehicle-" + sn,
		PublicKey:    []byte("pk-" + sn),
		IssuerCAID:   "ca-1",
		IssuedAt:     now,
		ExpiresAt:    now.Add(time.Hour),
		Status:       status,
	}
}

func RunCertificateRepoSuite(t *testing.T, newRepo func(t *testing.T) storage.CertificatesRepo) {
	ctx := context.Background()

	t.Run("OK/InsertAndSelect", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Insert(ctx, newCertificate("a", models.StatusActive))
		require.NoError(t, err)

		exists, cert, err := repo.SelectExistsBySerialNumber(ctx, "a")
		require.NoError(t, err)
		assert.True(t, exists)
		assert.Equal(t, "vehicle-a", cert.Subject)
		assert.Equal(t, []byte("pk-a"), cert.PublicKey)

		exists, cert, err = repo.SelectExistsBySerialNumber(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, exists)
		assert.Nil(t, cert)
	})

	t.Run("ERR/DuplicateSerial", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Insert(ctx, newCertificate("a", models.StatusActive))
		require.NoError(t, err)

		_, err = repo.Insert(ctx, newCertificate("a", models.StatusActive))
		assert.ErrorIs(t, err, errs.ErrDuplicateSerial)
	})

	t.Run("OK/UpdateAndCount", func(t *testing.T) {
		repo := newRepo(t)
		for _, sn := range []string{"c", "a", "b"} {
			_, err := repo.Insert(ctx, newCertificate(sn, models.StatusActive))
			require.NoError(t, err)
		}

		_, cert, err := repo.SelectExistsBySerialNumber(ctx, "b")
		require.NoError(t, err)
		cert.Status = models.StatusRevoked
		cert.RevocationTimestamp = time.Now()
		_, err = repo.Update(ctx, cert)
		require.NoError(t, err)

		total, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, total)

		active, err := repo.CountByStatus(ctx, models.StatusActive)
		require.NoError(t, err)
		assert.Equal(t, 2, active)

		serials := []string{}
		err = repo.SelectByStatus(ctx, models.StatusActive, func(c models.Certificate) {
			serials = append(serials, c.SerialNumber)
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "c"}, serials)
	})

	t.Run("ERR/UpdateUnknown", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Update(ctx, newCertificate("ghost", models.StatusRevoked))
		assert.ErrorIs(t, err, errs.ErrCertificateNotFound)
	})

	t.Run("OK/Delete", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Insert(ctx, newCertificate("a", models.StatusActive))
		require.NoError(t, err)

		require.NoError(t, repo.Delete(ctx, "a"))

		exists, _, err := repo.SelectExistsBySerialNumber(ctx, "a")
		require.NoError(t, err)
		assert.False(t, exists)

		// the serial can be stored again once deleted
		_, err = repo.Insert(ctx, newCertificate("a", models.StatusActive))
		assert.NoError(t, err)
	})

	t.Run("ERR/DeleteUnknown", func(t *testing.T) {
		repo := newRepo(t)
		err := repo.Delete(ctx, "ghost")
		assert.ErrorIs(t, err, errs.ErrCertificateNotFound)
	})

	t.Run("OK/RecordsDoNotShareBytesWithCallers", func(t *testing.T) {
		repo := newRepo(t)
		cert := newCertificate("a", models.StatusActive)
		cert.Signature = []byte("sig-a")

		inserted, err := repo.Insert(ctx, cert)
		require.NoError(t, err)
		cert.PublicKey[0] = 'X'
		inserted.Signature[0] = 'X'

		_, selected, err := repo.SelectExistsBySerialNumber(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, []byte("pk-a"), selected.PublicKey)
		assert.Equal(t, []byte("sig-a"), selected.Signature)

		selected.PublicKey[0] = 'Y'
		err = repo.SelectByStatus(ctx, models.StatusActive, func(c models.Certificate) {
			assert.Equal(t, []byte("pk-a"), c.PublicKey)
			c.Signature[0] = 'Y'
		})
		require.NoError(t, err)

		updated, err := repo.Update(ctx, selected)
		require.NoError(t, err)
		updated.PublicKey[0] = 'Z'

		_, selected, err = repo.SelectExistsBySerialNumber(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, []byte("Yk-a"), selected.PublicKey)
		assert.Equal(t, []byte("sig-a"), selected.Signature)
	})
}

func newArchivedBlock(index uint64, txIDs ...string) *models.ArchivedBlock {
	txs := []models.TransactionSummary{}
	for _, id := range txIDs {
		txs = append(txs, models.TransactionSummary{ID: id, Kind: models.TxIssuance, SerialNumber: "sn-" + id})
	}

	return &models.ArchivedBlock{
		Index:        index,
		Hash:         "hash",
		PreviousHash: "prev",
		MinedAt:      time.Now(),
		ArchivedAt:   time.Now(),
		Transactions: txs,
	}
}

func RunArchiveRepoSuite(t *testing.T, newRepo func(t *testing.T) storage.ArchiveRepo) {
	ctx := context.Background()

	t.Run("OK/Empty", func(t *testing.T) {
		repo := newRepo(t)
		count, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, count)

		exists, _, err := repo.SelectLast(ctx)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("OK/InsertAndLookup", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Insert(ctx, newArchivedBlock(0)))
		require.NoError(t, repo.Insert(ctx, newArchivedBlock(1, "tx-1", "tx-2")))

		count, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		exists, last, err := repo.SelectLast(ctx)
		require.NoError(t, err)
		assert.True(t, exists)
		assert.Equal(t, uint64(1), last.Index)

		exists, block, err := repo.SelectByIndex(ctx, 0)
		require.NoError(t, err)
		assert.True(t, exists)
		assert.Equal(t, uint64(0), block.Index)

		exists, _, err = repo.SelectByIndex(ctx, 7)
		require.NoError(t, err)
		assert.False(t, exists)

		exists, loc, err := repo.SelectTransaction(ctx, "tx-2")
		require.NoError(t, err)
		assert.True(t, exists)
		assert.Equal(t, uint64(1), loc.BlockIndex)
		assert.True(t, loc.Archived)
		assert.Equal(t, "sn-tx-2", loc.Summary.SerialNumber)
	})

	t.Run("ERR/OutOfOrder", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Insert(ctx, newArchivedBlock(3)))
		assert.Error(t, repo.Insert(ctx, newArchivedBlock(3)))
		assert.Error(t, repo.Insert(ctx, newArchivedBlock(5)))
	})
}
