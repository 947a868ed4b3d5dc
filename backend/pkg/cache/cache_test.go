package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vpkilab/vpki/core/pkg/models"
)

func active(sn string, expiresAt time.Time) models.Validity {
	return models.Validity{SerialNumber: sn, Status: models.StatusActive, ExpiresAt: expiresAt, Source: models.ValiditySourceOrigin}
}

func TestNewValidityCache(t *testing.T) {
	_, err := NewValidityCache(0)
	assert.Error(t, err)

	c, err := NewValidityCache(4)
	require.NoError(t, err)
	assert.Equal(t, 4, c.Capacity())
	assert.Equal(t, 0.0, c.HitRate())
}

func TestLRUOrderAndEviction(t *testing.T) {
	c, err := NewValidityCache(2)
	require.NoError(t, err)

	now := time.Now()
	exp := now.Add(time.Hour)

	lookup := func(sn string) bool {
		if _, ok := c.Get(sn, now); ok {
			return true
		}
		c.Add(active(sn, exp))
		return false
	}

	assert.False(t, lookup("C1"))
	assert.False(t, lookup("C2"))
	assert.False(t, lookup("C3"))
	assert.True(t, lookup("C2"))
	assert.False(t, lookup("C1"))

	assert.Equal(t, uint64(1), c.Hits())
	assert.Equal(t, uint64(4), c.Misses())
	assert.Equal(t, 20.0, c.HitRate())
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, []string{"C2", "C1"}, c.Keys())
}

func TestExpiredActiveIsMiss(t *testing.T) {
	c, err := NewValidityCache(2)
	require.NoError(t, err)

	now := time.Now()
	c.Add(active("C1", now.Add(-time.Second)))

	_, ok := c.Get("C1", now)
	assert.False(t, ok)
	assert.Equal(t, uint64(1), c.Misses())
	assert.Equal(t, 0, c.Len())

	c.Add(models.Validity{SerialNumber: "C2", Status: models.StatusRevoked, ExpiresAt: now.Add(-time.Second)})
	v, ok := c.Get("C2", now)
	assert.True(t, ok)
	assert.Equal(t, models.StatusRevoked, v.Status)
}

func TestPeekDoesNotCount(t *testing.T) {
	c, err := NewValidityCache(2)
	require.NoError(t, err)

	c.Add(active("C1", time.Now().Add(time.Hour)))
	c.Add(active("C2", time.Now().Add(time.Hour)))

	_, ok := c.Peek("C1")
	assert.True(t, ok)
	assert.Equal(t, uint64(0), c.Hits())
	assert.Equal(t, []string{"C1", "C2"}, c.Keys())
}

func TestRemoveBlocksStaleActiveInsert(t *testing.T) {
	var testcases = []struct {
		name     string
		record   models.Validity
		inserted bool
	}{
		{
			name:     "ERR/StaleActive",
			record:   active("C1", time.Now().Add(time.Hour)),
			inserted: false,
		},
		{
			name:     "OK/RevokedStillInserted",
			record:   models.Validity{SerialNumber: "C1", Status: models.StatusRevoked},
			inserted: true,
		},
	}

	for _, tc := range testcases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			c, err := NewValidityCache(2)
			require.NoError(t, err)

			epoch := c.Epoch()
			c.Remove("C1")

			assert.Equal(t, tc.inserted, c.AddIfCurrent(tc.record, epoch))
			_, ok := c.Peek("C1")
			assert.Equal(t, tc.inserted, ok)
		})
	}
}

func TestAddIfCurrentWithoutInvalidation(t *testing.T) {
	c, err := NewValidityCache(2)
	require.NoError(t, err)

	epoch := c.Epoch()
	assert.True(t, c.AddIfCurrent(active("C1", time.Now().Add(time.Hour)), epoch))

	c.Purge()
	assert.Equal(t, 0, c.Len())
	assert.NotEqual(t, epoch, c.Epoch())
}

func TestConcurrentAccess(t *testing.T) {
	c, err := NewValidityCache(16)
	require.NoError(t, err)

	now := time.Now()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				sn := fmt.Sprintf("C%d", (w*7+i)%32)
				if _, ok := c.Get(sn, now); !ok {
					c.AddIfCurrent(active(sn, now.Add(time.Hour)), c.Epoch())
				}
				if i%50 == 0 {
					c.Remove(sn)
				}
			}
		}(w)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 16)
	assert.Equal(t, uint64(8*200), c.Hits()+c.Misses())
}
