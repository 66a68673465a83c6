package repository_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"dispatch-service/internal/models"
	"dispatch-service/internal/repository"
	"dispatch-service/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryReserveTarget_ConcurrentCap(t *testing.T) {
	db := testutil.SetupDB(t)
	repo := repository.NewCapRepository(db)

	link := testutil.CreateLink(t, db, "conc01", "bu01", 0, "")
	target := testutil.CreateTarget(t, db, link, "https://a.com", 100, 100, "")

	const workers = 1000
	var granted atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			ok, err := repo.TryReserveTarget(context.Background(), target.ID)
			assert.NoError(t, err)
			if ok {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(100), granted.Load())

	var stored models.Target
	require.NoError(t, db.First(&stored, target.ID).Error)
	assert.Equal(t, 100, stored.CurrentHits)
}

func TestTryReserveLink_ConcurrentCap(t *testing.T) {
	db := testutil.SetupDB(t)
	repo := repository.NewCapRepository(db)

	link := testutil.CreateLink(t, db, "conc02", "bu01", 50, "")

	const workers = 200
	var granted atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			ok, err := repo.TryReserveLink(context.Background(), link.ID)
			assert.NoError(t, err)
			if ok {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), granted.Load())
}

func TestTryReserve_ZeroCapIsUnlimited(t *testing.T) {
	db := testutil.SetupDB(t)
	repo := repository.NewCapRepository(db)

	link := testutil.CreateLink(t, db, "unlim1", "bu01", 0, "")
	target := testutil.CreateTarget(t, db, link, "https://a.com", 100, 0, "")

	for i := 0; i < 10; i++ {
		ok, err := repo.TryReserveTarget(context.Background(), target.ID)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = repo.TryReserveLink(context.Background(), link.ID)
		require.NoError(t, err)
		require.True(t, ok)
	}

	// Counters still advance for reporting even without a limit.
	var stored models.Target
	require.NoError(t, db.First(&stored, target.ID).Error)
	assert.Equal(t, 10, stored.CurrentHits)
}

func TestRelease(t *testing.T) {
	db := testutil.SetupDB(t)
	repo := repository.NewCapRepository(db)

	link := testutil.CreateLink(t, db, "rel001", "bu01", 1, "")
	target := testutil.CreateTarget(t, db, link, "https://a.com", 100, 1, "")

	ok, err := repo.TryReserveTarget(context.Background(), target.ID)
	require.NoError(t, err)
	require.True(t, ok)

	// Cap of one is now exhausted.
	ok, err = repo.TryReserveTarget(context.Background(), target.ID)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, repo.ReleaseTarget(context.Background(), target.ID))

	ok, err = repo.TryReserveTarget(context.Background(), target.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// Release never drives a counter negative.
	require.NoError(t, repo.ReleaseLink(context.Background(), link.ID))
	var stored models.Link
	require.NoError(t, db.First(&stored, link.ID).Error)
	assert.Equal(t, 0, stored.CurrentHits)
}
