package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/amirulmuuminin/tahfidz-exam-api/pkg/errors"
)

func TestCacheRepositoryWithoutClientDegrades(t *testing.T) {
	repo := NewCacheRepository(nil, nil)

	var dest map[string]string
	err := repo.Get(context.Background(), "k", &dest)
	assert.ErrorIs(t, err, appErrors.ErrCacheMiss)

	assert.NoError(t, repo.Set(context.Background(), "k", map[string]string{"a": "b"}, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(context.Background(), "k*"))
	assert.NoError(t, repo.Close())
}

func TestSlotLockerLocalFallback(t *testing.T) {
	locker := NewSlotLocker(nil, time.Second)
	key := SlotLockKey("2026-09-07", "Jam ke-1")

	require.NoError(t, locker.Acquire(context.Background(), key, "t1"))

	err := locker.Acquire(context.Background(), key, "t2")
	assert.ErrorIs(t, err, appErrors.ErrSlotLocked)

	// Release with the wrong token keeps the lock held.
	require.NoError(t, locker.Release(context.Background(), key, "t2"))
	err = locker.Acquire(context.Background(), key, "t2")
	assert.ErrorIs(t, err, appErrors.ErrSlotLocked)

	require.NoError(t, locker.Release(context.Background(), key, "t1"))
	require.NoError(t, locker.Acquire(context.Background(), key, "t2"))
}

func TestSlotLockKey(t *testing.T) {
	assert.Equal(t, "slotlock:2026-09-07:Jam ke-1", SlotLockKey("2026-09-07", "Jam ke-1"))
}
