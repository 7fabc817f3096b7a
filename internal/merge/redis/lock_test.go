package redis_test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mergeredis "fairfinder/internal/merge/redis"
)

func setupRedis(t *testing.T) (*mergeredis.Redis, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return mergeredis.NewRedis(client), mr
}

func TestLockMergeAndUnlock(t *testing.T) {
	lock, mr := setupRedis(t)

	ids := []string{"venue1", "venue2"}

	locked, err := lock.LockMerge("venues", ids, "token-a")
	require.NoError(t, err)
	assert.True(t, locked)

	// One key per id in the pair.
	assert.True(t, mr.Exists("merge_lock:venues:venue1"))
	assert.True(t, mr.Exists("merge_lock:venues:venue2"))

	require.NoError(t, lock.UnlockMerge("venues", ids, "token-a"))
	assert.False(t, mr.Exists("merge_lock:venues:venue1"))
	assert.False(t, mr.Exists("merge_lock:venues:venue2"))
}

func TestLockMergeConflictOnSharedID(t *testing.T) {
	lock, mr := setupRedis(t)

	locked, err := lock.LockMerge("venues", []string{"venue1", "venue2"}, "token-a")
	require.NoError(t, err)
	require.True(t, locked)

	// A second merge sharing venue2 must fail and must not leave a
	// half-taken lock on venue3 behind.
	locked, err = lock.LockMerge("venues", []string{"venue2", "venue3"}, "token-b")
	require.NoError(t, err)
	assert.False(t, locked)
	assert.False(t, mr.Exists("merge_lock:venues:venue3"))

	// A disjoint pair is free to proceed.
	locked, err = lock.LockMerge("venues", []string{"venue4", "venue5"}, "token-c")
	require.NoError(t, err)
	assert.True(t, locked)
}

func TestLockMergeScopedByEntityType(t *testing.T) {
	lock, _ := setupRedis(t)

	locked, err := lock.LockMerge("venues", []string{"abc"}, "token-a")
	require.NoError(t, err)
	require.True(t, locked)

	// The same id under a different entity type is a different lock.
	locked, err = lock.LockMerge("vendors", []string{"abc"}, "token-b")
	require.NoError(t, err)
	assert.True(t, locked)
}

func TestUnlockMergeChecksToken(t *testing.T) {
	lock, mr := setupRedis(t)

	ids := []string{"venue1", "venue2"}

	locked, err := lock.LockMerge("venues", ids, "token-a")
	require.NoError(t, err)
	require.True(t, locked)

	// A different token must not release someone else's lock.
	require.NoError(t, lock.UnlockMerge("venues", ids, "token-b"))
	assert.True(t, mr.Exists("merge_lock:venues:venue1"))
	assert.True(t, mr.Exists("merge_lock:venues:venue2"))

	require.NoError(t, lock.UnlockMerge("venues", ids, "token-a"))
	assert.False(t, mr.Exists("merge_lock:venues:venue1"))
}

func TestUnlockMergeMissingKeysIsNoop(t *testing.T) {
	lock, _ := setupRedis(t)
	assert.NoError(t, lock.UnlockMerge("venues", []string{"never-locked"}, "token-a"))
}

func TestLockMergeExpires(t *testing.T) {
	lock, mr := setupRedis(t)

	t.Setenv("MERGE_LOCK_TTL_SECONDS", "5")

	locked, err := lock.LockMerge("venues", []string{"venue1"}, "token-a")
	require.NoError(t, err)
	require.True(t, locked)

	// After the TTL passes the lock frees itself.
	mr.FastForward(6 * time.Second)

	locked, err = lock.LockMerge("venues", []string{"venue1"}, "token-b")
	require.NoError(t, err)
	assert.True(t, locked)
}
