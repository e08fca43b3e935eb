package services

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisKVStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisKVStore(client)
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestRedisKVStoreBasicOperations(t *testing.T) {
	store, _ := newTestRedisStore(t)

	exists, err := store.Exists("device_dev1")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.Create("device_dev1"))
	exists, err = store.Exists("device_dev1")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, store.Set("device_dev1", "device_status", []byte(`{"is_locked":true}`), 0))
	val, err := store.Get("device_dev1", "device_status")
	require.NoError(t, err)
	assert.JSONEq(t, `{"is_locked":true}`, string(val))

	require.NoError(t, store.Delete("device_dev1", "device_status"))
	_, err = store.Get("device_dev1", "device_status")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestRedisKVStoreGetMissingKey(t *testing.T) {
	store, _ := newTestRedisStore(t)

	_, err := store.Get("device_dev1", "missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestRedisKVStoreTTLExpiry(t *testing.T) {
	store, mr := newTestRedisStore(t)

	require.NoError(t, store.Set("device_dev1", "daily_20250901", []byte(`{}`), 10*time.Second))

	_, err := store.Get("device_dev1", "daily_20250901")
	require.NoError(t, err)

	mr.FastForward(11 * time.Second)
	_, err = store.Get("device_dev1", "daily_20250901")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestRedisKVStoreSetRegistersTable(t *testing.T) {
	store, _ := newTestRedisStore(t)

	// Set无需先Create，表会自动登记
	require.NoError(t, store.Set("device_dev2", "device_status", []byte(`{}`), 0))

	exists, err := store.Exists("device_dev2")
	require.NoError(t, err)
	assert.True(t, exists)

	tables, err := store.ListTables()
	require.NoError(t, err)
	assert.Contains(t, tables, "device_dev2")
}

func TestRedisKVStoreWithRepository(t *testing.T) {
	store, _ := newTestRedisStore(t)
	clock := newFakeClock(testBaseTime)
	repo := NewDeviceRepository(store, clock)

	require.NoError(t, repo.EnsureDevice("dev1"))
	status, err := repo.GetStatus("dev1")
	require.NoError(t, err)
	assert.True(t, status.IsLocked)

	ids, err := repo.ListDeviceIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"dev1"}, ids)
}
