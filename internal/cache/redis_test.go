package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewRedisCache(mr.Addr(), "", ttl)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	require.NoError(t, c.Ping())
	return c, mr
}

func TestRedisCache_ReservedPlaces(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)

	_, ok, err := c.GetReservedPlaces(7)
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := c.SetReservedPlaces(7, 42, 0)
	require.NoError(t, err)
	require.True(t, stored)
	n, ok, err := c.GetReservedPlaces(7)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 42, n)
	assert.Equal(t, time.Minute, mr.TTL("event:7:places:reserved"))

	require.NoError(t, c.InvalidateEvent(7))
	_, ok, err = c.GetReservedPlaces(7)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_ReservedPlacesExpire(t *testing.T) {
	c, mr := newTestCache(t, 30*time.Second)
	_, err := c.SetReservedPlaces(1, 3, 0)
	require.NoError(t, err)

	mr.FastForward(31 * time.Second)

	_, ok, err := c.GetReservedPlaces(1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_StaleWriteAfterInvalidate(t *testing.T) {
	c, mr := newTestCache(t, 0)

	version, err := c.ReservedPlacesVersion(5)
	require.NoError(t, err)
	assert.Equal(t, int64(0), version)

	// a booking lands between the read of the aggregate and the write
	require.NoError(t, c.InvalidateEvent(5))

	stored, err := c.SetReservedPlaces(5, 2, version)
	require.NoError(t, err)
	assert.False(t, stored)
	assert.False(t, mr.Exists(MakeEventReservedPlacesKey(5)))

	version, err = c.ReservedPlacesVersion(5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
	stored, err = c.SetReservedPlaces(5, 3, version)
	require.NoError(t, err)
	assert.True(t, stored)
	assert.Equal(t, time.Duration(0), mr.TTL(MakeEventReservedPlacesKey(5)))

	n, ok, err := c.GetReservedPlaces(5)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, n)
}

func TestRedisCache_CorruptValue(t *testing.T) {
	c, mr := newTestCache(t, 0)
	require.NoError(t, mr.Set(MakeEventReservedPlacesKey(3), "many"))

	_, ok, err := c.GetReservedPlaces(3)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestRedisCache_Lock(t *testing.T) {
	c, mr := newTestCache(t, 0)

	token, ok, err := c.AcquireLock("sweep", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, token)

	_, ok, err = c.AcquireLock("sweep", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, c.ReleaseLock("sweep", "someone-else"), ErrLockNotHeld)
	require.NoError(t, c.ReleaseLock("sweep", token))
	assert.False(t, mr.Exists(MakeLockKey("sweep")))

	mr.FastForward(time.Minute)
	token, ok, err = c.AcquireLock("sweep", time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	mr.FastForward(2 * time.Second)
	assert.ErrorIs(t, c.ReleaseLock("sweep", token), ErrLockNotHeld)
}
