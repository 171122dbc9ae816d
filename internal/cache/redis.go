package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

var ctx = context.Background()

type RedisCache struct {
	Client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to addr. Cached aggregates expire after ttl; zero
// keeps them until they are invalidated.
func NewRedisCache(addr, password string, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(
		&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       0,
		},
	)
	redisCache := &RedisCache{Client: client, ttl: ttl}

	return redisCache, nil
}

func (r *RedisCache) Ping() error {
	return r.Client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.Client.Close()
}

/*
* reserved places of an event
 */

func (r *RedisCache) GetReservedPlaces(eventID uint) (reserved int, ok bool, err error) {
	value, err := r.Client.Get(ctx, MakeEventReservedPlacesKey(eventID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, err
	}
	reserved, err = strconv.Atoi(value)
	if err != nil {
		return 0, false, err
	}
	return reserved, true, nil
}

// ReservedPlacesVersion returns the invalidation counter of an event. Read it
// before computing the aggregate and hand it to SetReservedPlaces.
func (r *RedisCache) ReservedPlacesVersion(eventID uint) (int64, error) {
	version, err := r.Client.Get(ctx, MakeEventPlacesVersionKey(eventID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return version, err
}

// SetReservedPlaces stores reserved unless the event was invalidated after
// version was read. It reports whether the value was stored.
func (r *RedisCache) SetReservedPlaces(eventID uint, reserved int, version int64) (bool, error) {
	keys := []string{MakeEventReservedPlacesKey(eventID), MakeEventPlacesVersionKey(eventID)}
	res, err := setReservedPlacesScript.Run(ctx, r.Client, keys, reserved, version, r.ttl.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

func (r *RedisCache) InvalidateEvent(eventID uint) error {
	_, err := r.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, MakeEventReservedPlacesKey(eventID))
		pipe.Incr(ctx, MakeEventPlacesVersionKey(eventID))
		return nil
	})
	return err
}

/*
* locks
 */

// AcquireLock takes the named lock for ttl. It returns the holder token and
// false without error when somebody else holds the lock.
func (r *RedisCache) AcquireLock(name string, ttl time.Duration) (token string, ok bool, err error) {
	token = uuid.NewString()
	ok, err = r.Client.SetNX(ctx, MakeLockKey(name), token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// ReleaseLock deletes the lock only if token still holds it.
func (r *RedisCache) ReleaseLock(name, token string) error {
	res, err := releaseLockScript.Run(ctx, r.Client, []string{MakeLockKey(name)}, token).Int64()
	if err != nil {
		return err
	}
	if res == 0 {
		return ErrLockNotHeld
	}
	return nil
}
