package cache

import (
	"errors"
	"fmt"

	redis "github.com/redis/go-redis/v9"
)

// key names definition
// key names in lua script should follow these formats
const (
	EventReservedPlacesKey = "event:%d:places:reserved" // derived reserved places of an event, '%d' is event id
	EventPlacesVersionKey  = "event:%d:places:version"  // bumped on every invalidation, '%d' is event id
	LockKey                = "lock:%s"                  // distributed lock, '%s' is the lock name
)

func MakeEventReservedPlacesKey(eventID uint) string {
	return fmt.Sprintf(EventReservedPlacesKey, eventID)
}

func MakeEventPlacesVersionKey(eventID uint) string {
	return fmt.Sprintf(EventPlacesVersionKey, eventID)
}

func MakeLockKey(name string) string {
	return fmt.Sprintf(LockKey, name)
}

// errors
var (
	ErrLockNotHeld = errors.New("lock is not held by this token")
)

// lua scripts
var setReservedPlacesScript = redis.NewScript(`
	-- KEYS[1] = event:{id}:places:reserved
	-- KEYS[2] = event:{id}:places:version
	-- ARGV[1] = reserved places
	-- ARGV[2] = version read before the aggregate was computed
	-- ARGV[3] = ttl in milliseconds, 0 for none

	local current = tonumber(redis.call("GET", KEYS[2]) or "0")
	if current ~= tonumber(ARGV[2]) then
		return 0
	end
	if tonumber(ARGV[3]) > 0 then
		redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
	else
		redis.call("SET", KEYS[1], ARGV[1])
	end
	return 1
`)

var releaseLockScript = redis.NewScript(`
	-- KEYS[1] = lock:{name}
	-- ARGV[1] = token of the holder

	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return 0
`)
