package domain

import (
	"go.uber.org/zap"

	"github.com/qs-lzh/eventpro/internal/model"
)

// PlacesCache holds the derived reserved-places aggregate for display reads.
// It is never consulted while booking. SetReservedPlaces drops the value when
// the event was invalidated after version was read.
type PlacesCache interface {
	GetReservedPlaces(eventID uint) (reserved int, ok bool, err error)
	ReservedPlacesVersion(eventID uint) (int64, error)
	SetReservedPlaces(eventID uint, reserved int, version int64) (stored bool, err error)
	InvalidateEvent(eventID uint) error
}

type CodeGenerator interface {
	Generate() (string, error)
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hashed string) bool
	IsStrong(password string) bool
}

// placesCache wraps an optional PlacesCache; cache failures are logged and
// never fail the caller.
type placesCache struct {
	cache  PlacesCache
	logger *zap.Logger
}

func (c placesCache) get(eventID uint) (int, bool) {
	if c.cache == nil {
		return 0, false
	}
	reserved, ok, err := c.cache.GetReservedPlaces(eventID)
	if err != nil {
		c.logger.Warn("read reserved places from cache", zap.Uint("event_id", eventID), zap.Error(err))
		return 0, false
	}
	return reserved, ok
}

// version reports false when nothing should be written back.
func (c placesCache) version(eventID uint) (int64, bool) {
	if c.cache == nil {
		return 0, false
	}
	version, err := c.cache.ReservedPlacesVersion(eventID)
	if err != nil {
		c.logger.Warn("read cache version", zap.Uint("event_id", eventID), zap.Error(err))
		return 0, false
	}
	return version, true
}

func (c placesCache) set(eventID uint, reserved int, version int64) {
	if _, err := c.cache.SetReservedPlaces(eventID, reserved, version); err != nil {
		c.logger.Warn("write reserved places to cache", zap.Uint("event_id", eventID), zap.Error(err))
	}
}

func (c placesCache) invalidate(eventID uint) {
	if c.cache == nil {
		return
	}
	if err := c.cache.InvalidateEvent(eventID); err != nil {
		c.logger.Warn("invalidate cached event", zap.Uint("event_id", eventID), zap.Error(err))
	}
}

// canManageEvent reports whether actor may modify event: admins always,
// organizers only for their own events.
func canManageEvent(actor *model.User, event *model.Event) bool {
	if actor == nil {
		return false
	}
	if actor.Role.Can(model.CapManageAllEvents) {
		return true
	}
	return actor.Role.Can(model.CapManageOwnEvents) && event.IsOwnedBy(actor.ID)
}
