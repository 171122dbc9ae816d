package domain

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/qs-lzh/eventpro/internal/database/dbtest"
	"github.com/qs-lzh/eventpro/internal/model"
	"github.com/qs-lzh/eventpro/internal/repository"
	"github.com/qs-lzh/eventpro/internal/util"
)

var now0 = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

type env struct {
	t            *testing.T
	db           *gorm.DB
	clock        *util.FixedClock
	cache        *memoryCache
	users        repository.UserRepo
	eventRepo    repository.EventRepo
	resRepo      repository.ReservationRepo
	events       *eventService
	reservations *reservationService
	accounts     *userService
	seq          int
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := dbtest.Open(t)
	clock := &util.FixedClock{At: now0}
	cache := newMemoryCache()
	logger := zap.NewNop()

	userRepo := repository.NewUserRepoGorm(db)
	eventRepo := repository.NewEventRepoGorm(db)
	resRepo := repository.NewReservationRepoGorm(db)

	return &env{
		t:            t,
		db:           db,
		clock:        clock,
		cache:        cache,
		users:        userRepo,
		eventRepo:    eventRepo,
		resRepo:      resRepo,
		events:       NewEventService(db, eventRepo, resRepo, cache, clock, logger),
		reservations: NewReservationService(db, resRepo, eventRepo, userRepo, util.NewCodeGenerator(), cache, clock, logger),
		accounts:     NewUserService(db, userRepo, eventRepo, resRepo, util.NewPasswordEncoder(bcrypt.MinCost), clock, logger),
	}
}

func (e *env) user(name string, role model.UserRole) *model.User {
	e.t.Helper()
	u := &model.User{
		Email:          name + "@example.com",
		Name:           name,
		HashedPassword: "$2a$04$placeholderplaceholderpl",
		Role:           role,
		Active:         true,
		RegisteredAt:   now0,
	}
	require.NoError(e.t, e.users.Create(u))
	return u
}

func (e *env) details(mutate func(d *EventDetails)) EventDetails {
	e.seq++
	start := e.clock.Now().Add(10 * 24 * time.Hour)
	d := EventDetails{
		Title:       fmt.Sprintf("Concert %d", e.seq),
		Description: "Live music",
		Category:    model.CategoryConcert,
		StartAt:     start,
		EndAt:       start.Add(3 * time.Hour),
		Venue:       "Main Hall",
		City:        "Lyon",
		Capacity:    10,
		UnitPrice:   25,
	}
	if mutate != nil {
		mutate(&d)
	}
	return d
}

// publishedEvent creates and publishes an event owned by organizer.
func (e *env) publishedEvent(organizer *model.User, mutate func(d *EventDetails)) *model.Event {
	e.t.Helper()
	event, err := e.events.CreateEvent(e.details(mutate), organizer)
	require.NoError(e.t, err)
	event, err = e.events.PublishEvent(event.ID, organizer)
	require.NoError(e.t, err)
	return event
}

func (e *env) book(user *model.User, eventID uint, seats int) *model.Reservation {
	e.t.Helper()
	r, err := e.reservations.CreateReservation(ReservationRequest{Seats: seats}, user, eventID)
	require.NoError(e.t, err)
	return r
}

func (e *env) available(eventID uint) int {
	e.t.Helper()
	e.cache.clear()
	view, err := e.events.GetEventByID(eventID)
	require.NoError(e.t, err)
	return view.AvailablePlaces
}

type memoryCache struct {
	mu          sync.Mutex
	reserved    map[uint]int
	versions    map[uint]int64
	invalidated []uint
}

func newMemoryCache() *memoryCache {
	return &memoryCache{reserved: make(map[uint]int), versions: make(map[uint]int64)}
}

func (c *memoryCache) GetReservedPlaces(eventID uint) (int, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.reserved[eventID]
	return n, ok, nil
}

func (c *memoryCache) ReservedPlacesVersion(eventID uint) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[eventID], nil
}

func (c *memoryCache) SetReservedPlaces(eventID uint, reserved int, version int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.versions[eventID] != version {
		return false, nil
	}
	c.reserved[eventID] = reserved
	return true, nil
}

func (c *memoryCache) InvalidateEvent(eventID uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.reserved, eventID)
	c.versions[eventID]++
	c.invalidated = append(c.invalidated, eventID)
	return nil
}

func (c *memoryCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reserved = make(map[uint]int)
}

// scriptedCodes hands out codes in order, repeating the last one.
type scriptedCodes struct {
	codes []string
	calls int
}

func (g *scriptedCodes) Generate() (string, error) {
	i := g.calls
	if i >= len(g.codes) {
		i = len(g.codes) - 1
	}
	g.calls++
	return g.codes[i], nil
}
