package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs-lzh/eventpro/internal/database/dbtest"
	"github.com/qs-lzh/eventpro/internal/model"
)

var baseTime = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	t            *testing.T
	db           *gorm.DB
	users        *userRepoGorm
	events       *eventRepoGorm
	reservations *reservationRepoGorm
	seq          int
}

func newFixture(t *testing.T) *fixture {
	db := dbtest.Open(t)
	return &fixture{
		t:            t,
		db:           db,
		users:        NewUserRepoGorm(db),
		events:       NewEventRepoGorm(db),
		reservations: NewReservationRepoGorm(db),
	}
}

func (f *fixture) user(name string, role model.UserRole) *model.User {
	f.t.Helper()
	u := &model.User{
		Email:          name + "@example.com",
		Name:           name,
		HashedPassword: "$2a$10$hash",
		Role:           role,
		Active:         true,
		RegisteredAt:   baseTime,
	}
	require.NoError(f.t, f.users.Create(u))
	return u
}

func (f *fixture) event(organizer *model.User, mutate func(e *model.Event)) *model.Event {
	f.t.Helper()
	f.seq++
	e := &model.Event{
		Title:       fmt.Sprintf("Event %d", f.seq),
		Description: "An evening of music",
		Category:    model.CategoryConcert,
		StartAt:     baseTime.Add(7 * 24 * time.Hour),
		EndAt:       baseTime.Add(7*24*time.Hour + 3*time.Hour),
		Venue:       "Main Hall",
		City:        "Lyon",
		Capacity:    10,
		UnitPrice:   20,
		OrganizerID: organizer.ID,
		Status:      model.EventStatusPublished,
	}
	if mutate != nil {
		mutate(e)
	}
	require.NoError(f.t, f.events.Create(e))
	return e
}

func (f *fixture) reservation(user *model.User, event *model.Event, seats int, status model.ReservationStatus) *model.Reservation {
	f.t.Helper()
	f.seq++
	r := &model.Reservation{
		Code:        fmt.Sprintf("EVT-%05d", f.seq),
		UserID:      user.ID,
		EventID:     event.ID,
		Seats:       seats,
		UnitPrice:   event.UnitPrice,
		TotalAmount: float64(seats) * event.UnitPrice,
		Status:      status,
		ReservedAt:  baseTime.Add(time.Duration(f.seq) * time.Minute),
	}
	require.NoError(f.t, f.reservations.Create(r))
	return r
}
