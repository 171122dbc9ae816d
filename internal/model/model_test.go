package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func completeEvent() Event {
	start := time.Date(2026, 6, 1, 19, 0, 0, 0, time.UTC)
	return Event{
		Title:     "Summer Concert",
		Category:  CategoryConcert,
		StartAt:   start,
		EndAt:     start.Add(3 * time.Hour),
		Venue:     "Main Hall",
		City:      "Lyon",
		Capacity:  10,
		UnitPrice: 25,
		Status:    EventStatusDraft,
	}
}

func TestEvent_MissingFields(t *testing.T) {
	e := completeEvent()
	assert.Empty(t, e.MissingFields())
	assert.True(t, e.IsComplete())

	e.City = ""
	e.Capacity = 0
	e.Category = "PARTY"
	assert.Equal(t, []string{"category", "city", "capacity"}, e.MissingFields())
	assert.False(t, e.IsComplete())

	free := completeEvent()
	free.UnitPrice = 0
	assert.True(t, free.IsComplete())
}

func TestEvent_IsModifiable(t *testing.T) {
	e := completeEvent()
	for status, want := range map[EventStatus]bool{
		EventStatusDraft:     true,
		EventStatusPublished: true,
		EventStatusCancelled: false,
		EventStatusFinished:  false,
	} {
		e.Status = status
		assert.Equal(t, want, e.IsModifiable(), status)
	}
}

func TestEventView(t *testing.T) {
	e := completeEvent()
	e.Status = EventStatusPublished
	now := e.StartAt.Add(-24 * time.Hour)

	v := NewEventView(e, 4, now)
	assert.Equal(t, 4, v.ReservedPlaces)
	assert.Equal(t, 6, v.AvailablePlaces)
	assert.InDelta(t, 40.0, v.FillRate, 1e-9)
	assert.True(t, v.IsAvailable)

	assert.False(t, NewEventView(e, 10, now).IsAvailable)
	assert.False(t, NewEventView(e, 0, e.StartAt).IsAvailable)

	e.Status = EventStatusDraft
	assert.False(t, NewEventView(e, 0, now).IsAvailable)
}

func TestAvailability_FillRateZeroCapacity(t *testing.T) {
	assert.Equal(t, 0.0, Availability{}.FillRate())
	assert.Equal(t, -2, Availability{Capacity: 3, Reserved: 5}.Available())
}

func TestReservation_CanBeCancelled(t *testing.T) {
	start := time.Date(2026, 6, 1, 19, 0, 0, 0, time.UTC)
	r := Reservation{Status: ReservationStatusConfirmed}

	assert.True(t, r.CanBeCancelled(start, start.Add(-72*time.Hour)))
	assert.False(t, r.CanBeCancelled(start, start.Add(-47*time.Hour)))

	r.Status = ReservationStatusCancelled
	assert.False(t, r.IsActive())
	assert.False(t, r.CanBeCancelled(start, start.Add(-72*time.Hour)))
}

func TestUserRole_Can(t *testing.T) {
	tests := []struct {
		role UserRole
		cap  Capability
		want bool
	}{
		{RoleClient, CapReserve, true},
		{RoleClient, CapManageOwnEvents, false},
		{RoleOrganizer, CapReserve, true},
		{RoleOrganizer, CapManageOwnEvents, true},
		{RoleOrganizer, CapManageAllEvents, false},
		{RoleAdmin, CapManageOwnEvents, true},
		{RoleAdmin, CapManageAllEvents, true},
		{RoleAdmin, CapManageUsers, true},
		{UserRole("GUEST"), CapReserve, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.role.Can(tt.cap), "%s %s", tt.role, tt.cap)
	}
}

func TestUserRole_Hierarchy(t *testing.T) {
	for _, c := range RoleClient.Capabilities() {
		assert.True(t, RoleOrganizer.Can(c), c)
	}
	for _, c := range RoleOrganizer.Capabilities() {
		assert.True(t, RoleAdmin.Can(c), c)
	}
	assert.False(t, UserRole("root").Valid())
}
