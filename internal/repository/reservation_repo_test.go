package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs-lzh/eventpro/internal/model"
)

func TestReservationRepo_GetByCode(t *testing.T) {
	f := newFixture(t)
	org := f.user("olga", model.RoleOrganizer)
	client := f.user("carl", model.RoleClient)
	e := f.event(org, nil)
	r := f.reservation(client, e, 2, model.ReservationStatusPending)

	got, err := f.reservations.GetByCode(r.Code)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
	assert.Equal(t, 40.0, got.TotalAmount)

	exists, err := f.reservations.ExistsByCode(r.Code)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = f.reservations.ExistsByCode("EVT-99999")
	require.NoError(t, err)
	assert.False(t, exists)

	dup := *r
	dup.ID = 0
	assert.Error(t, f.reservations.Create(&dup))
}

func TestReservationRepo_SeatAccounting(t *testing.T) {
	f := newFixture(t)
	org := f.user("olga", model.RoleOrganizer)
	client := f.user("carl", model.RoleClient)
	e1 := f.event(org, nil)
	e2 := f.event(org, nil)
	e3 := f.event(org, nil)

	f.reservation(client, e1, 4, model.ReservationStatusPending)
	f.reservation(client, e1, 2, model.ReservationStatusConfirmed)
	f.reservation(client, e1, 3, model.ReservationStatusCancelled)
	f.reservation(client, e2, 1, model.ReservationStatusCancelled)

	seats, err := f.reservations.SumActiveSeats(e1.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, seats)

	seats, err = f.reservations.SumActiveSeats(e2.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, seats)

	byEvent, err := f.reservations.SumActiveSeatsByEvents([]uint{e1.ID, e2.ID, e3.ID})
	require.NoError(t, err)
	assert.Equal(t, 6, byEvent[e1.ID])
	assert.Equal(t, 0, byEvent[e2.ID])
	assert.Equal(t, 0, byEvent[e3.ID])

	active, err := f.reservations.CountActiveByEvent(e1.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), active)

	n, err := f.reservations.CancelActiveByEvent(e1.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	seats, err = f.reservations.SumActiveSeats(e1.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, seats)

	n, err = f.reservations.DeleteByEvent(e1.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestReservationRepo_Lists(t *testing.T) {
	f := newFixture(t)
	org := f.user("olga", model.RoleOrganizer)
	carl := f.user("carl", model.RoleClient)
	dana := f.user("dana", model.RoleClient)
	upcoming := f.event(org, nil)
	past := f.event(org, func(e *model.Event) {
		e.StartAt = baseTime.Add(-24 * time.Hour)
		e.EndAt = baseTime.Add(-20 * time.Hour)
	})

	f.reservation(carl, upcoming, 1, model.ReservationStatusPending)
	f.reservation(carl, upcoming, 1, model.ReservationStatusCancelled)
	f.reservation(carl, past, 1, model.ReservationStatusConfirmed)
	f.reservation(dana, upcoming, 2, model.ReservationStatusConfirmed)

	mine, err := f.reservations.ListByUser(carl.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 3)

	next, err := f.reservations.ListUpcomingByUser(carl.ID, baseTime)
	require.NoError(t, err)
	require.Len(t, next, 1)
	assert.Equal(t, upcoming.ID, next[0].EventID)

	n, err := f.reservations.CountUpcomingByUser(carl.ID, baseTime)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	confirmed, err := f.reservations.ListByEventAndStatus(upcoming.ID, model.ReservationStatusConfirmed)
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, dana.ID, confirmed[0].UserID)

	all, err := f.reservations.ListByEvent(upcoming.ID)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	cancelled, err := f.reservations.ListByStatus(model.ReservationStatusCancelled)
	require.NoError(t, err)
	assert.Len(t, cancelled, 1)
}

func TestReservationRepo_Search(t *testing.T) {
	f := newFixture(t)
	org := f.user("olga", model.RoleOrganizer)
	carl := f.user("carl", model.RoleClient)
	dana := f.user("dana", model.RoleClient)
	e := f.event(org, nil)

	r1 := f.reservation(carl, e, 1, model.ReservationStatusPending)
	f.reservation(dana, e, 1, model.ReservationStatusConfirmed)
	f.reservation(dana, e, 1, model.ReservationStatusPending)

	found, total, err := f.reservations.Search(ReservationFilter{Keyword: "CARL"}, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, r1.ID, found[0].ID)

	found, total, err = f.reservations.Search(ReservationFilter{Keyword: r1.Code}, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, r1.ID, found[0].ID)

	_, total, err = f.reservations.Search(ReservationFilter{Keyword: "dana", Status: model.ReservationStatusPending}, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	from := baseTime.Add(3 * time.Minute)
	_, total, err = f.reservations.Search(ReservationFilter{From: &from}, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	found, total, err = f.reservations.Search(ReservationFilter{EventID: e.ID}, Page{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, found, 1)
}

func TestReservationRepo_Aggregates(t *testing.T) {
	f := newFixture(t)
	olga := f.user("olga", model.RoleOrganizer)
	oscar := f.user("oscar", model.RoleOrganizer)
	carl := f.user("carl", model.RoleClient)
	e1 := f.event(olga, nil)
	e2 := f.event(oscar, func(e *model.Event) { e.UnitPrice = 50 })

	f.reservation(carl, e1, 2, model.ReservationStatusConfirmed)
	f.reservation(carl, e1, 1, model.ReservationStatusPending)
	f.reservation(carl, e1, 3, model.ReservationStatusCancelled)
	f.reservation(carl, e2, 1, model.ReservationStatusConfirmed)

	counts, err := f.reservations.CountByStatus(ReservationScope{EventID: e1.ID})
	require.NoError(t, err)
	assert.Equal(t, map[model.ReservationStatus]int64{
		model.ReservationStatusPending:   1,
		model.ReservationStatusConfirmed: 1,
		model.ReservationStatusCancelled: 1,
	}, counts)

	counts, err = f.reservations.CountByStatus(ReservationScope{OrganizerID: oscar.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[model.ReservationStatusConfirmed])
	assert.Equal(t, int64(0), counts[model.ReservationStatusPending])

	revenue, err := f.reservations.ConfirmedRevenue(ReservationScope{OrganizerID: olga.ID})
	require.NoError(t, err)
	assert.InDelta(t, 40.0, revenue, 1e-9)

	revenue, err = f.reservations.ConfirmedRevenue(ReservationScope{UserID: carl.ID})
	require.NoError(t, err)
	assert.InDelta(t, 90.0, revenue, 1e-9)

	revenue, err = f.reservations.ConfirmedRevenue(ReservationScope{})
	require.NoError(t, err)
	assert.InDelta(t, 90.0, revenue, 1e-9)
}

func TestReservationRepo_ListBetween(t *testing.T) {
	f := newFixture(t)
	org := f.user("olga", model.RoleOrganizer)
	carl := f.user("carl", model.RoleClient)
	e := f.event(org, nil)
	f.reservation(carl, e, 1, model.ReservationStatusPending)
	second := f.reservation(carl, e, 1, model.ReservationStatusPending)
	f.reservation(carl, e, 1, model.ReservationStatusPending)

	found, err := f.reservations.ListBetween(second.ReservedAt, second.ReservedAt)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, second.ID, found[0].ID)
}
