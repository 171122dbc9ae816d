package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs-lzh/eventpro/internal/model"
)

func TestEventRepo_GetSaveDelete(t *testing.T) {
	f := newFixture(t)
	org := f.user("olga", model.RoleOrganizer)
	e := f.event(org, nil)

	got, err := f.events.GetByID(e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.Title, got.Title)
	assert.True(t, got.StartAt.Equal(e.StartAt))

	got.City = "Paris"
	require.NoError(t, f.events.Save(got))

	err = f.db.Transaction(func(tx *gorm.DB) error {
		locked, err := f.events.WithTx(tx).GetByIDForUpdate(e.ID)
		require.NoError(t, err)
		assert.Equal(t, "Paris", locked.City)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, f.events.Delete(e.ID))
	_, err = f.events.GetByID(e.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestEventRepo_Lists(t *testing.T) {
	f := newFixture(t)
	org := f.user("olga", model.RoleOrganizer)
	other := f.user("oscar", model.RoleOrganizer)

	f.event(org, nil)
	f.event(org, func(e *model.Event) { e.Category = model.CategorySport; e.City = "PARIS" })
	f.event(org, func(e *model.Event) { e.Status = model.EventStatusDraft })
	f.event(other, func(e *model.Event) {
		e.StartAt = baseTime.Add(-48 * time.Hour)
		e.EndAt = baseTime.Add(-46 * time.Hour)
	})

	mine, err := f.events.ListByOrganizer(org.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 3)

	drafts, err := f.events.ListByStatus(model.EventStatusDraft)
	require.NoError(t, err)
	assert.Len(t, drafts, 1)

	available, err := f.events.ListAvailable(baseTime)
	require.NoError(t, err)
	assert.Len(t, available, 2)

	sport, err := f.events.ListPublishedByCategory(model.CategorySport, baseTime)
	require.NoError(t, err)
	assert.Len(t, sport, 1)

	paris, err := f.events.ListUpcomingByCity("paris", baseTime)
	require.NoError(t, err)
	assert.Len(t, paris, 1)
}

func TestEventRepo_Search(t *testing.T) {
	f := newFixture(t)
	org := f.user("olga", model.RoleOrganizer)
	for i := range 5 {
		price := float64(10 * (i + 1))
		f.event(org, func(e *model.Event) {
			e.UnitPrice = price
			e.StartAt = baseTime.Add(time.Duration(i+1) * 24 * time.Hour)
			e.EndAt = e.StartAt.Add(2 * time.Hour)
		})
	}
	f.event(org, func(e *model.Event) { e.Title = "Jazz Night"; e.Category = model.CategoryTheatre; e.UnitPrice = 5 })

	minPrice, maxPrice := 20.0, 40.0
	events, total, err := f.events.Search(EventFilter{MinPrice: &minPrice, MaxPrice: &maxPrice}, Page{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, events, 2)
	assert.Equal(t, 20.0, events[0].UnitPrice)

	events, total, err = f.events.Search(EventFilter{Keyword: "jazz"}, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Jazz Night", events[0].Title)

	to := baseTime.Add(2*24*time.Hour + time.Hour)
	_, total, err = f.events.Search(EventFilter{To: &to, Category: model.CategoryConcert}, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestEventRepo_MostPopular(t *testing.T) {
	f := newFixture(t)
	org := f.user("olga", model.RoleOrganizer)
	client := f.user("carl", model.RoleClient)

	quiet := f.event(org, nil)
	busy := f.event(org, nil)
	cancelledOnly := f.event(org, nil)

	f.reservation(client, busy, 1, model.ReservationStatusPending)
	f.reservation(client, busy, 1, model.ReservationStatusConfirmed)
	f.reservation(client, quiet, 1, model.ReservationStatusPending)
	f.reservation(client, cancelledOnly, 1, model.ReservationStatusCancelled)
	f.reservation(client, cancelledOnly, 1, model.ReservationStatusCancelled)

	popular, err := f.events.MostPopular(2)
	require.NoError(t, err)
	require.Len(t, popular, 2)
	assert.Equal(t, busy.ID, popular[0].ID)
	assert.Equal(t, quiet.ID, popular[1].ID)
}

func TestEventRepo_MarkFinishedIsIdempotent(t *testing.T) {
	f := newFixture(t)
	org := f.user("olga", model.RoleOrganizer)
	past := func(e *model.Event) {
		e.StartAt = baseTime.Add(-5 * time.Hour)
		e.EndAt = baseTime.Add(-time.Hour)
	}
	done := f.event(org, past)
	draft := f.event(org, func(e *model.Event) { past(e); e.Status = model.EventStatusDraft })
	upcoming := f.event(org, nil)

	n, err := f.events.MarkFinished(baseTime)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = f.events.MarkFinished(baseTime)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	for id, want := range map[uint]model.EventStatus{
		done.ID:     model.EventStatusFinished,
		draft.ID:    model.EventStatusDraft,
		upcoming.ID: model.EventStatusPublished,
	} {
		got, err := f.events.GetByID(id)
		require.NoError(t, err)
		assert.Equal(t, want, got.Status)
	}
}

func TestEventRepo_Counts(t *testing.T) {
	f := newFixture(t)
	org := f.user("olga", model.RoleOrganizer)
	other := f.user("oscar", model.RoleOrganizer)
	f.event(org, nil)
	f.event(org, func(e *model.Event) { e.Status = model.EventStatusDraft; e.Category = model.CategorySport })
	f.event(other, nil)

	byStatus, err := f.events.CountByStatus(org.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), byStatus[model.EventStatusPublished])
	assert.Equal(t, int64(1), byStatus[model.EventStatusDraft])
	assert.Equal(t, int64(0), byStatus[model.EventStatusFinished])

	byStatus, err = f.events.CountByStatus(0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), byStatus[model.EventStatusPublished])

	byCategory, err := f.events.CountByCategory()
	require.NoError(t, err)
	assert.Equal(t, int64(2), byCategory[model.CategoryConcert])
	assert.Equal(t, int64(1), byCategory[model.CategorySport])
	assert.Equal(t, int64(0), byCategory[model.CategoryOther])
}
