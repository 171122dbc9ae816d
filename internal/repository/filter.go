package repository

import (
	"time"

	"github.com/qs-lzh/eventpro/internal/model"
)

// EventFilter narrows event searches. Zero fields are ignored.
type EventFilter struct {
	Keyword     string
	Category    model.EventCategory
	City        string
	Status      model.EventStatus
	OrganizerID uint
	MinPrice    *float64
	MaxPrice    *float64
	From        *time.Time
	To          *time.Time
}

// ReservationFilter narrows reservation searches. Zero fields are ignored.
type ReservationFilter struct {
	Keyword string
	Status  model.ReservationStatus
	UserID  uint
	EventID uint
	From    *time.Time
	To      *time.Time
}

// ReservationScope restricts reservation aggregates to one event, one user or
// the events of one organizer. The zero scope covers every reservation.
type ReservationScope struct {
	EventID     uint
	UserID      uint
	OrganizerID uint
}

type Page struct {
	Limit  int
	Offset int
}

const MaxPageSize = 100

func (p Page) normalized() Page {
	if p.Limit <= 0 || p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
