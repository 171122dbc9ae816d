package model

import (
	"time"

	"github.com/qs-lzh/eventpro/internal/util"
)

// Availability is the derived seat accounting of one event.
type Availability struct {
	Capacity int `json:"capacity"`
	Reserved int `json:"reserved_places"`
}

func (a Availability) Available() int {
	return a.Capacity - a.Reserved
}

// FillRate is the reserved share of capacity as a percentage.
func (a Availability) FillRate() float64 {
	if a.Capacity <= 0 {
		return 0
	}
	return float64(a.Reserved) / float64(a.Capacity) * 100
}

// EventView is an event with its derived availability fields.
type EventView struct {
	Event
	ReservedPlaces  int     `json:"reserved_places"`
	AvailablePlaces int     `json:"available_places"`
	FillRate        float64 `json:"fill_rate"`
	IsAvailable     bool    `json:"is_available"`
}

func NewEventView(event Event, reserved int, now time.Time) EventView {
	a := Availability{Capacity: event.Capacity, Reserved: reserved}
	return EventView{
		Event:           event,
		ReservedPlaces:  reserved,
		AvailablePlaces: a.Available(),
		FillRate:        a.FillRate(),
		IsAvailable: event.Status == EventStatusPublished &&
			util.IsFuture(event.StartAt, now) &&
			a.Available() > 0,
	}
}

type ReservationSummary struct {
	ID          uint              `json:"id"`
	Code        string            `json:"code"`
	EventID     uint              `json:"event_id"`
	EventTitle  string            `json:"event_title"`
	EventStart  time.Time         `json:"event_start"`
	EventVenue  string            `json:"event_venue"`
	EventCity   string            `json:"event_city"`
	Seats       int               `json:"seats"`
	TotalAmount float64           `json:"total_amount"`
	Status      ReservationStatus `json:"status"`
	ReservedAt  time.Time         `json:"reserved_at"`
	UserName    string            `json:"user_name"`
	UserEmail   string            `json:"user_email"`
	Cancellable bool              `json:"cancellable"`

	HoursUntilEvent int64 `json:"hours_until_event"`
	EventStarted    bool  `json:"event_started"`
}

func NewReservationSummary(r Reservation, event Event, user User, now time.Time) ReservationSummary {
	return ReservationSummary{
		ID:          r.ID,
		Code:        r.Code,
		EventID:     event.ID,
		EventTitle:  event.Title,
		EventStart:  event.StartAt,
		EventVenue:  event.Venue,
		EventCity:   event.City,
		Seats:       r.Seats,
		TotalAmount: r.TotalAmount,
		Status:      r.Status,
		ReservedAt:  r.ReservedAt,
		UserName:    user.Name,
		UserEmail:   user.Email,
		Cancellable: r.CanBeCancelled(event.StartAt, now),

		HoursUntilEvent: util.HoursUntil(event.StartAt, now),
		EventStarted:    util.HasPassed(event.StartAt, now),
	}
}
