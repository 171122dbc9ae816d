package mq

import "time"

// Queue names and message definitions

// reservation lifecycle, published by the reservation workflow
const (
	ReservationCreatedQueue   = "reservation.created"
	ReservationConfirmedQueue = "reservation.confirmed"
	ReservationCancelledQueue = "reservation.cancelled"
)

type ReservationMessage struct {
	ReservationID uint      `json:"reservation_id"`
	Code          string    `json:"code"`
	EventID       uint      `json:"event_id"`
	UserID        uint      `json:"user_id"`
	Seats         int       `json:"seats"`
	TotalAmount   float64   `json:"total_amount"`
	Status        string    `json:"status"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// event lifecycle, published by the event workflow
const (
	EventPublishedQueue = "event.published"
	EventCancelledQueue = "event.cancelled"
)

type EventMessage struct {
	EventID     uint      `json:"event_id"`
	Title       string    `json:"title"`
	OrganizerID uint      `json:"organizer_id"`
	StartAt     time.Time `json:"start_at"`
	Status      string    `json:"status"`
	OccurredAt  time.Time `json:"occurred_at"`
}

var AllQueues = []string{
	ReservationCreatedQueue,
	ReservationConfirmedQueue,
	ReservationCancelledQueue,
	EventPublishedQueue,
	EventCancelledQueue,
}
