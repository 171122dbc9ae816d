package model

import (
	"time"

	"github.com/qs-lzh/eventpro/internal/util"
)

type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Email          string    `gorm:"size:254;not null;uniqueIndex" json:"email"`
	Name           string    `gorm:"size:100;not null" json:"name"`
	Phone          string    `gorm:"size:32" json:"phone,omitempty"`
	HashedPassword string    `gorm:"not null" json:"-"`
	Role           UserRole  `gorm:"type:varchar(16);not null;index" json:"role"`
	Active         bool      `gorm:"not null" json:"active"`
	RegisteredAt   time.Time `gorm:"not null" json:"registered_at"`
}

type Event struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	Title       string        `gorm:"size:100;not null" json:"title"`
	Description string        `gorm:"size:1000" json:"description"`
	Category    EventCategory `gorm:"type:varchar(20);not null;index" json:"category"`
	StartAt     time.Time     `gorm:"not null;index" json:"start_at"`
	EndAt       time.Time     `gorm:"not null" json:"end_at"`
	Venue       string        `gorm:"size:200;not null" json:"venue"`
	City        string        `gorm:"size:100;not null;index" json:"city"`
	Capacity    int           `gorm:"not null" json:"capacity"`
	UnitPrice   float64       `gorm:"not null" json:"unit_price"`
	ImageURL    string        `gorm:"size:500" json:"image_url,omitempty"`
	OrganizerID uint          `gorm:"not null;index" json:"organizer_id"`
	Organizer   *User         `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
	Status      EventStatus   `gorm:"type:varchar(20);not null;index" json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

type Reservation struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	Code        string            `gorm:"size:9;not null;uniqueIndex" json:"code"`
	UserID      uint              `gorm:"not null;index" json:"user_id"`
	User        *User             `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
	EventID     uint              `gorm:"not null;index" json:"event_id"`
	Event       *Event            `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
	Seats       int               `gorm:"not null" json:"seats"`
	UnitPrice   float64           `gorm:"not null" json:"unit_price"`
	TotalAmount float64           `gorm:"not null" json:"total_amount"`
	Status      ReservationStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	ReservedAt  time.Time         `gorm:"not null;index" json:"reserved_at"`
	Comment     string            `gorm:"size:500" json:"comment,omitempty"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

type EventCategory string

const (
	CategoryConcert    EventCategory = "CONCERT"
	CategoryTheatre    EventCategory = "THEATRE"
	CategoryConference EventCategory = "CONFERENCE"
	CategorySport      EventCategory = "SPORT"
	CategoryOther      EventCategory = "OTHER"
)

var EventCategories = []EventCategory{CategoryConcert, CategoryTheatre, CategoryConference, CategorySport, CategoryOther}

func (c EventCategory) Valid() bool {
	switch c {
	case CategoryConcert, CategoryTheatre, CategoryConference, CategorySport, CategoryOther:
		return true
	}
	return false
}

type EventStatus string

const (
	EventStatusDraft     EventStatus = "DRAFT"
	EventStatusPublished EventStatus = "PUBLISHED"
	EventStatusCancelled EventStatus = "CANCELLED"
	EventStatusFinished  EventStatus = "FINISHED"
)

var EventStatuses = []EventStatus{EventStatusDraft, EventStatusPublished, EventStatusCancelled, EventStatusFinished}

func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusDraft, EventStatusPublished, EventStatusCancelled, EventStatusFinished:
		return true
	}
	return false
}

// Terminal statuses accept no further transition or modification.
func (s EventStatus) Terminal() bool {
	return s == EventStatusCancelled || s == EventStatusFinished
}

type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "PENDING"
	ReservationStatusConfirmed ReservationStatus = "CONFIRMED"
	ReservationStatusCancelled ReservationStatus = "CANCELLED"
)

var ReservationStatuses = []ReservationStatus{ReservationStatusPending, ReservationStatusConfirmed, ReservationStatusCancelled}

func (s ReservationStatus) Valid() bool {
	switch s {
	case ReservationStatusPending, ReservationStatusConfirmed, ReservationStatusCancelled:
		return true
	}
	return false
}

// MissingFields lists the fields that must be filled before the event can be
// published. An empty result means the event is complete.
func (e *Event) MissingFields() []string {
	var missing []string
	if e.Title == "" {
		missing = append(missing, "title")
	}
	if !e.Category.Valid() {
		missing = append(missing, "category")
	}
	if e.StartAt.IsZero() {
		missing = append(missing, "start_at")
	}
	if e.EndAt.IsZero() {
		missing = append(missing, "end_at")
	}
	if e.Venue == "" {
		missing = append(missing, "venue")
	}
	if e.City == "" {
		missing = append(missing, "city")
	}
	if e.Capacity <= 0 {
		missing = append(missing, "capacity")
	}
	if e.UnitPrice < 0 {
		missing = append(missing, "unit_price")
	}
	return missing
}

func (e *Event) IsComplete() bool {
	return len(e.MissingFields()) == 0
}

func (e *Event) IsModifiable() bool {
	return !e.Status.Terminal()
}

func (e *Event) IsOwnedBy(userID uint) bool {
	return e.OrganizerID == userID
}

func (r *Reservation) IsActive() bool {
	return r.Status != ReservationStatusCancelled
}

// CanBeCancelled reports whether the reservation is still active and the
// cancellation deadline of an event starting at eventStart has not passed.
func (r *Reservation) CanBeCancelled(eventStart, now time.Time) bool {
	return r.IsActive() && util.CanCancel(eventStart, now)
}
