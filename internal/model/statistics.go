package model

type EventStatistics struct {
	EventID           uint                        `json:"event_id"`
	Capacity          int                         `json:"capacity"`
	ReservedPlaces    int                         `json:"reserved_places"`
	AvailablePlaces   int                         `json:"available_places"`
	FillRate          float64                     `json:"fill_rate"`
	TotalReservations int64                       `json:"total_reservations"`
	ByStatus          map[ReservationStatus]int64 `json:"by_status"`
	ConfirmedRevenue  float64                     `json:"confirmed_revenue"`
}

type OrganizerStatistics struct {
	OrganizerID       uint                  `json:"organizer_id"`
	TotalEvents       int64                 `json:"total_events"`
	EventsByStatus    map[EventStatus]int64 `json:"events_by_status"`
	TotalReservations int64                 `json:"total_reservations"`
	ConfirmedRevenue  float64               `json:"confirmed_revenue"`
}

type EventGlobalStatistics struct {
	TotalEvents int64                   `json:"total_events"`
	ByStatus    map[EventStatus]int64   `json:"by_status"`
	ByCategory  map[EventCategory]int64 `json:"by_category"`
}

type ReservationStatistics struct {
	Total            int64                       `json:"total"`
	Active           int64                       `json:"active"`
	ByStatus         map[ReservationStatus]int64 `json:"by_status"`
	ConfirmedRevenue float64                     `json:"confirmed_revenue"`
}

type UserReservationStatistics struct {
	UserID     uint                        `json:"user_id"`
	Total      int64                       `json:"total"`
	ByStatus   map[ReservationStatus]int64 `json:"by_status"`
	TotalSpent float64                     `json:"total_spent"`
	Upcoming   int64                       `json:"upcoming"`
}

type UserStatistics struct {
	UserID            uint    `json:"user_id"`
	EventsCreated     int64   `json:"events_created"`
	TotalReservations int64   `json:"total_reservations"`
	TotalSpent        float64 `json:"total_spent"`
}

type UserGlobalStatistics struct {
	Total    int64              `json:"total"`
	Active   int64              `json:"active"`
	Inactive int64              `json:"inactive"`
	ByRole   map[UserRole]int64 `json:"by_role"`
}
