package domain

import (
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qs-lzh/eventpro/internal/model"
	"github.com/qs-lzh/eventpro/internal/repository"
	"github.com/qs-lzh/eventpro/internal/service"
	"github.com/qs-lzh/eventpro/internal/util"
)

const (
	maxTitleLength       = 100
	maxDescriptionLength = 1000
)

// EventDetails are the organizer-editable fields of an event.
type EventDetails struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Category    model.EventCategory `json:"category"`
	StartAt     time.Time           `json:"start_at"`
	EndAt       time.Time           `json:"end_at"`
	Venue       string              `json:"venue"`
	City        string              `json:"city"`
	Capacity    int                 `json:"capacity"`
	UnitPrice   float64             `json:"unit_price"`
	ImageURL    string              `json:"image_url"`
}

func (d EventDetails) applyTo(e *model.Event) {
	e.Title = strings.TrimSpace(d.Title)
	e.Description = strings.TrimSpace(d.Description)
	e.Category = d.Category
	e.StartAt = d.StartAt.UTC()
	e.EndAt = d.EndAt.UTC()
	e.Venue = strings.TrimSpace(d.Venue)
	e.City = strings.TrimSpace(d.City)
	e.Capacity = d.Capacity
	e.UnitPrice = d.UnitPrice
	e.ImageURL = strings.TrimSpace(d.ImageURL)
}

type EventService interface {
	CreateEvent(details EventDetails, organizer *model.User) (*model.Event, error)
	UpdateEvent(id uint, details EventDetails, actor *model.User) (*model.Event, error)
	PublishEvent(id uint, actor *model.User) (*model.Event, error)
	CancelEvent(id uint, actor *model.User) (*model.Event, error)
	DeleteEvent(id uint, actor *model.User) error
	MarkFinishedEvents(now time.Time) (int, error)

	GetEventByID(id uint) (*model.EventView, error)
	GetEventsByOrganizer(organizerID uint) ([]model.EventView, error)
	GetEventsByStatus(status model.EventStatus) ([]model.EventView, error)
	GetAvailableEvents() ([]model.EventView, error)
	GetPublishedEventsByCategory(category model.EventCategory) ([]model.EventView, error)
	GetUpcomingEventsByCity(city string) ([]model.EventView, error)
	SearchEvents(filter repository.EventFilter, page repository.Page) ([]model.EventView, int64, error)
	GetMostPopularEvents(limit int) ([]model.EventView, error)
	GetOrganizerStatistics(organizerID uint) (*model.OrganizerStatistics, error)
	GetGlobalStatistics() (*model.EventGlobalStatistics, error)
}

type eventService struct {
	db              *gorm.DB
	repo            repository.EventRepo
	reservationRepo repository.ReservationRepo
	cache           placesCache
	clock           util.Clock
	logger          *zap.Logger
}

var _ EventService = (*eventService)(nil)

func NewEventService(db *gorm.DB, eventRepo repository.EventRepo, reservationRepo repository.ReservationRepo,
	cache PlacesCache, clock util.Clock, logger *zap.Logger) *eventService {
	return &eventService{
		db:              db,
		repo:            eventRepo,
		reservationRepo: reservationRepo,
		cache:           placesCache{cache: cache, logger: logger},
		clock:           clock,
		logger:          logger,
	}
}

func (s *eventService) CreateEvent(details EventDetails, organizer *model.User) (*model.Event, error) {
	if organizer == nil || !organizer.Role.Can(model.CapManageOwnEvents) {
		return nil, service.Forbidden("only organizers and admins can create events")
	}

	event := &model.Event{}
	details.applyTo(event)
	if missing := event.MissingFields(); len(missing) > 0 {
		return nil, service.BadRequest("missing or invalid fields: %s", strings.Join(missing, ", "))
	}
	if err := validateText(event); err != nil {
		return nil, err
	}
	if err := validateDates(event.StartAt, event.EndAt, s.clock.Now()); err != nil {
		return nil, err
	}

	event.OrganizerID = organizer.ID
	event.Status = model.EventStatusDraft
	if err := s.repo.Create(event); err != nil {
		return nil, err
	}

	s.logger.Info("event created", zap.Uint("event_id", event.ID), zap.Uint("organizer_id", organizer.ID))
	return event, nil
}

func (s *eventService) UpdateEvent(id uint, details EventDetails, actor *model.User) (*model.Event, error) {
	now := s.clock.Now()
	var updated *model.Event
	err := s.db.Transaction(func(tx *gorm.DB) error {
		event, err := s.loadManageable(tx, id, actor)
		if err != nil {
			return err
		}
		if !event.IsModifiable() {
			return service.Business("a %s event can not be modified", strings.ToLower(string(event.Status)))
		}

		start, end := details.StartAt.UTC(), details.EndAt.UTC()
		if !start.Equal(event.StartAt) || !end.Equal(event.EndAt) {
			if err := validateDates(start, end, now); err != nil {
				return err
			}
		}
		if details.Capacity < 0 {
			return service.BadRequest("capacity can not be negative")
		}
		if details.UnitPrice < 0 {
			return service.BadRequest("unit price can not be negative")
		}

		reserved, err := s.reservationRepo.WithTx(tx).SumActiveSeats(event.ID)
		if err != nil {
			return err
		}
		if details.Capacity < reserved {
			return service.Business("capacity can not drop below the %d places already reserved", reserved)
		}

		if details.Category != "" && !details.Category.Valid() {
			return service.BadRequest("unknown category %q", details.Category)
		}

		details.applyTo(event)
		// A published event must stay publishable.
		if event.Status == model.EventStatusPublished && !event.IsComplete() {
			return service.BadRequest("missing or invalid fields: %s", strings.Join(event.MissingFields(), ", "))
		}
		if err := validateText(event); err != nil {
			return err
		}
		if err := s.repo.WithTx(tx).Save(event); err != nil {
			return err
		}
		updated = event
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.invalidate(id)
	return updated, nil
}

func (s *eventService) PublishEvent(id uint, actor *model.User) (*model.Event, error) {
	now := s.clock.Now()
	var published *model.Event
	err := s.db.Transaction(func(tx *gorm.DB) error {
		event, err := s.loadManageable(tx, id, actor)
		if err != nil {
			return err
		}
		if event.Status != model.EventStatusDraft {
			return service.Business("only draft events can be published, event is %s", event.Status)
		}
		if missing := event.MissingFields(); len(missing) > 0 {
			return service.Business("event is incomplete, missing: %s", strings.Join(missing, ", "))
		}
		if !util.IsFuture(event.StartAt, now) {
			return service.Business("event start date must be in the future")
		}
		if err := s.repo.WithTx(tx).UpdateStatus(event.ID, model.EventStatusPublished); err != nil {
			return err
		}
		event.Status = model.EventStatusPublished
		published = event
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("event published", zap.Uint("event_id", id))
	return published, nil
}

// CancelEvent cancels the event and every active reservation it has.
func (s *eventService) CancelEvent(id uint, actor *model.User) (*model.Event, error) {
	var cancelled *model.Event
	var released int
	err := s.db.Transaction(func(tx *gorm.DB) error {
		event, err := s.loadManageable(tx, id, actor)
		if err != nil {
			return err
		}
		switch event.Status {
		case model.EventStatusFinished:
			return service.Business("a finished event can not be cancelled")
		case model.EventStatusCancelled:
			return service.Business("event is already cancelled")
		}

		if err := s.repo.WithTx(tx).UpdateStatus(event.ID, model.EventStatusCancelled); err != nil {
			return err
		}
		released, err = s.reservationRepo.WithTx(tx).CancelActiveByEvent(event.ID)
		if err != nil {
			return err
		}
		event.Status = model.EventStatusCancelled
		cancelled = event
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.invalidate(id)
	s.logger.Info("event cancelled", zap.Uint("event_id", id), zap.Int("reservations_cancelled", released))
	return cancelled, nil
}

// DeleteEvent removes an event that has no active reservation, together
// with its cancelled reservations.
func (s *eventService) DeleteEvent(id uint, actor *model.User) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		event, err := s.loadManageable(tx, id, actor)
		if err != nil {
			return err
		}

		reservationRepo := s.reservationRepo.WithTx(tx)
		active, err := reservationRepo.CountActiveByEvent(event.ID)
		if err != nil {
			return err
		}
		if active > 0 {
			return service.Business("event has %d active reservations and can not be deleted", active)
		}
		if _, err := reservationRepo.DeleteByEvent(event.ID); err != nil {
			return err
		}
		return s.repo.WithTx(tx).Delete(event.ID)
	})
	if err != nil {
		return err
	}

	s.cache.invalidate(id)
	s.logger.Info("event deleted", zap.Uint("event_id", id))
	return nil
}

func (s *eventService) MarkFinishedEvents(now time.Time) (int, error) {
	n, err := s.repo.MarkFinished(now.UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("events finished", zap.Int("count", n), zap.Time("now", now))
	}
	return n, nil
}

func (s *eventService) GetEventByID(id uint) (*model.EventView, error) {
	event, err := s.repo.GetByID(id)
	if err != nil {
		return nil, service.NotFoundOr(err, "event", id)
	}

	reserved, ok := s.cache.get(id)
	if !ok {
		version, cacheable := s.cache.version(id)
		reserved, err = s.reservationRepo.SumActiveSeats(id)
		if err != nil {
			return nil, err
		}
		if cacheable {
			s.cache.set(id, reserved, version)
		}
	}

	view := model.NewEventView(*event, reserved, s.clock.Now())
	return &view, nil
}

func (s *eventService) GetEventsByOrganizer(organizerID uint) ([]model.EventView, error) {
	return s.views(s.repo.ListByOrganizer(organizerID))
}

func (s *eventService) GetEventsByStatus(status model.EventStatus) ([]model.EventView, error) {
	if !status.Valid() {
		return nil, service.BadRequest("unknown event status %q", status)
	}
	return s.views(s.repo.ListByStatus(status))
}

// GetAvailableEvents lists published upcoming events that still have places.
func (s *eventService) GetAvailableEvents() ([]model.EventView, error) {
	views, err := s.views(s.repo.ListAvailable(s.clock.Now()))
	if err != nil {
		return nil, err
	}
	available := views[:0]
	for _, v := range views {
		if v.IsAvailable {
			available = append(available, v)
		}
	}
	return available, nil
}

func (s *eventService) GetPublishedEventsByCategory(category model.EventCategory) ([]model.EventView, error) {
	if !category.Valid() {
		return nil, service.BadRequest("unknown event category %q", category)
	}
	return s.views(s.repo.ListPublishedByCategory(category, s.clock.Now()))
}

func (s *eventService) GetUpcomingEventsByCity(city string) ([]model.EventView, error) {
	if strings.TrimSpace(city) == "" {
		return nil, service.BadRequest("city is required")
	}
	return s.views(s.repo.ListUpcomingByCity(city, s.clock.Now()))
}

func (s *eventService) SearchEvents(filter repository.EventFilter, page repository.Page) ([]model.EventView, int64, error) {
	if filter.Category != "" && !filter.Category.Valid() {
		return nil, 0, service.BadRequest("unknown event category %q", filter.Category)
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, service.BadRequest("unknown event status %q", filter.Status)
	}
	if filter.MinPrice != nil && filter.MaxPrice != nil && *filter.MinPrice > *filter.MaxPrice {
		return nil, 0, service.BadRequest("minimum price is above maximum price")
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, 0, service.BadRequest("date range ends before it starts")
	}

	events, total, err := s.repo.Search(filter, page)
	if err != nil {
		return nil, 0, err
	}
	views, err := s.views(events, nil)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

func (s *eventService) GetMostPopularEvents(limit int) ([]model.EventView, error) {
	return s.views(s.repo.MostPopular(limit))
}

func (s *eventService) GetOrganizerStatistics(organizerID uint) (*model.OrganizerStatistics, error) {
	byStatus, err := s.repo.CountByStatus(organizerID)
	if err != nil {
		return nil, err
	}
	scope := repository.ReservationScope{OrganizerID: organizerID}
	reservations, err := s.reservationRepo.CountByStatus(scope)
	if err != nil {
		return nil, err
	}
	revenue, err := s.reservationRepo.ConfirmedRevenue(scope)
	if err != nil {
		return nil, err
	}

	stats := &model.OrganizerStatistics{
		OrganizerID:      organizerID,
		EventsByStatus:   byStatus,
		ConfirmedRevenue: revenue,
	}
	for _, n := range byStatus {
		stats.TotalEvents += n
	}
	for _, n := range reservations {
		stats.TotalReservations += n
	}
	return stats, nil
}

func (s *eventService) GetGlobalStatistics() (*model.EventGlobalStatistics, error) {
	byStatus, err := s.repo.CountByStatus(0)
	if err != nil {
		return nil, err
	}
	byCategory, err := s.repo.CountByCategory()
	if err != nil {
		return nil, err
	}

	stats := &model.EventGlobalStatistics{ByStatus: byStatus, ByCategory: byCategory}
	for _, n := range byStatus {
		stats.TotalEvents += n
	}
	return stats, nil
}

// loadManageable loads the event inside tx and checks that actor may manage it.
func (s *eventService) loadManageable(tx *gorm.DB, id uint, actor *model.User) (*model.Event, error) {
	event, err := s.repo.WithTx(tx).GetByID(id)
	if err != nil {
		return nil, service.NotFoundOr(err, "event", id)
	}
	if !canManageEvent(actor, event) {
		return nil, service.Forbidden("you are not allowed to manage event %d", id)
	}
	return event, nil
}

// views attaches derived availability to events with one aggregate query.
func (s *eventService) views(events []model.Event, err error) ([]model.EventView, error) {
	if err != nil {
		return nil, err
	}
	ids := make([]uint, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	reserved, err := s.reservationRepo.SumActiveSeatsByEvents(ids)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	views := make([]model.EventView, len(events))
	for i, e := range events {
		views[i] = model.NewEventView(e, reserved[e.ID], now)
	}
	return views, nil
}

func validateDates(start, end, now time.Time) error {
	if !util.IsFuture(start, now) {
		return service.BadRequest("start date must be in the future")
	}
	if !util.IsEndAfterStart(start, end) {
		return service.BadRequest("end date must be after start date")
	}
	return nil
}

func validateText(event *model.Event) error {
	if len(event.Title) > maxTitleLength {
		return service.BadRequest("title is longer than %d characters", maxTitleLength)
	}
	if len(event.Description) > maxDescriptionLength {
		return service.BadRequest("description is longer than %d characters", maxDescriptionLength)
	}
	return nil
}
