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
	MaxSeatsPerReservation = 10
	MaxCodeAttempts        = 100
	maxCommentLength       = 500
)

type ReservationRequest struct {
	Seats   int    `json:"seats"`
	Comment string `json:"comment"`
}

type ReservationService interface {
	CreateReservation(req ReservationRequest, user *model.User, eventID uint) (*model.Reservation, error)
	ConfirmReservation(id uint, actor *model.User) (*model.Reservation, error)
	CancelReservation(id uint, actor *model.User) (*model.Reservation, error)

	GetReservationByID(id uint) (*model.Reservation, error)
	GetReservationByCode(code string) (*model.Reservation, error)
	GetUserReservations(userID uint) ([]model.Reservation, error)
	GetUpcomingReservations(userID uint) ([]model.Reservation, error)
	GetEventReservations(eventID uint, status model.ReservationStatus) ([]model.Reservation, error)
	GetReservationsByStatus(status model.ReservationStatus) ([]model.Reservation, error)
	GetReservationsBetween(from, to time.Time) ([]model.Reservation, error)
	GetRecentReservations(days int) ([]model.Reservation, error)
	SearchReservations(filter repository.ReservationFilter, page repository.Page) ([]model.Reservation, int64, error)
	GetReservationSummary(id uint) (*model.ReservationSummary, error)
	GetUserStatistics(userID uint) (*model.UserReservationStatistics, error)
	GetEventStatistics(eventID uint) (*model.EventStatistics, error)
	GetGlobalStatistics() (*model.ReservationStatistics, error)
}

type reservationService struct {
	db        *gorm.DB
	repo      repository.ReservationRepo
	eventRepo repository.EventRepo
	userRepo  repository.UserRepo
	codes     CodeGenerator
	cache     placesCache
	clock     util.Clock
	logger    *zap.Logger
}

var _ ReservationService = (*reservationService)(nil)

func NewReservationService(db *gorm.DB, reservationRepo repository.ReservationRepo, eventRepo repository.EventRepo,
	userRepo repository.UserRepo, codes CodeGenerator, cache PlacesCache, clock util.Clock, logger *zap.Logger) *reservationService {
	return &reservationService{
		db:        db,
		repo:      reservationRepo,
		eventRepo: eventRepo,
		userRepo:  userRepo,
		codes:     codes,
		cache:     placesCache{cache: cache, logger: logger},
		clock:     clock,
		logger:    logger,
	}
}

// CreateReservation books seats on a published upcoming event. The capacity
// check and the insert run in one transaction that holds a row lock on the
// event, so concurrent bookings of the same event are serialized.
func (s *reservationService) CreateReservation(req ReservationRequest, user *model.User, eventID uint) (*model.Reservation, error) {
	if user == nil || !user.Role.Can(model.CapReserve) {
		return nil, service.Forbidden("you are not allowed to book places")
	}

	now := s.clock.Now()
	var reservation *model.Reservation
	err := s.db.Transaction(func(tx *gorm.DB) error {
		event, err := s.eventRepo.WithTx(tx).GetByIDForUpdate(eventID)
		if err != nil {
			return service.NotFoundOr(err, "event", eventID)
		}

		repo := s.repo.WithTx(tx)
		reserved, err := repo.SumActiveSeats(event.ID)
		if err != nil {
			return err
		}
		available := model.Availability{Capacity: event.Capacity, Reserved: reserved}.Available()

		if event.Status != model.EventStatusPublished {
			return service.Business("event is not open for booking")
		}
		if !util.IsFuture(event.StartAt, now) {
			return service.Business("event has already started")
		}
		if available <= 0 {
			return service.Business("no places available")
		}
		if req.Seats <= 0 || req.Seats > MaxSeatsPerReservation {
			return service.BadRequest("seats must be between 1 and %d", MaxSeatsPerReservation)
		}
		if len(req.Comment) > maxCommentLength {
			return service.BadRequest("comment is longer than %d characters", maxCommentLength)
		}
		if req.Seats > available {
			return service.Business("only %d places available", available)
		}

		code, err := s.uniqueCode(repo)
		if err != nil {
			return err
		}

		reservation = &model.Reservation{
			Code:        code,
			UserID:      user.ID,
			EventID:     event.ID,
			Seats:       req.Seats,
			UnitPrice:   event.UnitPrice,
			TotalAmount: float64(req.Seats) * event.UnitPrice,
			Status:      model.ReservationStatusPending,
			ReservedAt:  now,
			Comment:     strings.TrimSpace(req.Comment),
		}
		return repo.Create(reservation)
	})
	if err != nil {
		return nil, err
	}

	s.cache.invalidate(eventID)
	s.logger.Info("reservation created",
		zap.Uint("reservation_id", reservation.ID),
		zap.String("code", reservation.Code),
		zap.Uint("event_id", eventID),
		zap.Int("seats", reservation.Seats))
	return reservation, nil
}

func (s *reservationService) uniqueCode(repo repository.ReservationRepo) (string, error) {
	for range MaxCodeAttempts {
		code, err := s.codes.Generate()
		if err != nil {
			return "", err
		}
		exists, err := repo.ExistsByCode(code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", service.Business("could not generate a unique reservation code after %d attempts", MaxCodeAttempts)
}

// ConfirmReservation is reserved to admins and the organizer of the event.
func (s *reservationService) ConfirmReservation(id uint, actor *model.User) (*model.Reservation, error) {
	var confirmed *model.Reservation
	err := s.db.Transaction(func(tx *gorm.DB) error {
		reservation, event, err := s.load(tx, id)
		if err != nil {
			return err
		}
		if !canManageEvent(actor, event) {
			return service.Business("only an admin or the event organizer can confirm a reservation")
		}
		switch reservation.Status {
		case model.ReservationStatusConfirmed:
			return service.Business("reservation is already confirmed")
		case model.ReservationStatusCancelled:
			return service.Business("a cancelled reservation can not be confirmed")
		}

		if err := s.repo.WithTx(tx).UpdateStatus(reservation.ID, model.ReservationStatusConfirmed); err != nil {
			return err
		}
		reservation.Status = model.ReservationStatusConfirmed
		confirmed = reservation
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("reservation confirmed", zap.Uint("reservation_id", id))
	return confirmed, nil
}

// CancelReservation releases the seats of a reservation. It is allowed to
// the booking user, admins and the event organizer until 48 hours before
// the event starts.
func (s *reservationService) CancelReservation(id uint, actor *model.User) (*model.Reservation, error) {
	now := s.clock.Now()
	var cancelled *model.Reservation
	err := s.db.Transaction(func(tx *gorm.DB) error {
		reservation, event, err := s.load(tx, id)
		if err != nil {
			return err
		}
		if actor == nil || (actor.ID != reservation.UserID && !canManageEvent(actor, event)) {
			return service.Business("you are not allowed to cancel this reservation")
		}
		if reservation.Status == model.ReservationStatusCancelled {
			return service.Business("reservation is already cancelled")
		}
		if !util.CanCancel(event.StartAt, now) {
			return service.Business("reservations can no longer be cancelled after %s",
				util.CancellationDeadline(event.StartAt).Format(time.RFC3339))
		}

		if err := s.repo.WithTx(tx).UpdateStatus(reservation.ID, model.ReservationStatusCancelled); err != nil {
			return err
		}
		reservation.Status = model.ReservationStatusCancelled
		cancelled = reservation
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.invalidate(cancelled.EventID)
	s.logger.Info("reservation cancelled", zap.Uint("reservation_id", id), zap.Uint("event_id", cancelled.EventID))
	return cancelled, nil
}

func (s *reservationService) load(tx *gorm.DB, id uint) (*model.Reservation, *model.Event, error) {
	reservation, err := s.repo.WithTx(tx).GetByID(id)
	if err != nil {
		return nil, nil, service.NotFoundOr(err, "reservation", id)
	}
	event, err := s.eventRepo.WithTx(tx).GetByID(reservation.EventID)
	if err != nil {
		return nil, nil, service.NotFoundOr(err, "event", reservation.EventID)
	}
	return reservation, event, nil
}

func (s *reservationService) GetReservationByID(id uint) (*model.Reservation, error) {
	reservation, err := s.repo.GetByID(id)
	if err != nil {
		return nil, service.NotFoundOr(err, "reservation", id)
	}
	return reservation, nil
}

func (s *reservationService) GetReservationByCode(code string) (*model.Reservation, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !util.ValidateFormat(code) {
		return nil, service.BadRequest("malformed reservation code %q", code)
	}
	reservation, err := s.repo.GetByCode(code)
	if err != nil {
		return nil, service.NotFoundOr(err, "reservation", code)
	}
	return reservation, nil
}

func (s *reservationService) GetUserReservations(userID uint) ([]model.Reservation, error) {
	return s.repo.ListByUser(userID)
}

func (s *reservationService) GetUpcomingReservations(userID uint) ([]model.Reservation, error) {
	return s.repo.ListUpcomingByUser(userID, s.clock.Now())
}

// GetEventReservations lists the reservations of an event, all of them when
// status is empty.
func (s *reservationService) GetEventReservations(eventID uint, status model.ReservationStatus) ([]model.Reservation, error) {
	if status == "" {
		return s.repo.ListByEvent(eventID)
	}
	if !status.Valid() {
		return nil, service.BadRequest("unknown reservation status %q", status)
	}
	return s.repo.ListByEventAndStatus(eventID, status)
}

func (s *reservationService) GetReservationsByStatus(status model.ReservationStatus) ([]model.Reservation, error) {
	if !status.Valid() {
		return nil, service.BadRequest("unknown reservation status %q", status)
	}
	return s.repo.ListByStatus(status)
}

func (s *reservationService) GetReservationsBetween(from, to time.Time) ([]model.Reservation, error) {
	if to.Before(from) {
		return nil, service.BadRequest("date range ends before it starts")
	}
	return s.repo.ListBetween(from.UTC(), to.UTC())
}

func (s *reservationService) GetRecentReservations(days int) ([]model.Reservation, error) {
	if days <= 0 {
		return nil, service.BadRequest("days must be positive")
	}
	now := s.clock.Now()
	return s.GetReservationsBetween(now.AddDate(0, 0, -days), now)
}

func (s *reservationService) SearchReservations(filter repository.ReservationFilter, page repository.Page) ([]model.Reservation, int64, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, service.BadRequest("unknown reservation status %q", filter.Status)
	}
	return s.repo.Search(filter, page)
}

func (s *reservationService) GetReservationSummary(id uint) (*model.ReservationSummary, error) {
	reservation, err := s.repo.GetByID(id)
	if err != nil {
		return nil, service.NotFoundOr(err, "reservation", id)
	}
	event, err := s.eventRepo.GetByID(reservation.EventID)
	if err != nil {
		return nil, service.NotFoundOr(err, "event", reservation.EventID)
	}
	user, err := s.userRepo.GetByID(reservation.UserID)
	if err != nil {
		return nil, service.NotFoundOr(err, "user", reservation.UserID)
	}

	summary := model.NewReservationSummary(*reservation, *event, *user, s.clock.Now())
	return &summary, nil
}

func (s *reservationService) GetUserStatistics(userID uint) (*model.UserReservationStatistics, error) {
	scope := repository.ReservationScope{UserID: userID}
	byStatus, err := s.repo.CountByStatus(scope)
	if err != nil {
		return nil, err
	}
	spent, err := s.repo.ConfirmedRevenue(scope)
	if err != nil {
		return nil, err
	}
	upcoming, err := s.repo.CountUpcomingByUser(userID, s.clock.Now())
	if err != nil {
		return nil, err
	}

	stats := &model.UserReservationStatistics{
		UserID:     userID,
		ByStatus:   byStatus,
		TotalSpent: spent,
		Upcoming:   upcoming,
	}
	for _, n := range byStatus {
		stats.Total += n
	}
	return stats, nil
}

func (s *reservationService) GetEventStatistics(eventID uint) (*model.EventStatistics, error) {
	event, err := s.eventRepo.GetByID(eventID)
	if err != nil {
		return nil, service.NotFoundOr(err, "event", eventID)
	}
	scope := repository.ReservationScope{EventID: eventID}
	byStatus, err := s.repo.CountByStatus(scope)
	if err != nil {
		return nil, err
	}
	revenue, err := s.repo.ConfirmedRevenue(scope)
	if err != nil {
		return nil, err
	}
	reserved, err := s.repo.SumActiveSeats(eventID)
	if err != nil {
		return nil, err
	}

	a := model.Availability{Capacity: event.Capacity, Reserved: reserved}
	stats := &model.EventStatistics{
		EventID:          eventID,
		Capacity:         event.Capacity,
		ReservedPlaces:   reserved,
		AvailablePlaces:  a.Available(),
		FillRate:         a.FillRate(),
		ByStatus:         byStatus,
		ConfirmedRevenue: revenue,
	}
	for _, n := range byStatus {
		stats.TotalReservations += n
	}
	return stats, nil
}

func (s *reservationService) GetGlobalStatistics() (*model.ReservationStatistics, error) {
	byStatus, err := s.repo.CountByStatus(repository.ReservationScope{})
	if err != nil {
		return nil, err
	}
	revenue, err := s.repo.ConfirmedRevenue(repository.ReservationScope{})
	if err != nil {
		return nil, err
	}

	stats := &model.ReservationStatistics{ByStatus: byStatus, ConfirmedRevenue: revenue}
	for status, n := range byStatus {
		stats.Total += n
		if status != model.ReservationStatusCancelled {
			stats.Active += n
		}
	}
	return stats, nil
}
