package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/qs-lzh/eventpro/internal/model"
)

type ReservationRepo interface {
	WithTx(tx *gorm.DB) ReservationRepo
	Create(reservation *model.Reservation) error
	GetByID(id uint) (*model.Reservation, error)
	GetByCode(code string) (*model.Reservation, error)
	ExistsByCode(code string) (bool, error)
	UpdateStatus(id uint, status model.ReservationStatus) error
	ListByUser(userID uint) ([]model.Reservation, error)
	ListByEvent(eventID uint) ([]model.Reservation, error)
	ListByEventAndStatus(eventID uint, status model.ReservationStatus) ([]model.Reservation, error)
	ListByStatus(status model.ReservationStatus) ([]model.Reservation, error)
	ListUpcomingByUser(userID uint, now time.Time) ([]model.Reservation, error)
	ListBetween(from, to time.Time) ([]model.Reservation, error)
	Search(filter ReservationFilter, page Page) ([]model.Reservation, int64, error)
	SumActiveSeats(eventID uint) (int, error)
	SumActiveSeatsByEvents(eventIDs []uint) (map[uint]int, error)
	CountActiveByEvent(eventID uint) (int64, error)
	CancelActiveByEvent(eventID uint) (int, error)
	DeleteByEvent(eventID uint) (int, error)
	CountByStatus(scope ReservationScope) (map[model.ReservationStatus]int64, error)
	ConfirmedRevenue(scope ReservationScope) (float64, error)
	CountUpcomingByUser(userID uint, now time.Time) (int64, error)
}

type reservationRepoGorm struct {
	db *gorm.DB
}

var _ ReservationRepo = (*reservationRepoGorm)(nil)

func NewReservationRepoGorm(db *gorm.DB) *reservationRepoGorm {
	return &reservationRepoGorm{
		db: db,
	}
}

func (r *reservationRepoGorm) WithTx(tx *gorm.DB) ReservationRepo {
	return &reservationRepoGorm{
		db: tx,
	}
}

func (r *reservationRepoGorm) Create(reservation *model.Reservation) error {
	ctx := context.Background()
	return gorm.G[model.Reservation](r.db).Create(ctx, reservation)
}

func (r *reservationRepoGorm) GetByID(id uint) (*model.Reservation, error) {
	ctx := context.Background()
	reservation, err := gorm.G[model.Reservation](r.db).Where("id = ?", id).First(ctx)
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (r *reservationRepoGorm) GetByCode(code string) (*model.Reservation, error) {
	ctx := context.Background()
	reservation, err := gorm.G[model.Reservation](r.db).Where("code = ?", code).First(ctx)
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (r *reservationRepoGorm) ExistsByCode(code string) (bool, error) {
	_, err := r.GetByCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *reservationRepoGorm) UpdateStatus(id uint, status model.ReservationStatus) error {
	ctx := context.Background()
	_, err := gorm.G[model.Reservation](r.db).Where("id = ?", id).Update(ctx, "status", status)
	return err
}

func (r *reservationRepoGorm) ListByUser(userID uint) ([]model.Reservation, error) {
	ctx := context.Background()
	return gorm.G[model.Reservation](r.db).Where("user_id = ?", userID).Order("reserved_at DESC").Find(ctx)
}

func (r *reservationRepoGorm) ListByEvent(eventID uint) ([]model.Reservation, error) {
	ctx := context.Background()
	return gorm.G[model.Reservation](r.db).Where("event_id = ?", eventID).Order("reserved_at DESC").Find(ctx)
}

func (r *reservationRepoGorm) ListByEventAndStatus(eventID uint, status model.ReservationStatus) ([]model.Reservation, error) {
	ctx := context.Background()
	return gorm.G[model.Reservation](r.db).
		Where("event_id = ? AND status = ?", eventID, status).
		Order("reserved_at DESC").
		Find(ctx)
}

func (r *reservationRepoGorm) ListByStatus(status model.ReservationStatus) ([]model.Reservation, error) {
	ctx := context.Background()
	return gorm.G[model.Reservation](r.db).Where("status = ?", status).Order("reserved_at DESC").Find(ctx)
}

// ListUpcomingByUser returns the user's active reservations for events that
// have not started yet, soonest first.
func (r *reservationRepoGorm) ListUpcomingByUser(userID uint, now time.Time) ([]model.Reservation, error) {
	var reservations []model.Reservation
	err := r.db.Model(&model.Reservation{}).
		Select("reservations.*").
		Joins("JOIN events ON events.id = reservations.event_id").
		Where("reservations.user_id = ? AND reservations.status <> ? AND events.start_at > ?",
			userID, model.ReservationStatusCancelled, now).
		Order("events.start_at ASC").
		Find(&reservations).Error
	if err != nil {
		return nil, err
	}
	return reservations, nil
}

func (r *reservationRepoGorm) ListBetween(from, to time.Time) ([]model.Reservation, error) {
	ctx := context.Background()
	return gorm.G[model.Reservation](r.db).
		Where("reserved_at >= ? AND reserved_at <= ?", from, to).
		Order("reserved_at DESC").
		Find(ctx)
}

// Search filters reservations; Keyword matches the reservation code or the
// booking user's name.
func (r *reservationRepoGorm) Search(filter ReservationFilter, page Page) ([]model.Reservation, int64, error) {
	page = page.normalized()
	query := r.db.Model(&model.Reservation{})

	if filter.Keyword != "" {
		pattern := likePattern(filter.Keyword)
		query = query.Joins("JOIN users ON users.id = reservations.user_id").
			Where("(LOWER(reservations.code) LIKE ? OR LOWER(users.name) LIKE ?)", pattern, pattern)
	}
	if filter.Status != "" {
		query = query.Where("reservations.status = ?", filter.Status)
	}
	if filter.UserID != 0 {
		query = query.Where("reservations.user_id = ?", filter.UserID)
	}
	if filter.EventID != 0 {
		query = query.Where("reservations.event_id = ?", filter.EventID)
	}
	if filter.From != nil {
		query = query.Where("reservations.reserved_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("reservations.reserved_at <= ?", *filter.To)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reservations []model.Reservation
	if err := query.Select("reservations.*").
		Order("reservations.reserved_at DESC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&reservations).Error; err != nil {
		return nil, 0, err
	}
	return reservations, total, nil
}

// SumActiveSeats is the number of seats held by non-cancelled reservations.
func (r *reservationRepoGorm) SumActiveSeats(eventID uint) (int, error) {
	var seats int64
	err := r.db.Model(&model.Reservation{}).
		Select("COALESCE(SUM(seats), 0)").
		Where("event_id = ? AND status <> ?", eventID, model.ReservationStatusCancelled).
		Scan(&seats).Error
	if err != nil {
		return 0, err
	}
	return int(seats), nil
}

func (r *reservationRepoGorm) SumActiveSeatsByEvents(eventIDs []uint) (map[uint]int, error) {
	seats := make(map[uint]int, len(eventIDs))
	if len(eventIDs) == 0 {
		return seats, nil
	}

	var rows []struct {
		EventID uint
		Seats   int64
	}
	err := r.db.Model(&model.Reservation{}).
		Select("event_id, COALESCE(SUM(seats), 0) AS seats").
		Where("event_id IN ? AND status <> ?", eventIDs, model.ReservationStatusCancelled).
		Group("event_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		seats[row.EventID] = int(row.Seats)
	}
	return seats, nil
}

func (r *reservationRepoGorm) CountActiveByEvent(eventID uint) (int64, error) {
	ctx := context.Background()
	return gorm.G[model.Reservation](r.db).
		Where("event_id = ? AND status <> ?", eventID, model.ReservationStatusCancelled).
		Count(ctx, "*")
}

func (r *reservationRepoGorm) CancelActiveByEvent(eventID uint) (int, error) {
	ctx := context.Background()
	return gorm.G[model.Reservation](r.db).
		Where("event_id = ? AND status <> ?", eventID, model.ReservationStatusCancelled).
		Update(ctx, "status", model.ReservationStatusCancelled)
}

func (r *reservationRepoGorm) DeleteByEvent(eventID uint) (int, error) {
	ctx := context.Background()
	return gorm.G[model.Reservation](r.db).Where("event_id = ?", eventID).Delete(ctx)
}

func (r *reservationRepoGorm) scoped(scope ReservationScope) *gorm.DB {
	query := r.db.Model(&model.Reservation{})
	if scope.OrganizerID != 0 {
		query = query.Joins("JOIN events ON events.id = reservations.event_id").
			Where("events.organizer_id = ?", scope.OrganizerID)
	}
	if scope.EventID != 0 {
		query = query.Where("reservations.event_id = ?", scope.EventID)
	}
	if scope.UserID != 0 {
		query = query.Where("reservations.user_id = ?", scope.UserID)
	}
	return query
}

func (r *reservationRepoGorm) CountByStatus(scope ReservationScope) (map[model.ReservationStatus]int64, error) {
	var rows []struct {
		Status model.ReservationStatus
		Count  int64
	}
	if err := r.scoped(scope).
		Select("reservations.status AS status, COUNT(*) AS count").
		Group("reservations.status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[model.ReservationStatus]int64, len(model.ReservationStatuses))
	for _, status := range model.ReservationStatuses {
		counts[status] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// ConfirmedRevenue sums the snapshotted totals of confirmed reservations.
func (r *reservationRepoGorm) ConfirmedRevenue(scope ReservationScope) (float64, error) {
	var revenue float64
	if err := r.scoped(scope).
		Select("COALESCE(SUM(reservations.total_amount), 0)").
		Where("reservations.status = ?", model.ReservationStatusConfirmed).
		Scan(&revenue).Error; err != nil {
		return 0, err
	}
	return revenue, nil
}

func (r *reservationRepoGorm) CountUpcomingByUser(userID uint, now time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&model.Reservation{}).
		Joins("JOIN events ON events.id = reservations.event_id").
		Where("reservations.user_id = ? AND reservations.status <> ? AND events.start_at > ?",
			userID, model.ReservationStatusCancelled, now).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
