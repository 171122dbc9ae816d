package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs-lzh/eventpro/internal/model"
)

type EventRepo interface {
	WithTx(tx *gorm.DB) EventRepo
	Create(event *model.Event) error
	Save(event *model.Event) error
	GetByID(id uint) (*model.Event, error)
	GetByIDForUpdate(id uint) (*model.Event, error)
	Delete(id uint) error
	UpdateStatus(id uint, status model.EventStatus) error
	ListByOrganizer(organizerID uint) ([]model.Event, error)
	ListByStatus(status model.EventStatus) ([]model.Event, error)
	ListAvailable(now time.Time) ([]model.Event, error)
	ListPublishedByCategory(category model.EventCategory, now time.Time) ([]model.Event, error)
	ListUpcomingByCity(city string, now time.Time) ([]model.Event, error)
	Search(filter EventFilter, page Page) ([]model.Event, int64, error)
	MostPopular(limit int) ([]model.Event, error)
	MarkFinished(now time.Time) (int, error)
	CountByStatus(organizerID uint) (map[model.EventStatus]int64, error)
	CountByCategory() (map[model.EventCategory]int64, error)
}

type eventRepoGorm struct {
	db *gorm.DB
}

var _ EventRepo = (*eventRepoGorm)(nil)

func NewEventRepoGorm(db *gorm.DB) *eventRepoGorm {
	return &eventRepoGorm{
		db: db,
	}
}

func (r *eventRepoGorm) WithTx(tx *gorm.DB) EventRepo {
	return &eventRepoGorm{
		db: tx,
	}
}

func (r *eventRepoGorm) Create(event *model.Event) error {
	ctx := context.Background()
	return gorm.G[model.Event](r.db).Create(ctx, event)
}

func (r *eventRepoGorm) Save(event *model.Event) error {
	return r.db.Omit(clause.Associations).Save(event).Error
}

func (r *eventRepoGorm) GetByID(id uint) (*model.Event, error) {
	ctx := context.Background()
	event, err := gorm.G[model.Event](r.db).Where("id = ?", id).First(ctx)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// GetByIDForUpdate loads the event and holds a row lock on it until the
// surrounding transaction ends. Drivers without row locks ignore the clause.
func (r *eventRepoGorm) GetByIDForUpdate(id uint) (*model.Event, error) {
	var event model.Event
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&event, id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *eventRepoGorm) Delete(id uint) error {
	ctx := context.Background()
	_, err := gorm.G[model.Event](r.db).Where("id = ?", id).Delete(ctx)
	return err
}

func (r *eventRepoGorm) UpdateStatus(id uint, status model.EventStatus) error {
	ctx := context.Background()
	_, err := gorm.G[model.Event](r.db).Where("id = ?", id).Update(ctx, "status", status)
	return err
}

func (r *eventRepoGorm) ListByOrganizer(organizerID uint) ([]model.Event, error) {
	ctx := context.Background()
	return gorm.G[model.Event](r.db).Where("organizer_id = ?", organizerID).Order("start_at DESC").Find(ctx)
}

func (r *eventRepoGorm) ListByStatus(status model.EventStatus) ([]model.Event, error) {
	ctx := context.Background()
	return gorm.G[model.Event](r.db).Where("status = ?", status).Order("start_at").Find(ctx)
}

// ListAvailable returns published events that have not started yet. Sold-out
// events are included; callers filter on derived availability.
func (r *eventRepoGorm) ListAvailable(now time.Time) ([]model.Event, error) {
	ctx := context.Background()
	return gorm.G[model.Event](r.db).
		Where("status = ? AND start_at > ?", model.EventStatusPublished, now).
		Order("start_at").
		Find(ctx)
}

func (r *eventRepoGorm) ListPublishedByCategory(category model.EventCategory, now time.Time) ([]model.Event, error) {
	ctx := context.Background()
	return gorm.G[model.Event](r.db).
		Where("status = ? AND category = ? AND start_at > ?", model.EventStatusPublished, category, now).
		Order("start_at").
		Find(ctx)
}

func (r *eventRepoGorm) ListUpcomingByCity(city string, now time.Time) ([]model.Event, error) {
	ctx := context.Background()
	return gorm.G[model.Event](r.db).
		Where("status = ? AND LOWER(city) = ? AND start_at > ?",
			model.EventStatusPublished, strings.ToLower(strings.TrimSpace(city)), now).
		Order("start_at").
		Find(ctx)
}

func (r *eventRepoGorm) Search(filter EventFilter, page Page) ([]model.Event, int64, error) {
	page = page.normalized()
	query := r.db.Model(&model.Event{})

	if filter.Keyword != "" {
		pattern := likePattern(filter.Keyword)
		query = query.Where("(LOWER(title) LIKE ? OR LOWER(description) LIKE ?)", pattern, pattern)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.City != "" {
		query = query.Where("LOWER(city) = ?", strings.ToLower(strings.TrimSpace(filter.City)))
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.OrganizerID != 0 {
		query = query.Where("organizer_id = ?", filter.OrganizerID)
	}
	if filter.MinPrice != nil {
		query = query.Where("unit_price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("unit_price <= ?", *filter.MaxPrice)
	}
	if filter.From != nil {
		query = query.Where("start_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("start_at <= ?", *filter.To)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var events []model.Event
	if err := query.Order("start_at").Limit(page.Limit).Offset(page.Offset).Find(&events).Error; err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// MostPopular orders published events by their number of active reservations.
func (r *eventRepoGorm) MostPopular(limit int) ([]model.Event, error) {
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}
	var events []model.Event
	err := r.db.Model(&model.Event{}).
		Select("events.*").
		Joins("LEFT JOIN reservations ON reservations.event_id = events.id AND reservations.status <> ?",
			model.ReservationStatusCancelled).
		Where("events.status = ?", model.EventStatusPublished).
		Group("events.id").
		Order("COUNT(reservations.id) DESC, events.start_at ASC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// MarkFinished moves published events whose end has passed to FINISHED and
// returns how many rows changed. Running it again with the same now is a no-op.
func (r *eventRepoGorm) MarkFinished(now time.Time) (int, error) {
	ctx := context.Background()
	return gorm.G[model.Event](r.db).
		Where("status = ? AND end_at < ?", model.EventStatusPublished, now).
		Update(ctx, "status", model.EventStatusFinished)
}

// CountByStatus counts events per status, for one organizer when organizerID
// is not zero.
func (r *eventRepoGorm) CountByStatus(organizerID uint) (map[model.EventStatus]int64, error) {
	query := r.db.Model(&model.Event{})
	if organizerID != 0 {
		query = query.Where("organizer_id = ?", organizerID)
	}

	var rows []struct {
		Status model.EventStatus
		Count  int64
	}
	if err := query.Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[model.EventStatus]int64, len(model.EventStatuses))
	for _, status := range model.EventStatuses {
		counts[status] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *eventRepoGorm) CountByCategory() (map[model.EventCategory]int64, error) {
	var rows []struct {
		Category model.EventCategory
		Count    int64
	}
	if err := r.db.Model(&model.Event{}).
		Select("category, COUNT(*) AS count").
		Group("category").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[model.EventCategory]int64, len(model.EventCategories))
	for _, category := range model.EventCategories {
		counts[category] = 0
	}
	for _, row := range rows {
		counts[row.Category] = row.Count
	}
	return counts, nil
}
