package workflow

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/qs-lzh/eventpro/internal/metrics"
	"github.com/qs-lzh/eventpro/internal/model"
	"github.com/qs-lzh/eventpro/internal/mq"
	"github.com/qs-lzh/eventpro/internal/service/domain"
	"github.com/qs-lzh/eventpro/internal/util"
)

const (
	FinishEventsLock    = "finish-events"
	FinishEventsLockTTL = 5 * time.Minute
)

// ErrSweepRunning is returned by FinishEvents when another process holds the lock.
var ErrSweepRunning = errors.New("finished-events sweep already running")

// Locker is satisfied by *cache.RedisCache.
type Locker interface {
	AcquireLock(name string, ttl time.Duration) (token string, ok bool, err error)
	ReleaseLock(name, token string) error
}

type EventWorkflow struct {
	EventService domain.EventService
	publisher    Publisher
	locker       Locker
	clock        util.Clock
	logger       *zap.Logger
}

// NewEventWorkflow accepts a nil locker, in which case the sweep runs unguarded.
func NewEventWorkflow(eventService domain.EventService, publisher Publisher, locker Locker,
	clock util.Clock, logger *zap.Logger) *EventWorkflow {
	return &EventWorkflow{
		EventService: eventService,
		publisher:    publisher,
		locker:       locker,
		clock:        clock,
		logger:       logger,
	}
}

func (w *EventWorkflow) Publish(id uint, actor *model.User) (*model.Event, error) {
	event, err := w.EventService.PublishEvent(id, actor)
	if err != nil {
		return nil, err
	}
	w.announce(mq.EventPublishedQueue, event)
	return event, nil
}

func (w *EventWorkflow) Cancel(id uint, actor *model.User) (*model.Event, error) {
	event, err := w.EventService.CancelEvent(id, actor)
	if err != nil {
		return nil, err
	}
	w.announce(mq.EventCancelledQueue, event)
	return event, nil
}

// FinishEvents marks every published event that has ended as FINISHED.
func (w *EventWorkflow) FinishEvents() (int, error) {
	if w.locker != nil {
		token, ok, err := w.locker.AcquireLock(FinishEventsLock, FinishEventsLockTTL)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, ErrSweepRunning
		}
		defer func() {
			if err := w.locker.ReleaseLock(FinishEventsLock, token); err != nil {
				w.logger.Warn("failed to release sweep lock", zap.Error(err))
			}
		}()
	}

	n, err := w.EventService.MarkFinishedEvents(w.clock.Now())
	if err != nil {
		return 0, err
	}
	metrics.EventsFinished.Add(float64(n))
	w.logger.Info("finished events swept", zap.Int("count", n))
	return n, nil
}

func (w *EventWorkflow) announce(queueName string, e *model.Event) {
	message := mq.EventMessage{
		EventID:     e.ID,
		Title:       e.Title,
		OrganizerID: e.OrganizerID,
		StartAt:     e.StartAt,
		Status:      string(e.Status),
		OccurredAt:  w.clock.Now(),
	}
	publish(w.publisher, w.logger, queueName, message)
}
