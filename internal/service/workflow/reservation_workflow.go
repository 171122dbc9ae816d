package workflow

import (
	"go.uber.org/zap"

	"github.com/qs-lzh/eventpro/internal/metrics"
	"github.com/qs-lzh/eventpro/internal/model"
	"github.com/qs-lzh/eventpro/internal/mq"
	"github.com/qs-lzh/eventpro/internal/service"
	"github.com/qs-lzh/eventpro/internal/service/domain"
	"github.com/qs-lzh/eventpro/internal/util"
)

// Publisher is satisfied by *mq.Producer.
type Publisher interface {
	Publish(queueName string, message any) error
}

var _ Publisher = (*mq.Producer)(nil)

// ReservationWorkflow runs reservation transitions and announces each
// committed one on its queue. A failed publish is logged; the transition
// stands.
type ReservationWorkflow struct {
	ReservationService domain.ReservationService
	publisher          Publisher
	clock              util.Clock
	logger             *zap.Logger
}

func NewReservationWorkflow(reservationService domain.ReservationService, publisher Publisher,
	clock util.Clock, logger *zap.Logger) *ReservationWorkflow {
	return &ReservationWorkflow{
		ReservationService: reservationService,
		publisher:          publisher,
		clock:              clock,
		logger:             logger,
	}
}

func (w *ReservationWorkflow) Reserve(req domain.ReservationRequest, user *model.User, eventID uint) (*model.Reservation, error) {
	reservation, err := w.ReservationService.CreateReservation(req, user, eventID)
	if err != nil {
		metrics.BookingRejections.WithLabelValues(service.KindName(err)).Inc()
		return nil, err
	}
	metrics.ReservationsCreated.Inc()
	w.announce(mq.ReservationCreatedQueue, reservation)
	return reservation, nil
}

func (w *ReservationWorkflow) Confirm(id uint, actor *model.User) (*model.Reservation, error) {
	reservation, err := w.ReservationService.ConfirmReservation(id, actor)
	if err != nil {
		return nil, err
	}
	metrics.ReservationsConfirmed.Inc()
	w.announce(mq.ReservationConfirmedQueue, reservation)
	return reservation, nil
}

func (w *ReservationWorkflow) Cancel(id uint, actor *model.User) (*model.Reservation, error) {
	reservation, err := w.ReservationService.CancelReservation(id, actor)
	if err != nil {
		return nil, err
	}
	metrics.ReservationsCancelled.Inc()
	w.announce(mq.ReservationCancelledQueue, reservation)
	return reservation, nil
}

func (w *ReservationWorkflow) announce(queueName string, r *model.Reservation) {
	message := mq.ReservationMessage{
		ReservationID: r.ID,
		Code:          r.Code,
		EventID:       r.EventID,
		UserID:        r.UserID,
		Seats:         r.Seats,
		TotalAmount:   r.TotalAmount,
		Status:        string(r.Status),
		OccurredAt:    w.clock.Now(),
	}
	publish(w.publisher, w.logger, queueName, message)
}

func publish(publisher Publisher, logger *zap.Logger, queueName string, message any) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(queueName, message); err != nil {
		metrics.MessagesPublishFailed.WithLabelValues(queueName).Inc()
		logger.Error("failed to publish message", zap.String("queue", queueName), zap.Error(err))
	}
}
