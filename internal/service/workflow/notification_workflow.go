package workflow

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/qs-lzh/eventpro/internal/mq"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Notifier delivers domain messages to people. The default one only logs.
type Notifier interface {
	ReservationChanged(queueName string, message mq.ReservationMessage) error
	EventChanged(queueName string, message mq.EventMessage) error
}

type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) ReservationChanged(queueName string, m mq.ReservationMessage) error {
	n.logger.Info("reservation notification",
		zap.String("queue", queueName),
		zap.Uint("reservation_id", m.ReservationID),
		zap.String("code", m.Code),
		zap.Uint("event_id", m.EventID),
		zap.Uint("user_id", m.UserID),
		zap.Int("seats", m.Seats),
		zap.String("status", m.Status),
	)
	return nil
}

func (n *LogNotifier) EventChanged(queueName string, m mq.EventMessage) error {
	n.logger.Info("event notification",
		zap.String("queue", queueName),
		zap.Uint("event_id", m.EventID),
		zap.String("title", m.Title),
		zap.Uint("organizer_id", m.OrganizerID),
		zap.String("status", m.Status),
	)
	return nil
}

type NotificationWorkflow struct {
	notifier Notifier
	logger   *zap.Logger
}

func NewNotificationWorkflow(notifier Notifier, logger *zap.Logger) *NotificationWorkflow {
	return &NotificationWorkflow{
		notifier: notifier,
		logger:   logger,
	}
}

// Start consumes every domain queue on its own channel.
func (w *NotificationWorkflow) Start(mqConn *amqp.Connection) error {
	for _, queueName := range mq.AllQueues {
		if err := w.consume(mqConn, queueName); err != nil {
			return err
		}
	}
	return nil
}

func (w *NotificationWorkflow) consume(conn *amqp.Connection, queueName string) error {
	ch, err := mq.NewChannel(conn)
	if err != nil {
		return err
	}

	msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	go func() {
		for msg := range msgs {
			if err := w.handleMessage(queueName, msg); err != nil {
				w.logger.Error("failed to handle message", zap.String("queue", queueName), zap.Error(err))
			}
		}
	}()

	return nil
}

// handleMessage drops malformed messages. A message the notifier failed on is
// requeued once and dropped when it fails again on redelivery.
func (w *NotificationWorkflow) handleMessage(queueName string, msg amqp.Delivery) error {
	var err error
	switch queueName {
	case mq.ReservationCreatedQueue, mq.ReservationConfirmedQueue, mq.ReservationCancelledQueue:
		var message mq.ReservationMessage
		if err := json.Unmarshal(msg.Body, &message); err != nil {
			msg.Nack(false, false)
			return err
		}
		err = w.notifier.ReservationChanged(queueName, message)
	case mq.EventPublishedQueue, mq.EventCancelledQueue:
		var message mq.EventMessage
		if err := json.Unmarshal(msg.Body, &message); err != nil {
			msg.Nack(false, false)
			return err
		}
		err = w.notifier.EventChanged(queueName, message)
	default:
		msg.Nack(false, false)
		return fmt.Errorf("unknown queue %s", queueName)
	}

	if err != nil {
		msg.Nack(false, !msg.Redelivered)
		return err
	}

	msg.Ack(false)

	return nil
}
