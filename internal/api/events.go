package api

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shaiso/Crucible/internal/mq"
	"github.com/shaiso/Crucible/internal/notify"
)

// EventBridge переносит события из очереди crucible.events в Hub.
//
// Воркеры и watcher живут в отдельных процессах; очередь — единственный
// путь, по которому их события достигают websocket-клиентов API.
type EventBridge struct {
	consumer *mq.Consumer
	hub      *notify.Hub
	logger   *slog.Logger
}

// NewEventBridge создаёт EventBridge.
func NewEventBridge(conn *mq.Connection, hub *notify.Hub, logger *slog.Logger) *EventBridge {
	b := &EventBridge{
		hub:    hub,
		logger: logger,
	}
	b.consumer = mq.NewConsumer(conn, logger, mq.ConsumerConfig{
		Queue:    string(mq.QueueEventsUpdates),
		Handler:  b.handleEvent,
		Prefetch: 10,
		// События best-effort: сломанное сообщение не возвращается
		// в очередь, клиенты увидят статус при следующем запросе.
		RequeueOnError: false,
	})
	return b
}

// Start запускает потребление событий. Блокируется до отмены контекста.
func (b *EventBridge) Start(ctx context.Context) error {
	err := b.consumer.Start(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Stop останавливает потребление.
func (b *EventBridge) Stop() {
	b.consumer.Stop()
}

// handleEvent переводит сообщение очереди в notify.Event.
func (b *EventBridge) handleEvent(ctx context.Context, delivery *mq.Delivery) error {
	switch delivery.Message.Type {
	case mq.MessageTypeTaskUpdate:
		payload, err := mq.ParsePayload[mq.TaskUpdatePayload](&delivery.Message)
		if err != nil {
			b.logger.Error("failed to parse task.update payload", "error", err)
			return err
		}
		b.hub.Publish(notify.Event{
			Type:   notify.EventTaskUpdate,
			TaskID: payload.TaskID.String(),
			FileID: payload.FileID.String(),
			Status: payload.Status,
			Error:  payload.Error,
		})

	case mq.MessageTypeFileDetected:
		payload, err := mq.ParsePayload[mq.FileDetectedPayload](&delivery.Message)
		if err != nil {
			b.logger.Error("failed to parse file.detected payload", "error", err)
			return err
		}
		b.hub.Publish(notify.Event{
			Type:     notify.EventFileDetected,
			FileID:   payload.FileID.String(),
			Filename: payload.Filename,
		})

	default:
		b.logger.Debug("ignoring event", "type", delivery.Message.Type)
	}

	return nil
}
