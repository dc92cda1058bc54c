package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeTaskProcess  MessageType = "task.process"
	MessageTypeTaskUpdate   MessageType = "task.update"
	MessageTypeFileDetected MessageType = "file.detected"
)

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	// Используется gateway'ем как correlation id.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// TaskProcessPayload — payload для задачи, ожидающей воркера.
type TaskProcessPayload struct {
	TaskID uuid.UUID `json:"task_id"`
	FileID uuid.UUID `json:"file_id"`
}

// TaskUpdatePayload — payload события изменения статуса задачи.
// Потребитель: notification fan-out в API.
type TaskUpdatePayload struct {
	TaskID uuid.UUID `json:"task_id"`
	FileID uuid.UUID `json:"file_id"`
	Status string    `json:"status"`
	Error  string    `json:"error,omitempty"`
}

// FileDetectedPayload — payload события регистрации нового файла.
type FileDetectedPayload struct {
	FileID   uuid.UUID `json:"file_id"`
	Filename string    `json:"filename"`
}

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// PublishTaskProcess публикует задачу обработки в очередь воркеров.
// Возвращает id сообщения — он же correlation id задачи.
func (p *Publisher) PublishTaskProcess(ctx context.Context, taskID, fileID uuid.UUID) (string, error) {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeTaskProcess,
		Payload:   TaskProcessPayload{TaskID: taskID, FileID: fileID},
		Timestamp: time.Now(),
	}

	if err := p.Publish(ctx, ExchangeTasks, RoutingKeyProcess, msg); err != nil {
		return "", err
	}
	return msg.ID, nil
}

// PublishTaskUpdate публикует событие изменения статуса задачи.
// Потребитель: fan-out клиентских уведомлений.
func (p *Publisher) PublishTaskUpdate(ctx context.Context, payload TaskUpdatePayload) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeTaskUpdate,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeEvents, RoutingKeyUpdate, msg)
}

// PublishFileDetected публикует событие о новом зарегистрированном файле.
func (p *Publisher) PublishFileDetected(ctx context.Context, fileID uuid.UUID, filename string) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeFileDetected,
		Payload:   FileDetectedPayload{FileID: fileID, Filename: filename},
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeEvents, RoutingKeyUpdate, msg)
}
