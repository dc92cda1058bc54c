// Package notify раздаёт события pipeline подключённым клиентам.
//
// Hub — fan-out в памяти процесса API: события из очереди
// crucible.events публикуются всем подписчикам. Доставка best-effort —
// медленный клиент с переполненным буфером теряет события, остальных
// это не задерживает.
package notify

import (
	"log/slog"
	"sync"

	"github.com/shaiso/Crucible/internal/telemetry"
)

// subscriberBuffer — размер буфера канала подписчика.
const subscriberBuffer = 16

// Event — событие для клиентов.
type Event struct {
	// Type — тип события: task_update или file_detected.
	Type string `json:"type"`

	TaskID   string `json:"task_id,omitempty"`
	FileID   string `json:"file_id,omitempty"`
	Status   string `json:"status,omitempty"`
	Error    string `json:"error,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// Типы событий.
const (
	EventTaskUpdate   = "task_update"
	EventFileDetected = "file_detected"
)

// Hub — реестр подписчиков.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]chan Event
	logger      *slog.Logger
}

// NewHub создаёт Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		subscribers: make(map[string]chan Event),
		logger:      logger,
	}
}

// Subscribe регистрирует клиента и возвращает канал событий.
// Повторная подписка с тем же client id закрывает прежний канал.
func (h *Hub) Subscribe(clientID string) <-chan Event {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	if old, ok := h.subscribers[clientID]; ok {
		close(old)
	} else {
		telemetry.NotifyClients.Inc()
	}
	h.subscribers[clientID] = ch
	h.mu.Unlock()

	h.logger.Debug("client subscribed", "client_id", clientID)
	return ch
}

// Unsubscribe снимает подписку и закрывает канал клиента.
// ch привязывает отписку к конкретному подключению: если клиент уже
// переподключился с тем же id, чужая (новая) подписка не трогается.
func (h *Hub) Unsubscribe(clientID string, ch <-chan Event) {
	h.mu.Lock()
	if current, ok := h.subscribers[clientID]; ok && ch == (<-chan Event)(current) {
		close(current)
		delete(h.subscribers, clientID)
		telemetry.NotifyClients.Dec()
	}
	h.mu.Unlock()

	h.logger.Debug("client unsubscribed", "client_id", clientID)
}

// Publish рассылает событие всем подписчикам без блокировки:
// событие к клиенту с полным буфером отбрасывается.
func (h *Hub) Publish(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for clientID, ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			telemetry.NotifyDropped.Inc()
			h.logger.Warn("event dropped, subscriber buffer full",
				"client_id", clientID,
				"type", event.Type,
			)
		}
	}
}

// Count возвращает количество подписчиков.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
