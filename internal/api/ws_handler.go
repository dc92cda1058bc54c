package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shaiso/Crucible/internal/notify"
)

const (
	// wsWriteTimeout — таймаут записи одного сообщения.
	wsWriteTimeout = 10 * time.Second

	// wsPingInterval — период контрольных ping-фреймов.
	wsPingInterval = 30 * time.Second

	// wsPongTimeout — сколько ждём ответа клиента.
	wsPongTimeout = 60 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// API живёт за реверс-прокси, origin проверяется там.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsMessage — входящее сообщение клиента.
type wsMessage struct {
	Type string `json:"type"`
}

// ServeWS подключает клиента к потоку уведомлений.
// GET /ws/{client_id}
//
// Сервер шлёт события task_update и file_detected как JSON.
// Клиентское сообщение {"type":"ping"} получает {"type":"pong"} —
// прикладной keepalive поверх контрольных фреймов.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	clientID := r.PathValue("client_id")
	if clientID == "" {
		BadRequest(w, "client_id is required")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту.
		h.logger.Warn("websocket upgrade failed", "client_id", clientID, "error", err)
		return
	}

	events := h.hub.Subscribe(clientID)
	defer h.hub.Unsubscribe(clientID, events)
	defer conn.Close()

	h.logger.Info("websocket connected", "client_id", clientID)

	conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	})

	// Все записи идут из одной горутины — writePump.
	pongs := make(chan struct{}, 1)
	done := make(chan struct{})

	go func() {
		defer close(done)
		h.readPump(conn, clientID, pongs)
	}()

	h.writePump(conn, clientID, events, pongs, done)
}

// readPump читает сообщения клиента до разрыва соединения.
func (h *Handler) readPump(conn *websocket.Conn, clientID string, pongs chan<- struct{}) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error", "client_id", clientID, "error", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(wsPongTimeout))

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == "ping" {
			select {
			case pongs <- struct{}{}:
			default:
			}
		}
	}
}

// writePump отправляет клиенту события и keepalive.
func (h *Handler) writePump(conn *websocket.Conn, clientID string, events <-chan notify.Event, pongs <-chan struct{}, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				// Hub закрыл подписку (повторный connect с тем же id).
				conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "resubscribed"))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Warn("websocket write error", "client_id", clientID, "error", err)
				return
			}

		case <-pongs:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(wsMessage{Type: "pong"}); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			return
		}
	}
}
