package notify

import (
	"log/slog"
	"os"
	"testing"
)

func testHub() *Hub {
	return NewHub(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
}

func TestPublish(t *testing.T) {
	h := testHub()

	a := h.Subscribe("client-a")
	b := h.Subscribe("client-b")

	if h.Count() != 2 {
		t.Fatalf("expected 2 subscribers, got %d", h.Count())
	}

	event := Event{Type: EventTaskUpdate, TaskID: "t1", Status: "COMPLETED"}
	h.Publish(event)

	for name, ch := range map[string]<-chan Event{"a": a, "b": b} {
		select {
		case got := <-ch:
			if got != event {
				t.Errorf("subscriber %s: got %+v", name, got)
			}
		default:
			t.Errorf("subscriber %s: no event delivered", name)
		}
	}
}

func TestUnsubscribe(t *testing.T) {
	h := testHub()

	ch := h.Subscribe("client-a")
	h.Unsubscribe("client-a", ch)

	if h.Count() != 0 {
		t.Errorf("expected 0 subscribers, got %d", h.Count())
	}

	// Канал закрыт
	if _, ok := <-ch; ok {
		t.Error("channel should be closed")
	}

	// Публикация без подписчиков безопасна
	h.Publish(Event{Type: EventFileDetected})

	// Повторная отписка безопасна
	h.Unsubscribe("client-a", ch)
}

func TestUnsubscribeStaleConnection(t *testing.T) {
	h := testHub()

	// Клиент переподключается с тем же id: прежний обработчик
	// отписывается уже после того, как новая подписка заняла его место.
	old := h.Subscribe("client-a")
	fresh := h.Subscribe("client-a")

	h.Unsubscribe("client-a", old)

	if h.Count() != 1 {
		t.Fatalf("stale unsubscribe should not remove the new subscription, got %d", h.Count())
	}

	h.Publish(Event{Type: EventTaskUpdate, TaskID: "t1"})
	select {
	case got, ok := <-fresh:
		if !ok {
			t.Fatal("new channel should stay open after stale unsubscribe")
		}
		if got.TaskID != "t1" {
			t.Errorf("unexpected event %+v", got)
		}
	default:
		t.Error("new channel should receive events")
	}

	// Отписка самого нового подключения работает как обычно
	h.Unsubscribe("client-a", fresh)
	if h.Count() != 0 {
		t.Errorf("expected 0 subscribers, got %d", h.Count())
	}
}

func TestResubscribeClosesOldChannel(t *testing.T) {
	h := testHub()

	old := h.Subscribe("client-a")
	fresh := h.Subscribe("client-a")

	if h.Count() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", h.Count())
	}

	// Прежний канал закрыт, события идут в новый
	if _, ok := <-old; ok {
		t.Error("old channel should be closed")
	}

	h.Publish(Event{Type: EventTaskUpdate, TaskID: "t1"})
	select {
	case got := <-fresh:
		if got.TaskID != "t1" {
			t.Errorf("unexpected event %+v", got)
		}
	default:
		t.Error("new channel should receive events")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	h := testHub()

	ch := h.Subscribe("slow-client")

	// Переполняем буфер: лишние события отбрасываются, Publish не блокируется
	for i := 0; i < subscriberBuffer+5; i++ {
		h.Publish(Event{Type: EventTaskUpdate, TaskID: "t1"})
	}

	received := 0
	for {
		select {
		case <-ch:
			received++
			continue
		default:
		}
		break
	}

	if received != subscriberBuffer {
		t.Errorf("expected %d buffered events, got %d", subscriberBuffer, received)
	}
}
