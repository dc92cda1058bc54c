package watcher

import (
	"path/filepath"
	"sync"
	"time"
)

// tracker — учёт состояния наблюдаемых путей.
//
// Живёт внутри конкретного экземпляра Watcher (не глобальное состояние).
// Ключ — канонический абсолютный путь.
type tracker struct {
	mu sync.Mutex

	// lastModified — время последнего наблюдавшегося события по пути.
	lastModified map[string]time.Time

	// inflight — пути, ожидающие стабилизации.
	inflight map[string]struct{}

	// processed — пути, уже переданные в обработку.
	processed map[string]struct{}
}

func newTracker() *tracker {
	return &tracker{
		lastModified: make(map[string]time.Time),
		inflight:     make(map[string]struct{}),
		processed:    make(map[string]struct{}),
	}
}

// canonical нормализует путь до ключа.
func canonical(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

// Touch обновляет время последней модификации пути.
func (t *tracker) Touch(path string, at time.Time) {
	key := canonical(path)
	t.mu.Lock()
	t.lastModified[key] = at
	t.mu.Unlock()
}

// LastModified возвращает время последней модификации.
func (t *tracker) LastModified(path string) (time.Time, bool) {
	key := canonical(path)
	t.mu.Lock()
	at, ok := t.lastModified[key]
	t.mu.Unlock()
	return at, ok
}

// TrySchedule помечает путь как in-flight.
// Возвращает false, если путь уже ожидает стабилизации
// или уже был передан в обработку.
func (t *tracker) TrySchedule(path string) bool {
	key := canonical(path)
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.inflight[key]; ok {
		return false
	}
	if _, ok := t.processed[key]; ok {
		return false
	}
	t.inflight[key] = struct{}{}
	return true
}

// MarkProcessed переводит путь из in-flight в processed.
func (t *tracker) MarkProcessed(path string) {
	key := canonical(path)
	t.mu.Lock()
	delete(t.inflight, key)
	delete(t.lastModified, key)
	t.processed[key] = struct{}{}
	t.mu.Unlock()
}

// Release освобождает путь после неудачной передачи:
// следующее событие по нему запустит стабилизацию заново.
func (t *tracker) Release(path string) {
	key := canonical(path)
	t.mu.Lock()
	delete(t.inflight, key)
	delete(t.lastModified, key)
	t.mu.Unlock()
}

// Forget убирает путь из processed (например, после удаления файла),
// позволяя повторную обработку.
func (t *tracker) Forget(path string) {
	key := canonical(path)
	t.mu.Lock()
	delete(t.processed, key)
	t.mu.Unlock()
}

// IsProcessed проверяет, был ли путь передан в обработку.
func (t *tracker) IsProcessed(path string) bool {
	key := canonical(path)
	t.mu.Lock()
	_, ok := t.processed[key]
	t.mu.Unlock()
	return ok
}
