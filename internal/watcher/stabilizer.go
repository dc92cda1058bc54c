package watcher

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultSettleWindow — сколько путь должен не меняться,
	// чтобы считаться стабильным.
	DefaultSettleWindow = 2 * time.Second

	// DefaultMaxWait — потолок ожидания: после него файл
	// передаётся в обработку, даже если запись продолжается.
	DefaultMaxWait = 30 * time.Second
)

// stabilizer следит за стабилизацией путей: файл считается готовым,
// когда по нему не было событий в течение settle-окна. Один таймер
// на путь; таймер переставляется, пока файл продолжает меняться.
type stabilizer struct {
	tracker *tracker
	settle  time.Duration
	maxWait time.Duration

	// ready вызывается из горутины таймера, когда путь стабилизировался.
	ready func(ctx context.Context, path string)

	logger *slog.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
	begun  map[string]time.Time
}

func newStabilizer(tr *tracker, settle, maxWait time.Duration, ready func(ctx context.Context, path string), logger *slog.Logger) *stabilizer {
	if settle <= 0 {
		settle = DefaultSettleWindow
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &stabilizer{
		tracker: tr,
		settle:  settle,
		maxWait: maxWait,
		ready:   ready,
		logger:  logger,
		timers:  make(map[string]*time.Timer),
		begun:   make(map[string]time.Time),
	}
}

// Observe регистрирует событие по пути. Первое событие планирует
// проверку стабильности; последующие лишь обновляют время модификации —
// проверка сама переставит таймер.
func (s *stabilizer) Observe(ctx context.Context, path string, now time.Time) {
	s.tracker.Touch(path, now)

	if !s.tracker.TrySchedule(path) {
		return
	}

	key := canonical(path)
	s.mu.Lock()
	s.begun[key] = now
	s.timers[key] = time.AfterFunc(s.settle, func() { s.check(ctx, path) })
	s.mu.Unlock()
}

// check решает судьбу пути: стабилен, ждём дальше или потолок достигнут.
func (s *stabilizer) check(ctx context.Context, path string) {
	if ctx.Err() != nil {
		s.drop(path)
		s.tracker.Release(path)
		return
	}

	key := canonical(path)
	now := time.Now()

	last, ok := s.tracker.LastModified(path)
	if !ok {
		// Путь освобождён пока таймер ждал.
		s.drop(path)
		return
	}

	s.mu.Lock()
	begun := s.begun[key]
	s.mu.Unlock()

	settled := now.Sub(last) >= s.settle
	expired := now.Sub(begun) >= s.maxWait

	if settled || expired {
		if expired && !settled {
			// Файл трогают непрерывно: принудительная передача по потолку.
			s.logger.Warn("max wait reached, forcing handoff",
				"path", path,
				"waited", now.Sub(begun),
			)
		}
		s.drop(path)
		s.ready(ctx, path)
		return
	}

	// Файл ещё пишется: переставляем таймер на остаток settle-окна.
	wait := s.settle - now.Sub(last)
	if remain := s.maxWait - now.Sub(begun); remain < wait {
		wait = remain
	}
	if wait <= 0 {
		wait = time.Millisecond
	}
	s.mu.Lock()
	s.timers[key] = time.AfterFunc(wait, func() { s.check(ctx, path) })
	s.mu.Unlock()
}

// drop снимает таймер и метку начала ожидания.
func (s *stabilizer) drop(path string) {
	key := canonical(path)
	s.mu.Lock()
	if t, ok := s.timers[key]; ok {
		t.Stop()
		delete(s.timers, key)
	}
	delete(s.begun, key)
	s.mu.Unlock()
}

// Stop снимает все таймеры.
func (s *stabilizer) Stop() {
	s.mu.Lock()
	for key, t := range s.timers {
		t.Stop()
		delete(s.timers, key)
	}
	s.begun = make(map[string]time.Time)
	s.mu.Unlock()
}
