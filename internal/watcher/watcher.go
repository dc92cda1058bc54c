package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/shaiso/Crucible/internal/blob"
	"github.com/shaiso/Crucible/internal/tabular"
)

// Config — конфигурация watcher'а.
type Config struct {
	// WatchDir — наблюдаемая директория (включая поддиректории).
	WatchDir string

	// DataDir — управляемое хранилище копий.
	DataDir string

	// SettleWindow и MaxWait — параметры стабилизации.
	SettleWindow time.Duration
	MaxWait      time.Duration
}

// ConfigFromEnv читает конфигурацию из переменных окружения.
func ConfigFromEnv() Config {
	cfg := Config{
		WatchDir:     envOr("WATCH_DIR", "./watch"),
		DataDir:      envOr("DATA_DIR", "./data"),
		SettleWindow: DefaultSettleWindow,
		MaxWait:      DefaultMaxWait,
	}
	if v := os.Getenv("SETTLE_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SettleWindow = d
		}
	}
	if v := os.Getenv("MAX_WAIT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.MaxWait = d
		}
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Watcher наблюдает за директорией и регистрирует стабилизировавшиеся
// файлы данных. Сбой отдельного файла логируется и не останавливает
// наблюдение.
type Watcher struct {
	cfg        Config
	tracker    *tracker
	stabilizer *stabilizer
	ingestor   *ingestor
	logger     *slog.Logger
}

// New создаёт Watcher. blobs может быть nil, если удалённое
// хранилище не настроено.
func New(cfg Config, files fileCreator, blobs blob.Store, publisher eventPublisher, logger *slog.Logger) *Watcher {
	tr := newTracker()
	w := &Watcher{
		cfg:      cfg,
		tracker:  tr,
		ingestor: newIngestor(cfg.DataDir, files, blobs, publisher, logger),
		logger:   logger,
	}
	w.stabilizer = newStabilizer(tr, cfg.SettleWindow, cfg.MaxWait, w.handoff, logger)
	return w
}

// restartDelay — пауза перед пересозданием умершей fsnotify-подписки.
const restartDelay = 5 * time.Second

// Run запускает наблюдение и блокируется до отмены контекста.
// Умершая fsnotify-подписка пересоздаётся: стартовый обход повторяется,
// уже обработанные пути отфильтровывает tracker.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.cfg.WatchDir, 0o755); err != nil {
		return fmt.Errorf("create watch dir: %w", err)
	}
	defer w.stabilizer.Stop()

	for {
		err := w.watch(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		w.logger.Error("watch subscription died, restarting",
			"error", err,
			"delay", restartDelay,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(restartDelay):
		}
	}
}

// watch держит одну fsnotify-подписку до её смерти или отмены контекста.
func (w *Watcher) watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer fsw.Close()

	if err := w.addRecursive(fsw, w.cfg.WatchDir); err != nil {
		return err
	}

	w.logger.Info("watching directory",
		"dir", w.cfg.WatchDir,
		"settle_window", w.cfg.SettleWindow,
		"max_wait", w.cfg.MaxWait,
	)

	// Стартовый обход: файлы, появившиеся до запуска (или во время
	// пересоздания подписки), проходят ту же стабилизацию, что и новые.
	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return fmt.Errorf("fsnotify event channel closed")
			}
			w.handleEvent(ctx, fsw, event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return fmt.Errorf("fsnotify error channel closed")
			}
			w.logger.Error("fsnotify error", "error", err)
		}
	}
}

// handleEvent обрабатывает одно событие файловой системы.
func (w *Watcher) handleEvent(ctx context.Context, fsw *fsnotify.Watcher, event fsnotify.Event) {
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			// Новые поддиректории подключаем к наблюдению.
			if err := w.addRecursive(fsw, event.Name); err != nil {
				w.logger.Error("watch new directory", "dir", event.Name, "error", err)
			}
			return
		}
	}

	if event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename) {
		// Удалённый файл может появиться снова.
		w.tracker.Forget(event.Name)
		w.tracker.Release(event.Name)
		return
	}

	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
		return
	}
	if !w.accepts(event.Name) {
		return
	}

	w.stabilizer.Observe(ctx, event.Name, time.Now())
}

// accepts проверяет путь: скрытые файлы и неподдерживаемые
// форматы игнорируются.
func (w *Watcher) accepts(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	return tabular.Supported(path)
}

// handoff вызывается stabilizer'ом для готового файла.
func (w *Watcher) handoff(ctx context.Context, path string) {
	ingested, err := w.ingestor.Ingest(ctx, path)
	if err != nil {
		// Путь освобождается: следующее событие по файлу
		// запустит стабилизацию заново.
		w.logger.Error("file handoff failed", "path", path, "error", err)
		w.tracker.Release(path)
		return
	}
	if !ingested {
		// Пропущенный файл (пустой, исчез) не закрывает путь:
		// файл, заполненный позже, пройдёт стабилизацию заново.
		w.tracker.Release(path)
		return
	}
	w.tracker.MarkProcessed(path)
}

// addRecursive подключает директорию и все её поддиректории.
func (w *Watcher) addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// sweep обходит наблюдаемую директорию и ставит существующие
// файлы на стабилизацию.
func (w *Watcher) sweep(ctx context.Context) {
	err := filepath.WalkDir(w.cfg.WatchDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !w.accepts(path) {
			return nil
		}
		w.stabilizer.Observe(ctx, path, time.Now())
		return nil
	})
	if err != nil {
		w.logger.Error("startup sweep failed", "error", err)
	}
}
