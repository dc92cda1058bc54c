package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Crucible/internal/blob"
	"github.com/shaiso/Crucible/internal/domain"
	"github.com/shaiso/Crucible/internal/mq"
)

// Default configuration values.
const (
	defaultPollInterval = 10 * time.Second
	defaultBatchSize    = 50
	defaultConcurrency  = 5
)

// taskStore — операции над задачами, нужные воркеру.
type taskStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ProcessingTask, error)
	Update(ctx context.Context, task *domain.ProcessingTask) error
	ListPending(ctx context.Context, limit int) ([]domain.ProcessingTask, error)
}

// fileStore — операции над файлами, нужные воркеру.
type fileStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.DataFile, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.FileStatus) error
}

// updatePublisher — публикация событий изменения статуса задачи.
type updatePublisher interface {
	PublishTaskUpdate(ctx context.Context, payload mq.TaskUpdatePayload) error
}

// Worker выполняет задачи обработки файлов.
type Worker struct {
	tasks taskStore
	files fileStore

	// blobs может быть nil — удалённое хранилище не настроено.
	blobs blob.Store

	publisher updatePublisher
	conn      *mq.Connection
	executor  *Executor

	consumer *mq.Consumer

	pollInterval time.Duration
	batchSize    int
	concurrency  int

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Config — конфигурация Worker.
type Config struct {
	Tasks taskStore
	Files fileStore

	// Blobs — удалённое хранилище (опционально).
	Blobs blob.Store

	Publisher updatePublisher

	// Conn — подключение к RabbitMQ. Если nil, воркер работает
	// только на поллинге.
	Conn *mq.Connection

	// Executor (опционально; если nil — NewExecutor(nil)).
	Executor *Executor

	PollInterval time.Duration // интервал polling (default: 10s)
	BatchSize    int           // количество задач за один poll (default: 50)
	Concurrency  int           // параллельных задач на воркер (default: 5)

	Logger *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	executor := cfg.Executor
	if executor == nil {
		executor = NewExecutor(nil)
	}

	return &Worker{
		tasks:        cfg.Tasks,
		files:        cfg.Files,
		blobs:        cfg.Blobs,
		publisher:    cfg.Publisher,
		conn:         cfg.Conn,
		executor:     executor,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		concurrency:  concurrency,
		logger:       logger,
	}
}

// Start запускает Worker: consumer очереди tasks.process
// и polling-горутину для fallback.
func (w *Worker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	w.logger.Info("starting worker",
		"poll_interval", w.pollInterval,
		"batch_size", w.batchSize,
		"concurrency", w.concurrency,
		"mq", w.conn != nil,
	)

	if w.conn != nil {
		w.consumer = mq.NewConsumer(w.conn, w.logger, mq.ConsumerConfig{
			Queue:          string(mq.QueueTasksProcess),
			Handler:        w.handleTaskProcess,
			Prefetch:       w.concurrency,
			RequeueOnError: true,
		})

		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			if err := w.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("task consumer error", "error", err)
			}
		}()
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.pollLoop(ctx)
	}()

	w.logger.Info("worker started")
	return nil
}

// Stop останавливает Worker и ждёт завершения горутин.
func (w *Worker) Stop() {
	w.logger.Info("stopping worker...")

	if w.cancelFunc != nil {
		w.cancelFunc()
	}
	if w.consumer != nil {
		w.consumer.Stop()
	}

	w.wg.Wait()
	w.logger.Info("worker stopped")
}

// pollLoop — цикл polling для fallback.
func (w *Worker) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	// Первый poll сразу при старте: подхватываем задачи,
	// созданные пока воркеры были выключены.
	w.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

// poll выполняет один цикл polling.
func (w *Worker) poll(ctx context.Context) {
	tasks, err := w.tasks.ListPending(ctx, w.batchSize)
	if err != nil {
		w.logger.Error("failed to list pending tasks", "error", err)
		return
	}

	if len(tasks) == 0 {
		return
	}

	w.logger.Debug("poll found pending tasks", "count", len(tasks))

	for i := range tasks {
		task := &tasks[i]

		if err := w.processTask(ctx, task.ID); err != nil {
			if errors.Is(err, ErrTaskFinished) {
				continue
			}
			w.logger.Error("failed to process task from poll",
				"task_id", task.ID,
				"error", err,
			)
		}
	}
}
