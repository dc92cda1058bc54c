// Crucible Worker — выполняет задачи обработки файлов данных.
//
// Worker:
//   - получает задачи из RabbitMQ (плюс polling fallback по БД)
//   - читает файл из локального или удалённого хранилища
//   - выполняет процедуру обработки и сохраняет результат
//   - публикует событие task.update
//
// Workers масштабируются горизонтально.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Crucible/internal/blob"
	"github.com/shaiso/Crucible/internal/mq"
	"github.com/shaiso/Crucible/internal/repo"
	"github.com/shaiso/Crucible/internal/telemetry"
	"github.com/shaiso/Crucible/internal/worker"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting crucible-worker")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	// Создаём репозитории
	taskRepo := repo.NewTaskRepo(pool)
	fileRepo := repo.NewFileRepo(pool)

	// RabbitMQ
	var publisher *mq.Publisher
	var mqConn *mq.Connection
	mqURL := os.Getenv("RABBITMQ_URL")
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}

	mqConn, err = mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, running in polling-only mode", "error", err)
		mqConn = nil
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		// Создаём топологию
		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}

		publisher = mq.NewPublisher(mqConn, logger)
	}

	// Удалённое blob-хранилище (опционально)
	var blobs blob.Store
	if cfg, ok := blob.S3ConfigFromEnv(); ok {
		store, err := blob.NewS3Store(cfg)
		if err != nil {
			logger.Warn("S3 not available, local copies only", "error", err)
		} else {
			blobs = store
			logger.Info("S3 connected", "bucket", cfg.Bucket)
		}
	}

	// Создаём worker
	cfg := worker.Config{
		Tasks:  taskRepo,
		Files:  fileRepo,
		Blobs:  blobs,
		Conn:   mqConn,
		Logger: logger,
	}
	if v, err := strconv.Atoi(os.Getenv("WORKER_CONCURRENCY")); err == nil && v > 0 {
		cfg.Concurrency = v
	}
	if publisher != nil {
		cfg.Publisher = publisher
	}
	w := worker.New(cfg)

	// Запускаем worker
	if err := w.Start(ctx); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8082"
	if v := os.Getenv("WORKER_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	// Останавливаем worker
	w.Stop()
	logger.Info("crucible-worker stopped")
}
