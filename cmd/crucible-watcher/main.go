// Crucible Watcher — наблюдает за директорией с файлами данных.
//
// Watcher:
//   - следит за появлением и изменением файлов (включая поддиректории)
//   - ждёт стабилизации файла (settle window / max wait)
//   - копирует файл в управляемое хранилище и регистрирует его в БД
//   - публикует событие file.detected
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Crucible/internal/blob"
	"github.com/shaiso/Crucible/internal/mq"
	"github.com/shaiso/Crucible/internal/repo"
	"github.com/shaiso/Crucible/internal/telemetry"
	"github.com/shaiso/Crucible/internal/watcher"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting crucible-watcher")

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

	fileRepo := repo.NewFileRepo(pool)

	// RabbitMQ. Без него файлы регистрируются, но событие
	// file.detected не публикуется.
	var publisher *mq.Publisher
	mqURL := os.Getenv("RABBITMQ_URL")
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}
	mqConn, err := mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, file events disabled", "error", err)
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

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

	cfg := watcher.ConfigFromEnv()

	var w *watcher.Watcher
	if publisher != nil {
		w = watcher.New(cfg, fileRepo, blobs, publisher, logger)
	} else {
		w = watcher.New(cfg, fileRepo, blobs, nil, logger)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8083"
	if v := os.Getenv("WATCHER_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("watcher error", "error", err)
		os.Exit(1)
	}

	logger.Info("crucible-watcher stopped")
}
