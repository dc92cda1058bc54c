// Crucible API — HTTP-сервер pipeline обработки данных.
//
// API:
//   - CRUD и загрузка файлов данных, превью таблиц
//   - приём запросов на обработку и выдача результатов
//   - аннотации на файлах и результатах
//   - websocket-уведомления о событиях pipeline
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shaiso/Crucible/internal/api"
	"github.com/shaiso/Crucible/internal/blob"
	"github.com/shaiso/Crucible/internal/gateway"
	"github.com/shaiso/Crucible/internal/mq"
	"github.com/shaiso/Crucible/internal/notify"
	"github.com/shaiso/Crucible/internal/repo"
	"github.com/shaiso/Crucible/internal/telemetry"
)

var (
	startTime = time.Now()
	reqTotal  = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crucible_api_http_requests_total",
		Help: "Total HTTP requests handled by crucible_api",
	})
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting crucible-api")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Подключаемся к базе данных
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database")

	// Создаём репозитории
	fileRepo := repo.NewFileRepo(pool)
	taskRepo := repo.NewTaskRepo(pool)
	annotationRepo := repo.NewAnnotationRepo(pool)

	// RabbitMQ. Без него API работает, но обработка уходит
	// только через polling fallback воркеров, а websocket
	// не получает событий из других процессов.
	var publisher *mq.Publisher
	var bridge *api.EventBridge
	hub := notify.NewHub(logger)

	mqURL := os.Getenv("RABBITMQ_URL")
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}
	mqConn, err := mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, live notifications disabled", "error", err)
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}

		publisher = mq.NewPublisher(mqConn, logger)
		bridge = api.NewEventBridge(mqConn, hub, logger)
		go func() {
			if err := bridge.Start(ctx); err != nil {
				logger.Error("event bridge error", "error", err)
			}
		}()
	}

	// Удалённое blob-хранилище (опционально)
	var blobs blob.Store
	if cfg, ok := blob.S3ConfigFromEnv(); ok {
		store, err := blob.NewS3Store(cfg)
		if err != nil {
			logger.Warn("S3 not available, uploads stay local-only", "error", err)
		} else {
			blobs = store
			logger.Info("S3 connected", "bucket", cfg.Bucket)
		}
	}

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "./data"
	}

	var gw *gateway.Gateway
	if publisher != nil {
		gw = gateway.New(fileRepo, taskRepo, publisher, logger)
	} else {
		gw = gateway.New(fileRepo, taskRepo, nil, logger)
	}

	handler := api.NewHandler(api.Config{
		FileRepo:       fileRepo,
		TaskRepo:       taskRepo,
		AnnotationRepo: annotationRepo,
		Gateway:        gw,
		Hub:            hub,
		Publisher:      publisher,
		Blobs:          blobs,
		DataDir:        dataDir,
		Logger:         logger,
	})

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		reqTotal.Inc()
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Регистрируем API маршруты
	handler.RegisterRoutes(mux)

	addr := ":8080"
	if v := os.Getenv("API_PORT"); v != "" {
		addr = ":" + v
	}

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	if bridge != nil {
		bridge.Stop()
	}

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}
