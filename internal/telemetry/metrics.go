package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики pipeline. Регистрируются в default registry,
// экспортируются через promhttp на /metrics.
var (
	// FilesIngested — файлы, зарегистрированные watcher'ом.
	FilesIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crucible_files_ingested_total",
		Help: "Data files registered by the stabilization watcher",
	})

	// FilesSkipped — файлы, пропущенные watcher'ом (пустые, исчезнувшие).
	FilesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crucible_files_skipped_total",
		Help: "Files skipped during stabilization handoff",
	}, []string{"reason"})

	// TasksProcessed — завершённые задачи по исходу.
	TasksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crucible_tasks_processed_total",
		Help: "Processing tasks finished by workers",
	}, []string{"type", "status"})

	// TaskDuration — длительность выполнения процедуры обработки.
	TaskDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crucible_task_duration_seconds",
		Help:    "Routine execution duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})

	// NotifyClients — текущее количество подключённых websocket-клиентов.
	NotifyClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crucible_notify_clients",
		Help: "Currently connected notification subscribers",
	})

	// NotifyDropped — события, не доставленные из-за переполненного
	// клиентского буфера.
	NotifyDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crucible_notify_dropped_total",
		Help: "Events dropped because a subscriber channel was full",
	})
)
