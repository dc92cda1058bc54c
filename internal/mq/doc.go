// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений
//   - consumer.go   — потребление сообщений
//
// Типы сообщений:
//   - task.process — задача обработки готова к выполнению
//   - task.update  — статус задачи изменился (worker → fan-out)
//   - file.detected — watcher зарегистрировал новый файл
//
// Exchanges:
//   - crucible.tasks  — доставка задач воркерам
//   - crucible.events — события для notification fan-out
//   - crucible.dlq    — dead letter queue
//
// Доставка at-least-once: подтверждение вручную после обработки,
// поэтому потребители обязаны быть идемпотентными.
package mq
