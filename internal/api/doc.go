// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go            — Handler с DI (репозитории, gateway, hub, logger)
//   - routes.go             — регистрация маршрутов
//   - middleware.go         — middleware (logging, recovery)
//   - response.go           — унифицированные JSON-ответы и обработка ошибок
//   - dto.go                — Data Transfer Objects (request/response)
//   - file_handler.go       — обработчики для /files (включая upload и preview)
//   - process_handler.go    — приём запросов на обработку и выдача результатов
//   - annotation_handler.go — обработчики для /annotations
//   - ws_handler.go         — websocket-уведомления на /ws/{client_id}
//   - events.go             — мост из очереди событий в Hub
//
// API предоставляет REST endpoints для работы с файлами данных,
// задачами обработки и аннотациями, плюс websocket для live-обновлений.
package api
