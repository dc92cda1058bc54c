package worker

import "errors"

// Ошибки worker.
var (
	// ErrTaskNotFound — задача не найдена в БД.
	ErrTaskNotFound = errors.New("task not found")

	// ErrTaskFinished — задача уже завершена (повторная доставка).
	ErrTaskFinished = errors.New("task already finished")

	// ErrSourceUnavailable — ни локальная копия, ни удалённая
	// недоступны; задача завершается FAILED без повторов.
	ErrSourceUnavailable = errors.New("file source unavailable")
)
