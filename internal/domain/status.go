package domain

// FileStatus — статус файла данных в системе.
//
// Жизненный цикл:
//
//	PENDING → PROCESSING → PROCESSED → ANNOTATED
//	                     ↘ FAILED
type FileStatus string

const (
	// FileStatusPending — файл зарегистрирован, обработка ещё не запускалась.
	FileStatusPending FileStatus = "PENDING"

	// FileStatusProcessing — хотя бы одна задача по файлу выполняется.
	FileStatusProcessing FileStatus = "PROCESSING"

	// FileStatusProcessed — по файлу успешно завершена обработка.
	FileStatusProcessed FileStatus = "PROCESSED"

	// FileStatusFailed — последняя обработка файла завершилась ошибкой.
	FileStatusFailed FileStatus = "FAILED"

	// FileStatusAnnotated — к обработанному файлу добавлены аннотации.
	FileStatusAnnotated FileStatus = "ANNOTATED"
)

// TaskStatus — статус задачи обработки.
//
// Жизненный цикл:
//
//	PENDING → PROCESSING → COMPLETED
//	                     ↘ FAILED
//
// Переходы строго монотонны: задача в терминальном статусе
// не изменяется (защита от повторной доставки из очереди).
type TaskStatus string

const (
	// TaskStatusPending — задача создана gateway и ожидает воркера.
	TaskStatusPending TaskStatus = "PENDING"

	// TaskStatusProcessing — задача выполняется воркером.
	TaskStatusProcessing TaskStatus = "PROCESSING"

	// TaskStatusCompleted — задача успешно завершена, результат сохранён.
	TaskStatusCompleted TaskStatus = "COMPLETED"

	// TaskStatusFailed — задача завершилась ошибкой.
	TaskStatusFailed TaskStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}
