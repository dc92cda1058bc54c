package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProcessingTask — задача обработки файла данных.
//
// Task создаётся Gateway'ем в статусе PENDING и публикуется в очередь.
// Выполняется ровно одним воркером: повторная доставка уже завершённой
// задачи отбрасывается (см. idempotency-проверку в worker).
type ProcessingTask struct {
	// ID — уникальный идентификатор задачи.
	ID uuid.UUID `json:"id"`

	// FileID — ссылка на обрабатываемый DataFile.
	FileID uuid.UUID `json:"file_id"`

	// Type — тип процедуры обработки.
	Type ProcessingType `json:"type"`

	// Parameters — параметры процедуры. Семантика ключей принадлежит
	// выбранной процедуре, gateway их не интерпретирует
	// (кроме custom_script_name для типа custom).
	Parameters map[string]any `json:"parameters,omitempty"`

	// Status — текущий статус задачи.
	Status TaskStatus `json:"status"`

	// Result — результат процедуры (JSON-сериализуемая карта).
	// Для FAILED содержит ключ "error" с текстом ошибки.
	Result map[string]any `json:"result,omitempty"`

	// Error — текст ошибки при неудаче.
	Error string `json:"error,omitempty"`

	// CorrelationID — идентификатор сообщения в очереди,
	// позволяющий клиенту сопоставить задачу с запросом.
	CorrelationID string `json:"correlation_id,omitempty"`

	// StartedAt — время начала выполнения воркером.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// CreatedAt и UpdatedAt — времена создания и последнего изменения.
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsFinished возвращает true, если задача завершена.
func (t *ProcessingTask) IsFinished() bool {
	return t.Status.IsTerminal()
}

// MarkProcessing переводит задачу в статус PROCESSING.
func (t *ProcessingTask) MarkProcessing() {
	now := time.Now()
	t.Status = TaskStatusProcessing
	t.StartedAt = &now
	t.UpdatedAt = now
}

// MarkCompleted переводит задачу в статус COMPLETED с результатом.
func (t *ProcessingTask) MarkCompleted(result map[string]any) {
	now := time.Now()
	t.Status = TaskStatusCompleted
	t.Result = result
	t.FinishedAt = &now
	t.UpdatedAt = now
}

// MarkFailed переводит задачу в статус FAILED с текстом ошибки.
// Текст дублируется в Result["error"], чтобы клиенты, читающие только
// результат, тоже видели причину.
func (t *ProcessingTask) MarkFailed(errMsg string) {
	now := time.Now()
	t.Status = TaskStatusFailed
	t.Error = errMsg
	t.Result = map[string]any{"error": errMsg}
	t.FinishedAt = &now
	t.UpdatedAt = now
}
