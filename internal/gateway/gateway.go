// Package gateway принимает запросы на обработку файлов:
// валидирует запрос, создаёт задачу в статусе PENDING и публикует
// её в очередь воркеров. Сама обработка асинхронна — клиент получает
// идентификаторы задачи и сообщения и следит за статусом отдельно.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Crucible/internal/domain"
	"github.com/shaiso/Crucible/internal/repo"
)

// Ошибки gateway.
var (
	// ErrFileNotFound — файл с указанным id не зарегистрирован.
	ErrFileNotFound = errors.New("file not found")

	// ErrInvalidParameters — запрос не проходит валидацию
	// (неизвестный тип процедуры, custom без имени скрипта).
	ErrInvalidParameters = errors.New("invalid parameters")
)

// fileGetter — чтение файла для проверки существования.
type fileGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.DataFile, error)
}

// taskWriter — создание задачи и запись correlation id.
type taskWriter interface {
	Create(ctx context.Context, task *domain.ProcessingTask) error
	SetCorrelationID(ctx context.Context, id uuid.UUID, correlationID string) error
}

// taskPublisher — публикация задачи в очередь воркеров.
type taskPublisher interface {
	PublishTaskProcess(ctx context.Context, taskID, fileID uuid.UUID) (string, error)
}

// Gateway — точка приёма запросов на обработку.
type Gateway struct {
	files     fileGetter
	tasks     taskWriter
	publisher taskPublisher
	logger    *slog.Logger
}

// New создаёт Gateway.
func New(files fileGetter, tasks taskWriter, publisher taskPublisher, logger *slog.Logger) *Gateway {
	return &Gateway{
		files:     files,
		tasks:     tasks,
		publisher: publisher,
		logger:    logger,
	}
}

// Submission — результат принятого запроса.
type Submission struct {
	TaskID        uuid.UUID `json:"task_id"`
	CorrelationID string    `json:"correlation_id"`
}

// Submit принимает запрос на обработку файла.
//
// Порядок важен: задача сначала фиксируется в БД и только потом
// публикуется. Если публикация не удалась, задача остаётся PENDING
// и будет подхвачена polling fallback'ом воркера.
func (g *Gateway) Submit(ctx context.Context, fileID uuid.UUID, procType domain.ProcessingType, params map[string]any) (*Submission, error) {
	if !procType.IsValid() {
		return nil, fmt.Errorf("%w: unknown processing type %q", ErrInvalidParameters, procType)
	}
	if procType == domain.ProcessingCustom {
		name, _ := params[domain.ParamScriptName].(string)
		if name == "" {
			return nil, fmt.Errorf("%w: custom processing requires %s", ErrInvalidParameters, domain.ParamScriptName)
		}
	}

	if _, err := g.files.GetByID(ctx, fileID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, fileID)
		}
		return nil, fmt.Errorf("fetch file: %w", err)
	}

	now := time.Now()
	task := &domain.ProcessingTask{
		ID:         uuid.New(),
		FileID:     fileID,
		Type:       procType,
		Parameters: params,
		Status:     domain.TaskStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := g.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	if g.publisher == nil {
		// Очередь недоступна: задача остаётся PENDING,
		// воркер подберёт её поллингом.
		return &Submission{TaskID: task.ID}, nil
	}

	correlationID, err := g.publisher.PublishTaskProcess(ctx, task.ID, fileID)
	if err != nil {
		// Задача уже в БД: воркер подберёт её поллингом.
		g.logger.Warn("task publish failed, left for polling",
			"task_id", task.ID, "error", err)
		return &Submission{TaskID: task.ID}, nil
	}

	if err := g.tasks.SetCorrelationID(ctx, task.ID, correlationID); err != nil {
		g.logger.Warn("store correlation id failed", "task_id", task.ID, "error", err)
	}

	g.logger.Info("task submitted",
		"task_id", task.ID,
		"file_id", fileID,
		"type", procType,
		"correlation_id", correlationID,
	)

	return &Submission{TaskID: task.ID, CorrelationID: correlationID}, nil
}
