package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Crucible/internal/domain"
)

// TaskRepo — репозиторий для работы с processing_tasks.
type TaskRepo struct {
	pool *pgxpool.Pool
}

// NewTaskRepo создаёт новый TaskRepo.
func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

// Create создаёт новую задачу обработки.
func (r *TaskRepo) Create(ctx context.Context, task *domain.ProcessingTask) error {
	paramsJSON, err := json.Marshal(task.Parameters)
	if err != nil {
		return fmt.Errorf("marshal parameters: %w", err)
	}

	query := `
		INSERT INTO processing_tasks (id, file_id, type, parameters, status,
		                              correlation_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.pool.Exec(ctx, query,
		task.ID,
		task.FileID,
		task.Type,
		paramsJSON,
		task.Status,
		nullString(task.CorrelationID),
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert processing_task: %w", err)
	}
	return nil
}

// GetByID возвращает задачу по ID.
func (r *TaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ProcessingTask, error) {
	query := `
		SELECT id, file_id, type, parameters, status, result, error,
		       correlation_id, started_at, finished_at, created_at, updated_at
		FROM processing_tasks
		WHERE id = $1
	`
	return scanTask(r.pool.QueryRow(ctx, query, id))
}

// Update обновляет задачу.
func (r *TaskRepo) Update(ctx context.Context, task *domain.ProcessingTask) error {
	resultJSON, err := json.Marshal(task.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	query := `
		UPDATE processing_tasks
		SET status = $2, result = $3, error = $4,
		    started_at = $5, finished_at = $6, updated_at = $7
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		task.ID,
		task.Status,
		resultJSON,
		nullString(task.Error),
		task.StartedAt,
		task.FinishedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update processing_task: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetCorrelationID записывает correlation id после публикации
// задачи в очередь.
func (r *TaskRepo) SetCorrelationID(ctx context.Context, id uuid.UUID, correlationID string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE processing_tasks SET correlation_id = $2, updated_at = now() WHERE id = $1
	`, id, correlationID)
	if err != nil {
		return fmt.Errorf("set correlation id: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// TaskFilter — фильтры для списка задач.
type TaskFilter struct {
	FileID *uuid.UUID
	Type   domain.ProcessingType
	Status domain.TaskStatus
	Limit  int
	Offset int
}

// List возвращает задачи с фильтрацией, новые первыми.
func (r *TaskRepo) List(ctx context.Context, filter TaskFilter) ([]domain.ProcessingTask, error) {
	query := `
		SELECT id, file_id, type, parameters, status, result, error,
		       correlation_id, started_at, finished_at, created_at, updated_at
		FROM processing_tasks
		WHERE ($1::uuid IS NULL OR file_id = $1)
		  AND ($2 = '' OR type = $2)
		  AND ($3 = '' OR status = $3)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, query,
		filter.FileID, string(filter.Type), string(filter.Status), limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("list processing_tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.ProcessingTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

// ListPending возвращает задачи в статусе PENDING, старые первыми.
// Используется polling fallback'ом воркера.
func (r *TaskRepo) ListPending(ctx context.Context, limit int) ([]domain.ProcessingTask, error) {
	query := `
		SELECT id, file_id, type, parameters, status, result, error,
		       correlation_id, started_at, finished_at, created_at, updated_at
		FROM processing_tasks
		WHERE status = 'PENDING'
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.ProcessingTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

// --- Helpers ---

func scanTask(row pgx.Row) (*domain.ProcessingTask, error) {
	var task domain.ProcessingTask
	var paramsJSON, resultJSON []byte
	var taskError, correlationID *string

	err := row.Scan(
		&task.ID,
		&task.FileID,
		&task.Type,
		&paramsJSON,
		&task.Status,
		&resultJSON,
		&taskError,
		&correlationID,
		&task.StartedAt,
		&task.FinishedAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan processing_task: %w", err)
	}

	if paramsJSON != nil {
		if err := json.Unmarshal(paramsJSON, &task.Parameters); err != nil {
			return nil, fmt.Errorf("unmarshal parameters: %w", err)
		}
	}
	if resultJSON != nil {
		if err := json.Unmarshal(resultJSON, &task.Result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
	}
	if taskError != nil {
		task.Error = *taskError
	}
	if correlationID != nil {
		task.CorrelationID = *correlationID
	}

	return &task, nil
}
