package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/shaiso/Crucible/internal/blob"
	"github.com/shaiso/Crucible/internal/domain"
	"github.com/shaiso/Crucible/internal/mq"
	"github.com/shaiso/Crucible/internal/repo"
	"github.com/shaiso/Crucible/internal/tabular"
	"github.com/shaiso/Crucible/internal/telemetry"
)

// handleTaskProcess обрабатывает сообщение task.process из очереди.
func (w *Worker) handleTaskProcess(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.TaskProcessPayload](&delivery.Message)
	if err != nil {
		w.logger.Error("failed to parse task.process payload", "error", err)
		return err
	}

	w.logger.Debug("received task.process event",
		"task_id", payload.TaskID,
		"file_id", payload.FileID,
	)

	if err := w.processTask(ctx, payload.TaskID); err != nil {
		// Ожидаемые ситуации — подтверждаем доставку (ack).
		if errors.Is(err, ErrTaskNotFound) || errors.Is(err, ErrTaskFinished) {
			w.logger.Debug("task not processed", "task_id", payload.TaskID, "reason", err)
			return nil
		}
		w.logger.Error("failed to process task", "task_id", payload.TaskID, "error", err)
		return err
	}

	return nil
}

// processTask загружает задачу из БД, выполняет процедуру
// и фиксирует результат.
func (w *Worker) processTask(ctx context.Context, taskID uuid.UUID) error {
	task, err := w.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
		}
		return fmt.Errorf("get task: %w", err)
	}

	// Idempotency-проверка: уже завершённая задача не выполняется
	// повторно при redelivery.
	if task.IsFinished() {
		return ErrTaskFinished
	}

	file, err := w.files.GetByID(ctx, task.FileID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return w.finishTask(ctx, task, nil, fmt.Errorf("data file %s not found", task.FileID))
		}
		return fmt.Errorf("get file: %w", err)
	}

	task.MarkProcessing()
	if err := w.tasks.Update(ctx, task); err != nil {
		return fmt.Errorf("update task to processing: %w", err)
	}
	if err := w.files.UpdateStatus(ctx, file.ID, domain.FileStatusProcessing); err != nil {
		w.logger.Warn("update file status failed", "file_id", file.ID, "error", err)
	}

	w.logger.Info("task started",
		"task_id", task.ID,
		"file_id", file.ID,
		"type", task.Type,
	)

	frame, err := w.loadFrame(ctx, file)
	if err != nil {
		return w.finishTask(ctx, task, nil, err)
	}

	result, execErr := w.executor.Execute(frame, task.Type, task.Parameters)
	return w.finishTask(ctx, task, result, execErr)
}

// loadFrame читает таблицу файла: сначала локальная копия,
// затем удалённое хранилище.
func (w *Worker) loadFrame(ctx context.Context, file *domain.DataFile) (*tabular.Frame, error) {
	if file.LocalPath != "" {
		if _, err := os.Stat(file.LocalPath); err == nil {
			return tabular.ReadFile(file.LocalPath)
		}
	}

	if w.blobs == nil || !file.HasRemoteCopy() {
		return nil, fmt.Errorf("%w: no local copy and no remote key for %s", ErrSourceUnavailable, file.ID)
	}

	path, err := w.fetchRemote(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer os.Remove(path)

	return tabular.ReadFile(path)
}

// fetchRemote скачивает файл из blob-хранилища во временный файл.
// Расширение сохраняется: от него зависит выбор парсера.
func (w *Worker) fetchRemote(ctx context.Context, file *domain.DataFile) (string, error) {
	rc, err := w.blobs.Get(ctx, blob.RawKey(file.ID.String(), file.Filename))
	if err != nil {
		return "", err
	}
	defer rc.Close()

	tmp, err := os.CreateTemp("", "crucible-*"+filepath.Ext(file.Filename))
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}

	return tmp.Name(), nil
}

// finishTask фиксирует исход задачи и публикует событие task.update.
//
// Перед записью задача перечитывается из БД: если её уже завершил
// другой воркер, результат не перезаписывается.
func (w *Worker) finishTask(ctx context.Context, task *domain.ProcessingTask, result map[string]any, execErr error) error {
	current, err := w.tasks.GetByID(ctx, task.ID)
	if err == nil && current.IsFinished() {
		w.logger.Debug("task finished by another worker, discarding result",
			"task_id", task.ID, "status", current.Status)
		return ErrTaskFinished
	}

	fileStatus := domain.FileStatusProcessed
	if execErr != nil {
		task.MarkFailed(execErr.Error())
		fileStatus = domain.FileStatusFailed
	} else {
		task.MarkCompleted(result)
	}

	if err := w.tasks.Update(ctx, task); err != nil {
		return fmt.Errorf("update task to %s: %w", task.Status, err)
	}
	if err := w.files.UpdateStatus(ctx, task.FileID, fileStatus); err != nil {
		w.logger.Warn("update file status failed", "file_id", task.FileID, "error", err)
	}

	telemetry.TasksProcessed.WithLabelValues(string(task.Type), string(task.Status)).Inc()

	if execErr != nil {
		w.logger.Warn("task failed",
			"task_id", task.ID,
			"file_id", task.FileID,
			"type", task.Type,
			"error", execErr,
		)
	} else {
		w.logger.Info("task completed",
			"task_id", task.ID,
			"file_id", task.FileID,
			"type", task.Type,
		)
	}

	w.publishUpdate(ctx, task)
	return nil
}

// publishUpdate публикует событие изменения статуса задачи.
// Ошибка публикации не откатывает задачу: статус уже в БД,
// клиенты увидят его при следующем запросе.
func (w *Worker) publishUpdate(ctx context.Context, task *domain.ProcessingTask) {
	if w.publisher == nil {
		return
	}

	payload := mq.TaskUpdatePayload{
		TaskID: task.ID,
		FileID: task.FileID,
		Status: string(task.Status),
		Error:  task.Error,
	}

	if err := w.publisher.PublishTaskUpdate(ctx, payload); err != nil {
		w.logger.Warn("failed to publish task.update",
			"task_id", task.ID,
			"error", err,
		)
	}
}
