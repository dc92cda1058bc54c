package worker

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shaiso/Crucible/internal/domain"
	"github.com/shaiso/Crucible/internal/mq"
	"github.com/shaiso/Crucible/internal/repo"
	"github.com/shaiso/Crucible/internal/tabular"
)

// Fakes

type fakeTaskStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.ProcessingTask
}

func newFakeTaskStore(tasks ...*domain.ProcessingTask) *fakeTaskStore {
	s := &fakeTaskStore{tasks: make(map[uuid.UUID]*domain.ProcessingTask)}
	for _, t := range tasks {
		s.tasks[t.ID] = t
	}
	return s
}

func (s *fakeTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ProcessingTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *task
	return &cp, nil
}

func (s *fakeTaskStore) Update(ctx context.Context, task *domain.ProcessingTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[task.ID]; !ok {
		return repo.ErrNotFound
	}
	cp := *task
	s.tasks[task.ID] = &cp
	return nil
}

func (s *fakeTaskStore) ListPending(ctx context.Context, limit int) ([]domain.ProcessingTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ProcessingTask
	for _, t := range s.tasks {
		if t.Status == domain.TaskStatusPending && len(out) < limit {
			out = append(out, *t)
		}
	}
	return out, nil
}

type fakeFileStore struct {
	mu       sync.Mutex
	files    map[uuid.UUID]*domain.DataFile
	statuses map[uuid.UUID]domain.FileStatus
}

func newFakeFileStore(files ...*domain.DataFile) *fakeFileStore {
	s := &fakeFileStore{
		files:    make(map[uuid.UUID]*domain.DataFile),
		statuses: make(map[uuid.UUID]domain.FileStatus),
	}
	for _, f := range files {
		s.files[f.ID] = f
	}
	return s
}

func (s *fakeFileStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.DataFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	file, ok := s.files[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *file
	return &cp, nil
}

func (s *fakeFileStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.FileStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[id] = status
	return nil
}

type fakeUpdatePublisher struct {
	mu      sync.Mutex
	updates []mq.TaskUpdatePayload
}

func (p *fakeUpdatePublisher) PublishTaskUpdate(ctx context.Context, payload mq.TaskUpdatePayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, payload)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// writeTestCSV создаёт CSV-файл и соответствующий ему DataFile.
func writeTestCSV(t *testing.T, content string) *domain.DataFile {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return &domain.DataFile{
		ID:        uuid.New(),
		Filename:  "data.csv",
		LocalPath: path,
		Status:    domain.FileStatusPending,
	}
}

func mustReadFrame(t *testing.T, path string) *tabular.Frame {
	t.Helper()
	frame, err := tabular.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return frame
}

func pendingTask(fileID uuid.UUID, procType domain.ProcessingType, params map[string]any) *domain.ProcessingTask {
	return &domain.ProcessingTask{
		ID:         uuid.New(),
		FileID:     fileID,
		Type:       procType,
		Parameters: params,
		Status:     domain.TaskStatusPending,
	}
}

// Tests

func TestProcessTaskCompleted(t *testing.T) {
	file := writeTestCSV(t, "x\n1\n2\n3\n4\n5\n")
	task := pendingTask(file.ID, domain.ProcessingRollingMean, map[string]any{"window_size": float64(2)})

	tasks := newFakeTaskStore(task)
	files := newFakeFileStore(file)
	pub := &fakeUpdatePublisher{}

	w := New(Config{Tasks: tasks, Files: files, Publisher: pub, Logger: testLogger()})

	if err := w.processTask(context.Background(), task.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := tasks.GetByID(context.Background(), task.ID)
	if got.Status != domain.TaskStatusCompleted {
		t.Errorf("expected COMPLETED, got %s", got.Status)
	}
	if got.Result == nil {
		t.Fatal("result should be set")
	}
	if got.StartedAt == nil || got.FinishedAt == nil {
		t.Error("timestamps should be set")
	}

	if files.statuses[file.ID] != domain.FileStatusProcessed {
		t.Errorf("expected file PROCESSED, got %s", files.statuses[file.ID])
	}

	if len(pub.updates) != 1 {
		t.Fatalf("expected 1 update event, got %d", len(pub.updates))
	}
	update := pub.updates[0]
	if update.TaskID != task.ID || update.Status != string(domain.TaskStatusCompleted) {
		t.Errorf("unexpected update payload: %+v", update)
	}
}

func TestProcessTaskExecutionFailure(t *testing.T) {
	file := writeTestCSV(t, "x\n1\n2\n")
	// peak_detection по несуществующей колонке
	task := pendingTask(file.ID, domain.ProcessingPeakDetection, map[string]any{"column": "missing"})

	tasks := newFakeTaskStore(task)
	files := newFakeFileStore(file)
	pub := &fakeUpdatePublisher{}

	w := New(Config{Tasks: tasks, Files: files, Publisher: pub, Logger: testLogger()})

	if err := w.processTask(context.Background(), task.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := tasks.GetByID(context.Background(), task.ID)
	if got.Status != domain.TaskStatusFailed {
		t.Errorf("expected FAILED, got %s", got.Status)
	}
	if got.Error == "" {
		t.Error("error text should be set")
	}
	if _, ok := got.Result["error"]; !ok {
		t.Error("result should carry the error")
	}
	if files.statuses[file.ID] != domain.FileStatusFailed {
		t.Errorf("expected file FAILED, got %s", files.statuses[file.ID])
	}
	if len(pub.updates) != 1 || pub.updates[0].Status != string(domain.TaskStatusFailed) {
		t.Error("failure update should be published")
	}
}

func TestProcessTaskIdempotent(t *testing.T) {
	file := writeTestCSV(t, "x\n1\n2\n")
	task := pendingTask(file.ID, domain.ProcessingRollingMean, nil)
	task.MarkCompleted(map[string]any{"done": true})

	tasks := newFakeTaskStore(task)
	w := New(Config{Tasks: tasks, Files: newFakeFileStore(file), Logger: testLogger()})

	// Повторная доставка завершённой задачи отбрасывается
	err := w.processTask(context.Background(), task.ID)
	if !errors.Is(err, ErrTaskFinished) {
		t.Errorf("expected ErrTaskFinished, got %v", err)
	}

	got, _ := tasks.GetByID(context.Background(), task.ID)
	if got.Result["done"] != true {
		t.Error("original result should be preserved")
	}
}

func TestProcessTaskNotFound(t *testing.T) {
	w := New(Config{Tasks: newFakeTaskStore(), Files: newFakeFileStore(), Logger: testLogger()})

	err := w.processTask(context.Background(), uuid.New())
	if !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestProcessTaskFileNotFound(t *testing.T) {
	task := pendingTask(uuid.New(), domain.ProcessingRollingMean, nil)
	tasks := newFakeTaskStore(task)
	pub := &fakeUpdatePublisher{}

	w := New(Config{Tasks: tasks, Files: newFakeFileStore(), Publisher: pub, Logger: testLogger()})

	if err := w.processTask(context.Background(), task.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := tasks.GetByID(context.Background(), task.ID)
	if got.Status != domain.TaskStatusFailed {
		t.Errorf("expected FAILED, got %s", got.Status)
	}
}

func TestProcessTaskSourceUnavailable(t *testing.T) {
	// Локальная копия отсутствует, blob-хранилище не настроено
	file := &domain.DataFile{
		ID:        uuid.New(),
		Filename:  "data.csv",
		LocalPath: filepath.Join(t.TempDir(), "gone.csv"),
		Status:    domain.FileStatusPending,
	}
	task := pendingTask(file.ID, domain.ProcessingDataQuality, nil)

	tasks := newFakeTaskStore(task)
	w := New(Config{Tasks: tasks, Files: newFakeFileStore(file), Logger: testLogger()})

	if err := w.processTask(context.Background(), task.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := tasks.GetByID(context.Background(), task.ID)
	if got.Status != domain.TaskStatusFailed {
		t.Errorf("expected FAILED, got %s", got.Status)
	}
}

func TestPollProcessesPending(t *testing.T) {
	file := writeTestCSV(t, "x\n1\n2\n3\n")
	task := pendingTask(file.ID, domain.ProcessingDataQuality, nil)

	tasks := newFakeTaskStore(task)
	w := New(Config{Tasks: tasks, Files: newFakeFileStore(file), Logger: testLogger()})

	w.poll(context.Background())

	got, _ := tasks.GetByID(context.Background(), task.ID)
	if got.Status != domain.TaskStatusCompleted {
		t.Errorf("expected COMPLETED after poll, got %s", got.Status)
	}
}

func TestExecutorRecoversPanic(t *testing.T) {
	file := writeTestCSV(t, "x\n1\n")
	frame := mustReadFrame(t, file.LocalPath)

	ex := NewExecutor(nil)

	// Неизвестный тип процедуры — ошибка, не паника
	_, err := ex.Execute(frame, domain.ProcessingType("bogus"), nil)
	if err == nil {
		t.Fatal("expected error for unknown processing type")
	}
}

func TestExecutorCustomScript(t *testing.T) {
	file := writeTestCSV(t, "x\n1\n2\n3\n")
	frame := mustReadFrame(t, file.LocalPath)

	ex := NewExecutor(nil)

	result, err := ex.Execute(frame, domain.ProcessingCustom, map[string]any{
		domain.ParamScriptName: "example_custom",
		domain.ParamCustomParams: map[string]any{
			"target_column": "x",
			"multiplier":    float64(3),
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil {
		t.Fatal("result should be set")
	}
}

func TestExecutorCustomUnknownScript(t *testing.T) {
	file := writeTestCSV(t, "x\n1\n")
	frame := mustReadFrame(t, file.LocalPath)

	ex := NewExecutor(nil)

	_, err := ex.Execute(frame, domain.ProcessingCustom, map[string]any{
		domain.ParamScriptName: "no_such_script",
	})
	if err == nil {
		t.Fatal("expected error for unknown script")
	}
}
