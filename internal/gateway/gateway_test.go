package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/shaiso/Crucible/internal/domain"
	"github.com/shaiso/Crucible/internal/repo"
)

// Fakes

type fakeFileGetter struct {
	files map[uuid.UUID]*domain.DataFile
	err   error
}

func (f *fakeFileGetter) GetByID(ctx context.Context, id uuid.UUID) (*domain.DataFile, error) {
	if f.err != nil {
		return nil, f.err
	}
	file, ok := f.files[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return file, nil
}

type fakeTaskWriter struct {
	created        []*domain.ProcessingTask
	correlations   map[uuid.UUID]string
	createErr      error
	correlationErr error
}

func (f *fakeTaskWriter) Create(ctx context.Context, task *domain.ProcessingTask) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, task)
	return nil
}

func (f *fakeTaskWriter) SetCorrelationID(ctx context.Context, id uuid.UUID, correlationID string) error {
	if f.correlationErr != nil {
		return f.correlationErr
	}
	if f.correlations == nil {
		f.correlations = make(map[uuid.UUID]string)
	}
	f.correlations[id] = correlationID
	return nil
}

type fakePublisher struct {
	published []uuid.UUID
	err       error
}

func (f *fakePublisher) PublishTaskProcess(ctx context.Context, taskID, fileID uuid.UUID) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.published = append(f.published, taskID)
	return "corr-" + taskID.String()[:8], nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testGateway(files *fakeFileGetter, tasks *fakeTaskWriter, pub *fakePublisher) *Gateway {
	if pub == nil {
		return New(files, tasks, nil, testLogger())
	}
	return New(files, tasks, pub, testLogger())
}

func registeredFile() (*fakeFileGetter, uuid.UUID) {
	id := uuid.New()
	return &fakeFileGetter{files: map[uuid.UUID]*domain.DataFile{
		id: {ID: id, Filename: "data.csv", Status: domain.FileStatusPending},
	}}, id
}

// Tests

func TestSubmit(t *testing.T) {
	files, fileID := registeredFile()
	tasks := &fakeTaskWriter{}
	pub := &fakePublisher{}
	g := testGateway(files, tasks, pub)

	sub, err := g.Submit(context.Background(), fileID, domain.ProcessingRollingMean, map[string]any{"window": 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(tasks.created) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks.created))
	}
	task := tasks.created[0]
	if task.Status != domain.TaskStatusPending {
		t.Errorf("expected PENDING, got %s", task.Status)
	}
	if task.FileID != fileID {
		t.Errorf("file id mismatch")
	}
	if sub.TaskID != task.ID {
		t.Errorf("submission task id mismatch")
	}
	if sub.CorrelationID == "" {
		t.Error("correlation id should be set")
	}
	if tasks.correlations[task.ID] != sub.CorrelationID {
		t.Errorf("correlation id not stored")
	}
	if len(pub.published) != 1 || pub.published[0] != task.ID {
		t.Errorf("task not published")
	}
}

func TestSubmitFileNotFound(t *testing.T) {
	g := testGateway(&fakeFileGetter{}, &fakeTaskWriter{}, &fakePublisher{})

	_, err := g.Submit(context.Background(), uuid.New(), domain.ProcessingRollingMean, nil)
	if !errors.Is(err, ErrFileNotFound) {
		t.Errorf("expected ErrFileNotFound, got %v", err)
	}
}

func TestSubmitInvalidType(t *testing.T) {
	files, fileID := registeredFile()
	g := testGateway(files, &fakeTaskWriter{}, &fakePublisher{})

	_, err := g.Submit(context.Background(), fileID, domain.ProcessingType("fourier"), nil)
	if !errors.Is(err, ErrInvalidParameters) {
		t.Errorf("expected ErrInvalidParameters, got %v", err)
	}
}

func TestSubmitCustomRequiresScriptName(t *testing.T) {
	files, fileID := registeredFile()
	tasks := &fakeTaskWriter{}
	g := testGateway(files, tasks, &fakePublisher{})

	// custom без имени скрипта
	_, err := g.Submit(context.Background(), fileID, domain.ProcessingCustom, map[string]any{})
	if !errors.Is(err, ErrInvalidParameters) {
		t.Errorf("expected ErrInvalidParameters, got %v", err)
	}
	if len(tasks.created) != 0 {
		t.Error("invalid request should not create a task")
	}

	// custom с именем скрипта
	_, err = g.Submit(context.Background(), fileID, domain.ProcessingCustom, map[string]any{
		domain.ParamScriptName: "example_custom",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSubmitPublishFailure(t *testing.T) {
	files, fileID := registeredFile()
	tasks := &fakeTaskWriter{}
	pub := &fakePublisher{err: fmt.Errorf("broker down")}
	g := testGateway(files, tasks, pub)

	// Публикация упала — задача всё равно создана и будет
	// подхвачена поллингом, correlation id пуст.
	sub, err := g.Submit(context.Background(), fileID, domain.ProcessingPeakDetection, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tasks.created) != 1 {
		t.Fatalf("task should be created despite publish failure")
	}
	if sub.CorrelationID != "" {
		t.Errorf("correlation id should be empty, got %q", sub.CorrelationID)
	}
}

func TestSubmitWithoutPublisher(t *testing.T) {
	files, fileID := registeredFile()
	tasks := &fakeTaskWriter{}
	g := testGateway(files, tasks, nil)

	sub, err := g.Submit(context.Background(), fileID, domain.ProcessingDataQuality, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tasks.created) != 1 {
		t.Fatalf("task should be created without publisher")
	}
	if sub.CorrelationID != "" {
		t.Errorf("correlation id should be empty in polling mode")
	}
}

func TestSubmitCreateFailure(t *testing.T) {
	files, fileID := registeredFile()
	tasks := &fakeTaskWriter{createErr: fmt.Errorf("db down")}
	pub := &fakePublisher{}
	g := testGateway(files, tasks, pub)

	_, err := g.Submit(context.Background(), fileID, domain.ProcessingRollingMean, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(pub.published) != 0 {
		t.Error("failed create should not publish")
	}
}
