package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shaiso/Crucible/internal/domain"
)

// Tracker Tests

func TestTrackerSchedule(t *testing.T) {
	tr := newTracker()

	if !tr.TrySchedule("/data/a.csv") {
		t.Error("first schedule should succeed")
	}
	// Повторное планирование того же пути отклоняется
	if tr.TrySchedule("/data/a.csv") {
		t.Error("double schedule should fail")
	}
	if !tr.TrySchedule("/data/b.csv") {
		t.Error("different path should succeed")
	}
}

func TestTrackerProcessed(t *testing.T) {
	tr := newTracker()

	tr.TrySchedule("/data/a.csv")
	tr.MarkProcessed("/data/a.csv")

	if !tr.IsProcessed("/data/a.csv") {
		t.Error("path should be processed")
	}
	// Обработанный путь не планируется повторно
	if tr.TrySchedule("/data/a.csv") {
		t.Error("processed path should not be scheduled")
	}

	// Forget разрешает повторную обработку
	tr.Forget("/data/a.csv")
	if tr.IsProcessed("/data/a.csv") {
		t.Error("path should be forgotten")
	}
	if !tr.TrySchedule("/data/a.csv") {
		t.Error("forgotten path should be schedulable")
	}
}

func TestTrackerRelease(t *testing.T) {
	tr := newTracker()

	tr.TrySchedule("/data/a.csv")
	tr.Release("/data/a.csv")

	// Освобождённый путь планируется заново
	if !tr.TrySchedule("/data/a.csv") {
		t.Error("released path should be schedulable")
	}
}

func TestTrackerLastModified(t *testing.T) {
	tr := newTracker()

	if _, ok := tr.LastModified("/data/a.csv"); ok {
		t.Error("unknown path should have no timestamp")
	}

	now := time.Now()
	tr.Touch("/data/a.csv", now)

	at, ok := tr.LastModified("/data/a.csv")
	if !ok || !at.Equal(now) {
		t.Errorf("expected %v, got %v (%v)", now, at, ok)
	}
}

// Stabilizer Tests

type readyRecorder struct {
	mu    sync.Mutex
	paths []string
	ch    chan string
}

func newReadyRecorder() *readyRecorder {
	return &readyRecorder{ch: make(chan string, 8)}
}

func (r *readyRecorder) ready(ctx context.Context, path string) {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
	r.ch <- path
}

func (r *readyRecorder) wait(t *testing.T, timeout time.Duration) string {
	t.Helper()
	select {
	case path := <-r.ch:
		return path
	case <-time.After(timeout):
		t.Fatal("timed out waiting for stabilization")
		return ""
	}
}

func TestStabilizerSettle(t *testing.T) {
	tr := newTracker()
	rec := newReadyRecorder()
	s := newStabilizer(tr, 30*time.Millisecond, time.Second, rec.ready, testLogger())
	defer s.Stop()

	s.Observe(context.Background(), "/data/a.csv", time.Now())

	path := rec.wait(t, time.Second)
	if filepath.Base(path) != "a.csv" {
		t.Errorf("unexpected path %s", path)
	}
}

func TestStabilizerResetOnWrite(t *testing.T) {
	tr := newTracker()
	rec := newReadyRecorder()
	s := newStabilizer(tr, 60*time.Millisecond, time.Second, rec.ready, testLogger())
	defer s.Stop()

	s.Observe(context.Background(), "/data/a.csv", time.Now())

	// Файл продолжает меняться — стабилизация откладывается
	time.Sleep(30 * time.Millisecond)
	tr.Touch("/data/a.csv", time.Now())

	select {
	case <-rec.ch:
		t.Fatal("should not stabilize while file is being written")
	case <-time.After(50 * time.Millisecond):
	}

	rec.wait(t, time.Second)
}

func TestStabilizerMaxWait(t *testing.T) {
	tr := newTracker()
	rec := newReadyRecorder()
	// settle больше maxWait: без потолка файл не стабилизировался бы никогда
	s := newStabilizer(tr, 50*time.Millisecond, 120*time.Millisecond, rec.ready, testLogger())
	defer s.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Observe(ctx, "/data/a.csv", time.Now())

	// Непрерывная запись
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			tr.Touch("/data/a.csv", time.Now())
			time.Sleep(20 * time.Millisecond)
		}
	}()

	rec.wait(t, 2*time.Second)
	<-done
}

// Ingestor Tests

type fakeFileCreator struct {
	mu    sync.Mutex
	files []*domain.DataFile
	err   error
}

func (f *fakeFileCreator) Create(ctx context.Context, file *domain.DataFile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.files = append(f.files, file)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestIngest(t *testing.T) {
	watchDir := t.TempDir()
	dataDir := t.TempDir()

	src := filepath.Join(watchDir, "experiment.csv")
	if err := os.WriteFile(src, []byte("t,v\n0,1\n1,2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := &fakeFileCreator{}
	in := newIngestor(dataDir, store, nil, nil, testLogger())

	ingested, err := in.Ingest(context.Background(), src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ingested {
		t.Error("file should be ingested")
	}

	if len(store.files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(store.files))
	}
	file := store.files[0]

	if file.Filename != "experiment.csv" {
		t.Errorf("unexpected filename %s", file.Filename)
	}
	if file.Status != domain.FileStatusPending {
		t.Errorf("expected PENDING, got %s", file.Status)
	}
	if file.Source != domain.FileSourceWatch {
		t.Errorf("expected watch source, got %s", file.Source)
	}
	if file.RowCount != 2 || file.ColumnCount != 2 {
		t.Errorf("expected 2x2 probe, got %dx%d", file.RowCount, file.ColumnCount)
	}

	// Копия лежит в dataDir как {id}_{filename}
	wantCopy := filepath.Join(dataDir, fmt.Sprintf("%s_experiment.csv", file.ID))
	if file.LocalPath != wantCopy {
		t.Errorf("unexpected local path %s", file.LocalPath)
	}
	data, err := os.ReadFile(wantCopy)
	if err != nil {
		t.Fatalf("copy not found: %v", err)
	}
	if string(data) != "t,v\n0,1\n1,2\n" {
		t.Errorf("copy content mismatch: %q", data)
	}
}

func TestIngestEmptyFile(t *testing.T) {
	watchDir := t.TempDir()

	src := filepath.Join(watchDir, "empty.csv")
	if err := os.WriteFile(src, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	store := &fakeFileCreator{}
	in := newIngestor(t.TempDir(), store, nil, nil, testLogger())

	ingested, err := in.Ingest(context.Background(), src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ingested {
		t.Error("empty file should be skipped")
	}
	if len(store.files) != 0 {
		t.Errorf("empty file should not be registered")
	}
}

func TestIngestHeaderOnlyFile(t *testing.T) {
	watchDir := t.TempDir()

	// Таблица без строк данных пропускается, как и нулевой файл
	src := filepath.Join(watchDir, "header.csv")
	if err := os.WriteFile(src, []byte("t,v\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := &fakeFileCreator{}
	in := newIngestor(t.TempDir(), store, nil, nil, testLogger())

	ingested, err := in.Ingest(context.Background(), src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ingested {
		t.Error("header-only file should be skipped")
	}
	if len(store.files) != 0 {
		t.Errorf("header-only file should not be registered")
	}
}

func TestIngestVanishedFile(t *testing.T) {
	store := &fakeFileCreator{}
	in := newIngestor(t.TempDir(), store, nil, nil, testLogger())

	ingested, err := in.Ingest(context.Background(), filepath.Join(t.TempDir(), "gone.csv"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ingested {
		t.Error("vanished file should be skipped")
	}
}

func TestHandoffRetriesSkippedPath(t *testing.T) {
	watchDir := t.TempDir()
	dataDir := t.TempDir()

	src := filepath.Join(watchDir, "late.csv")
	if err := os.WriteFile(src, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	store := &fakeFileCreator{}
	w := New(Config{WatchDir: watchDir, DataDir: dataDir}, store, nil, nil, testLogger())

	// Файл пуст на момент handoff: путь не закрывается
	w.handoff(context.Background(), src)
	if len(store.files) != 0 {
		t.Fatal("empty file should not be registered")
	}
	if w.tracker.IsProcessed(src) {
		t.Fatal("skipped path should not be marked processed")
	}
	if !w.tracker.TrySchedule(src) {
		t.Fatal("skipped path should be schedulable again")
	}

	// Файл дописали — повторный handoff регистрирует его
	if err := os.WriteFile(src, []byte("t,v\n0,1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	w.handoff(context.Background(), src)
	if len(store.files) != 1 {
		t.Fatalf("filled file should be registered, got %d", len(store.files))
	}
	if !w.tracker.IsProcessed(src) {
		t.Error("ingested path should be marked processed")
	}
}

func TestIngestCreateFailure(t *testing.T) {
	watchDir := t.TempDir()

	src := filepath.Join(watchDir, "experiment.csv")
	if err := os.WriteFile(src, []byte("t,v\n0,1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := &fakeFileCreator{err: fmt.Errorf("db down")}
	in := newIngestor(t.TempDir(), store, nil, nil, testLogger())

	// Ошибка БД должна вернуться вызывающему: путь освободится
	// и попадёт на повторную попытку.
	_, err := in.Ingest(context.Background(), src)
	if err == nil {
		t.Fatal("expected error")
	}
}
