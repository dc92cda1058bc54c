package watcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Crucible/internal/blob"
	"github.com/shaiso/Crucible/internal/domain"
	"github.com/shaiso/Crucible/internal/tabular"
	"github.com/shaiso/Crucible/internal/telemetry"
)

// fileCreator — запись зарегистрированного файла в БД.
type fileCreator interface {
	Create(ctx context.Context, f *domain.DataFile) error
}

// eventPublisher — публикация события о новом файле.
type eventPublisher interface {
	PublishFileDetected(ctx context.Context, fileID uuid.UUID, filename string) error
}

// ingestor передаёт стабилизировавшийся файл в систему:
// проверки, структурная проба, копия в управляемое хранилище,
// best-effort загрузка в blob, запись в БД, событие.
type ingestor struct {
	dataDir string
	files   fileCreator
	// blobs может быть nil — удалённое хранилище не настроено.
	blobs     blob.Store
	publisher eventPublisher
	logger    *slog.Logger
}

func newIngestor(dataDir string, files fileCreator, blobs blob.Store, publisher eventPublisher, logger *slog.Logger) *ingestor {
	return &ingestor{
		dataDir:   dataDir,
		files:     files,
		blobs:     blobs,
		publisher: publisher,
		logger:    logger,
	}
}

// Ingest регистрирует файл. ingested=true — файл скопирован и записан
// в БД; false без ошибки — файл пропущен (пустой, без строк данных,
// исчез), путь остаётся свободным: если файл допишут, следующее событие
// запустит стабилизацию заново. Ошибка тоже освобождает путь.
func (in *ingestor) Ingest(ctx context.Context, path string) (ingested bool, err error) {
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			telemetry.FilesSkipped.WithLabelValues("vanished").Inc()
			in.logger.Warn("file vanished before handoff", "path", path)
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", path, statErr)
	}
	if info.Size() == 0 {
		telemetry.FilesSkipped.WithLabelValues("empty").Inc()
		in.logger.Warn("skipping empty file", "path", path)
		return false, nil
	}

	id := uuid.New()
	filename := filepath.Base(path)

	// Структурная проба best-effort: нечитаемая таблица не блокирует
	// регистрацию, разбор повторит воркер. Таблица без строк данных —
	// исключение: такой файл пропускается, как и нулевой.
	rows, cols, probeErr := tabular.Probe(path)
	if errors.Is(probeErr, tabular.ErrEmptyTable) {
		telemetry.FilesSkipped.WithLabelValues("empty").Inc()
		in.logger.Warn("skipping empty table", "path", path)
		return false, nil
	}
	if probeErr != nil {
		in.logger.Warn("structural probe failed", "path", path, "error", probeErr)
	}

	localPath, err := in.copyLocal(id, path, filename)
	if err != nil {
		return false, err
	}

	blobKey := in.uploadBlob(ctx, id, filename, localPath, info.Size())

	now := time.Now()
	file := &domain.DataFile{
		ID:          id,
		Filename:    filename,
		LocalPath:   localPath,
		BlobKey:     blobKey,
		Source:      domain.FileSourceWatch,
		SizeBytes:   info.Size(),
		RowCount:    rows,
		ColumnCount: cols,
		DetectedAt:  now,
		Status:      domain.FileStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := in.files.Create(ctx, file); err != nil {
		// Копию оставляем: повторная попытка создаст новую под другим id.
		return false, fmt.Errorf("register file: %w", err)
	}

	if in.publisher != nil {
		if err := in.publisher.PublishFileDetected(ctx, id, filename); err != nil {
			// Файл уже зарегистрирован, событие не критично.
			in.logger.Warn("publish file.detected failed", "file_id", id, "error", err)
		}
	}

	telemetry.FilesIngested.Inc()
	in.logger.Info("file ingested",
		"file_id", id,
		"filename", filename,
		"size_bytes", info.Size(),
		"rows", rows,
		"columns", cols,
	)

	return true, nil
}

// copyLocal копирует файл в управляемое хранилище как {id}_{filename}.
func (in *ingestor) copyLocal(id uuid.UUID, src, filename string) (string, error) {
	if err := os.MkdirAll(in.dataDir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}

	dst := filepath.Join(in.dataDir, fmt.Sprintf("%s_%s", id, filename))

	srcFile, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open source: %w", err)
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create copy: %w", err)
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		os.Remove(dst)
		return "", fmt.Errorf("copy file: %w", err)
	}
	if err := dstFile.Close(); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("close copy: %w", err)
	}

	return dst, nil
}

// uploadBlob загружает копию в удалённое хранилище.
// Любая ошибка понижается до warning: локальной копии достаточно.
func (in *ingestor) uploadBlob(ctx context.Context, id uuid.UUID, filename, localPath string, size int64) string {
	if in.blobs == nil {
		return ""
	}

	f, err := os.Open(localPath)
	if err != nil {
		in.logger.Warn("blob upload skipped", "file_id", id, "error", err)
		return ""
	}
	defer f.Close()

	key := blob.RawKey(id.String(), filename)
	if err := in.blobs.Put(ctx, key, f, size); err != nil {
		in.logger.Warn("blob upload failed", "file_id", id, "key", key, "error", err)
		return ""
	}
	return key
}
