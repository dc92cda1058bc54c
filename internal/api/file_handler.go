package api

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Crucible/internal/blob"
	"github.com/shaiso/Crucible/internal/domain"
	"github.com/shaiso/Crucible/internal/repo"
	"github.com/shaiso/Crucible/internal/tabular"
)

// maxUploadSize — предел размера загружаемого файла (100 MB).
const maxUploadSize = 100 << 20

// defaultPreviewRows — количество строк превью по умолчанию.
const defaultPreviewRows = 20

// ListFiles возвращает список файлов данных.
// GET /api/v1/files?status=&source=&limit=&offset=
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	filter := fileFilterFromQuery(r)

	files, err := h.fileRepo.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]FileResponse, len(files))
	for i, f := range files {
		result[i] = FileFromDomain(f)
	}

	List(w, result, len(result))
}

// GetFile возвращает файл по ID.
// GET /api/v1/files/{id}
func (h *Handler) GetFile(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid file id")
		return
	}

	file, err := h.fileRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "file not found") {
		return
	}

	Success(w, FileFromDomain(*file))
}

// UploadFile принимает файл данных через multipart-форму.
// POST /api/v1/files
func (h *Handler) UploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	src, header, err := r.FormFile("file")
	if err != nil {
		BadRequest(w, "multipart field 'file' is required")
		return
	}
	defer src.Close()

	filename := filepath.Base(header.Filename)
	if !tabular.Supported(filename) {
		BadRequest(w, fmt.Sprintf("unsupported file format: %s", filepath.Ext(filename)))
		return
	}

	id := uuid.New()
	localPath, size, err := h.saveUpload(id, filename, src)
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}
	if size == 0 {
		os.Remove(localPath)
		BadRequest(w, "uploaded file is empty")
		return
	}

	// Структурная проба best-effort, как у watcher'а.
	rows, cols, probeErr := tabular.Probe(localPath)
	if probeErr != nil {
		h.logger.Warn("structural probe failed", "file_id", id, "error", probeErr)
	}

	blobKey := h.uploadBlob(r, id, filename, localPath, size)

	now := time.Now()
	file := &domain.DataFile{
		ID:          id,
		Filename:    filename,
		LocalPath:   localPath,
		BlobKey:     blobKey,
		Source:      domain.FileSourceUpload,
		SizeBytes:   size,
		RowCount:    rows,
		ColumnCount: cols,
		DetectedAt:  now,
		Status:      domain.FileStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.fileRepo.Create(r.Context(), file); err != nil {
		os.Remove(localPath)
		InternalError(w, h.logger, err)
		return
	}

	if h.publisher != nil {
		if err := h.publisher.PublishFileDetected(r.Context(), id, filename); err != nil {
			h.logger.Warn("publish file.detected failed", "file_id", id, "error", err)
		}
	}

	h.logger.Info("file uploaded", "file_id", id, "filename", filename, "size_bytes", size)
	Created(w, FileFromDomain(*file))
}

// DeleteFile удаляет файл: запись в БД, локальную копию
// и объект в удалённом хранилище.
// DELETE /api/v1/files/{id}
func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid file id")
		return
	}

	file, err := h.fileRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "file not found") {
		return
	}

	if err := h.fileRepo.Delete(r.Context(), id); err != nil {
		if HandleRepoError(w, h.logger, err, "file not found") {
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	// Копии убираем best-effort: запись уже удалена.
	if file.LocalPath != "" {
		if err := os.Remove(file.LocalPath); err != nil && !os.IsNotExist(err) {
			h.logger.Warn("remove local copy failed", "file_id", id, "error", err)
		}
	}
	if h.blobs != nil && file.HasRemoteCopy() {
		if err := h.blobs.Delete(r.Context(), file.BlobKey); err != nil {
			h.logger.Warn("remove blob failed", "file_id", id, "key", file.BlobKey, "error", err)
		}
	}

	NoContent(w)
}

// PreviewFile возвращает первые строки таблицы.
// GET /api/v1/files/{id}/preview?rows=N
func (h *Handler) PreviewFile(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid file id")
		return
	}

	file, err := h.fileRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "file not found") {
		return
	}

	n := defaultPreviewRows
	if v := r.URL.Query().Get("rows"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			BadRequest(w, "rows must be a positive integer")
			return
		}
		n = parsed
	}

	frame, err := tabular.ReadFile(file.LocalPath)
	if err != nil {
		InternalError(w, h.logger, fmt.Errorf("read %s: %w", file.LocalPath, err))
		return
	}

	if n > frame.NumRows() {
		n = frame.NumRows()
	}
	rows := make([][]any, n)
	for i := 0; i < n; i++ {
		row := make([]any, len(frame.Header))
		for j, col := range frame.Header {
			row[j] = frame.Cell(i, col)
		}
		rows[i] = row
	}

	Success(w, PreviewResponse{
		Columns: frame.Header,
		Rows:    rows,
		Total:   frame.NumRows(),
	})
}

// --- Helpers ---

// saveUpload сохраняет содержимое в управляемое хранилище
// как {id}_{filename}.
func (h *Handler) saveUpload(id uuid.UUID, filename string, src io.Reader) (string, int64, error) {
	if err := os.MkdirAll(h.dataDir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create data dir: %w", err)
	}

	path := filepath.Join(h.dataDir, fmt.Sprintf("%s_%s", id, filename))
	dst, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("create file: %w", err)
	}

	size, err := io.Copy(dst, src)
	if err != nil {
		dst.Close()
		os.Remove(path)
		return "", 0, fmt.Errorf("write file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", 0, fmt.Errorf("close file: %w", err)
	}

	return path, size, nil
}

// uploadBlob загружает копию в удалённое хранилище best-effort.
func (h *Handler) uploadBlob(r *http.Request, id uuid.UUID, filename, localPath string, size int64) string {
	if h.blobs == nil {
		return ""
	}

	f, err := os.Open(localPath)
	if err != nil {
		h.logger.Warn("blob upload skipped", "file_id", id, "error", err)
		return ""
	}
	defer f.Close()

	key := blob.RawKey(id.String(), filename)
	if err := h.blobs.Put(r.Context(), key, f, size); err != nil {
		h.logger.Warn("blob upload failed", "file_id", id, "key", key, "error", err)
		return ""
	}
	return key
}

// fileFilterFromQuery собирает фильтр списка из query-параметров.
func fileFilterFromQuery(r *http.Request) (filter repo.FileFilter) {
	q := r.URL.Query()
	filter.Status = domain.FileStatus(strings.ToUpper(q.Get("status")))
	filter.Source = domain.FileSource(q.Get("source"))
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil {
		filter.Offset = v
	}
	return filter
}
