package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Crucible/internal/domain"
)

// File DTOs

// FileResponse — ответ с файлом данных.
type FileResponse struct {
	ID          uuid.UUID `json:"id"`
	Filename    string    `json:"filename"`
	Source      string    `json:"source"`
	SizeBytes   int64     `json:"size_bytes"`
	RowCount    int       `json:"row_count,omitempty"`
	ColumnCount int       `json:"column_count,omitempty"`
	HasRemote   bool      `json:"has_remote_copy"`
	Status      string    `json:"status"`
	DetectedAt  time.Time `json:"detected_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FileFromDomain конвертирует domain.DataFile в FileResponse.
// Локальные пути наружу не отдаются.
func FileFromDomain(f domain.DataFile) FileResponse {
	return FileResponse{
		ID:          f.ID,
		Filename:    f.Filename,
		Source:      string(f.Source),
		SizeBytes:   f.SizeBytes,
		RowCount:    f.RowCount,
		ColumnCount: f.ColumnCount,
		HasRemote:   f.HasRemoteCopy(),
		Status:      string(f.Status),
		DetectedAt:  f.DetectedAt,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// PreviewResponse — ответ с превью таблицы.
type PreviewResponse struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
	Total   int      `json:"total_rows"`
}

// Processing DTOs

// ProcessRequest — запрос на обработку файла.
type ProcessRequest struct {
	Type       string         `json:"type"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// TaskResponse — ответ с задачей обработки.
type TaskResponse struct {
	ID            uuid.UUID      `json:"id"`
	FileID        uuid.UUID      `json:"file_id"`
	Type          string         `json:"type"`
	Parameters    map[string]any `json:"parameters,omitempty"`
	Status        string         `json:"status"`
	Result        map[string]any `json:"result,omitempty"`
	Error         string         `json:"error,omitempty"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	StartedAt     *time.Time     `json:"started_at,omitempty"`
	FinishedAt    *time.Time     `json:"finished_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// TaskFromDomain конвертирует domain.ProcessingTask в TaskResponse.
func TaskFromDomain(t domain.ProcessingTask) TaskResponse {
	return TaskResponse{
		ID:            t.ID,
		FileID:        t.FileID,
		Type:          string(t.Type),
		Parameters:    t.Parameters,
		Status:        string(t.Status),
		Result:        t.Result,
		Error:         t.Error,
		CorrelationID: t.CorrelationID,
		StartedAt:     t.StartedAt,
		FinishedAt:    t.FinishedAt,
		CreatedAt:     t.CreatedAt,
	}
}

// Annotation DTOs

// CreateAnnotationRequest — запрос на создание аннотации.
type CreateAnnotationRequest struct {
	TaskID     *uuid.UUID `json:"task_id,omitempty"`
	Type       string     `json:"type"`
	RangeStart float64    `json:"range_start"`
	RangeEnd   float64    `json:"range_end"`
	Label      string     `json:"label"`
	Notes      string     `json:"notes,omitempty"`
}

// UpdateAnnotationRequest — запрос на обновление аннотации.
type UpdateAnnotationRequest struct {
	RangeStart *float64 `json:"range_start,omitempty"`
	RangeEnd   *float64 `json:"range_end,omitempty"`
	Label      *string  `json:"label,omitempty"`
	Notes      *string  `json:"notes,omitempty"`
}

// AnnotationResponse — ответ с аннотацией.
type AnnotationResponse struct {
	ID         uuid.UUID  `json:"id"`
	FileID     uuid.UUID  `json:"file_id"`
	TaskID     *uuid.UUID `json:"task_id,omitempty"`
	Type       string     `json:"type"`
	RangeStart float64    `json:"range_start"`
	RangeEnd   float64    `json:"range_end"`
	Label      string     `json:"label"`
	Notes      string     `json:"notes,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// AnnotationFromDomain конвертирует domain.Annotation в AnnotationResponse.
func AnnotationFromDomain(a domain.Annotation) AnnotationResponse {
	return AnnotationResponse{
		ID:         a.ID,
		FileID:     a.FileID,
		TaskID:     a.TaskID,
		Type:       string(a.Type),
		RangeStart: a.RangeStart,
		RangeEnd:   a.RangeEnd,
		Label:      a.Label,
		Notes:      a.Notes,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}
