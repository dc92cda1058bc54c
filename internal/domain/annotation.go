package domain

import (
	"time"

	"github.com/google/uuid"
)

// AnnotationType — тип аннотации.
type AnnotationType string

const (
	// AnnotationRegion — выделенный интервал данных (по индексам строк).
	AnnotationRegion AnnotationType = "region"

	// AnnotationPoint — отметка на конкретной точке.
	AnnotationPoint AnnotationType = "point"

	// AnnotationComment — свободный комментарий к файлу или результату.
	AnnotationComment AnnotationType = "comment"
)

// Annotation — пользовательская пометка на файле данных
// или результате обработки.
//
// Первая аннотация на PROCESSED-файле переводит его в статус ANNOTATED.
type Annotation struct {
	// ID — уникальный идентификатор аннотации.
	ID uuid.UUID `json:"id"`

	// FileID — файл, к которому относится аннотация.
	FileID uuid.UUID `json:"file_id"`

	// TaskID — результат обработки, если аннотация привязана к нему.
	TaskID *uuid.UUID `json:"task_id,omitempty"`

	// Type — тип аннотации.
	Type AnnotationType `json:"type"`

	// RangeStart и RangeEnd — границы интервала (индексы строк).
	// Для point обе границы совпадают, для comment игнорируются.
	RangeStart float64 `json:"range_start"`
	RangeEnd   float64 `json:"range_end"`

	// Label — короткая метка.
	Label string `json:"label"`

	// Notes — произвольный текст.
	Notes string `json:"notes,omitempty"`

	// CreatedAt и UpdatedAt — времена создания и последнего изменения.
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
