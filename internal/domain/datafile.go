package domain

import (
	"time"

	"github.com/google/uuid"
)

// FileSource — откуда файл попал в систему.
type FileSource string

const (
	// FileSourceWatch — файл обнаружен watcher'ом в наблюдаемой директории.
	FileSourceWatch FileSource = "watch"

	// FileSourceUpload — файл загружен через API.
	FileSourceUpload FileSource = "upload"
)

// DataFile — зарегистрированный файл экспериментальных данных.
//
// Создаётся watcher'ом после стабилизации файла (или API при загрузке).
// LocalPath указывает на копию в управляемом хранилище — она записывается
// один раз и дальше читается воркерами без изменений.
type DataFile struct {
	// ID — уникальный идентификатор файла.
	ID uuid.UUID `json:"id"`

	// Filename — исходное имя файла.
	Filename string `json:"filename"`

	// LocalPath — путь к копии в управляемом хранилище ({id}_{filename}).
	LocalPath string `json:"local_path"`

	// BlobKey — ключ в удалённом blob-хранилище (пусто, если не загружен).
	// Загрузка best-effort: отсутствие ключа не мешает обработке,
	// пока существует локальная копия.
	BlobKey string `json:"blob_key,omitempty"`

	// Source — источник появления файла.
	Source FileSource `json:"source"`

	// SizeBytes — размер файла на момент обнаружения.
	SizeBytes int64 `json:"size_bytes"`

	// RowCount и ColumnCount — результат структурной пробы.
	// Нулевые значения означают, что проба не удалась (это не ошибка).
	RowCount    int `json:"row_count,omitempty"`
	ColumnCount int `json:"column_count,omitempty"`

	// DetectedAt — время обнаружения watcher'ом.
	DetectedAt time.Time `json:"detected_at"`

	// Status — текущий статус файла.
	Status FileStatus `json:"status"`

	// CreatedAt и UpdatedAt — времена создания и последнего изменения записи.
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasRemoteCopy возвращает true, если файл загружен в blob-хранилище.
func (f *DataFile) HasRemoteCopy() bool {
	return f.BlobKey != ""
}
