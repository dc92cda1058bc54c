// Package blob предоставляет удалённое хранилище файлов данных.
//
// Хранилище best-effort для ingestion: неудачная загрузка логируется,
// но не мешает регистрации файла, пока существует локальная копия.
// Для воркера без локальной копии недоступность хранилища фатальна
// для конкретной задачи (FAILED), но не для процесса.
package blob

import (
	"context"
	"fmt"
	"io"
)

// Store — абстракция удалённого хранилища.
type Store interface {
	// Put загружает содержимое под указанным ключом.
	Put(ctx context.Context, key string, r io.Reader, size int64) error

	// Get возвращает reader содержимого по ключу.
	// Закрыть reader — обязанность вызывающего.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete удаляет объект по ключу.
	Delete(ctx context.Context, key string) error
}

// RawKey возвращает детерминированный ключ исходного файла:
// raw/{id}/{filename}.
func RawKey(fileID, filename string) string {
	return fmt.Sprintf("raw/%s/%s", fileID, filename)
}
