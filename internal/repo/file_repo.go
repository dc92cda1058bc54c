package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Crucible/internal/domain"
)

// FileRepo — репозиторий для работы с data_files.
type FileRepo struct {
	pool *pgxpool.Pool
}

// NewFileRepo создаёт новый FileRepo.
func NewFileRepo(pool *pgxpool.Pool) *FileRepo {
	return &FileRepo{pool: pool}
}

// Create создаёт новую запись файла.
func (r *FileRepo) Create(ctx context.Context, f *domain.DataFile) error {
	query := `
		INSERT INTO data_files (id, filename, local_path, blob_key, source,
		                        size_bytes, row_count, column_count,
		                        detected_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.pool.Exec(ctx, query,
		f.ID,
		f.Filename,
		f.LocalPath,
		nullString(f.BlobKey),
		f.Source,
		f.SizeBytes,
		f.RowCount,
		f.ColumnCount,
		f.DetectedAt,
		f.Status,
		f.CreatedAt,
		f.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert data_file: %w", err)
	}
	return nil
}

// GetByID возвращает файл по ID.
func (r *FileRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.DataFile, error) {
	query := `
		SELECT id, filename, local_path, blob_key, source, size_bytes,
		       row_count, column_count, detected_at, status, created_at, updated_at
		FROM data_files
		WHERE id = $1
	`
	return scanFile(r.pool.QueryRow(ctx, query, id))
}

// FileFilter — фильтры для списка файлов.
type FileFilter struct {
	Status domain.FileStatus
	Source domain.FileSource
	Limit  int
	Offset int
}

// List возвращает файлы с фильтрацией, новые первыми.
func (r *FileRepo) List(ctx context.Context, filter FileFilter) ([]domain.DataFile, error) {
	query := `
		SELECT id, filename, local_path, blob_key, source, size_bytes,
		       row_count, column_count, detected_at, status, created_at, updated_at
		FROM data_files
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR source = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, query,
		string(filter.Status), string(filter.Source), limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("list data_files: %w", err)
	}
	defer rows.Close()

	var files []domain.DataFile
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, *f)
	}
	return files, rows.Err()
}

// UpdateStatus обновляет статус файла.
func (r *FileRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.FileStatus) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE data_files SET status = $2, updated_at = now() WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("update data_file status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет запись файла.
func (r *FileRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM data_files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete data_file: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Helpers ---

func scanFile(row pgx.Row) (*domain.DataFile, error) {
	var f domain.DataFile
	var blobKey *string

	err := row.Scan(
		&f.ID,
		&f.Filename,
		&f.LocalPath,
		&blobKey,
		&f.Source,
		&f.SizeBytes,
		&f.RowCount,
		&f.ColumnCount,
		&f.DetectedAt,
		&f.Status,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan data_file: %w", err)
	}

	if blobKey != nil {
		f.BlobKey = *blobKey
	}
	return &f, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
