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

// AnnotationRepo — репозиторий для работы с annotations.
type AnnotationRepo struct {
	pool *pgxpool.Pool
}

// NewAnnotationRepo создаёт новый AnnotationRepo.
func NewAnnotationRepo(pool *pgxpool.Pool) *AnnotationRepo {
	return &AnnotationRepo{pool: pool}
}

// Create создаёт новую аннотацию.
func (r *AnnotationRepo) Create(ctx context.Context, a *domain.Annotation) error {
	query := `
		INSERT INTO annotations (id, file_id, task_id, type, range_start, range_end,
		                         label, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.pool.Exec(ctx, query,
		a.ID,
		a.FileID,
		a.TaskID,
		a.Type,
		a.RangeStart,
		a.RangeEnd,
		a.Label,
		nullString(a.Notes),
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert annotation: %w", err)
	}
	return nil
}

// GetByID возвращает аннотацию по ID.
func (r *AnnotationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Annotation, error) {
	query := `
		SELECT id, file_id, task_id, type, range_start, range_end,
		       label, notes, created_at, updated_at
		FROM annotations
		WHERE id = $1
	`
	return scanAnnotation(r.pool.QueryRow(ctx, query, id))
}

// ListByFileID возвращает аннотации файла, новые первыми.
func (r *AnnotationRepo) ListByFileID(ctx context.Context, fileID uuid.UUID) ([]domain.Annotation, error) {
	query := `
		SELECT id, file_id, task_id, type, range_start, range_end,
		       label, notes, created_at, updated_at
		FROM annotations
		WHERE file_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, fileID)
	if err != nil {
		return nil, fmt.Errorf("list annotations: %w", err)
	}
	defer rows.Close()

	var annotations []domain.Annotation
	for rows.Next() {
		a, err := scanAnnotation(rows)
		if err != nil {
			return nil, err
		}
		annotations = append(annotations, *a)
	}
	return annotations, rows.Err()
}

// Update обновляет label и notes аннотации.
func (r *AnnotationRepo) Update(ctx context.Context, a *domain.Annotation) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE annotations
		SET label = $2, notes = $3, range_start = $4, range_end = $5, updated_at = $6
		WHERE id = $1
	`, a.ID, a.Label, nullString(a.Notes), a.RangeStart, a.RangeEnd, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update annotation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет аннотацию.
func (r *AnnotationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM annotations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete annotation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Helpers ---

func scanAnnotation(row pgx.Row) (*domain.Annotation, error) {
	var a domain.Annotation
	var notes *string

	err := row.Scan(
		&a.ID,
		&a.FileID,
		&a.TaskID,
		&a.Type,
		&a.RangeStart,
		&a.RangeEnd,
		&a.Label,
		&notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan annotation: %w", err)
	}

	if notes != nil {
		a.Notes = *notes
	}
	return &a, nil
}
