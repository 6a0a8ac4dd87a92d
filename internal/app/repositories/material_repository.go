package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/campusops/erp/internal/app/models"
	"github.com/campusops/erp/internal/db"
	"github.com/campusops/erp/internal/pkg/apperrors"
	"github.com/jackc/pgx/v5"
)

var materialColumns = []string{"id", "course_code", "title", "description", "file_url", "file_path", "file_name", "file_size", "uploaded_by", "created_at"}

// PgMaterialRepository handles course material metadata
type PgMaterialRepository struct {
	db db.DBTX
}

// NewMaterialRepository creates a new PgMaterialRepository
func NewMaterialRepository(conn db.DBTX) *PgMaterialRepository {
	return &PgMaterialRepository{db: conn}
}

func scanMaterial(row rowScanner) (*models.Material, error) {
	var m models.Material
	err := row.Scan(&m.ID, &m.CourseCode, &m.Title, &m.Description, &m.FileURL, &m.FilePath, &m.FileName,
		&m.FileSize, &m.UploadedBy, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts material metadata
func (r *PgMaterialRepository) Create(ctx context.Context, m *models.Material) error {
	sql, args, err := psql.Insert("materials").
		Columns(materialColumns...).
		Values(m.ID, m.CourseCode, m.Title, m.Description, m.FileURL, m.FilePath, m.FileName, m.FileSize, m.UploadedBy, m.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create material query: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error creating material: %w", err)
	}
	return nil
}

// GetByID retrieves material metadata
func (r *PgMaterialRepository) GetByID(ctx context.Context, id string) (*models.Material, error) {
	sql, args, err := psql.Select(materialColumns...).From("materials").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get material query: %w", err)
	}
	m, err := scanMaterial(r.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrMaterialNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error retrieving material: %w", err)
	}
	return m, nil
}

// ListByCourse returns the materials of a course, newest first
func (r *PgMaterialRepository) ListByCourse(ctx context.Context, courseCode string) ([]*models.Material, error) {
	sql, args, err := psql.Select(materialColumns...).From("materials").
		Where(squirrel.Eq{"course_code": courseCode}).OrderBy("created_at DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list materials query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing materials: %w", err)
	}
	defer rows.Close()

	var list []*models.Material
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// Delete removes material metadata
func (r *PgMaterialRepository) Delete(ctx context.Context, id string) error {
	sql, args, err := psql.Delete("materials").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete material query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error deleting material: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrMaterialNotFound
	}
	return nil
}
