package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/campusops/erp/internal/app/models"
	"github.com/campusops/erp/internal/db"
	"github.com/campusops/erp/internal/pkg/apperrors"
	"github.com/campusops/erp/internal/pkg/dberrors"
	"github.com/jackc/pgx/v5"
)

var courseColumns = []string{"id", "code", "name", "program", "branch", "semester", "credits", "created_at"}

// PgCourseRepository handles database operations for courses
type PgCourseRepository struct {
	db db.DBTX
}

// NewCourseRepository creates a new PgCourseRepository
func NewCourseRepository(conn db.DBTX) *PgCourseRepository {
	return &PgCourseRepository{db: conn}
}

// Create inserts a course; a duplicate code is a conflict
func (r *PgCourseRepository) Create(ctx context.Context, c *models.Course) error {
	sql, args, err := psql.Insert("courses").
		Columns(courseColumns...).
		Values(c.ID, c.Code, c.Name, c.Program, c.Branch, c.Semester, c.Credits, c.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create course query: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "courses_code_key") {
			return apperrors.ErrCourseAlreadyExists
		}
		return fmt.Errorf("error creating course: %w", err)
	}
	return nil
}

func (r *PgCourseRepository) get(ctx context.Context, where squirrel.Sqlizer) (*models.Course, error) {
	sql, args, err := psql.Select(courseColumns...).From("courses").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get course query: %w", err)
	}

	var c models.Course
	err = r.db.QueryRow(ctx, sql, args...).Scan(&c.ID, &c.Code, &c.Name, &c.Program, &c.Branch, &c.Semester, &c.Credits, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrCourseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error retrieving course: %w", err)
	}
	return &c, nil
}

// GetByCode retrieves a course by its code
func (r *PgCourseRepository) GetByCode(ctx context.Context, code string) (*models.Course, error) {
	return r.get(ctx, squirrel.Eq{"code": code})
}

// GetByID retrieves a course by ID
func (r *PgCourseRepository) GetByID(ctx context.Context, id string) (*models.Course, error) {
	return r.get(ctx, squirrel.Eq{"id": id})
}

// List returns courses, filtered by any non-zero argument
func (r *PgCourseRepository) List(ctx context.Context, program, branch string, semester int) ([]*models.Course, error) {
	eq := squirrel.Eq{}
	if program != "" {
		eq["program"] = program
	}
	if branch != "" {
		eq["branch"] = branch
	}
	if semester != 0 {
		eq["semester"] = semester
	}

	sql, args, err := psql.Select(courseColumns...).From("courses").Where(eq).OrderBy("code").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list courses query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing courses: %w", err)
	}
	defer rows.Close()

	var courses []*models.Course
	for rows.Next() {
		var c models.Course
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.Program, &c.Branch, &c.Semester, &c.Credits, &c.CreatedAt); err != nil {
			return nil, err
		}
		courses = append(courses, &c)
	}
	return courses, rows.Err()
}
