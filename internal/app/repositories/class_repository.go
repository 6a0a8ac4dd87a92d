package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/campusops/erp/internal/app/models"
	"github.com/campusops/erp/internal/db"
	"github.com/campusops/erp/internal/pkg/apperrors"
	"github.com/campusops/erp/internal/pkg/dberrors"
	"github.com/jackc/pgx/v5"
)

var classColumns = []string{"id", "program", "branch", "section", "year", "semester", "course_id", "teacher_id", "student_uids", "created_at", "updated_at"}

// PgClassRepository stores classes; the roster is a text[] column
type PgClassRepository struct {
	db db.DBTX
}

// NewClassRepository creates a new PgClassRepository
func NewClassRepository(conn db.DBTX) *PgClassRepository {
	return &PgClassRepository{db: conn}
}

func scanClass(row rowScanner) (*models.Class, error) {
	var c models.Class
	err := row.Scan(&c.ID, &c.Program, &c.Branch, &c.Section, &c.Year, &c.Semester, &c.CourseID,
		&c.TeacherID, &c.StudentUIDs, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a class. The unique slot index turns a racing duplicate into a conflict.
func (r *PgClassRepository) Create(ctx context.Context, c *models.Class) error {
	uids := c.StudentUIDs
	if uids == nil {
		uids = []string{}
	}

	sql, args, err := psql.Insert("classes").
		Columns(classColumns...).
		Values(c.ID, c.Program, c.Branch, c.Section, c.Year, c.Semester, c.CourseID, c.TeacherID, uids, c.CreatedAt, c.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create class query: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "classes_slot_key") {
			return apperrors.ErrClassAlreadyExists
		}
		return fmt.Errorf("error creating class: %w", err)
	}
	return nil
}

func (r *PgClassRepository) get(ctx context.Context, where squirrel.Sqlizer, forUpdate bool) (*models.Class, error) {
	q := psql.Select(classColumns...).From("classes").Where(where).Limit(1)
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get class query: %w", err)
	}

	c, err := scanClass(r.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrClassNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error retrieving class: %w", err)
	}
	return c, nil
}

// GetByID retrieves a class
func (r *PgClassRepository) GetByID(ctx context.Context, id string) (*models.Class, error) {
	return r.get(ctx, squirrel.Eq{"id": id}, false)
}

// GetByIDForUpdate retrieves and locks a class
func (r *PgClassRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Class, error) {
	return r.get(ctx, squirrel.Eq{"id": id}, true)
}

// FindSameSlot returns the class occupying the same cohort, section and course,
// or ErrClassNotFound
func (r *PgClassRepository) FindSameSlot(ctx context.Context, c *models.Class) (*models.Class, error) {
	return r.get(ctx, squirrel.Eq{
		"program":   c.Program,
		"branch":    c.Branch,
		"section":   c.Section,
		"year":      c.Year,
		"semester":  c.Semester,
		"course_id": c.CourseID,
	}, false)
}

// List returns classes, optionally only those taught by teacherID
func (r *PgClassRepository) List(ctx context.Context, teacherID string) ([]*models.Class, error) {
	q := psql.Select(classColumns...).From("classes").OrderBy("program", "branch", "year", "section")
	if teacherID != "" {
		q = q.Where(squirrel.Eq{"teacher_id": teacherID})
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list classes query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing classes: %w", err)
	}
	defer rows.Close()

	var classes []*models.Class
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}

// UpdateRoster replaces the roster of a class
func (r *PgClassRepository) UpdateRoster(ctx context.Context, classID string, studentUIDs []string) error {
	if studentUIDs == nil {
		studentUIDs = []string{}
	}
	sql, args, err := psql.Update("classes").
		Set("student_uids", studentUIDs).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": classID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update roster query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error updating roster: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrClassNotFound
	}
	return nil
}
