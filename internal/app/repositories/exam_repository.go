package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/campusops/erp/internal/app/models"
	"github.com/campusops/erp/internal/db"
	"github.com/campusops/erp/internal/pkg/apperrors"
	"github.com/jackc/pgx/v5"
)

var (
	examColumns       = []string{"id", "course_code", "course_name", "program", "branch", "year", "semester", "date", "start_time", "end_time", "venue", "created_at"}
	hallTicketColumns = []string{"id", "student_id", "student_name", "college_id", "program", "branch", "year", "semester", "exams", "rules", "eligible_at_issue", "issued_at"}
)

// PgExamRepository handles database operations for exams
type PgExamRepository struct {
	db db.DBTX
}

// NewExamRepository creates a new PgExamRepository
func NewExamRepository(conn db.DBTX) *PgExamRepository {
	return &PgExamRepository{db: conn}
}

// Create inserts an exam
func (r *PgExamRepository) Create(ctx context.Context, e *models.Exam) error {
	sql, args, err := psql.Insert("exams").
		Columns(examColumns...).
		Values(e.ID, e.CourseCode, e.CourseName, e.Program, e.Branch, e.Year, e.Semester, e.Date,
			e.StartTime, e.EndTime, e.Venue, e.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create exam query: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error creating exam: %w", err)
	}
	return nil
}

func scanExam(row rowScanner) (*models.Exam, error) {
	var e models.Exam
	err := row.Scan(&e.ID, &e.CourseCode, &e.CourseName, &e.Program, &e.Branch, &e.Year, &e.Semester,
		&e.Date, &e.StartTime, &e.EndTime, &e.Venue, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetByID retrieves an exam
func (r *PgExamRepository) GetByID(ctx context.Context, id string) (*models.Exam, error) {
	sql, args, err := psql.Select(examColumns...).From("exams").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get exam query: %w", err)
	}
	e, err := scanExam(r.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrExamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error retrieving exam: %w", err)
	}
	return e, nil
}

// List returns exams matching the filter ordered by date
func (r *PgExamRepository) List(ctx context.Context, f models.ExamFilter) ([]*models.Exam, error) {
	eq := squirrel.Eq{}
	if f.Program != "" {
		eq["program"] = f.Program
	}
	if f.Branch != "" {
		eq["branch"] = f.Branch
	}
	if f.Year != 0 {
		eq["year"] = f.Year
	}
	if f.Semester != 0 {
		eq["semester"] = f.Semester
	}

	sql, args, err := psql.Select(examColumns...).From("exams").Where(eq).OrderBy("date", "start_time").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list exams query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing exams: %w", err)
	}
	defer rows.Close()

	var exams []*models.Exam
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// PgHallTicketRepository stores hall tickets; exams and rules are JSONB snapshots
type PgHallTicketRepository struct {
	db db.DBTX
}

// NewHallTicketRepository creates a new PgHallTicketRepository
func NewHallTicketRepository(conn db.DBTX) *PgHallTicketRepository {
	return &PgHallTicketRepository{db: conn}
}

// Upsert writes the ticket, replacing a previously issued one for the same semester
func (r *PgHallTicketRepository) Upsert(ctx context.Context, t *models.HallTicket) error {
	exams, err := json.Marshal(t.Exams)
	if err != nil {
		return fmt.Errorf("failed to encode exams: %w", err)
	}
	rules, err := json.Marshal(t.Rules)
	if err != nil {
		return fmt.Errorf("failed to encode rules: %w", err)
	}

	sql, args, err := psql.Insert("hall_tickets").
		Columns(hallTicketColumns...).
		Values(t.ID, t.StudentID, t.StudentName, t.CollegeID, t.Program, t.Branch, t.Year, t.Semester,
			exams, rules, t.EligibleAtIssue, t.IssuedAt).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			student_name = EXCLUDED.student_name,
			exams = EXCLUDED.exams,
			rules = EXCLUDED.rules,
			eligible_at_issue = EXCLUDED.eligible_at_issue,
			issued_at = EXCLUDED.issued_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build upsert hall ticket query: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error writing hall ticket: %w", err)
	}
	return nil
}

// Get retrieves the ticket of a student for a semester
func (r *PgHallTicketRepository) Get(ctx context.Context, studentID string, semester int) (*models.HallTicket, error) {
	sql, args, err := psql.Select(hallTicketColumns...).From("hall_tickets").
		Where(squirrel.Eq{"id": models.HallTicketID(studentID, semester)}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get hall ticket query: %w", err)
	}

	var (
		t            models.HallTicket
		exams, rules []byte
	)
	err = r.db.QueryRow(ctx, sql, args...).Scan(&t.ID, &t.StudentID, &t.StudentName, &t.CollegeID, &t.Program,
		&t.Branch, &t.Year, &t.Semester, &exams, &rules, &t.EligibleAtIssue, &t.IssuedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrHallTicketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error retrieving hall ticket: %w", err)
	}
	if err := json.Unmarshal(exams, &t.Exams); err != nil {
		return nil, fmt.Errorf("failed to decode exams: %w", err)
	}
	if err := json.Unmarshal(rules, &t.Rules); err != nil {
		return nil, fmt.Errorf("failed to decode rules: %w", err)
	}
	return &t, nil
}
