package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/campusops/erp/internal/app/models"
	"github.com/campusops/erp/internal/db"
	"github.com/campusops/erp/internal/pkg/helpers"
)

var attendanceColumns = []string{"id", "student_id", "course_code", "date", "period", "status", "marked_by", "created_at"}

// PgAttendanceRepository stores attendance records. Records are never updated and
// the table has no unique key on id, so resubmissions stay visible to the reporter.
type PgAttendanceRepository struct {
	db db.DBTX
}

// NewAttendanceRepository creates a new PgAttendanceRepository
func NewAttendanceRepository(conn db.DBTX) *PgAttendanceRepository {
	return &PgAttendanceRepository{db: conn}
}

// Append inserts records in one statement
func (r *PgAttendanceRepository) Append(ctx context.Context, records []*models.AttendanceRecord) error {
	if len(records) == 0 {
		return nil
	}

	q := psql.Insert("attendance").Columns(attendanceColumns...)
	for _, rec := range records {
		q = q.Values(rec.ID, rec.StudentID, rec.CourseCode, helpers.GetNullTime(rec.Date), rec.Period,
			string(rec.Status), rec.MarkedBy, rec.CreatedAt)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build append attendance query: %w", err)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("error appending attendance: %w", err)
	}
	return nil
}

func (r *PgAttendanceRepository) query(ctx context.Context, q squirrel.SelectBuilder) ([]*models.AttendanceRecord, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build attendance query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error reading attendance: %w", err)
	}
	defer rows.Close()

	var records []*models.AttendanceRecord
	for rows.Next() {
		var (
			rec                                   models.AttendanceRecord
			studentID, courseCode, status, marked sql.NullString
			date                                  sql.NullTime
			period                                sql.NullInt32
		)
		if err := rows.Scan(&rec.ID, &studentID, &courseCode, &date, &period, &status, &marked, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning attendance: %w", err)
		}
		rec.StudentID = studentID.String
		rec.CourseCode = courseCode.String
		rec.Status = models.AttendanceStatus(status.String)
		rec.MarkedBy = marked.String
		rec.Period = int(period.Int32)
		if date.Valid {
			rec.Date = date.Time
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// Scan returns at most limit records, newest first
func (r *PgAttendanceRepository) Scan(ctx context.Context, limit int) ([]*models.AttendanceRecord, error) {
	return r.query(ctx, psql.Select(attendanceColumns...).From("attendance").
		OrderBy("created_at DESC").Limit(uint64(limit)))
}

// ListByStudent returns every record of a student, newest first
func (r *PgAttendanceRepository) ListByStudent(ctx context.Context, studentID string) ([]*models.AttendanceRecord, error) {
	return r.query(ctx, psql.Select(attendanceColumns...).From("attendance").
		Where(squirrel.Eq{"student_id": studentID}).OrderBy("created_at DESC"))
}
