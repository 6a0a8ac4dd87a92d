package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/campusops/erp/internal/app/models"
	"github.com/campusops/erp/internal/app/models/dto"
	"github.com/campusops/erp/internal/app/repositories"
	"github.com/campusops/erp/internal/pkg/apperrors"
	"github.com/campusops/erp/internal/pkg/validation"
	"github.com/rs/zerolog"
)

// DefaultScanLimit bounds the attendance window of a summary
const DefaultScanLimit = 5000

// AttendanceService records attendance and reports on it. Reports re-read the
// records on every call; nothing is pre-aggregated.
type AttendanceService struct {
	repos     *repositories.Repositories
	scanLimit int
	now       Clock
	logger    zerolog.Logger
}

// NewAttendanceService creates a new AttendanceService
func NewAttendanceService(repos *repositories.Repositories, scanLimit int, logger zerolog.Logger) *AttendanceService {
	if scanLimit <= 0 {
		scanLimit = DefaultScanLimit
	}
	return &AttendanceService{
		repos:     repos,
		scanLimit: scanLimit,
		now:       utcNow,
		logger:    logger.With().Str("service", "attendance").Logger(),
	}
}

// recordFold skips incomplete and duplicate records and counts them
type recordFold struct {
	seen       map[string]bool
	incomplete int
	duplicate  int
}

func newRecordFold() *recordFold {
	return &recordFold{seen: make(map[string]bool)}
}

// accept reports whether r should be counted. owned is false when the record's
// student profile could not be found.
func (f *recordFold) accept(r *models.AttendanceRecord, owned bool) bool {
	if r.ID == "" || r.StudentID == "" || r.CourseCode == "" || r.Date.IsZero() || !r.Status.Valid() || !owned {
		f.incomplete++
		return false
	}
	if f.seen[r.ID] {
		f.duplicate++
		return false
	}
	f.seen[r.ID] = true
	return true
}

// AttendanceSummary folds the newest records into program > branch > year rollups
func (s *AttendanceService) AttendanceSummary(ctx context.Context) (*models.AttendanceReport, error) {
	records, err := s.repos.Attendance.Scan(ctx, s.scanLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrAttendanceScanFailed, err)
	}

	ids := make([]string, 0)
	wanted := make(map[string]bool)
	for _, r := range records {
		if r.StudentID != "" && !wanted[r.StudentID] {
			wanted[r.StudentID] = true
			ids = append(ids, r.StudentID)
		}
	}
	profiles, err := s.repos.Users.GetStudentsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load student profiles: %w", err)
	}
	students := make(map[string]*models.StudentProfile, len(profiles))
	for _, p := range profiles {
		students[p.ID] = p
	}

	report := models.NewAttendanceReport()
	fold := newRecordFold()
	for _, r := range records {
		student, owned := students[r.StudentID]
		if !fold.accept(r, owned) {
			continue
		}
		report.Add(student.Program, student.Branch, student.Year, r.Status)
	}
	report.ScannedCount = len(records)
	report.IncompleteCount = fold.incomplete
	report.DuplicateCount = fold.duplicate
	report.GeneratedAt = s.now()

	if fold.incomplete > 0 || fold.duplicate > 0 {
		s.logger.Debug().Int("incomplete", fold.incomplete).Int("duplicate", fold.duplicate).Msg("Skipped attendance records")
	}
	return report, nil
}

// StudentAttendance folds every record of one student per course and overall
func (s *AttendanceService) StudentAttendance(ctx context.Context, studentID string) (*models.StudentAttendance, error) {
	if _, err := s.repos.Users.GetStudent(ctx, studentID); err != nil {
		return nil, err
	}
	records, err := s.repos.Attendance.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}

	out := &models.StudentAttendance{
		StudentID: studentID,
		Courses:   make(map[string]*models.AttendanceStats),
	}
	fold := newRecordFold()
	for _, r := range records {
		if !fold.accept(r, r.StudentID == studentID) {
			continue
		}
		out.Overall.Add(r.Status)
		course, ok := out.Courses[r.CourseCode]
		if !ok {
			course = &models.AttendanceStats{}
			out.Courses[r.CourseCode] = course
		}
		course.Add(r.Status)
	}
	out.IncompleteCount = fold.incomplete
	out.DuplicateCount = fold.duplicate
	return out, nil
}

// MarkAttendance appends one record per entry of a class session. Records are keyed
// by course, date, period and student, so a resubmitted session is reported as
// duplicates rather than counted twice.
func (s *AttendanceService) MarkAttendance(ctx context.Context, markedBy string, req *dto.MarkAttendanceRequest) (int, error) {
	if err := validation.Struct(req); err != nil {
		return 0, err
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		return 0, err
	}
	courseCode := strings.ToUpper(req.CourseCode)
	if _, err := s.repos.Courses.GetByCode(ctx, courseCode); err != nil {
		return 0, err
	}

	ids := make([]string, 0, len(req.Entries))
	for _, e := range req.Entries {
		ids = append(ids, e.StudentID)
	}
	profiles, err := s.repos.Users.GetStudentsByIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to load students: %w", err)
	}
	known := make(map[string]bool, len(profiles))
	for _, p := range profiles {
		known[p.ID] = true
	}

	now := s.now()
	records := make([]*models.AttendanceRecord, 0, len(req.Entries))
	for _, e := range req.Entries {
		if !known[e.StudentID] {
			return 0, fmt.Errorf("%w: %s", apperrors.ErrStudentNotFound, e.StudentID)
		}
		records = append(records, &models.AttendanceRecord{
			ID:         models.AttendanceRecordID(courseCode, date, req.Period, e.StudentID),
			StudentID:  e.StudentID,
			CourseCode: courseCode,
			Date:       date,
			Period:     req.Period,
			Status:     e.Status,
			MarkedBy:   markedBy,
			CreatedAt:  now,
		})
	}

	if err := s.repos.Attendance.Append(ctx, records); err != nil {
		return 0, fmt.Errorf("failed to record attendance: %w", err)
	}
	s.logger.Info().Str("course", courseCode).Str("date", req.Date).Int("period", req.Period).Int("records", len(records)).Msg("Attendance marked")
	return len(records), nil
}
