package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/campusops/erp/internal/app/models"
	"github.com/campusops/erp/internal/app/models/dto"
	"github.com/campusops/erp/internal/app/repositories"
	"github.com/campusops/erp/internal/pkg/apperrors"
	"github.com/campusops/erp/internal/pkg/notifier"
	"github.com/campusops/erp/internal/pkg/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
	"golang.org/x/sync/errgroup"
)

const hallTicketQRSize = 256

// ExamService schedules exams and issues hall tickets
type ExamService struct {
	repos         *repositories.Repositories
	attendance    *AttendanceService
	notifications *NotificationService
	tasks         notifier.Enqueuer
	now           Clock
	logger        zerolog.Logger
}

// NewExamService creates a new ExamService
func NewExamService(
	repos *repositories.Repositories,
	attendance *AttendanceService,
	notifications *NotificationService,
	tasks notifier.Enqueuer,
	logger zerolog.Logger,
) *ExamService {
	return &ExamService{
		repos:         repos,
		attendance:    attendance,
		notifications: notifications,
		tasks:         tasks,
		now:           utcNow,
		logger:        logger.With().Str("service", "exams").Logger(),
	}
}

// ScheduleExam schedules a paper of an existing course
func (s *ExamService) ScheduleExam(ctx context.Context, req *dto.ScheduleExamRequest) (*models.Exam, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		return nil, err
	}
	if req.EndTime <= req.StartTime {
		return nil, fieldError("endTime", "endTime must be after startTime")
	}
	course, err := s.repos.Courses.GetByCode(ctx, strings.ToUpper(req.CourseCode))
	if err != nil {
		return nil, err
	}

	exam := &models.Exam{
		ID:         uuid.NewString(),
		CourseCode: course.Code,
		CourseName: course.Name,
		Program:    req.Program,
		Branch:     req.Branch,
		Year:       req.Year,
		Semester:   req.Semester,
		Date:       date,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		Venue:      req.Venue,
		CreatedAt:  s.now(),
	}
	if err := s.repos.Exams.Create(ctx, exam); err != nil {
		return nil, fmt.Errorf("failed to schedule exam: %w", err)
	}
	s.logger.Info().Str("exam", exam.ID).Str("course", exam.CourseCode).Str("date", req.Date).Msg("Exam scheduled")
	return exam, nil
}

// ListExams returns the exams matching filter ordered by date and start time
func (s *ExamService) ListExams(ctx context.Context, filter models.ExamFilter) ([]*models.Exam, error) {
	exams, err := s.repos.Exams.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list exams: %w", err)
	}
	if exams == nil {
		exams = []*models.Exam{}
	}
	return exams, nil
}

// PublishHallTickets issues one ticket per student of the cohort. Each ticket
// snapshots the exam list and the rules; eligibility is re-checked on every fetch.
func (s *ExamService) PublishHallTickets(ctx context.Context, req *dto.PublishHallTicketsRequest) (*dto.PublishHallTicketsResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	exams, err := s.ListExams(ctx, models.ExamFilter{
		Program:  req.Program,
		Branch:   req.Branch,
		Year:     req.Year,
		Semester: req.Semester,
	})
	if err != nil {
		return nil, err
	}
	if len(exams) == 0 {
		return nil, apperrors.ErrNoExamsScheduled
	}
	schedule := make([]models.Exam, 0, len(exams))
	for _, e := range exams {
		schedule = append(schedule, *e)
	}

	students, err := s.repos.Users.ListStudents(ctx, models.CohortFilter{
		Program:  req.Program,
		Branch:   req.Branch,
		Year:     req.Year,
		Semester: req.Semester,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}

	rules := models.EligibilityRules{MinAttendance: req.MinAttendance, MaxDues: req.MaxDues}
	out := &dto.PublishHallTicketsResponse{Exams: len(exams)}
	now := s.now()
	for _, st := range students {
		eligibility, err := s.evaluate(ctx, st.ID, rules)
		if err != nil {
			return nil, err
		}
		ticket := &models.HallTicket{
			ID:              models.HallTicketID(st.ID, req.Semester),
			StudentID:       st.ID,
			StudentName:     st.Name,
			CollegeID:       st.CollegeID,
			Program:         st.Program,
			Branch:          st.Branch,
			Year:            st.Year,
			Semester:        req.Semester,
			Exams:           schedule,
			Rules:           rules,
			EligibleAtIssue: eligibility.Eligible,
			IssuedAt:        now,
		}
		if err := s.repos.HallTickets.Upsert(ctx, ticket); err != nil {
			return nil, fmt.Errorf("failed to store hall ticket of %s: %w", st.CollegeID, err)
		}
		out.Issued++
		if eligibility.Eligible {
			out.Eligible++
		}
		s.notifyTicket(st.UserUID, req.Semester)
	}

	s.logger.Info().Str("program", req.Program).Str("branch", req.Branch).Int("year", req.Year).
		Int("issued", out.Issued).Int("eligible", out.Eligible).Msg("Hall tickets published")
	return out, nil
}

func (s *ExamService) notifyTicket(uid string, semester int) {
	if s.notifications == nil {
		return
	}
	s.tasks.Enqueue("hall-ticket-notification", func(ctx context.Context) error {
		_, err := s.notifications.Notify(ctx, uid, "Hall ticket published",
			fmt.Sprintf("Your hall ticket for semester %d is available.", semester))
		return err
	})
}

// GetHallTicket returns the stored ticket with its eligibility evaluated against the
// current fee balance and attendance
func (s *ExamService) GetHallTicket(ctx context.Context, studentID string, semester int) (*dto.HallTicketResponse, error) {
	ticket, err := s.repos.HallTickets.Get(ctx, studentID, semester)
	if err != nil {
		return nil, err
	}
	eligibility, err := s.evaluate(ctx, studentID, ticket.Rules)
	if err != nil {
		return nil, err
	}
	return &dto.HallTicketResponse{Ticket: ticket, Eligibility: eligibility}, nil
}

// HallTicketQR renders the PNG QR code printed on an eligible ticket
func (s *ExamService) HallTicketQR(ctx context.Context, studentID string, semester int) ([]byte, error) {
	resp, err := s.GetHallTicket(ctx, studentID, semester)
	if err != nil {
		return nil, err
	}
	if !resp.Eligibility.Eligible {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrNotEligible, strings.Join(resp.Eligibility.Reasons, "; "))
	}

	t := resp.Ticket
	payload := fmt.Sprintf("HT|%s|%s|%d|%d", t.ID, t.CollegeID, t.Semester, t.IssuedAt.Unix())
	png, err := qrcode.Encode(payload, qrcode.Medium, hallTicketQRSize)
	if err != nil {
		return nil, fmt.Errorf("failed to render hall ticket QR: %w", err)
	}
	return png, nil
}

// evaluate checks the rules against live data. The fee and attendance lookups run
// concurrently.
func (s *ExamService) evaluate(ctx context.Context, studentID string, rules models.EligibilityRules) (*models.Eligibility, error) {
	var (
		balance    int64
		percentage int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ledger, err := s.repos.Fees.GetLedger(gctx, studentID)
		if errors.Is(err, apperrors.ErrFeeLedgerNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read fee ledger: %w", err)
		}
		balance = ledger.Balance()
		return nil
	})
	g.Go(func() error {
		summary, err := s.attendance.StudentAttendance(gctx, studentID)
		if err != nil {
			return fmt.Errorf("failed to read attendance: %w", err)
		}
		percentage = summary.Overall.Percentage
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	e := &models.Eligibility{Eligible: true, AttendancePercentage: percentage, Balance: balance}
	if balance > rules.MaxDues {
		e.Eligible = false
		e.Reasons = append(e.Reasons, fmt.Sprintf("outstanding fees %d exceed the allowed %d", balance, rules.MaxDues))
	}
	if percentage < rules.MinAttendance {
		e.Eligible = false
		e.Reasons = append(e.Reasons, fmt.Sprintf("attendance %d%% is below the required %d%%", percentage, rules.MinAttendance))
	}
	return e, nil
}
