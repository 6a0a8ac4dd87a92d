package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/campusops/erp/internal/app/models"
	"github.com/campusops/erp/internal/app/models/dto"
	"github.com/campusops/erp/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func examRequest(date, start, end string) *dto.ScheduleExamRequest {
	return &dto.ScheduleExamRequest{
		CourseCode: "cs101",
		Program:    "B.Tech",
		Branch:     "Computer Science",
		Year:       1,
		Semester:   1,
		Date:       date,
		StartTime:  start,
		EndTime:    end,
		Venue:      "Main Hall",
	}
}

func publishRequest() *dto.PublishHallTicketsRequest {
	return &dto.PublishHallTicketsRequest{
		Program:       "B.Tech",
		Branch:        "Computer Science",
		Year:          1,
		Semester:      1,
		MinAttendance: 75,
		MaxDues:       0,
	}
}

func TestScheduleExam(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mustCourse(t, "CS101")

	later, err := env.exams.ScheduleExam(ctx, examRequest("2025-05-14", "09:30", "12:30"))
	require.NoError(t, err)
	assert.Equal(t, "CS101", later.CourseCode)
	assert.Equal(t, "Data Structures", later.CourseName)
	_, err = env.exams.ScheduleExam(ctx, examRequest("2025-05-12", "14:00", "17:00"))
	require.NoError(t, err)

	exams, err := env.exams.ListExams(ctx, models.ExamFilter{Program: "B.Tech"})
	require.NoError(t, err)
	require.Len(t, exams, 2)
	assert.Equal(t, "14:00", exams[0].StartTime)

	_, err = env.exams.ScheduleExam(ctx, examRequest("2025-05-12", "12:00", "09:00"))
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
	_, err = env.exams.ScheduleExam(ctx, examRequest("2025-05-12", "9am", "12:00"))
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	missing := examRequest("2025-05-12", "09:00", "12:00")
	missing.CourseCode = "EE999"
	_, err = env.exams.ScheduleExam(ctx, missing)
	assert.ErrorIs(t, err, apperrors.ErrCourseNotFound)
}

func TestPublishHallTicketsRequiresExams(t *testing.T) {
	env := newTestEnv(t)
	env.mustStudent(t, "Arjun Rao", "arjun@college.edu")

	_, err := env.exams.PublishHallTickets(context.Background(), publishRequest())
	assert.ErrorIs(t, err, apperrors.ErrNoExamsScheduled)
}

func TestHallTicketEligibilityIsLive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mustCourse(t, "CS101")
	student := env.mustStudent(t, "Arjun Rao", "arjun@college.edu")

	_, err := env.exams.ScheduleExam(ctx, examRequest("2025-05-12", "09:30", "12:30"))
	require.NoError(t, err)

	out, err := env.exams.PublishHallTickets(ctx, publishRequest())
	require.NoError(t, err)
	assert.Equal(t, &dto.PublishHallTicketsResponse{Issued: 1, Eligible: 0, Exams: 1}, out)
	assert.Equal(t, 1, env.tasks.ran("hall-ticket-notification"))

	resp, err := env.exams.GetHallTicket(ctx, student.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, student.CollegeID, resp.Ticket.CollegeID)
	assert.Len(t, resp.Ticket.Exams, 1)
	assert.False(t, resp.Ticket.EligibleAtIssue)
	assert.False(t, resp.Eligibility.Eligible)
	assert.Len(t, resp.Eligibility.Reasons, 2)
	assert.Equal(t, int64(150000), resp.Eligibility.Balance)

	_, err = env.exams.HallTicketQR(ctx, student.ID, 1)
	assert.ErrorIs(t, err, apperrors.ErrNotEligible)

	// Settle the dues and attend a class; the stored ticket is not re-issued
	_, err = env.fees.RecordPayment(ctx, student.ID, &dto.RecordPaymentRequest{Amount: 150000, Method: "cash", Reference: "R-1"})
	require.NoError(t, err)
	_, err = env.attendance.MarkAttendance(ctx, "teacher-1", &dto.MarkAttendanceRequest{
		CourseCode: "CS101", Date: "2025-03-10", Period: 1,
		Entries: []dto.AttendanceEntryRequest{{StudentID: student.ID, Status: models.AttendancePresent}},
	})
	require.NoError(t, err)

	resp, err = env.exams.GetHallTicket(ctx, student.ID, 1)
	require.NoError(t, err)
	assert.True(t, resp.Eligibility.Eligible)
	assert.Empty(t, resp.Eligibility.Reasons)
	assert.Equal(t, 100, resp.Eligibility.AttendancePercentage)
	assert.False(t, resp.Ticket.EligibleAtIssue)

	png, err := env.exams.HallTicketQR(ctx, student.ID, 1)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestPublishHallTicketsIsIdempotentPerSemester(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mustCourse(t, "CS101")
	student := env.mustStudent(t, "Arjun Rao", "arjun@college.edu")
	_, err := env.exams.ScheduleExam(ctx, examRequest("2025-05-12", "09:30", "12:30"))
	require.NoError(t, err)

	lenient := publishRequest()
	lenient.MinAttendance, lenient.MaxDues = 0, 200000
	_, err = env.exams.PublishHallTickets(ctx, publishRequest())
	require.NoError(t, err)
	out, err := env.exams.PublishHallTickets(ctx, lenient)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Eligible)

	resp, err := env.exams.GetHallTicket(ctx, student.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.HallTicketID(student.ID, 1), resp.Ticket.ID)
	assert.Equal(t, lenient.MaxDues, resp.Ticket.Rules.MaxDues)
	assert.True(t, resp.Ticket.EligibleAtIssue)

	_, err = env.exams.GetHallTicket(ctx, student.ID, 2)
	assert.ErrorIs(t, err, apperrors.ErrHallTicketNotFound)
}
