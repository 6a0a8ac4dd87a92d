package models

import (
	"strconv"
	"time"
)

// Exam is a scheduled paper for a cohort
type Exam struct {
	ID         string    `json:"id" db:"id"`
	CourseCode string    `json:"courseCode" db:"course_code"`
	CourseName string    `json:"courseName" db:"course_name"`
	Program    string    `json:"program" db:"program"`
	Branch     string    `json:"branch" db:"branch"`
	Year       int       `json:"year" db:"year"`
	Semester   int       `json:"semester" db:"semester"`
	Date       time.Time `json:"date" db:"date"`
	StartTime  string    `json:"startTime" db:"start_time" example:"09:30"`
	EndTime    string    `json:"endTime" db:"end_time" example:"12:30"`
	Venue      string    `json:"venue" db:"venue"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

// ExamFilter narrows exam listings. Zero values match anything.
type ExamFilter struct {
	Program  string
	Branch   string
	Year     int
	Semester int
}

// EligibilityRules gate a hall ticket at fetch time
type EligibilityRules struct {
	MinAttendance int   `json:"minAttendance" example:"75"`
	MaxDues       int64 `json:"maxDues" example:"0"`
}

// HallTicket is the per-student snapshot produced when hall tickets are published
type HallTicket struct {
	ID              string           `json:"id" db:"id"`
	StudentID       string           `json:"studentId" db:"student_id"`
	StudentName     string           `json:"studentName" db:"student_name"`
	CollegeID       string           `json:"collegeId" db:"college_id"`
	Program         string           `json:"program" db:"program"`
	Branch          string           `json:"branch" db:"branch"`
	Year            int              `json:"year" db:"year"`
	Semester        int              `json:"semester" db:"semester"`
	Exams           []Exam           `json:"exams" db:"exams"`
	Rules           EligibilityRules `json:"rules" db:"rules"`
	EligibleAtIssue bool             `json:"eligibleAtIssue" db:"eligible_at_issue"`
	IssuedAt        time.Time        `json:"issuedAt" db:"issued_at"`
}

// HallTicketID is one ticket per student per semester
func HallTicketID(studentID string, semester int) string {
	return studentID + "_" + strconv.Itoa(semester)
}

// Eligibility is the live evaluation of a ticket's rules
type Eligibility struct {
	Eligible             bool     `json:"eligible"`
	AttendancePercentage int      `json:"attendancePercentage"`
	Balance              int64    `json:"balance"`
	Reasons              []string `json:"reasons,omitempty"`
}
