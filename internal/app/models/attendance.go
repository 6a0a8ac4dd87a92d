package models

import (
	"fmt"
	"math"
	"time"
)

// AttendanceStatus of a single record
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "Present"
	AttendanceAbsent  AttendanceStatus = "Absent"
)

// Valid reports whether s is Present or Absent
func (s AttendanceStatus) Valid() bool {
	return s == AttendancePresent || s == AttendanceAbsent
}

// AttendanceRecord is append-only. A zero Date or empty field marks an incomplete record.
type AttendanceRecord struct {
	ID         string           `json:"id" db:"id"`
	StudentID  string           `json:"studentId" db:"student_id"`
	CourseCode string           `json:"courseCode" db:"course_code"`
	Date       time.Time        `json:"date" db:"date"`
	Period     int              `json:"period" db:"period"`
	Status     AttendanceStatus `json:"status" db:"status"`
	MarkedBy   string           `json:"markedBy,omitempty" db:"marked_by"`
	CreatedAt  time.Time        `json:"createdAt" db:"created_at"`
}

// AttendanceRecordID is the natural key of a record, so a resubmitted session
// produces records with an already seen ID
func AttendanceRecordID(courseCode string, date time.Time, period int, studentID string) string {
	return fmt.Sprintf("%s_%s_%d_%s", courseCode, date.Format(DateLayout), period, studentID)
}

// AttendanceStats is the rollup carried by every level of the report
type AttendanceStats struct {
	TotalClasses int `json:"totalClasses"`
	TotalPresent int `json:"totalPresent"`
	Percentage   int `json:"percentage"`
}

// Add counts one record
func (s *AttendanceStats) Add(status AttendanceStatus) {
	s.TotalClasses++
	if status == AttendancePresent {
		s.TotalPresent++
	}
	s.Percentage = Percentage(s.TotalPresent, s.TotalClasses)
}

// Percentage rounds present/total*100 and is 0 when total is 0
func Percentage(present, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(present) / float64(total) * 100))
}

// YearGroup is keyed by year of study
type YearGroup map[string]*AttendanceStats

// BranchGroup rolls up a branch and nests its years
type BranchGroup struct {
	AttendanceStats
	Years YearGroup `json:"years"`
}

// ProgramGroup rolls up a program and nests its branches
type ProgramGroup struct {
	AttendanceStats
	Branches map[string]*BranchGroup `json:"branches"`
}

// AttendanceReport is the program > branch > year summary
type AttendanceReport struct {
	Overall         AttendanceStats          `json:"overall"`
	Programs        map[string]*ProgramGroup `json:"programs"`
	ScannedCount    int                      `json:"scannedCount"`
	IncompleteCount int                      `json:"incompleteCount"`
	DuplicateCount  int                      `json:"duplicateCount"`
	GeneratedAt     time.Time                `json:"generatedAt"`
}

// NewAttendanceReport returns an empty report
func NewAttendanceReport() *AttendanceReport {
	return &AttendanceReport{Programs: make(map[string]*ProgramGroup)}
}

// Add folds one record into every level of the grouping
func (r *AttendanceReport) Add(program, branch string, year int, status AttendanceStatus) {
	r.Overall.Add(status)

	p, ok := r.Programs[program]
	if !ok {
		p = &ProgramGroup{Branches: make(map[string]*BranchGroup)}
		r.Programs[program] = p
	}
	p.Add(status)

	b, ok := p.Branches[branch]
	if !ok {
		b = &BranchGroup{Years: make(YearGroup)}
		p.Branches[branch] = b
	}
	b.Add(status)

	key := fmt.Sprintf("%d", year)
	y, ok := b.Years[key]
	if !ok {
		y = &AttendanceStats{}
		b.Years[key] = y
	}
	y.Add(status)
}

// StudentAttendance is one student's rollup, per course and overall
type StudentAttendance struct {
	StudentID       string                      `json:"studentId"`
	Overall         AttendanceStats             `json:"overall"`
	Courses         map[string]*AttendanceStats `json:"courses"`
	IncompleteCount int                         `json:"incompleteCount"`
	DuplicateCount  int                         `json:"duplicateCount"`
}
