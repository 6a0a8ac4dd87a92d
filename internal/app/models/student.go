package models

import "time"

// StudentProfile holds enrollment attributes of a student
type StudentProfile struct {
	ID          string            `json:"id" db:"id"`
	UserUID     string            `json:"userUid" db:"user_uid"`
	CollegeID   string            `json:"collegeId" db:"college_id" example:"BT24CS0001"`
	Name        string            `json:"name" db:"name"`
	Email       string            `json:"email" db:"email"`
	Phone       string            `json:"phone,omitempty" db:"phone"`
	Program     string            `json:"program" db:"program" example:"B.Tech"`
	Branch      string            `json:"branch" db:"branch" example:"Computer Science"`
	Section     string            `json:"section" db:"section" example:"A"`
	Year        int               `json:"year" db:"year" example:"1"`
	Semester    int               `json:"semester" db:"semester" example:"1"`
	DateOfBirth time.Time         `json:"dateOfBirth" db:"date_of_birth"`
	Hostel      *HostelAssignment `json:"hostel,omitempty"`
	Timestamps
}

// HostelAssignment is the denormalized copy of a student's room
type HostelAssignment struct {
	HostelID   string `json:"hostelId" db:"hostel_id"`
	RoomNumber string `json:"roomNumber" db:"room_number"`
	HostelType string `json:"hostelType" db:"hostel_type"`
}

func (s *StudentProfile) ProfileRole() RoleType { return RoleStudent }
func (s *StudentProfile) ProfileID() string     { return s.ID }
func (s *StudentProfile) OwnerUID() string      { return s.UserUID }

// StaffProfile holds attributes shared by teachers and admins. Role selects the table.
type StaffProfile struct {
	ID          string    `json:"id" db:"id"`
	UserUID     string    `json:"userUid" db:"user_uid"`
	Role        RoleType  `json:"role" db:"-"`
	StaffID     string    `json:"staffId" db:"staff_id" example:"TCH24CS0003"`
	Name        string    `json:"name" db:"name"`
	Email       string    `json:"email" db:"email"`
	Phone       string    `json:"phone,omitempty" db:"phone"`
	Department  string    `json:"department" db:"department"`
	Position    string    `json:"position" db:"position"`
	DateOfBirth time.Time `json:"dateOfBirth" db:"date_of_birth"`
	Timestamps
}

func (s *StaffProfile) ProfileRole() RoleType { return s.Role }
func (s *StaffProfile) ProfileID() string     { return s.ID }
func (s *StaffProfile) OwnerUID() string      { return s.UserUID }

// CohortFilter selects students by enrollment attributes. Zero values match anything.
type CohortFilter struct {
	Program  string
	Branch   string
	Year     int
	Section  string
	Semester int
	Limit    int
	Offset   int
}

// Matches reports whether the student belongs to the cohort
func (f CohortFilter) Matches(s *StudentProfile) bool {
	if f.Program != "" && f.Program != s.Program {
		return false
	}
	if f.Branch != "" && f.Branch != s.Branch {
		return false
	}
	if f.Year != 0 && f.Year != s.Year {
		return false
	}
	if f.Section != "" && f.Section != s.Section {
		return false
	}
	if f.Semester != 0 && f.Semester != s.Semester {
		return false
	}
	return true
}
