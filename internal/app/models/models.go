package models

import "time"

// RoleType defines the user role type
type RoleType string

const (
	RoleStudent RoleType = "student"
	RoleTeacher RoleType = "teacher"
	RoleAdmin   RoleType = "admin"
)

// Valid reports whether r is one of the known roles
func (r RoleType) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether r is a teacher or admin role
func (r RoleType) IsStaff() bool {
	return r == RoleTeacher || r == RoleAdmin
}

// Counter is a per-prefix monotonic sequence row
type Counter struct {
	Key     string `json:"key" db:"key"`
	Current int64  `json:"current" db:"current"`
}

// DateLayout is the wire and storage format for calendar dates
const DateLayout = "2006-01-02"

// Timestamps is embedded by records that track creation and update times
type Timestamps struct {
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
