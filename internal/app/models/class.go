package models

import "time"

// Class is a section of a cohort taking one course. StudentUIDs is a snapshot
// taken when the class is created.
type Class struct {
	ID          string   `json:"id" db:"id"`
	Program     string   `json:"program" db:"program"`
	Branch      string   `json:"branch" db:"branch"`
	Section     string   `json:"section" db:"section"`
	Year        int      `json:"year" db:"year"`
	Semester    int      `json:"semester" db:"semester"`
	CourseID    string   `json:"courseId" db:"course_id"`
	TeacherID   string   `json:"teacherId" db:"teacher_id"`
	StudentUIDs []string `json:"studentUids" db:"student_uids"`
	Timestamps
}

// HasStudent reports whether uid is on the roster
func (c *Class) HasStudent(uid string) bool {
	for _, s := range c.StudentUIDs {
		if s == uid {
			return true
		}
	}
	return false
}

// RemoveStudent drops uid from the roster
func (c *Class) RemoveStudent(uid string) {
	kept := c.StudentUIDs[:0]
	for _, s := range c.StudentUIDs {
		if s != uid {
			kept = append(kept, s)
		}
	}
	c.StudentUIDs = kept
}

// SameSlot reports whether two classes target the same cohort, section and course
func (c *Class) SameSlot(other *Class) bool {
	return c.Program == other.Program &&
		c.Branch == other.Branch &&
		c.Section == other.Section &&
		c.Year == other.Year &&
		c.Semester == other.Semester &&
		c.CourseID == other.CourseID
}

// ChatRoom is the group chat created alongside a class
type ChatRoom struct {
	ID         string    `json:"id" db:"id"`
	ClassID    string    `json:"classId" db:"class_id"`
	Name       string    `json:"name" db:"name"`
	MemberUIDs []string  `json:"memberUids" db:"member_uids"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}
