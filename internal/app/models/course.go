package models

import "time"

// Course represents a subject offered to a program and branch
type Course struct {
	ID        string    `json:"id" db:"id"`
	Code      string    `json:"code" db:"code" example:"CS201"`
	Name      string    `json:"name" db:"name" example:"Data Structures"`
	Program   string    `json:"program" db:"program"`
	Branch    string    `json:"branch" db:"branch"`
	Semester  int       `json:"semester" db:"semester"`
	Credits   int       `json:"credits" db:"credits"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Material is a file uploaded by a teacher for a course
type Material struct {
	ID          string    `json:"id" db:"id"`
	CourseCode  string    `json:"courseCode" db:"course_code"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description,omitempty" db:"description"`
	FileURL     string    `json:"fileUrl" db:"file_url"`
	FilePath    string    `json:"-" db:"file_path"`
	FileName    string    `json:"fileName" db:"file_name"`
	FileSize    int64     `json:"fileSize" db:"file_size"`
	UploadedBy  string    `json:"uploadedBy" db:"uploaded_by"` // Teacher profile ID
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}
