package dto

import "github.com/campusops/erp/internal/app/models"

// CreateStudentRequest registers a student account
type CreateStudentRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=100" example:"Anita Sharma"`
	Email       string `json:"email" binding:"required,email" example:"anita@college.edu"`
	Phone       string `json:"phone" binding:"omitempty,max=20"`
	DateOfBirth string `json:"dateOfBirth" binding:"required,isodate" example:"2006-08-14"`
	Program     string `json:"program" binding:"required" example:"B.Tech"`
	Branch      string `json:"branch" binding:"required" example:"Computer Science"`
	Section     string `json:"section" binding:"required,max=5" example:"A"`
	Year        int    `json:"year" binding:"required,min=1,max=6" example:"1"`
	Semester    int    `json:"semester" binding:"required,min=1,max=12" example:"1"`
	TotalFees   int64  `json:"totalFees" binding:"min=0" example:"150000"` // Smallest currency unit
	FeeDueDate  string `json:"feeDueDate" binding:"omitempty,isodate" example:"2025-08-31"`
}

// CreateStaffRequest registers a teacher or admin account
type CreateStaffRequest struct {
	Name        string          `json:"name" binding:"required,min=2,max=100" example:"Ravi Kumar"`
	Email       string          `json:"email" binding:"required,email" example:"ravi@college.edu"`
	Phone       string          `json:"phone" binding:"omitempty,max=20"`
	DateOfBirth string          `json:"dateOfBirth" binding:"required,isodate" example:"1985-02-01"`
	Role        models.RoleType `json:"role" binding:"required,oneof=teacher admin" example:"teacher"`
	Department  string          `json:"department" binding:"required" example:"Computer Science"`
	Position    string          `json:"position" binding:"omitempty,max=100" example:"Assistant Professor"`
}

// ProvisionResponse is returned once an account exists in both the identity
// provider and the database
type ProvisionResponse struct {
	UID       string          `json:"uid"`
	Role      models.RoleType `json:"role"`
	ProfileID string          `json:"profileId"`
	LoginID   string          `json:"loginId" example:"BT24CS0001"`
	Email     string          `json:"email"`
}

// StudentListResponse is a page of students
type StudentListResponse struct {
	Students   []*models.StudentProfile `json:"students"`
	Pagination PaginationInfo           `json:"pagination"`
}
