package dto

import "github.com/campusops/erp/internal/app/models"

// CreateHostelRequest creates a hostel with its rooms
type CreateHostelRequest struct {
	Name  string              `json:"name" binding:"required,min=2,max=100" example:"Ganga Boys Hostel"`
	Type  string              `json:"type" binding:"required,oneof=boys girls mixed" example:"boys"`
	Rooms []CreateRoomRequest `json:"rooms" binding:"required,min=1,dive"`
}

// CreateRoomRequest is one room of a new hostel
type CreateRoomRequest struct {
	Number   string `json:"number" binding:"required,max=20" example:"G-101"`
	Capacity int    `json:"capacity" binding:"required,min=1,max=20" example:"2"`
}

// RoomAllocationRequest names a room and a student
type RoomAllocationRequest struct {
	RoomNumber string `json:"roomNumber" binding:"required" example:"G-101"`
	StudentID  string `json:"studentId" binding:"required"`
}

// CreateClassRequest creates a class for a cohort section and course
type CreateClassRequest struct {
	Program   string `json:"program" binding:"required" example:"B.Tech"`
	Branch    string `json:"branch" binding:"required" example:"Computer Science"`
	Section   string `json:"section" binding:"required,max=5" example:"A"`
	Year      int    `json:"year" binding:"required,min=1,max=6" example:"2"`
	Semester  int    `json:"semester" binding:"required,min=1,max=12" example:"3"`
	CourseID  string `json:"courseId" binding:"required"`
	TeacherID string `json:"teacherId" binding:"required"`
}

// TransferStudentRequest moves a student between classes
type TransferStudentRequest struct {
	StudentUID  string `json:"studentUid" binding:"required"`
	FromClassID string `json:"fromClassId" binding:"required"`
	ToClassID   string `json:"toClassId" binding:"required,nefield=FromClassID"`
}

// CreateCourseRequest creates a course
type CreateCourseRequest struct {
	Code     string `json:"code" binding:"required,alphanum,min=2,max=12" example:"CS201"`
	Name     string `json:"name" binding:"required,min=2,max=150" example:"Data Structures"`
	Program  string `json:"program" binding:"required" example:"B.Tech"`
	Branch   string `json:"branch" binding:"required" example:"Computer Science"`
	Semester int    `json:"semester" binding:"required,min=1,max=12" example:"3"`
	Credits  int    `json:"credits" binding:"required,min=1,max=10" example:"4"`
}

// MarkAttendanceRequest records one class session
type MarkAttendanceRequest struct {
	CourseCode string                   `json:"courseCode" binding:"required" example:"CS201"`
	Date       string                   `json:"date" binding:"required,isodate" example:"2025-03-10"`
	Period     int                      `json:"period" binding:"required,min=1,max=12" example:"2"`
	Entries    []AttendanceEntryRequest `json:"entries" binding:"required,min=1,dive"`
}

// AttendanceEntryRequest is one student's mark for a session
type AttendanceEntryRequest struct {
	StudentID string                  `json:"studentId" binding:"required"`
	Status    models.AttendanceStatus `json:"status" binding:"required,oneof=Present Absent" example:"Present"`
}

// MarkAttendanceResponse reports how many records were appended
type MarkAttendanceResponse struct {
	Recorded int `json:"recorded"`
}

// RecordPaymentRequest records an offline payment
type RecordPaymentRequest struct {
	Amount    int64  `json:"amount" binding:"required,gt=0" example:"50000"`
	Method    string `json:"method" binding:"required,oneof=cash cheque bank_transfer card online" example:"cash"`
	Reference string `json:"reference" binding:"omitempty,max=100" example:"RCPT-2025-0042"`
}

// FeeLedgerResponse carries the derived balance and status
type FeeLedgerResponse struct {
	*models.FeeLedger
	Balance int64            `json:"balance"`
	Status  models.FeeStatus `json:"status"`
}

// ScheduleExamRequest schedules one paper
type ScheduleExamRequest struct {
	CourseCode string `json:"courseCode" binding:"required" example:"CS201"`
	Program    string `json:"program" binding:"required" example:"B.Tech"`
	Branch     string `json:"branch" binding:"required" example:"Computer Science"`
	Year       int    `json:"year" binding:"required,min=1,max=6" example:"2"`
	Semester   int    `json:"semester" binding:"required,min=1,max=12" example:"3"`
	Date       string `json:"date" binding:"required,isodate" example:"2025-05-12"`
	StartTime  string `json:"startTime" binding:"required,clock" example:"09:30"`
	EndTime    string `json:"endTime" binding:"required,clock" example:"12:30"`
	Venue      string `json:"venue" binding:"required,max=100" example:"Main Hall"`
}

// PublishHallTicketsRequest issues tickets to a cohort
type PublishHallTicketsRequest struct {
	Program       string `json:"program" binding:"required" example:"B.Tech"`
	Branch        string `json:"branch" binding:"required" example:"Computer Science"`
	Year          int    `json:"year" binding:"required,min=1,max=6" example:"2"`
	Semester      int    `json:"semester" binding:"required,min=1,max=12" example:"3"`
	MinAttendance int    `json:"minAttendance" binding:"min=0,max=100" example:"75"`
	MaxDues       int64  `json:"maxDues" binding:"min=0" example:"0"`
}

// PublishHallTicketsResponse summarizes a publication run
type PublishHallTicketsResponse struct {
	Issued   int `json:"issued"`
	Eligible int `json:"eligible"`
	Exams    int `json:"exams"`
}

// HallTicketResponse is the stored snapshot plus the live eligibility
type HallTicketResponse struct {
	Ticket      *models.HallTicket  `json:"ticket"`
	Eligibility *models.Eligibility `json:"eligibility"`
}

// CheckoutResponse is the payment page for an outstanding balance
type CheckoutResponse struct {
	OrderID     string `json:"orderId"`
	Token       string `json:"token"`
	RedirectURL string `json:"redirectUrl"`
	Amount      int64  `json:"amount"`
}

// UploadMaterialRequest is the form part of a material upload
type UploadMaterialRequest struct {
	Title       string `form:"title" binding:"required,min=2,max=200"`
	Description string `form:"description" binding:"omitempty,max=1000"`
}
