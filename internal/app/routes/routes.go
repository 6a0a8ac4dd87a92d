package routes

import (
	"github.com/campusops/erp/internal/app/controllers"
	"github.com/campusops/erp/internal/app/models"
	"github.com/campusops/erp/internal/middleware"
	"github.com/campusops/erp/internal/pkg/websocket"
	"github.com/gin-gonic/gin"
)

// Handlers groups the controllers mounted under /api/v1
type Handlers struct {
	Auth          *controllers.AuthController
	Accounts      *controllers.AccountController
	Hostels       *controllers.HostelController
	Classes       *controllers.ClassController
	Courses       *controllers.CourseController
	Attendance    *controllers.AttendanceController
	Fees          *controllers.FeeController
	Exams         *controllers.ExamController
	Notifications *controllers.NotificationController
	WebSocket     *websocket.Handler
}

// SetupRouter configures all application routes
func SetupRouter(router *gin.Engine, h Handlers, authMiddleware *middleware.AuthMiddleware) {
	v1 := router.Group("/api/v1")

	admin := authMiddleware.RoleRequired(models.RoleAdmin)
	staff := authMiddleware.RoleRequired(models.RoleAdmin, models.RoleTeacher)

	// --- Public routes ---
	auth := v1.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.RefreshToken)
		auth.POST("/forgot-password", h.Auth.ForgotPassword)
		auth.POST("/reset-password", h.Auth.ResetPassword)
	}
	// Called by the payment gateway; authenticated by the notification signature
	v1.POST("/payments/notifications", h.Fees.PaymentNotification)

	// --- Authenticated routes ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.Authenticate())

	me := authenticated.Group("/auth/me")
	{
		me.GET("", h.Auth.GetProfile)
		me.PUT("", h.Auth.UpdateProfile)
		me.GET("/logins", h.Auth.LoginActivity)
	}

	accounts := authenticated.Group("/accounts", admin)
	{
		accounts.POST("/students", h.Accounts.CreateStudent)
		accounts.POST("/staff", h.Accounts.CreateStaff)
		accounts.DELETE("/:uid", h.Accounts.DeleteAccount)
	}

	students := authenticated.Group("/students")
	{
		students.GET("", staff, h.Accounts.ListStudents)

		// Students may only read their own records; the controllers check ownership
		students.GET("/:id", h.Accounts.GetStudent)
		students.GET("/:id/attendance", h.Attendance.StudentAttendance)
		students.GET("/:id/fees", h.Fees.GetLedger)
		students.POST("/:id/fees/checkout", h.Fees.Checkout)
		students.POST("/:id/fees/payments", admin, h.Fees.RecordPayment)
		students.GET("/:id/hall-tickets/:semester", h.Exams.GetHallTicket)
		students.GET("/:id/hall-tickets/:semester/qr", h.Exams.HallTicketQR)
	}

	hostels := authenticated.Group("/hostels")
	{
		hostels.GET("", staff, h.Hostels.ListHostels)
		hostels.GET("/:id", staff, h.Hostels.GetHostel)
		hostels.POST("", admin, h.Hostels.CreateHostel)
		hostels.POST("/:id/allocations", admin, h.Hostels.AllocateRoom)
		hostels.POST("/:id/deallocations", admin, h.Hostels.DeallocateRoom)
	}

	classes := authenticated.Group("/classes")
	{
		classes.GET("", staff, h.Classes.ListClasses)
		classes.POST("", admin, h.Classes.CreateClass)
		classes.POST("/transfers", admin, h.Classes.TransferStudent)
		classes.GET("/:id", h.Classes.GetClass)
		classes.GET("/:id/chat", h.Classes.GetChatRoom)
	}

	courses := authenticated.Group("/courses")
	{
		courses.GET("", h.Courses.ListCourses)
		courses.GET("/:code", h.Courses.GetCourse)
		courses.POST("", admin, h.Courses.CreateCourse)
		courses.GET("/:code/materials", h.Courses.ListMaterials)
		courses.POST("/:code/materials", staff, h.Courses.UploadMaterial)
	}
	authenticated.DELETE("/materials/:id", staff, h.Courses.DeleteMaterial)

	attendance := authenticated.Group("/attendance")
	{
		attendance.POST("", staff, h.Attendance.MarkAttendance)
		attendance.GET("/summary", admin, h.Attendance.AttendanceSummary)
	}

	exams := authenticated.Group("/exams")
	{
		exams.GET("", h.Exams.ListExams)
		exams.POST("", admin, h.Exams.ScheduleExam)
		exams.POST("/hall-tickets", admin, h.Exams.PublishHallTickets)
	}

	notifications := authenticated.Group("/notifications")
	{
		notifications.GET("", h.Notifications.ListNotifications)
		notifications.PUT("/:id/read", h.Notifications.MarkRead)
		notifications.GET("/ws", h.WebSocket.HandleConnection)
	}
}
