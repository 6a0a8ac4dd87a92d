package controllers

import (
	"net/http"

	"github.com/campusops/erp/internal/app/models/dto"
	"github.com/campusops/erp/internal/app/services"
	"github.com/campusops/erp/internal/middleware"
	"github.com/gin-gonic/gin"
)

// AttendanceController handles attendance marking and reports
type AttendanceController struct {
	attendanceService *services.AttendanceService
}

// NewAttendanceController creates a new AttendanceController
func NewAttendanceController(attendanceService *services.AttendanceService) *AttendanceController {
	return &AttendanceController{attendanceService: attendanceService}
}

// MarkAttendance records one class session
// @Summary Mark attendance
// @Description Appends one record per student for a course, date and period. Resubmitting a session is reported as duplicates, not double counted.
// @Tags attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.MarkAttendanceRequest true "Session and marks"
// @Success 201 {object} dto.APIResponse{data=dto.MarkAttendanceResponse}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse "Course or student not found"
// @Router /attendance [post]
func (c *AttendanceController) MarkAttendance(ctx *gin.Context) {
	principal, ok := currentPrincipal(ctx)
	if !ok {
		return
	}
	var req dto.MarkAttendanceRequest
	if !bindJSON(ctx, &req) {
		return
	}

	n, err := c.attendanceService.MarkAttendance(ctx.Request.Context(), principal.UID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(&dto.MarkAttendanceResponse{Recorded: n}, "Attendance recorded"))
}

// AttendanceSummary aggregates attendance by program, branch and year
// @Summary Attendance summary
// @Tags attendance
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=models.AttendanceReport}
// @Failure 403 {object} dto.ErrorResponse
// @Router /attendance/summary [get]
func (c *AttendanceController) AttendanceSummary(ctx *gin.Context) {
	report, err := c.attendanceService.AttendanceSummary(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(report, ""))
}

// StudentAttendance returns one student's attendance per course
// @Summary Student attendance
// @Tags attendance
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student profile ID"
// @Success 200 {object} dto.APIResponse{data=models.StudentAttendance}
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /students/{id}/attendance [get]
func (c *AttendanceController) StudentAttendance(ctx *gin.Context) {
	principal, ok := currentPrincipal(ctx)
	if !ok {
		return
	}
	id := ctx.Param("id")
	if err := principal.CanAccessStudent(id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	summary, err := c.attendanceService.StudentAttendance(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(summary, ""))
}
