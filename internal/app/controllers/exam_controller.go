package controllers

import (
	"net/http"

	"github.com/campusops/erp/internal/app/models"
	"github.com/campusops/erp/internal/app/models/dto"
	"github.com/campusops/erp/internal/app/services"
	"github.com/campusops/erp/internal/middleware"
	"github.com/gin-gonic/gin"
)

// ExamController handles exam schedules and hall tickets
type ExamController struct {
	examService *services.ExamService
}

// NewExamController creates a new ExamController
func NewExamController(examService *services.ExamService) *ExamController {
	return &ExamController{examService: examService}
}

// ScheduleExam schedules one paper
// @Summary Schedule an exam
// @Tags exams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ScheduleExamRequest true "Exam"
// @Success 201 {object} dto.APIResponse{data=models.Exam}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse "Course not found"
// @Router /exams [post]
func (c *ExamController) ScheduleExam(ctx *gin.Context) {
	var req dto.ScheduleExamRequest
	if !bindJSON(ctx, &req) {
		return
	}

	exam, err := c.examService.ScheduleExam(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(exam, "Exam scheduled"))
}

// ListExams lists exams in date order
// @Summary List exams
// @Tags exams
// @Produce json
// @Security BearerAuth
// @Param program query string false "Program"
// @Param branch query string false "Branch"
// @Param year query int false "Year"
// @Param semester query int false "Semester"
// @Success 200 {object} dto.APIResponse{data=[]models.Exam}
// @Router /exams [get]
func (c *ExamController) ListExams(ctx *gin.Context) {
	exams, err := c.examService.ListExams(ctx.Request.Context(), models.ExamFilter{
		Program:  ctx.Query("program"),
		Branch:   ctx.Query("branch"),
		Year:     queryInt(ctx, "year", 0),
		Semester: queryInt(ctx, "semester", 0),
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(exams, ""))
}

// PublishHallTickets issues hall tickets to a cohort
// @Summary Publish hall tickets
// @Tags exams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.PublishHallTicketsRequest true "Cohort and eligibility rules"
// @Success 200 {object} dto.APIResponse{data=dto.PublishHallTicketsResponse}
// @Failure 400 {object} dto.ErrorResponse "No exams scheduled"
// @Router /exams/hall-tickets [post]
func (c *ExamController) PublishHallTickets(ctx *gin.Context) {
	var req dto.PublishHallTicketsRequest
	if !bindJSON(ctx, &req) {
		return
	}

	out, err := c.examService.PublishHallTickets(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(out, "Hall tickets published"))
}

// GetHallTicket returns a hall ticket and the live eligibility
// @Summary Get a hall ticket
// @Tags exams
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student profile ID"
// @Param semester path int true "Semester"
// @Success 200 {object} dto.APIResponse{data=dto.HallTicketResponse}
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /students/{id}/hall-tickets/{semester} [get]
func (c *ExamController) GetHallTicket(ctx *gin.Context) {
	principal, ok := currentPrincipal(ctx)
	if !ok {
		return
	}
	id := ctx.Param("id")
	if err := principal.CanAccessStudent(id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	semester, ok := semesterParam(ctx)
	if !ok {
		return
	}

	resp, err := c.examService.GetHallTicket(ctx.Request.Context(), id, semester)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp, ""))
}

// HallTicketQR renders the QR code printed on an eligible hall ticket
// @Summary Hall ticket QR code
// @Tags exams
// @Produce png
// @Security BearerAuth
// @Param id path string true "Student profile ID"
// @Param semester path int true "Semester"
// @Success 200 {file} binary
// @Failure 403 {object} dto.ErrorResponse "Not eligible"
// @Failure 404 {object} dto.ErrorResponse
// @Router /students/{id}/hall-tickets/{semester}/qr [get]
func (c *ExamController) HallTicketQR(ctx *gin.Context) {
	principal, ok := currentPrincipal(ctx)
	if !ok {
		return
	}
	id := ctx.Param("id")
	if err := principal.CanAccessStudent(id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	semester, ok := semesterParam(ctx)
	if !ok {
		return
	}

	png, err := c.examService.HallTicketQR(ctx.Request.Context(), id, semester)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Data(http.StatusOK, "image/png", png)
}
