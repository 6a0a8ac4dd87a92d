package controllers

import (
	"net/http"

	"github.com/campusops/erp/internal/app/models"
	"github.com/campusops/erp/internal/app/models/dto"
	"github.com/campusops/erp/internal/app/services"
	"github.com/campusops/erp/internal/middleware"
	"github.com/campusops/erp/internal/pkg/helpers"
	"github.com/gin-gonic/gin"
)

// AccountController handles account provisioning and student records
type AccountController struct {
	accountService *services.AccountService
}

// NewAccountController creates a new AccountController
func NewAccountController(accountService *services.AccountService) *AccountController {
	return &AccountController{accountService: accountService}
}

// CreateStudent provisions a student account
// @Summary Register a student
// @Description Creates the login, the user record, the student profile and the fee ledger. A college ID is assigned and a welcome email is sent.
// @Tags accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateStudentRequest true "Student details"
// @Success 201 {object} dto.APIResponse{data=dto.ProvisionResponse} "Student registered successfully"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 403 {object} dto.ErrorResponse "Admins only"
// @Failure 409 {object} dto.ErrorResponse "Email already registered"
// @Failure 500 {object} dto.ErrorResponse "Provisioning failed and was rolled back"
// @Router /accounts/students [post]
func (c *AccountController) CreateStudent(ctx *gin.Context) {
	var req dto.CreateStudentRequest
	if !bindJSON(ctx, &req) {
		return
	}

	resp, err := c.accountService.ProvisionStudent(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(resp, "Student registered successfully"))
}

// CreateStaff provisions a teacher or admin account
// @Summary Register a teacher or admin
// @Tags accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateStaffRequest true "Staff details"
// @Success 201 {object} dto.APIResponse{data=dto.ProvisionResponse}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /accounts/staff [post]
func (c *AccountController) CreateStaff(ctx *gin.Context) {
	var req dto.CreateStaffRequest
	if !bindJSON(ctx, &req) {
		return
	}

	resp, err := c.accountService.ProvisionStaff(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(resp, "Staff registered successfully"))
}

// DeleteAccount removes an account and every record it owns
// @Summary Delete an account
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param uid path string true "User UID"
// @Success 200 {object} dto.APIResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /accounts/{uid} [delete]
func (c *AccountController) DeleteAccount(ctx *gin.Context) {
	if err := c.accountService.DeleteAccount(ctx.Request.Context(), ctx.Param("uid")); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Account deleted"))
}

// ListStudents returns a page of students, optionally filtered by cohort
// @Summary List students
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param program query string false "Program"
// @Param branch query string false "Branch"
// @Param year query int false "Year"
// @Param section query string false "Section"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 10, max: 100)"
// @Success 200 {object} dto.APIResponse{data=dto.StudentListResponse}
// @Failure 403 {object} dto.ErrorResponse
// @Router /students [get]
func (c *AccountController) ListStudents(ctx *gin.Context) {
	page, size := helpers.ParsePaginationParams(ctx)
	filter := models.CohortFilter{
		Program: ctx.Query("program"),
		Branch:  ctx.Query("branch"),
		Year:    queryInt(ctx, "year", 0),
		Section: ctx.Query("section"),
	}

	resp, err := c.accountService.ListStudents(ctx.Request.Context(), filter, page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp, ""))
}

// GetStudent returns one student profile. Students can only read their own.
// @Summary Get a student
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student profile ID"
// @Success 200 {object} dto.APIResponse{data=models.StudentProfile}
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /students/{id} [get]
func (c *AccountController) GetStudent(ctx *gin.Context) {
	principal, ok := currentPrincipal(ctx)
	if !ok {
		return
	}
	id := ctx.Param("id")
	if err := principal.CanAccessStudent(id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	student, err := c.accountService.GetStudent(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(student, ""))
}
