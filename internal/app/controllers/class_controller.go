package controllers

import (
	"net/http"

	"github.com/campusops/erp/internal/app/auth"
	"github.com/campusops/erp/internal/app/models"
	"github.com/campusops/erp/internal/app/models/dto"
	"github.com/campusops/erp/internal/app/services"
	"github.com/campusops/erp/internal/middleware"
	"github.com/campusops/erp/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
)

// ClassController handles classes, rosters and class chat rooms
type ClassController struct {
	classService *services.ClassService
}

// NewClassController creates a new ClassController
func NewClassController(classService *services.ClassService) *ClassController {
	return &ClassController{classService: classService}
}

// CreateClass creates a class and enrolls the matching section
// @Summary Create a class
// @Description Creates a class for a cohort section and course. The roster is a snapshot of the section at creation time and a chat room is opened for it.
// @Tags classes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateClassRequest true "Class details"
// @Success 201 {object} dto.APIResponse{data=models.Class}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse "Course or teacher not found"
// @Failure 409 {object} dto.ErrorResponse "Class already exists"
// @Router /classes [post]
func (c *ClassController) CreateClass(ctx *gin.Context) {
	var req dto.CreateClassRequest
	if !bindJSON(ctx, &req) {
		return
	}

	class, err := c.classService.CreateClass(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(class, "Class created"))
}

// ListClasses lists classes. Teachers see their own; admins may filter by teacherId.
// @Summary List classes
// @Tags classes
// @Produce json
// @Security BearerAuth
// @Param teacherId query string false "Teacher profile ID (admins only)"
// @Success 200 {object} dto.APIResponse{data=[]models.Class}
// @Router /classes [get]
func (c *ClassController) ListClasses(ctx *gin.Context) {
	principal, ok := currentPrincipal(ctx)
	if !ok {
		return
	}
	teacherID := ctx.Query("teacherId")
	if principal.Role == models.RoleTeacher {
		teacherID = principal.RoleDocID
	}

	classes, err := c.classService.ListClasses(ctx.Request.Context(), teacherID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(classes, ""))
}

// loadVisibleClass fetches a class the caller may see: admins, its teacher and its students
func (c *ClassController) loadVisibleClass(ctx *gin.Context, principal *auth.Principal) (*models.Class, bool) {
	class, err := c.classService.GetClass(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return nil, false
	}
	if principal.Role == models.RoleStudent {
		if !class.HasStudent(principal.UID) {
			middleware.HandleAPIError(ctx, apperrors.NewForbiddenError("you are not a member of this class"))
			return nil, false
		}
		return class, true
	}
	if err := principal.CanManageClass(class); err != nil {
		middleware.HandleAPIError(ctx, err)
		return nil, false
	}
	return class, true
}

// GetClass returns one class with its roster
// @Summary Get a class
// @Tags classes
// @Produce json
// @Security BearerAuth
// @Param id path string true "Class ID"
// @Success 200 {object} dto.APIResponse{data=models.Class}
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /classes/{id} [get]
func (c *ClassController) GetClass(ctx *gin.Context) {
	principal, ok := currentPrincipal(ctx)
	if !ok {
		return
	}
	class, ok := c.loadVisibleClass(ctx, principal)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(class, ""))
}

// GetChatRoom returns the chat room of a class
// @Summary Get a class chat room
// @Tags classes
// @Produce json
// @Security BearerAuth
// @Param id path string true "Class ID"
// @Success 200 {object} dto.APIResponse{data=models.ChatRoom}
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /classes/{id}/chat [get]
func (c *ClassController) GetChatRoom(ctx *gin.Context) {
	principal, ok := currentPrincipal(ctx)
	if !ok {
		return
	}
	class, ok := c.loadVisibleClass(ctx, principal)
	if !ok {
		return
	}

	room, err := c.classService.GetChatRoom(ctx.Request.Context(), class.ID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(room, ""))
}

// TransferStudent moves a student between class rosters
// @Summary Transfer a student
// @Tags classes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.TransferStudentRequest true "Source and target class"
// @Success 200 {object} dto.APIResponse
// @Failure 400 {object} dto.ErrorResponse "Student is not in the source class"
// @Failure 409 {object} dto.ErrorResponse "Student is already in the target class"
// @Router /classes/transfers [post]
func (c *ClassController) TransferStudent(ctx *gin.Context) {
	var req dto.TransferStudentRequest
	if !bindJSON(ctx, &req) {
		return
	}

	if err := c.classService.TransferStudent(ctx.Request.Context(), &req); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Student transferred"))
}
