package controllers

import (
	"errors"
	"net/http"

	"github.com/campusops/erp/internal/app/models"
	"github.com/campusops/erp/internal/app/models/dto"
	"github.com/campusops/erp/internal/app/services"
	"github.com/campusops/erp/internal/middleware"
	"github.com/gin-gonic/gin"
)

// CourseController handles courses and their study materials
type CourseController struct {
	courseService *services.CourseService
}

// NewCourseController creates a new CourseController
func NewCourseController(courseService *services.CourseService) *CourseController {
	return &CourseController{courseService: courseService}
}

// CreateCourse creates a course
// @Summary Create a course
// @Tags courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateCourseRequest true "Course details"
// @Success 201 {object} dto.APIResponse{data=models.Course}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Course code already exists"
// @Router /courses [post]
func (c *CourseController) CreateCourse(ctx *gin.Context) {
	var req dto.CreateCourseRequest
	if !bindJSON(ctx, &req) {
		return
	}

	course, err := c.courseService.CreateCourse(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(course, "Course created"))
}

// ListCourses lists courses, optionally filtered
// @Summary List courses
// @Tags courses
// @Produce json
// @Security BearerAuth
// @Param program query string false "Program"
// @Param branch query string false "Branch"
// @Param semester query int false "Semester"
// @Success 200 {object} dto.APIResponse{data=[]models.Course}
// @Router /courses [get]
func (c *CourseController) ListCourses(ctx *gin.Context) {
	courses, err := c.courseService.ListCourses(ctx.Request.Context(),
		ctx.Query("program"), ctx.Query("branch"), queryInt(ctx, "semester", 0))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(courses, ""))
}

// GetCourse returns one course by code
// @Summary Get a course
// @Tags courses
// @Produce json
// @Security BearerAuth
// @Param code path string true "Course code"
// @Success 200 {object} dto.APIResponse{data=models.Course}
// @Failure 404 {object} dto.ErrorResponse
// @Router /courses/{code} [get]
func (c *CourseController) GetCourse(ctx *gin.Context) {
	course, err := c.courseService.GetCourse(ctx.Request.Context(), ctx.Param("code"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(course, ""))
}

// UploadMaterial attaches a file to a course
// @Summary Upload study material
// @Tags courses
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param code path string true "Course code"
// @Param title formData string true "Title"
// @Param description formData string false "Description"
// @Param file formData file true "File to upload"
// @Success 201 {object} dto.APIResponse{data=models.Material}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse "Course not found"
// @Router /courses/{code}/materials [post]
func (c *CourseController) UploadMaterial(ctx *gin.Context) {
	principal, ok := currentPrincipal(ctx)
	if !ok {
		return
	}

	var req dto.UploadMaterialRequest
	if err := ctx.ShouldBind(&req); err != nil {
		middleware.HandleAPIError(ctx, middleware.BindError(err))
		return
	}
	file, err := ctx.FormFile("file")
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		middleware.HandleAPIError(ctx, middleware.BindError(err))
		return
	}

	material, err := c.courseService.UploadMaterial(ctx.Request.Context(), ctx.Param("code"), principal.UID, &req, file)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(material, "Material uploaded"))
}

// ListMaterials lists the materials of a course
// @Summary List study materials
// @Tags courses
// @Produce json
// @Security BearerAuth
// @Param code path string true "Course code"
// @Success 200 {object} dto.APIResponse{data=[]models.Material}
// @Router /courses/{code}/materials [get]
func (c *CourseController) ListMaterials(ctx *gin.Context) {
	materials, err := c.courseService.ListMaterials(ctx.Request.Context(), ctx.Param("code"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(materials, ""))
}

// DeleteMaterial removes a material. Teachers can only remove their own uploads.
// @Summary Delete study material
// @Tags courses
// @Produce json
// @Security BearerAuth
// @Param id path string true "Material ID"
// @Success 200 {object} dto.APIResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /materials/{id} [delete]
func (c *CourseController) DeleteMaterial(ctx *gin.Context) {
	principal, ok := currentPrincipal(ctx)
	if !ok {
		return
	}
	uploadedBy := principal.UID
	if principal.Role == models.RoleAdmin {
		uploadedBy = ""
	}

	if err := c.courseService.DeleteMaterial(ctx.Request.Context(), ctx.Param("id"), uploadedBy); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Material deleted"))
}
