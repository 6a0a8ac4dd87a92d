package controllers

import (
	"net/http"

	"github.com/campusops/erp/internal/app/models/dto"
	"github.com/campusops/erp/internal/app/services"
	"github.com/campusops/erp/internal/middleware"
	"github.com/gin-gonic/gin"
)

// HostelController handles hostels and room allocation
type HostelController struct {
	hostelService *services.HostelService
}

// NewHostelController creates a new HostelController
func NewHostelController(hostelService *services.HostelService) *HostelController {
	return &HostelController{hostelService: hostelService}
}

// CreateHostel creates a hostel with its rooms
// @Summary Create a hostel
// @Tags hostels
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateHostelRequest true "Hostel and rooms"
// @Success 201 {object} dto.APIResponse{data=models.Hostel}
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 409 {object} dto.ErrorResponse "Duplicate room number"
// @Router /hostels [post]
func (c *HostelController) CreateHostel(ctx *gin.Context) {
	var req dto.CreateHostelRequest
	if !bindJSON(ctx, &req) {
		return
	}

	hostel, err := c.hostelService.CreateHostel(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(hostel, "Hostel created"))
}

// ListHostels returns every hostel with its occupancy
// @Summary List hostels
// @Tags hostels
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]models.Hostel}
// @Router /hostels [get]
func (c *HostelController) ListHostels(ctx *gin.Context) {
	hostels, err := c.hostelService.ListHostels(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(hostels, ""))
}

// GetHostel returns one hostel
// @Summary Get a hostel
// @Tags hostels
// @Produce json
// @Security BearerAuth
// @Param id path string true "Hostel ID"
// @Success 200 {object} dto.APIResponse{data=models.Hostel}
// @Failure 404 {object} dto.ErrorResponse
// @Router /hostels/{id} [get]
func (c *HostelController) GetHostel(ctx *gin.Context) {
	hostel, err := c.hostelService.GetHostel(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(hostel, ""))
}

// AllocateRoom places a student in a room
// @Summary Allocate a room
// @Tags hostels
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Hostel ID"
// @Param request body dto.RoomAllocationRequest true "Room and student"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.ErrorResponse "Hostel, room or student not found"
// @Failure 409 {object} dto.ErrorResponse "Room full or student already allocated"
// @Router /hostels/{id}/allocations [post]
func (c *HostelController) AllocateRoom(ctx *gin.Context) {
	var req dto.RoomAllocationRequest
	if !bindJSON(ctx, &req) {
		return
	}

	if err := c.hostelService.AllocateRoom(ctx.Request.Context(), ctx.Param("id"), req.RoomNumber, req.StudentID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Room allocated"))
}

// DeallocateRoom takes a student out of a room
// @Summary Deallocate a room
// @Tags hostels
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Hostel ID"
// @Param request body dto.RoomAllocationRequest true "Room and student"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /hostels/{id}/deallocations [post]
func (c *HostelController) DeallocateRoom(ctx *gin.Context) {
	var req dto.RoomAllocationRequest
	if !bindJSON(ctx, &req) {
		return
	}

	if err := c.hostelService.DeallocateRoom(ctx.Request.Context(), ctx.Param("id"), req.RoomNumber, req.StudentID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Room deallocated"))
}
