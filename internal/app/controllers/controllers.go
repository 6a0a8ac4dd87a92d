package controllers

import (
	"net/http"
	"strconv"

	"github.com/campusops/erp/internal/app/auth"
	"github.com/campusops/erp/internal/app/models/dto"
	"github.com/campusops/erp/internal/middleware"
	"github.com/gin-gonic/gin"
)

// bindJSON binds the request body and writes the error response on failure
func bindJSON(ctx *gin.Context, obj interface{}) bool {
	if err := ctx.ShouldBindJSON(obj); err != nil {
		middleware.HandleAPIError(ctx, middleware.BindError(err))
		return false
	}
	return true
}

// currentPrincipal returns the authenticated caller
func currentPrincipal(ctx *gin.Context) (*auth.Principal, bool) {
	principal, ok := auth.PrincipalFrom(ctx)
	if !ok {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
		ctx.JSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
		return nil, false
	}
	return principal, true
}

// queryInt reads an integer query parameter, falling back to def when absent or malformed
func queryInt(ctx *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(ctx.Query(name))
	if err != nil {
		return def
	}
	return v
}

// semesterParam parses the :semester path parameter
func semesterParam(ctx *gin.Context) (int, bool) {
	semester, err := strconv.Atoi(ctx.Param("semester"))
	if err != nil || semester < 1 {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid semester").
			WithField("semester").
			WithDetails("Semester must be a positive number")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return 0, false
	}
	return semester, true
}
