package middleware

import (
	"errors"
	"net/http"

	"github.com/campusops/erp/internal/app/models/dto"
	"github.com/campusops/erp/internal/pkg/apperrors"
	"github.com/campusops/erp/internal/pkg/logger"
	"github.com/campusops/erp/internal/pkg/validation"
	"github.com/gin-gonic/gin"
)

// errorMapping ties a sentinel error to its HTTP status and error code.
// The first match wins, so specific sentinels come before their general ones.
type errorMapping struct {
	target error
	status int
	code   dto.ErrorCode
}

var errorMappings = []errorMapping{
	// Authentication
	{apperrors.ErrInvalidCredentials, http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials},
	{apperrors.ErrAccountDisabled, http.StatusUnauthorized, dto.ErrorCodeAccountDisabled},
	{apperrors.ErrTokenExpired, http.StatusUnauthorized, dto.ErrorCodeExpiredToken},
	{apperrors.ErrTokenRevoked, http.StatusUnauthorized, dto.ErrorCodeTokenRevoked},
	{apperrors.ErrTokenNotFound, http.StatusUnauthorized, dto.ErrorCodeTokenNotFound},
	{apperrors.ErrTokenInvalid, http.StatusUnauthorized, dto.ErrorCodeInvalidToken},
	{apperrors.ErrInvalidPasswordResetToken, http.StatusBadRequest, dto.ErrorCodeInvalidToken},
	{apperrors.ErrPasswordResetTokenUsed, http.StatusBadRequest, dto.ErrorCodeInvalidToken},
	{apperrors.ErrPermissionDenied, http.StatusForbidden, dto.ErrorCodeForbidden},

	// Workflow rules
	{apperrors.ErrRoomFull, http.StatusConflict, dto.ErrorCodeRoomFull},
	{apperrors.ErrAlreadyAllocated, http.StatusConflict, dto.ErrorCodeAlreadyAllocated},
	{apperrors.ErrNotEligible, http.StatusForbidden, dto.ErrorCodeNotEligible},
	{apperrors.ErrPaymentsDisabled, http.StatusServiceUnavailable, dto.ErrorCodePaymentsDisabled},
	{apperrors.ErrProvisioningFailed, http.StatusInternalServerError, dto.ErrorCodeProvisioningFailed},

	// Conflicts
	{apperrors.ErrAlreadyRegistered, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists},
	{apperrors.ErrEmailAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists},
	{apperrors.ErrClassAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists},
	{apperrors.ErrCourseAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists},
	{apperrors.ErrDuplicateRoomNumber, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists},
	{apperrors.ErrDuplicatePayment, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists},
	{apperrors.ErrResourceAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists},
	{apperrors.ErrConflict, http.StatusConflict, dto.ErrorCodeConflict},

	// Not found
	{apperrors.ErrUserNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},
	{apperrors.ErrStudentNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},
	{apperrors.ErrTeacherNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},
	{apperrors.ErrAdminNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},
	{apperrors.ErrHostelNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},
	{apperrors.ErrRoomNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},
	{apperrors.ErrClassNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},
	{apperrors.ErrCourseNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},
	{apperrors.ErrMaterialNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},
	{apperrors.ErrFeeLedgerNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},
	{apperrors.ErrExamNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},
	{apperrors.ErrHallTicketNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},
	{apperrors.ErrNotificationNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},
	{apperrors.ErrSagaNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},
	{apperrors.ErrResourceNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},

	// Bad input
	{apperrors.ErrNotAllocated, http.StatusBadRequest, dto.ErrorCodeResourceInvalid},
	{apperrors.ErrNotInClass, http.StatusBadRequest, dto.ErrorCodeResourceInvalid},
	{apperrors.ErrNoExamsScheduled, http.StatusBadRequest, dto.ErrorCodeResourceInvalid},
	{apperrors.ErrInvalidNotification, http.StatusBadRequest, dto.ErrorCodeResourceInvalid},
	{apperrors.ErrInvalidAmount, http.StatusBadRequest, dto.ErrorCodeValidationFailed},
	{apperrors.ErrValidationFailed, http.StatusBadRequest, dto.ErrorCodeValidationFailed},
	{apperrors.ErrBadRequest, http.StatusBadRequest, dto.ErrorCodeResourceInvalid},

	// Dependencies
	{apperrors.ErrUnavailable, http.StatusServiceUnavailable, dto.ErrorCodeExternalServiceError},
	{apperrors.ErrAttendanceScanFailed, http.StatusInternalServerError, dto.ErrorCodeDatabaseError},
}

// HandleAPIError writes the standard error response for err
func HandleAPIError(c *gin.Context, err error) {
	status, errorDetail := ErrorDetailFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Msg("request failed")
	}
	c.JSON(status, dto.NewErrorResponse(errorDetail))
}

// ErrorDetailFor resolves the status and error body for err
func ErrorDetailFor(err error) (int, *dto.ErrorDetail) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Validation failed").WithDetails(verr.Fields)
		if len(verr.Fields) == 1 {
			errorDetail.WithField(verr.Fields[0].Field)
		}
		return http.StatusBadRequest, errorDetail
	}

	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		message := err.Error()
		if m.status >= http.StatusInternalServerError {
			message = m.target.Error()
		}
		errorDetail := dto.NewErrorDetail(m.code, message)
		var custom *apperrors.CustomError
		if errors.As(err, &custom) {
			if custom.StatusMsg != "" {
				errorDetail.Message = custom.StatusMsg
			}
			if custom.Details != nil {
				errorDetail.WithDetails(custom.Details)
			}
		}
		return m.status, errorDetail
	}

	return http.StatusInternalServerError, dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error")
}

// BindError converts a gin binding failure into an API error. Validation errors
// already carry field details; anything else is a malformed body.
func BindError(err error) error {
	var verr *validation.Error
	if errors.As(err, &verr) {
		return err
	}
	return apperrors.NewCustomError(apperrors.ErrValidationFailed, "Invalid request format").
		WithDetails(map[string]interface{}{"reason": err.Error()})
}
