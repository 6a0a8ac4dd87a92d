package apperrors

import "errors"

// Common errors
var (
	// Resource errors
	ErrResourceNotFound      = errors.New("resource not found")
	ErrResourceAlreadyExists = errors.New("resource already exists")
	ErrConflict              = errors.New("conflict")

	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenNotFound      = errors.New("token not found")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrAccountDisabled    = errors.New("account is disabled")

	// Authorization errors
	ErrPermissionDenied = errors.New("permission denied")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrBadRequest       = errors.New("bad request")

	// Infrastructure errors
	ErrUnavailable = errors.New("service unavailable")
)

// Account errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrAlreadyRegistered  = errors.New("email is already registered")
	ErrProvisioningFailed = errors.New("account provisioning failed")
	ErrSagaNotFound       = errors.New("provisioning saga not found")
)

// Student and staff errors
var (
	ErrStudentNotFound = errors.New("student not found")
	ErrTeacherNotFound = errors.New("teacher not found")
	ErrAdminNotFound   = errors.New("admin not found")
)

// Hostel errors
var (
	ErrHostelNotFound      = errors.New("hostel not found")
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomFull            = errors.New("room is full")
	ErrAlreadyAllocated    = errors.New("student already has a hostel allocation")
	ErrNotAllocated        = errors.New("student has no hostel allocation")
	ErrDuplicateRoomNumber = errors.New("duplicate room number")
)

// Class errors
var (
	ErrClassNotFound      = errors.New("class not found")
	ErrClassAlreadyExists = errors.New("a class for this cohort, section and subject already exists")
	ErrNotInClass         = errors.New("student is not a member of the class")
)

// Course and material errors
var (
	ErrCourseNotFound      = errors.New("course not found")
	ErrCourseAlreadyExists = errors.New("course with this code already exists")
	ErrMaterialNotFound    = errors.New("material not found")
)

// Attendance errors
var (
	ErrAttendanceScanFailed = errors.New("attendance scan failed")
)

// Fee errors
var (
	ErrFeeLedgerNotFound   = errors.New("fee ledger not found")
	ErrInvalidAmount       = errors.New("payment amount must be positive")
	ErrDuplicatePayment    = errors.New("payment reference already recorded")
	ErrPaymentsDisabled    = errors.New("online payments are not configured")
	ErrInvalidNotification = errors.New("invalid payment notification")
)

// Exam errors
var (
	ErrExamNotFound       = errors.New("exam not found")
	ErrHallTicketNotFound = errors.New("hall ticket not found")
	ErrNotEligible        = errors.New("student is not eligible for the examination")
	ErrNoExamsScheduled   = errors.New("no exams are scheduled for this cohort")
)

// Notification errors
var (
	ErrNotificationNotFound = errors.New("notification not found")
)

// Password reset errors
var (
	ErrInvalidPasswordResetToken = errors.New("invalid or expired password reset token")
	ErrPasswordResetTokenUsed    = errors.New("password reset token has already been used")
)

// NewResourceNotFoundError creates a new custom error for resource not found with a message
func NewResourceNotFoundError(message string) error {
	return &CustomError{
		Err:     ErrResourceNotFound,
		Message: message,
	}
}

// NewConflictError creates a new custom error for conflict situations with a message
func NewConflictError(message string) error {
	return &CustomError{
		Err:     ErrConflict,
		Message: message,
	}
}

// NewForbiddenError creates a new custom error for permission denied with a message
func NewForbiddenError(message string) error {
	return &CustomError{
		Err:     ErrPermissionDenied,
		Message: message,
	}
}

// NewBadRequestError creates a new custom error for bad request with a message
func NewBadRequestError(message string) error {
	return &CustomError{
		Err:     ErrBadRequest,
		Message: message,
	}
}

// Is reports whether err matches target or any of errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}

	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err       error
	Message   string
	StatusMsg string
	Code      string
	Details   map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// WithCode adds an error code
func (e *CustomError) WithCode(code string) *CustomError {
	e.Code = code
	return e
}

// WithStatusMsg adds a user-friendly status message
func (e *CustomError) WithStatusMsg(msg string) *CustomError {
	e.StatusMsg = msg
	return e
}
