// Package services holds the business workflows of the ERP.
//
// Services validate their input before any I/O, run multi-record writes through a
// repositories.Transactor and hand secondary effects (notifications, email, chat
// rooms, login activity) to a notifier.Enqueuer. A secondary effect never fails
// the request that caused it.
package services

import (
	"time"

	"github.com/campusops/erp/internal/pkg/helpers"
	"github.com/campusops/erp/internal/pkg/validation"
	"github.com/campusops/erp/internal/pkg/websocket"
)

// Pusher delivers live events to the connections of a user
type Pusher interface {
	SendToUser(uid string, event websocket.Event) bool
}

// Clock returns the current time. Tests replace it to pin dates.
type Clock func() time.Time

func utcNow() time.Time {
	return time.Now().UTC()
}

// parseDate reads a YYYY-MM-DD value, reporting failures as a validation error on field
func parseDate(field, value string) (time.Time, error) {
	t, err := helpers.ParseDate(value)
	if err != nil {
		return time.Time{}, fieldError(field, field+" must be a date in YYYY-MM-DD format")
	}
	return t, nil
}

func fieldError(field, message string) error {
	return &validation.Error{Fields: []validation.FieldError{{Field: field, Message: message}}}
}
