package models

import "time"

// Notification is an in-app message for one user
type Notification struct {
	ID        string    `json:"id" db:"id"`
	UserUID   string    `json:"userUid" db:"user_uid"`
	Title     string    `json:"title" db:"title"`
	Body      string    `json:"body" db:"body"`
	Read      bool      `json:"read" db:"read"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
