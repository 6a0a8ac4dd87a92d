package models

import (
	"time"
)

// User is the cross-role identity record. UID is shared with the authentication provider.
type User struct {
	UID       string   `json:"uid" db:"uid" example:"2f6c3d0e-9f1b-4f0a-8d57-3b1f0a6f2c11"`
	Name      string   `json:"name" db:"name" example:"Anita Sharma"`
	Email     string   `json:"email" db:"email" example:"anita@college.edu"`
	Role      RoleType `json:"role" db:"role" example:"student"`
	RoleDocID string   `json:"roleDocId" db:"role_doc_id"`             // ID of the student/teacher/admin profile
	CollegeID string   `json:"collegeId,omitempty" db:"college_id"`    // Students only
	StaffID   string   `json:"staffId,omitempty" db:"staff_id"`        // Teachers and admins only
	Initials  string   `json:"initials" db:"initials" example:"AS"`
	AvatarURL string   `json:"avatarUrl,omitempty" db:"avatar_url"`
	Timestamps
}

// LoginID returns the human-readable ID the user signs documents with
func (u *User) LoginID() string {
	if u.Role == RoleStudent {
		return u.CollegeID
	}
	return u.StaffID
}

// RoleProfile is implemented by every role-specific profile
type RoleProfile interface {
	ProfileRole() RoleType
	ProfileID() string
	OwnerUID() string
}

// Claims returns the custom claims attached to the authentication identity
func Claims(u *User) map[string]interface{} {
	claims := map[string]interface{}{
		"role":      string(u.Role),
		"roleDocId": u.RoleDocID,
		"userDocId": u.UID,
	}
	if u.CollegeID != "" {
		claims["collegeId"] = u.CollegeID
	}
	if u.StaffID != "" {
		claims["staffId"] = u.StaffID
	}
	return claims
}

// LoginActivity is a single successful sign-in
type LoginActivity struct {
	ID        string    `json:"id" db:"id"`
	UserUID   string    `json:"userUid" db:"user_uid"`
	IP        string    `json:"ip" db:"ip"`
	UserAgent string    `json:"userAgent" db:"user_agent"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
