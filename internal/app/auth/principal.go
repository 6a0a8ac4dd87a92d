// Package auth holds the authenticated caller of a request and the role checks
// built on it.
package auth

import (
	"errors"

	"github.com/campusops/erp/internal/app/models"
	"github.com/campusops/erp/internal/pkg/apperrors"
	"github.com/campusops/erp/internal/pkg/identity"
	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

// ErrNoRole is returned for tokens of accounts whose role claims were never set,
// e.g. a provisioning that did not complete
var ErrNoRole = errors.New("account has no role assigned")

// Principal is the caller of a request, built from verified token claims
type Principal struct {
	UID       string
	Email     string
	Role      models.RoleType
	RoleDocID string
	LoginID   string
}

// PrincipalFromToken reads the role claims set during provisioning
func PrincipalFromToken(tok *identity.Token) (*Principal, error) {
	role := models.RoleType(tok.ClaimString("role"))
	if !role.Valid() {
		return nil, ErrNoRole
	}
	loginID := tok.ClaimString("collegeId")
	if loginID == "" {
		loginID = tok.ClaimString("staffId")
	}
	return &Principal{
		UID:       tok.UID,
		Email:     tok.Email,
		Role:      role,
		RoleDocID: tok.ClaimString("roleDocId"),
		LoginID:   loginID,
	}, nil
}

// SetPrincipal stores p on the request context
func SetPrincipal(c *gin.Context, p *Principal) {
	c.Set(principalKey, p)
}

// PrincipalFrom returns the caller stored by the auth middleware
func PrincipalFrom(c *gin.Context) (*Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*Principal)
	return p, ok && p != nil
}

// HasRole reports whether the caller has one of roles
func (p *Principal) HasRole(roles ...models.RoleType) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// CanAccessStudent allows staff to read any student and students only themselves
func (p *Principal) CanAccessStudent(studentID string) error {
	if p.Role.IsStaff() {
		return nil
	}
	if p.Role == models.RoleStudent && p.RoleDocID == studentID {
		return nil
	}
	return apperrors.NewForbiddenError("you can only access your own records")
}

// CanManageClass allows admins and the teacher assigned to the class
func (p *Principal) CanManageClass(class *models.Class) error {
	if p.Role == models.RoleAdmin {
		return nil
	}
	if p.Role == models.RoleTeacher && class.TeacherID == p.RoleDocID {
		return nil
	}
	return apperrors.NewForbiddenError("only the class teacher or an admin can manage this class")
}
