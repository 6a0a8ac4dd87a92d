package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/campusops/erp/internal/app/auth"
	"github.com/campusops/erp/internal/app/models"
	"github.com/campusops/erp/internal/app/models/dto"
	"github.com/campusops/erp/internal/pkg/apperrors"
	"github.com/campusops/erp/internal/pkg/identity"
	"github.com/campusops/erp/internal/pkg/validation"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubVerifier map[string]*identity.Token

func (s stubVerifier) VerifyIDToken(_ context.Context, token string) (*identity.Token, error) {
	switch token {
	case "expired":
		return nil, apperrors.ErrTokenExpired
	case "down":
		return nil, apperrors.ErrUnavailable
	}
	if tok, ok := s[token]; ok {
		return tok, nil
	}
	return nil, apperrors.ErrTokenInvalid
}

func newRouter() *gin.Engine {
	verifier := stubVerifier{
		"student-token": {UID: "u1", Email: "a@college.edu", Claims: map[string]interface{}{
			"role": "student", "roleDocId": "s1", "collegeId": "BT24CS0001",
		}},
		"admin-token": {UID: "u2", Email: "admin@college.edu", Claims: map[string]interface{}{
			"role": "admin", "roleDocId": "a1", "staffId": "ADM24AD0001",
		}},
		"no-role": {UID: "u3", Email: "x@college.edu"},
	}
	m := NewAuthMiddleware(verifier, zerolog.Nop())

	router := gin.New()
	router.Use(Recovery(zerolog.Nop()))
	router.GET("/me", m.Authenticate(), func(c *gin.Context) {
		p, _ := auth.PrincipalFrom(c)
		c.JSON(http.StatusOK, gin.H{"uid": p.UID, "loginId": p.LoginID, "role": p.Role})
	})
	router.GET("/admin", m.Authenticate(), m.RoleRequired(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	router.GET("/panic", func(c *gin.Context) { panic("boom") })
	return router
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) *dto.ErrorDetail {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.False(t, resp.Success)
	return resp.Error
}

func TestAuthenticate(t *testing.T) {
	router := newRouter()

	tests := []struct {
		name   string
		header string
		query  string
		status int
		code   dto.ErrorCode
	}{
		{name: "missing header", status: http.StatusUnauthorized, code: dto.ErrorCodeUnauthorized},
		{name: "bearer token", header: "Bearer student-token", status: http.StatusOK},
		{name: "raw token", header: "student-token", status: http.StatusOK},
		{name: "query token", query: "student-token", status: http.StatusOK},
		{name: "expired", header: "Bearer expired", status: http.StatusUnauthorized, code: dto.ErrorCodeExpiredToken},
		{name: "invalid", header: "Bearer nope", status: http.StatusUnauthorized, code: dto.ErrorCodeInvalidToken},
		{name: "no role claims", header: "Bearer no-role", status: http.StatusForbidden, code: dto.ErrorCodeForbidden},
		{name: "provider down", header: "Bearer down", status: http.StatusServiceUnavailable, code: dto.ErrorCodeExternalServiceError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/me"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			require.Equal(t, tt.status, w.Code)
			if tt.code != "" {
				assert.Equal(t, tt.code, decodeError(t, w).Code)
				return
			}
			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "u1", body["uid"])
			assert.Equal(t, "BT24CS0001", body["loginId"])
		})
	}
}

func TestRoleRequired(t *testing.T) {
	router := newRouter()

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer student-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, dto.ErrorCodeForbidden, decodeError(t, w).Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRecovery(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, dto.ErrorCodeInternalServer, decodeError(t, w).Code)
}

func TestErrorDetailFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   dto.ErrorCode
	}{
		{apperrors.ErrRoomFull, http.StatusConflict, dto.ErrorCodeRoomFull},
		{fmt.Errorf("allocate: %w", apperrors.ErrAlreadyAllocated), http.StatusConflict, dto.ErrorCodeAlreadyAllocated},
		{apperrors.ErrNotEligible, http.StatusForbidden, dto.ErrorCodeNotEligible},
		{apperrors.ErrStudentNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},
		{apperrors.ErrAlreadyRegistered, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists},
		{apperrors.NewForbiddenError("nope"), http.StatusForbidden, dto.ErrorCodeForbidden},
		{apperrors.ErrPaymentsDisabled, http.StatusServiceUnavailable, dto.ErrorCodePaymentsDisabled},
		{apperrors.ErrProvisioningFailed, http.StatusInternalServerError, dto.ErrorCodeProvisioningFailed},
		{errors.New("disk on fire"), http.StatusInternalServerError, dto.ErrorCodeInternalServer},
	}
	for _, tt := range tests {
		status, detail := ErrorDetailFor(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.code, detail.Code, tt.err.Error())
	}

	_, detail := ErrorDetailFor(apperrors.NewForbiddenError("you can only access your own records"))
	assert.Equal(t, "you can only access your own records", detail.Message)

	_, detail = ErrorDetailFor(fmt.Errorf("db: %w", errors.New("connection reset")))
	assert.Equal(t, "Internal server error", detail.Message)
}

func TestErrorDetailForValidation(t *testing.T) {
	err := validation.Struct(&dto.LoginRequest{Email: "not-an-email", Password: "x"})
	require.Error(t, err)

	status, detail := ErrorDetailFor(err)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, dto.ErrorCodeValidationFailed, detail.Code)
	assert.Equal(t, "email", detail.Field)

	status, detail = ErrorDetailFor(BindError(errors.New("unexpected EOF")))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, dto.ErrorCodeValidationFailed, detail.Code)
	assert.Equal(t, "Invalid request format", detail.Message)
}
