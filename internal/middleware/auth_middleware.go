package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/campusops/erp/internal/app/auth"
	"github.com/campusops/erp/internal/app/models"
	"github.com/campusops/erp/internal/app/models/dto"
	"github.com/campusops/erp/internal/pkg/apperrors"
	pkgauth "github.com/campusops/erp/internal/pkg/auth"
	"github.com/campusops/erp/internal/pkg/identity"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// AuthMiddleware for authentication and authorization
type AuthMiddleware struct {
	verifier identity.TokenVerifier
	logger   zerolog.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(verifier identity.TokenVerifier, logger zerolog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		logger:   logger.With().Str("component", "auth_middleware").Logger(),
	}
}

func abortUnauthorized(c *gin.Context, code dto.ErrorCode, message, details string) {
	errorDetail := dto.NewErrorDetail(code, message).WithDetails(details)
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
}

// tokenFromRequest reads the token from the Authorization header, with or without
// the Bearer prefix. Browsers cannot set headers on a websocket upgrade, so the
// token query parameter is accepted as well.
func tokenFromRequest(c *gin.Context) (string, error) {
	authHeader := strings.Trim(c.GetHeader("Authorization"), "\"'")
	if authHeader == "" {
		authHeader = c.Query("token")
	}
	return pkgauth.ExtractBearerToken(authHeader)
}

// Authenticate verifies the ID token and stores the caller's principal
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := tokenFromRequest(c)
		if err != nil || tokenString == "" {
			abortUnauthorized(c, dto.ErrorCodeUnauthorized, "Authentication required", "Authorization header missing")
			return
		}

		token, err := m.verifier.VerifyIDToken(c.Request.Context(), tokenString)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrTokenExpired):
				abortUnauthorized(c, dto.ErrorCodeExpiredToken, "Authentication failed", "Token has expired")
			case errors.Is(err, apperrors.ErrTokenRevoked):
				abortUnauthorized(c, dto.ErrorCodeTokenRevoked, "Authentication failed", "Token has been revoked")
			case errors.Is(err, apperrors.ErrUnavailable):
				HandleAPIError(c, err)
				c.Abort()
			default:
				m.logger.Debug().Err(err).Msg("token verification failed")
				abortUnauthorized(c, dto.ErrorCodeInvalidToken, "Authentication failed", "Invalid token")
			}
			return
		}

		principal, err := auth.PrincipalFromToken(token)
		if err != nil {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeForbidden, "Access denied").
				WithDetails("Account has no role assigned")
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponse(errorDetail))
			return
		}

		auth.SetPrincipal(c, principal)
		c.Next()
	}
}

// RoleRequired middleware to check if user has one of the required roles
func (m *AuthMiddleware) RoleRequired(roles ...models.RoleType) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, exists := auth.PrincipalFrom(c)
		if !exists {
			abortUnauthorized(c, dto.ErrorCodeUnauthorized, "Authentication required", "User role not found")
			return
		}

		if !principal.HasRole(roles...) {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeForbidden, "Access denied").
				WithDetails("You don't have sufficient permissions for this operation")
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponse(errorDetail))
			return
		}

		c.Next()
	}
}
