package middleware

import (
	"context"

	"github.com/finopsd/recon_backend/internal/core/domain"
	"github.com/gin-gonic/gin"
)

// contextKey is a private type for context keys set by this package.
// Using a custom type prevents collisions.
type contextKey string

const (
	loggerCtxKey = contextKey("logger")
	userIDKey    = contextKey("userID")
	userRoleKey  = contextKey("userRole")
)

// GetUserIDFromContext retrieves the authenticated user ID from the Gin context.
// It returns the user ID and a boolean indicating if it was found.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userIDVal, exists := c.Get(string(userIDKey))
	if !exists {
		// check in the request context as well
		if v := c.Request.Context().Value(userIDKey); v != nil {
			if userID, ok := v.(string); ok {
				return userID, true
			}
		}
		return "", false
	}

	userID, ok := userIDVal.(string)
	if !ok {
		return "", false
	}
	return userID, true
}

// GetUserRoleFromContext retrieves the authenticated user's role from the Gin
// context. It returns the role and a boolean indicating if it was found.
func GetUserRoleFromContext(c *gin.Context) (domain.UserRole, bool) {
	roleVal, exists := c.Get(string(userRoleKey))
	if !exists {
		if v := c.Request.Context().Value(userRoleKey); v != nil {
			if role, ok := v.(domain.UserRole); ok {
				return role, true
			}
		}
		return "", false
	}

	role, ok := roleVal.(domain.UserRole)
	if !ok {
		return "", false
	}
	return role, true
}

// WithUserID returns a context carrying the authenticated user ID. Exposed for
// tests and background jobs that bypass the HTTP middleware.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}
