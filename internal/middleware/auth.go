package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/finopsd/recon_backend/internal/core/domain"
	"github.com/finopsd/recon_backend/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// AuthMiddleware creates a Gin middleware handler that validates JWT tokens
// and stores the user ID and role from the claims in the request context.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := GetLoggerFromCtx(c.Request.Context())

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Warn("Authorization header missing")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			logger.Warn("Authorization header format invalid")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			return
		}

		claims, err := utils.ParseAndValidateJWT(parts[1], jwtSecret)
		if err != nil {
			logger.Warn("Invalid token", "error", err)
			msg := "Invalid token"
			if strings.Contains(err.Error(), jwt.ErrTokenExpired.Error()) {
				msg = "Token has expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		userID := claims.Subject
		if userID == "" {
			logger.Error("User ID (subject) missing from valid token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			return
		}
		role := domain.UserRole(claims.Role)
		if !role.Valid() {
			logger.Error("Role missing or unknown in valid token", slog.String("role", claims.Role))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			return
		}

		ctx := context.WithValue(c.Request.Context(), userIDKey, userID)
		ctx = context.WithValue(ctx, userRoleKey, role)

		enrichedLogger := GetLoggerFromCtx(c.Request.Context()).With(slog.String("user_id", userID))
		ctx = context.WithValue(ctx, loggerCtxKey, enrichedLogger)

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireRole creates a Gin middleware that rejects requests whose
// authenticated role does not grant the capabilities of the required role.
// Role ranks are ordered, so a MANAGER passes an AUDITOR check.
func RequireRole(required domain.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := GetUserRoleFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		if !role.AtLeast(required) {
			GetLoggerFromCtx(c.Request.Context()).Warn("Insufficient role for operation",
				slog.String("role", string(role)),
				slog.String("required", string(required)))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			return
		}
		c.Next()
	}
}
