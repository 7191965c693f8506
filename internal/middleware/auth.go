package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/P3chys/ustam-api/internal/config"
	"github.com/P3chys/ustam-api/internal/models"
	"github.com/P3chys/ustam-api/internal/utils"
	"github.com/gin-gonic/gin"
)

// RevocationChecker reports whether a token id was revoked by logout.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// AuthRequired validates the bearer token and stores "user_id", "role",
// "token_id" and "token_expires_at" in the context. revocations may be nil.
func AuthRequired(cfg *config.Config, revocations RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authorization header required")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid authorization format")
			return
		}

		claims, err := utils.ParseToken(tokenString, cfg.JWTSecret)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
			return
		}

		if revocations != nil && claims.ID != "" {
			revoked, err := revocations.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				// Fail open, the token signature is still valid
				_ = c.Error(err)
			} else if revoked {
				abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Token has been revoked")
				return
			}
		}

		c.Set("user_id", claims.UserID)
		c.Set("role", string(claims.Role))
		c.Set("token_id", claims.ID)
		if claims.ExpiresAt != nil {
			c.Set("token_expires_at", claims.ExpiresAt.Time)
		}
		c.Next()
	}
}

func AdminRequired() gin.HandlerFunc {
	return RoleRequired(models.RoleAdmin)
}

// RoleRequired lets the request through only for the listed roles. It must
// run after AuthRequired.
func RoleRequired(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("role")
		for _, allowed := range roles {
			if role == string(allowed) {
				c.Next()
				return
			}
		}

		message := "Insufficient permissions"
		if len(roles) == 1 {
			role := string(roles[0])
			message = strings.ToUpper(role[:1]) + role[1:] + " access required"
		}
		abortWithError(c, http.StatusForbidden, "FORBIDDEN", message)
	}
}

// TokenExpiry returns the remaining lifetime of the authenticated token.
func TokenExpiry(c *gin.Context) time.Duration {
	v, ok := c.Get("token_expires_at")
	if !ok {
		return 0
	}
	expiresAt, ok := v.(time.Time)
	if !ok {
		return 0
	}
	return time.Until(expiresAt)
}
