package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"kiprej-bot/models"
	"kiprej-bot/services"
	"kiprej-bot/utils"
)

// Context keys set by AuthMiddleware.
const (
	KeyUserID     = "user_id"
	KeyTelegramID = "telegram_id"
	KeyUserRole   = "user_role"
)

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			return
		}

		claims, err := utils.ValidateToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(KeyUserID, claims.UserID)
		c.Set(KeyTelegramID, claims.TelegramID)
		c.Set(KeyUserRole, claims.Role)
		c.Next()
	}
}

// UserLookup resolves the current user behind a token.
type UserLookup interface {
	Get(ctx context.Context, telegramID int64) (*models.User, error)
}

// RoleMiddleware re-reads the caller from the database so that a role change
// takes effect before the token expires.
func RoleMiddleware(users UserLookup, required models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		telegramID := c.GetInt64(KeyTelegramID)
		user, err := users.Get(c.Request.Context(), telegramID)
		if err != nil {
			if !errors.Is(err, services.ErrNotFound) {
				log.WithError(err).WithField("telegram_id", telegramID).Error("Failed to load API caller")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
				return
			}
		}
		if services.Authorize(user, required) == services.Deny {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": string(required) + " access required"})
			return
		}
		c.Set(KeyUserRole, string(user.Role))
		c.Next()
	}
}

func AdminMiddleware(users UserLookup) gin.HandlerFunc {
	return RoleMiddleware(users, models.RoleAdmin)
}
